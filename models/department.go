package models

// Department is an organizational unit that submits budget requests.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
