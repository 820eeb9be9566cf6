package models

// BusinessUnit is a line of business a submission is charged against.
// Submissions and Accounting users reference it by name, not id.
type BusinessUnit struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
