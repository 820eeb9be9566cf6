package models

// UserAccount is a reconciled login account. Passwords are stored in the
// spreadsheet as plain text and compared by exact value; this system does not
// own the credential store and must match whatever the sheet holds.
type UserAccount struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Password     string `json:"password,omitempty"`
	Role         Role   `json:"role"`
	DepartmentID string `json:"departmentId,omitempty"` // Department role context
	Business     string `json:"business,omitempty"`     // Accounting role context (business name)
	StoreAddress string `json:"storeAddress,omitempty"`
	Name         string `json:"name"`
}
