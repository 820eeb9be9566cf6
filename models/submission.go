package models

import "github.com/shopspring/decimal"

// BudgetStatus is the lifecycle state of a budget submission.
type BudgetStatus string

const (
	StatusPendingFinance  BudgetStatus = "PENDING_FINANCE"
	StatusPendingDireksi  BudgetStatus = "PENDING_DIREKSI"
	StatusApprovedFinance BudgetStatus = "APPROVED_FINANCE"
	StatusApprovedDireksi BudgetStatus = "APPROVED_DIREKSI"
	StatusRejectedFinance BudgetStatus = "REJECTED_FINANCE"
	StatusRejectedDireksi BudgetStatus = "REJECTED_DIREKSI"
)

// Approved reports whether the status counts toward monthly spend.
// Pending, escalated-but-undecided and rejected submissions never do.
func (s BudgetStatus) Approved() bool {
	return s == StatusApprovedFinance || s == StatusApprovedDireksi
}

func (s BudgetStatus) Rejected() bool {
	return s == StatusRejectedFinance || s == StatusRejectedDireksi
}

func (s BudgetStatus) Pending() bool {
	return s == StatusPendingFinance || s == StatusPendingDireksi
}

// BudgetSubmission is one spending request from a department.
type BudgetSubmission struct {
	ID            string          `json:"id"`
	Date          string          `json:"date"` // YYYY-MM-DD
	DepartmentID  string          `json:"departmentId"`
	Business      string          `json:"business"` // business unit name
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note"`
	Location      string          `json:"location"`
	Status        BudgetStatus    `json:"status"`
	RejectionNote string          `json:"rejectionNote,omitempty"` // set only while rejected
	UserID        string          `json:"userId"`
}
