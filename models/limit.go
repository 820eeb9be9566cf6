package models

import "github.com/shopspring/decimal"

// BudgetLimit caps approved spend for one department in one month.
// Uniquely keyed by (DepartmentID, Month); saving an existing key replaces
// the prior limit instead of duplicating it.
type BudgetLimit struct {
	ID           string          `json:"id"`
	DepartmentID string          `json:"departmentId"`
	Month        string          `json:"month"` // YYYY-MM
	LimitAmount  decimal.Decimal `json:"limitAmount"`
}
