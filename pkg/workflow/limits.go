package workflow

import (
	"strings"

	"github.com/shopspring/decimal"

	"katara/models"
)

// LimitStats is the monthly budget position of one department: the
// configured cap and the amount already approved against it.
type LimitStats struct {
	Limit decimal.Decimal `json:"limit"`
	Spent decimal.Decimal `json:"spent"`
}

// MonthOf reduces a YYYY-MM-DD date to its YYYY-MM month.
func MonthOf(date string) string {
	if len(date) > 7 {
		return date[:7]
	}
	return date
}

// Stats computes the limit and approved spend for a department in the month
// of the given date. Submissions count toward spend only while approved;
// pending, escalated-but-undecided and rejected ones never do. This is a pure
// read over the current collections, recomputed on every call because
// submissions mutate too often for the result to be cached.
func Stats(departmentID, date string, limits []models.BudgetLimit, submissions []models.BudgetSubmission) LimitStats {
	month := MonthOf(date)
	stats := LimitStats{Limit: decimal.Zero, Spent: decimal.Zero}
	for _, l := range limits {
		if l.DepartmentID == departmentID && l.Month == month {
			stats.Limit = l.LimitAmount
			break
		}
	}
	for _, s := range submissions {
		if s.DepartmentID == departmentID && strings.HasPrefix(s.Date, month) && s.Status.Approved() {
			stats.Spent = stats.Spent.Add(s.Amount)
		}
	}
	return stats
}

// Exceeds reports whether approving one more submission of the given amount
// would push the department past its monthly limit. The presentation layer
// uses this to escalate to Direksi instead of approving.
func (st LimitStats) Exceeds(amount decimal.Decimal) bool {
	return st.Spent.Add(amount).GreaterThan(st.Limit)
}

// ApprovedByDepartment aggregates approved spend per department for one
// month, for the read-only report views.
func ApprovedByDepartment(submissions []models.BudgetSubmission, month string) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, s := range submissions {
		if !strings.HasPrefix(s.Date, month) || !s.Status.Approved() {
			continue
		}
		cur, ok := totals[s.DepartmentID]
		if !ok {
			cur = decimal.Zero
		}
		totals[s.DepartmentID] = cur.Add(s.Amount)
	}
	return totals
}
