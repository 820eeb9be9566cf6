// Package workflow governs the lifecycle of a budget submission from
// creation through terminal approval or rejection, and derives monthly limit
// statistics. All functions are pure: they take and return submission values
// and leave persistence to the caller.
package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"katara/models"
)

// DecisionAction is a reviewer's verdict on a pending submission.
type DecisionAction string

const (
	ActionApprove  DecisionAction = "APPROVE"
	ActionReject   DecisionAction = "REJECT"
	ActionEscalate DecisionAction = "ESCALATE"
)

// StoreHeadDepartment is the department whose submissions are tied to a
// physical branch and therefore require a location.
const StoreHeadDepartment = "Kepala Toko"

// RequiresLocation reports whether submissions from the named department
// must carry a non-empty location.
func RequiresLocation(departmentName string) bool {
	return departmentName == StoreHeadDepartment
}

// SubmitInput is the validated payload for a new submission.
type SubmitInput struct {
	Date            string
	DepartmentID    string
	Business        string
	Amount          decimal.Decimal
	Note            string
	Location        string
	UserID          string
	RequireLocation bool
}

// NewSubmission validates the input and builds a submission in
// PENDING_FINANCE. The caller decides RequireLocation from the submitting
// department (see RequiresLocation).
func NewSubmission(in SubmitInput) (models.BudgetSubmission, error) {
	if !in.Amount.GreaterThan(decimal.Zero) {
		return models.BudgetSubmission{}, validationf("amount must be greater than zero")
	}
	if in.RequireLocation && strings.TrimSpace(in.Location) == "" {
		return models.BudgetSubmission{}, validationf("location is required for this department")
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return models.BudgetSubmission{
		ID:           "sub-" + uuid.NewString(),
		Date:         date,
		DepartmentID: in.DepartmentID,
		Business:     in.Business,
		Amount:       in.Amount,
		Note:         in.Note,
		Location:     in.Location,
		Status:       models.StatusPendingFinance,
		UserID:       in.UserID,
	}, nil
}

// FinanceDecide applies a Finance verdict. Valid only while the submission is
// PENDING_FINANCE. ESCALATE is accepted unconditionally in that state: the
// over-limit policy lives with the caller, which may be acting on stale limit
// data, so the machine never second-guesses an escalation request.
func FinanceDecide(s models.BudgetSubmission, action DecisionAction, note string) (models.BudgetSubmission, error) {
	if s.Status != models.StatusPendingFinance {
		return s, &StateConflictError{ID: s.ID, Status: s.Status, Want: string(models.StatusPendingFinance)}
	}
	switch action {
	case ActionApprove:
		s.Status = models.StatusApprovedFinance
	case ActionEscalate:
		s.Status = models.StatusPendingDireksi
	case ActionReject:
		if strings.TrimSpace(note) == "" {
			return s, validationf("rejection note is required")
		}
		s.Status = models.StatusRejectedFinance
		s.RejectionNote = note
	default:
		return s, validationf("unknown finance action %q", action)
	}
	return s, nil
}

// DireksiDecide applies an executive verdict. Valid only while the submission
// is PENDING_DIREKSI; escalation cannot go further.
func DireksiDecide(s models.BudgetSubmission, action DecisionAction, note string) (models.BudgetSubmission, error) {
	if s.Status != models.StatusPendingDireksi {
		return s, &StateConflictError{ID: s.ID, Status: s.Status, Want: string(models.StatusPendingDireksi)}
	}
	switch action {
	case ActionApprove:
		s.Status = models.StatusApprovedDireksi
	case ActionReject:
		if strings.TrimSpace(note) == "" {
			return s, validationf("rejection note is required")
		}
		s.Status = models.StatusRejectedDireksi
		s.RejectionNote = note
	default:
		return s, validationf("unknown direksi action %q", action)
	}
	return s, nil
}

// ReverseFinanceDecision undoes a Finance verdict, returning the submission
// to PENDING_FINANCE and clearing the rejection note. Direksi decisions are
// final and cannot be reversed.
func ReverseFinanceDecision(s models.BudgetSubmission) (models.BudgetSubmission, error) {
	switch s.Status {
	case models.StatusApprovedFinance, models.StatusRejectedFinance:
		s.Status = models.StatusPendingFinance
		s.RejectionNote = ""
		return s, nil
	default:
		return s, &StateConflictError{ID: s.ID, Status: s.Status, Want: "a finance-decided state"}
	}
}

// CheckDeletable returns nil when the submission may be deleted by its owning
// department: while still waiting on Finance, or after a rejection. Ownership
// itself is checked at the edge.
func CheckDeletable(s models.BudgetSubmission) error {
	if s.Status == models.StatusPendingFinance || s.Status.Rejected() {
		return nil
	}
	return &StateConflictError{ID: s.ID, Status: s.Status, Want: "pending finance or rejected"}
}
