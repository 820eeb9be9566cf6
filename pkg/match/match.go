// Package match authenticates a login attempt against reconciled user
// records. Spreadsheet data is frequently incomplete, so the context check is
// deliberately forgiving: an account whose stored department/business cell is
// empty must never be locked out of an otherwise-correct login.
package match

import (
	"errors"
	"strings"

	"katara/models"
)

// ErrNoMatch is the single failure result. It intentionally does not say
// which predicate failed, so callers cannot probe for account existence.
var ErrNoMatch = errors.New("invalid credentials")

// Attempt is a declared login context. DepartmentID is the department chosen
// at login for the Department role; Business is the business name chosen for
// the Accounting role. Both are ignored for other roles.
type Attempt struct {
	Role         models.Role
	Username     string
	Password     string
	DepartmentID string
	Business     string
}

// norm lower-cases and trims a value for case-insensitive comparison.
func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// storedEmpty reports whether a stored context cell carries no usable value.
// Sheets exported from the old system hold the literal strings "undefined"
// and "null" where a cell was blank; those count as empty.
func storedEmpty(v string) bool {
	switch norm(v) {
	case "", "undefined", "null":
		return true
	}
	return false
}

// contextMatch is the forgiving predicate: an empty stored value passes
// unconditionally; otherwise the stored value must equal, case-insensitively,
// either the selected identifier or the selected display name.
func contextMatch(stored, selectedID, selectedName string) bool {
	if storedEmpty(stored) {
		return true
	}
	s := norm(stored)
	if selectedID != "" && s == norm(selectedID) {
		return true
	}
	return selectedName != "" && s == norm(selectedName)
}

// Authenticate finds the user record satisfying all four predicates:
// username (case-insensitive, trimmed), password (exact), role, and the
// role-dependent context match. On success it returns a copy of the record
// with the selected context applied as a session-scoped override; the stored
// record is never mutated.
func Authenticate(a Attempt, users []models.UserAccount, departments []models.Department) (models.UserAccount, error) {
	selectedDeptName := ""
	for _, d := range departments {
		if strings.TrimSpace(d.ID) == strings.TrimSpace(a.DepartmentID) {
			selectedDeptName = d.Name
			break
		}
	}

	for _, u := range users {
		if norm(u.Username) != norm(a.Username) {
			continue
		}
		if u.Password != a.Password {
			continue
		}
		if u.Role != a.Role {
			continue
		}
		switch a.Role {
		case models.RoleDepartment:
			if !contextMatch(u.DepartmentID, a.DepartmentID, selectedDeptName) {
				continue
			}
		case models.RoleAccounting:
			if !contextMatch(u.Business, "", a.Business) {
				continue
			}
		}

		// Session override: if the stored context is empty or differs from
		// the one chosen at login, the session carries the selected one so
		// downstream views scope consistently.
		session := u
		if a.Role == models.RoleDepartment && session.DepartmentID != a.DepartmentID {
			session.DepartmentID = a.DepartmentID
		}
		if a.Role == models.RoleAccounting && session.Business != a.Business {
			session.Business = a.Business
		}
		return session, nil
	}
	return models.UserAccount{}, ErrNoMatch
}
