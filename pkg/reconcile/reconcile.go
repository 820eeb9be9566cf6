package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"katara/models"
)

// BuiltinAdmin is substituted when reconciliation yields zero valid user
// records, so the system always has at least one login path.
var BuiltinAdmin = models.UserAccount{
	ID:       "admin-0",
	Username: "admin",
	Password: "password123",
	Role:     models.RoleSuperAdmin,
	Name:     "Administrator Utama",
}

// asString renders any cell value as a trimmed string. nil becomes "".
func asString(v any) string {
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return strings.TrimSpace(s.String())
	case float64:
		// spreadsheet ids frequently arrive as numbers; avoid "3.000000"
		return strings.TrimSpace(decimal.NewFromFloat(s).String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// asAmount parses a cell into a money value, falling back to zero on
// anything unparseable. Accepts numbers, numeric strings, and strings with
// a currency prefix or thousands separators stripped out.
func asAmount(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case json.Number:
		if d, err := decimal.NewFromString(n.String()); err == nil {
			return d
		}
		return decimal.Zero
	}
	s := asString(v)
	if s == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	// second chance: drop everything but digits, sign, and decimal point
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if d, err := decimal.NewFromString(cleaned); err == nil {
		return d
	}
	return decimal.Zero
}

// cleanDate strips the time-of-day suffix from an ISO-8601 timestamp,
// keeping only YYYY-MM-DD. Plain dates pass through.
func cleanDate(v any) string {
	s := asString(v)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	return s
}

// cleanMonth canonicalizes a month cell to YYYY-MM. Sheets commonly hold a
// full timestamp (month pickers serialize as ISO dates), so strip the time
// part and keep the first seven characters.
func cleanMonth(v any) string {
	s := cleanDate(v)
	if len(s) > 7 && s[4] == '-' {
		s = s[:7]
	}
	return s
}

// Users reconciles raw user rows. Rows without a username are dropped; a
// missing id falls back to "manual-<username>". If nothing valid survives,
// the built-in administrator is substituted.
func Users(rows []Row) []models.UserAccount {
	out := make([]models.UserAccount, 0, len(rows))
	for _, raw := range rows {
		norm := NormalizeRow(raw, KindUsers)
		username := asString(norm["username"])
		if username == "" {
			continue
		}
		u := models.UserAccount{
			ID:           asString(norm["id"]),
			Username:     username,
			Password:     asString(norm["password"]),
			Role:         ClassifyRole(asString(norm["role"])),
			DepartmentID: asString(norm["departmentId"]),
			Business:     asString(norm["business"]),
			StoreAddress: asString(norm["storeAddress"]),
			Name:         asString(norm["name"]),
		}
		if u.ID == "" {
			u.ID = "manual-" + u.Username
		}
		out = append(out, u)
	}
	if len(out) == 0 {
		return []models.UserAccount{BuiltinAdmin}
	}
	return out
}

// Departments reconciles raw department rows, dropping rows without a name.
func Departments(rows []Row) []models.Department {
	out := make([]models.Department, 0, len(rows))
	for _, raw := range rows {
		norm := NormalizeRow(raw, KindDepartments)
		name := asString(norm["name"])
		if name == "" {
			continue
		}
		out = append(out, models.Department{
			ID:   asString(norm["id"]),
			Name: name,
		})
	}
	return out
}

// Businesses reconciles raw business-unit rows, dropping rows without a name.
func Businesses(rows []Row) []models.BusinessUnit {
	out := make([]models.BusinessUnit, 0, len(rows))
	for _, raw := range rows {
		norm := NormalizeRow(raw, KindBusinesses)
		name := asString(norm["name"])
		if name == "" {
			continue
		}
		out = append(out, models.BusinessUnit{
			ID:   asString(norm["id"]),
			Name: name,
		})
	}
	return out
}

// Limits reconciles raw limit rows. (departmentId, month) is a unique key:
// when the sheet holds duplicates the last row wins, matching the
// replace-on-save behavior of the limit editor.
func Limits(rows []Row) []models.BudgetLimit {
	byKey := make(map[string]int, len(rows))
	out := make([]models.BudgetLimit, 0, len(rows))
	for _, raw := range rows {
		norm := NormalizeRow(raw, KindLimits)
		l := models.BudgetLimit{
			ID:           asString(norm["id"]),
			DepartmentID: asString(norm["departmentId"]),
			Month:        cleanMonth(norm["month"]),
			LimitAmount:  asAmount(norm["limitAmount"]),
		}
		if l.LimitAmount.IsNegative() {
			l.LimitAmount = decimal.Zero
		}
		key := l.DepartmentID + "|" + l.Month
		if i, ok := byKey[key]; ok {
			out[i] = l
			continue
		}
		byKey[key] = len(out)
		out = append(out, l)
	}
	return out
}

// Submissions reconciles raw submission rows.
func Submissions(rows []Row) []models.BudgetSubmission {
	out := make([]models.BudgetSubmission, 0, len(rows))
	for _, raw := range rows {
		norm := NormalizeRow(raw, KindSubmissions)
		s := models.BudgetSubmission{
			ID:            asString(norm["id"]),
			Date:          cleanDate(norm["date"]),
			DepartmentID:  asString(norm["departmentId"]),
			Business:      asString(norm["business"]),
			Amount:        asAmount(norm["amount"]),
			Note:          asString(norm["note"]),
			Location:      asString(norm["location"]),
			Status:        StatusFromString(asString(norm["status"])),
			RejectionNote: asString(norm["rejectionNote"]),
			UserID:        asString(norm["userId"]),
		}
		if !s.Status.Rejected() {
			s.RejectionNote = ""
		}
		out = append(out, s)
	}
	return out
}

// Settings reconciles the settings row. ok is false when the row carries no
// backend URL, in which case the caller keeps its current settings.
func Settings(row Row) (models.WebSettings, bool) {
	if row == nil {
		return models.WebSettings{}, false
	}
	norm := NormalizeRow(row, KindSettings)
	s := models.WebSettings{
		LogoURL:    asString(norm["logoUrl"]),
		SiteName:   asString(norm["siteName"]),
		DatabaseID: asString(norm["databaseId"]),
		BackendURL: asString(norm["backendUrl"]),
	}
	return s, s.BackendURL != ""
}
