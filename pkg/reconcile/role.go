package reconcile

import (
	"strings"

	"katara/models"
)

// ClassifyRole maps a free-form role string onto the canonical role set.
// It is total: anything unrecognized (including the empty string) degrades to
// RoleDepartment, the least-privileged operational role, so imported rows
// with a mistyped role still resolve to a usable account.
func ClassifyRole(raw string) models.Role {
	r := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(r, "super") || r == "admin":
		return models.RoleSuperAdmin
	case strings.Contains(r, "finance") || strings.Contains(r, "keuangan") || strings.Contains(r, "finansial"):
		return models.RoleFinance
	case strings.Contains(r, "account") || strings.Contains(r, "akuntansi") || strings.Contains(r, "pembukuan"):
		return models.RoleAccounting
	case strings.Contains(r, "direk") || strings.Contains(r, "director") || strings.Contains(r, "pimpinan") ||
		strings.Contains(r, "bos") || strings.Contains(r, "ceo"):
		return models.RoleDireksi
	default:
		return models.RoleDepartment
	}
}

// StatusFromString maps a stored status cell onto the canonical enumeration.
// Sheets edited by hand may carry the Indonesian display labels ("Menunggu
// Direksi", "Disetujui Finance") instead of the enum values; both forms are
// accepted. Unrecognized input falls back to PENDING_FINANCE so a mangled row
// re-enters the Finance queue rather than silently counting as approved.
func StatusFromString(raw string) models.BudgetStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	direksi := strings.Contains(s, "direksi")
	switch {
	case strings.Contains(s, "approved") || strings.Contains(s, "disetujui") || strings.Contains(s, "setuju"):
		if direksi {
			return models.StatusApprovedDireksi
		}
		return models.StatusApprovedFinance
	case strings.Contains(s, "rejected") || strings.Contains(s, "ditolak") || strings.Contains(s, "tolak"):
		if direksi {
			return models.StatusRejectedDireksi
		}
		return models.StatusRejectedFinance
	case direksi:
		return models.StatusPendingDireksi
	default:
		return models.StatusPendingFinance
	}
}
