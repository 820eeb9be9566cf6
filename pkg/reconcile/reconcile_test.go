package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"

	"katara/models"
)

func TestUsersDropsRowsWithoutUsername(t *testing.T) {
	rows := []Row{
		{"username": "ana", "password": "x1"},
		{"password": "no-name"},
		{"username": "   "},
	}
	users := Users(rows)
	if len(users) != 1 || users[0].Username != "ana" {
		t.Fatalf("expected only ana to survive, got %+v", users)
	}
}

func TestUsersKeepsRowsWithUnknownExtraFields(t *testing.T) {
	rows := []Row{{"username": "ana", "Catatan Internal": "jangan dihapus"}}
	users := Users(rows)
	if len(users) != 1 {
		t.Fatalf("row with extra unknown fields must survive, got %+v", users)
	}
}

func TestUsersScenarioIndonesianRow(t *testing.T) {
	rows := []Row{{"Pengguna": "ana", "Sandi": "x1", "Peran": "Kepala Keuangan"}}
	users := Users(rows)
	if len(users) != 1 {
		t.Fatalf("expected one user, got %d", len(users))
	}
	u := users[0]
	if u.Username != "ana" || u.Password != "x1" || u.Role != models.RoleFinance {
		t.Fatalf("unexpected reconciled user: %+v", u)
	}
	if u.ID != "manual-ana" {
		t.Fatalf("expected fallback id manual-ana, got %q", u.ID)
	}
}

func TestUsersBuiltinAdminFallback(t *testing.T) {
	users := Users(nil)
	if len(users) != 1 || users[0].ID != BuiltinAdmin.ID {
		t.Fatalf("expected built-in admin when no valid users, got %+v", users)
	}
	users = Users([]Row{{"password": "orphan"}})
	if len(users) != 1 || users[0].Username != "admin" {
		t.Fatalf("expected built-in admin when all rows dropped, got %+v", users)
	}
}

func TestDepartmentsDropNameless(t *testing.T) {
	depts := Departments([]Row{
		{"id": 1, "Nama": "Kepala Toko"},
		{"id": 2, "name": ""},
		{"id": 3},
	})
	if len(depts) != 1 || depts[0].Name != "Kepala Toko" || depts[0].ID != "1" {
		t.Fatalf("unexpected departments: %+v", depts)
	}
}

func TestBusinessesDropNameless(t *testing.T) {
	biz := Businesses([]Row{
		{"id": "b1", "nama": "Warung Bakso"},
		{"id": "b2", "nama": "  "},
	})
	if len(biz) != 1 || biz[0].Name != "Warung Bakso" {
		t.Fatalf("unexpected businesses: %+v", biz)
	}
}

func TestLimitsTimestampAndDuplicates(t *testing.T) {
	limits := Limits([]Row{
		{"id": "l1", "departmentId": "3", "Bulan": "2024-05-01T16:00:00.000Z", "limitAmount": "1000000"},
		{"id": "l2", "departmentId": "3", "month": "2024-05", "limit": 2000000},
		{"id": "l3", "departmentId": "7", "month": "2024-05", "limitAmount": "bukan angka"},
	})
	if len(limits) != 2 {
		t.Fatalf("duplicate (dept,month) must be collapsed, got %+v", limits)
	}
	if limits[0].Month != "2024-05" {
		t.Fatalf("expected month 2024-05, got %q", limits[0].Month)
	}
	// last row wins for the duplicated key
	if limits[0].ID != "l2" || !limits[0].LimitAmount.Equal(decimal.NewFromInt(2000000)) {
		t.Fatalf("expected replacement limit l2, got %+v", limits[0])
	}
	if !limits[1].LimitAmount.IsZero() {
		t.Fatalf("unparseable amount must fall back to 0, got %v", limits[1].LimitAmount)
	}
}

func TestSubmissionsCoercion(t *testing.T) {
	subs := Submissions([]Row{{
		"id":           12,
		"Tanggal":      "2024-05-15T16:00:00.000Z",
		"departmentId": 3,
		"bisnis":       "Katara GO",
		"Nominal":      "500000",
		"catatan":      " beli bahan ",
		"status":       "Menunggu Direksi",
		"userId":       "u1",
	}})
	if len(subs) != 1 {
		t.Fatalf("expected one submission, got %d", len(subs))
	}
	s := subs[0]
	if s.ID != "12" || s.Date != "2024-05-15" || s.DepartmentID != "3" {
		t.Fatalf("unexpected identifiers: %+v", s)
	}
	if !s.Amount.Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("expected amount 500000, got %v", s.Amount)
	}
	if s.Status != models.StatusPendingDireksi || s.Note != "beli bahan" {
		t.Fatalf("unexpected status/note: %+v", s)
	}
}

func TestSubmissionsRejectionNoteOnlyWhileRejected(t *testing.T) {
	subs := Submissions([]Row{
		{"id": "a", "status": "Menunggu Finance", "alasan penolakan": "stale note"},
		{"id": "b", "status": "Ditolak Finance", "alasan penolakan": "over budget"},
	})
	if subs[0].RejectionNote != "" {
		t.Fatalf("pending submission must not carry a rejection note: %+v", subs[0])
	}
	if subs[1].RejectionNote != "over budget" {
		t.Fatalf("rejected submission lost its note: %+v", subs[1])
	}
}

func TestSettings(t *testing.T) {
	s, ok := Settings(Row{"Backend URL": "https://script.example/exec", "Nama Situs": "Katara"})
	if !ok || s.BackendURL != "https://script.example/exec" || s.SiteName != "Katara" {
		t.Fatalf("unexpected settings: %+v ok=%v", s, ok)
	}
	if _, ok := Settings(Row{"siteName": "x"}); ok {
		t.Fatal("settings without backendUrl must not be applied")
	}
	if _, ok := Settings(nil); ok {
		t.Fatal("nil settings row must not be applied")
	}
}

func TestAsAmountFallbacks(t *testing.T) {
	if !asAmount(float64(1500)).Equal(decimal.NewFromInt(1500)) {
		t.Fatal("float64 amount")
	}
	if !asAmount("2500").Equal(decimal.NewFromInt(2500)) {
		t.Fatal("string amount")
	}
	if !asAmount("Rp 2500").Equal(decimal.NewFromInt(2500)) {
		t.Fatal("currency-prefixed amount")
	}
	if !asAmount(nil).IsZero() || !asAmount("").IsZero() || !asAmount("abc").IsZero() {
		t.Fatal("fallback to zero")
	}
}
