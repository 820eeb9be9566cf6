package reconcile

import "testing"

func TestNormalizeRowAliasVariants(t *testing.T) {
	cases := []string{"username", "USERNAME", "User Name", "user_name", "pengguna", "Pengguna"}
	for _, key := range cases {
		row := Row{key: "budi"}
		norm := NormalizeRow(row, KindUsers)
		if norm["username"] != "budi" {
			t.Fatalf("key %q: expected username=budi, got %v", key, norm)
		}
	}
}

func TestNormalizeRowMultilingual(t *testing.T) {
	row := Row{
		"Pengguna":  "ana",
		"Sandi":     "x1",
		"Peran":     "Kepala Keuangan",
		"ID Dept":   "3",
		"Alamat":    "Jl. Merdeka 1",
		"Unit Bisnis": "Warung Bakso",
	}
	norm := NormalizeRow(row, KindUsers)
	if norm["username"] != "ana" || norm["password"] != "x1" || norm["role"] != "Kepala Keuangan" {
		t.Fatalf("unexpected normalization: %v", norm)
	}
	if norm["departmentId"] != "3" || norm["storeAddress"] != "Jl. Merdeka 1" || norm["business"] != "Warung Bakso" {
		t.Fatalf("unexpected context fields: %v", norm)
	}
}

func TestNormalizeRowUnknownKeysPassThrough(t *testing.T) {
	row := Row{"Kolom Aneh": "x", "username": "a"}
	norm := NormalizeRow(row, KindUsers)
	if norm["Kolom Aneh"] != "x" {
		t.Fatalf("unknown key should pass through unchanged, got %v", norm)
	}
}

func TestNormalizeRowKindOverrides(t *testing.T) {
	// "lokasi" is the store address on a user row but the location on a
	// submission row.
	user := NormalizeRow(Row{"lokasi": "toko A"}, KindUsers)
	if user["storeAddress"] != "toko A" {
		t.Fatalf("user row: expected storeAddress, got %v", user)
	}
	sub := NormalizeRow(Row{"lokasi": "toko A"}, KindSubmissions)
	if sub["location"] != "toko A" {
		t.Fatalf("submission row: expected location, got %v", sub)
	}
}

func TestNormalizeRowSubmissionFields(t *testing.T) {
	row := Row{
		"Tanggal":          "2024-05-01",
		"Nominal":          500000,
		"Keterangan":       "beli bahan",
		"Alasan Penolakan": "over budget",
		"Status":           "Menunggu Finance",
	}
	norm := NormalizeRow(row, KindSubmissions)
	if norm["date"] != "2024-05-01" || norm["amount"] != 500000 {
		t.Fatalf("unexpected date/amount: %v", norm)
	}
	if norm["note"] != "beli bahan" || norm["rejectionNote"] != "over budget" || norm["status"] != "Menunggu Finance" {
		t.Fatalf("unexpected text fields: %v", norm)
	}
}
