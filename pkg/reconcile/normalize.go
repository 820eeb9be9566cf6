package reconcile

import (
	"regexp"
	"strings"
)

// Kind selects which alias table applies when normalizing a raw row.
type Kind string

const (
	KindUsers       Kind = "users"
	KindDepartments Kind = "departments"
	KindBusinesses  Kind = "businesses"
	KindLimits      Kind = "limits"
	KindSubmissions Kind = "submissions"
	KindSettings    Kind = "settings"
)

// Row is one raw record from the remote store: arbitrary column names,
// loosely typed values.
type Row map[string]any

var nonAlnumRE = regexp.MustCompile(`[^a-z0-9]`)

// cleanKey lower-cases a raw column name and strips everything outside
// [a-z0-9], so "User Name", "USERNAME" and "user_name" all collapse to
// "username" before alias lookup.
func cleanKey(k string) string {
	return nonAlnumRE.ReplaceAllString(strings.ToLower(k), "")
}

// sharedAliases covers columns that appear on several sheets. Indonesian
// spellings come from the deployed spreadsheets.
var sharedAliases = map[string]string{
	"id":           "id",
	"username":     "username",
	"user":         "username",
	"pengguna":     "username",
	"password":     "password",
	"pass":         "password",
	"sandi":        "password",
	"katasandi":    "password",
	"name":         "name",
	"nama":         "name",
	"fullname":     "name",
	"role":         "role",
	"peran":        "role",
	"jabatan":      "role",
	"akses":        "role",
	"departmentid": "departmentId",
	"deptid":       "departmentId",
	"iddept":       "departmentId",
	"department":   "departmentId",
	"business":     "business",
	"bisnis":       "business",
	"unitbisnis":   "business",
	"storeaddress": "storeAddress",
	"alamat":       "storeAddress",
	"lokasi":       "storeAddress",
}

// kindAliases take precedence over sharedAliases, so e.g. "lokasi" on a
// submission row means the submission location, not a user's store address.
var kindAliases = map[Kind]map[string]string{
	KindSubmissions: {
		"date":             "date",
		"tanggal":          "date",
		"tgl":              "date",
		"amount":           "amount",
		"nominal":          "amount",
		"jumlah":           "amount",
		"note":             "note",
		"catatan":          "note",
		"keterangan":       "note",
		"location":         "location",
		"lokasi":           "location",
		"status":           "status",
		"userid":           "userId",
		"iduser":           "userId",
		"rejectionnote":    "rejectionNote",
		"alasanpenolakan":  "rejectionNote",
		"catatanpenolakan": "rejectionNote",
	},
	KindLimits: {
		"month":         "month",
		"bulan":         "month",
		"limitamount":   "limitAmount",
		"limit":         "limitAmount",
		"batas":         "limitAmount",
		"batasanggaran": "limitAmount",
	},
	KindSettings: {
		"logourl":    "logoUrl",
		"logo":       "logoUrl",
		"sitename":   "siteName",
		"namasitus":  "siteName",
		"namaweb":    "siteName",
		"databaseid": "databaseId",
		"iddatabase": "databaseId",
		"backendurl": "backendUrl",
		"urlbackend": "backendUrl",
	},
}

// NormalizeRow maps a raw row's column names onto the canonical field set for
// the given kind. Unmatched keys pass through under their original name, which
// keeps unknown external columns from being silently destroyed. When two raw
// keys canonicalize to the same field the last one seen wins; map iteration
// order makes that nondeterministic, which is accepted for dirty input.
func NormalizeRow(row Row, kind Kind) Row {
	out := make(Row, len(row))
	for key, val := range row {
		ck := cleanKey(key)
		if canon, ok := kindAliases[kind][ck]; ok {
			out[canon] = val
			continue
		}
		if canon, ok := sharedAliases[ck]; ok {
			out[canon] = val
			continue
		}
		out[key] = val
	}
	return out
}
