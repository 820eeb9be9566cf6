package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"katara/models"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// stubRemoteStore serves the bulk read with a small fixed dataset and
// swallows writes, the way the script endpoint does.
func stubRemoteStore(t *testing.T) *httptest.Server {
	t.Helper()
	month := time.Now().Format("2006-01")
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusOK)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]any{
				{"id": "u-dept", "Pengguna": "dewi", "Sandi": "pw", "Peran": "Departemen", "departmentId": "1"},
				{"id": "u-fin", "username": "fina", "password": "pw", "role": "Kepala Keuangan"},
				{"id": "u-dir", "username": "dirk", "password": "pw", "role": "Direktur Utama"},
			},
			"departments": []map[string]any{
				{"id": "1", "name": "Gudang"},
				{"id": "2", "name": "Kepala Toko"},
			},
			"limits": []map[string]any{
				{"id": "lim-1", "departmentId": "1", "month": month, "limitAmount": 1000000},
			},
		})
	}))
}

func setupTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := stubRemoteStore(t)
	t.Cleanup(srv.Close)

	os.Setenv("LOCAL_DB_PATH", filepath.Join(t.TempDir(), "test.db"))
	initLocalDB()
	jwtSecret = []byte("test-secret")

	appState = NewAppState(models.WebSettings{SiteName: "Test", BackendURL: srv.URL}, persistLocalSettings)
	if err := appState.Reload(context.Background()); err != nil {
		t.Fatalf("initial reload failed: %v", err)
	}

	r := gin.New()
	setupRoutes(r)
	return r
}

func login(t *testing.T, r http.Handler, body map[string]string) (string, map[string]any) {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp := performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(raw), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var out map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	token, _ := out["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", out)
	}
	return token, out
}

func TestEscalationFlow(t *testing.T) {
	r := setupTestServer(t)
	today := time.Now().Format("2006-01-02")

	deptToken, loginResp := login(t, r, map[string]string{
		"role": "DEPARTMENT", "username": "dewi", "password": "pw", "departmentId": "1",
	})
	user, _ := loginResp["user"].(map[string]any)
	if user["password"] != nil && user["password"] != "" {
		t.Fatalf("login response leaked the password: %+v", user)
	}
	finToken, _ := login(t, r, map[string]string{
		"role": "FINANCE", "username": "fina", "password": "pw",
	})
	dirToken, _ := login(t, r, map[string]string{
		"role": "DIREKSI", "username": "dirk", "password": "pw",
	})

	submit := func(amount int) string {
		body, _ := json.Marshal(map[string]any{
			"date": today, "business": "Mbah Man", "amount": amount, "note": "restock",
		})
		resp := performRequest(r, http.MethodPost, "/submissions", bytes.NewBuffer(body), deptToken)
		if resp.Code != http.StatusOK {
			t.Fatalf("submit failed status=%d body=%s", resp.Code, resp.Body.String())
		}
		var sub models.BudgetSubmission
		_ = json.Unmarshal(resp.Body.Bytes(), &sub)
		if sub.Status != models.StatusPendingFinance {
			t.Fatalf("new submission status = %s", sub.Status)
		}
		return sub.ID
	}
	decide := func(token, id, stage, action, note string, wantCode int) {
		body, _ := json.Marshal(map[string]string{"action": action, "note": note})
		resp := performRequest(r, http.MethodPost, "/submissions/"+id+"/"+stage, bytes.NewBuffer(body), token)
		if resp.Code != wantCode {
			t.Fatalf("%s %s on %s: status=%d body=%s", stage, action, id, resp.Code, resp.Body.String())
		}
	}
	spent := func() string {
		resp := performRequest(r, http.MethodGet, "/limits/stats?department_id=1&date="+today, nil, finToken)
		if resp.Code != http.StatusOK {
			t.Fatalf("stats failed status=%d body=%s", resp.Code, resp.Body.String())
		}
		var stats map[string]any
		_ = json.Unmarshal(resp.Body.Bytes(), &stats)
		s, _ := stats["spent"].(string)
		return s
	}

	// within the limit, finance approves outright
	first := submit(700000)
	decide(finToken, first, "finance", "APPROVE", "", http.StatusOK)
	if got := spent(); got != "700000" {
		t.Fatalf("spent after first approval = %s, want 700000", got)
	}

	// the second request would push the month past its limit; finance
	// escalates and direksi has the final word
	second := submit(500000)
	decide(finToken, second, "finance", "ESCALATE", "", http.StatusOK)
	decide(dirToken, second, "direksi", "APPROVE", "", http.StatusOK)
	if got := spent(); got != "1200000" {
		t.Fatalf("spent after escalated approval = %s, want 1200000", got)
	}

	// a settled submission cannot be decided again
	decide(finToken, first, "finance", "APPROVE", "", http.StatusConflict)

	// rejection without a note is refused
	third := submit(1000)
	decide(finToken, third, "finance", "REJECT", "", http.StatusBadRequest)
	decide(finToken, third, "finance", "REJECT", "budget is exhausted", http.StatusOK)

	// a rejected submission can be deleted by its department
	resp := performRequest(r, http.MethodDelete, "/submissions/"+third, nil, deptToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("delete rejected submission: status=%d body=%s", resp.Code, resp.Body.String())
	}
}

func TestAuthBoundaries(t *testing.T) {
	r := setupTestServer(t)

	// no token
	resp := performRequest(r, http.MethodGet, "/submissions", nil, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}

	// wrong password stays generic
	body, _ := json.Marshal(map[string]string{
		"role": "FINANCE", "username": "fina", "password": "wrong",
	})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(body), "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", resp.Code)
	}
	if got := resp.Body.String(); !bytes.Contains([]byte(got), []byte("invalid credentials")) {
		t.Fatalf("expected a generic credential error, got %s", got)
	}

	// department login without a department selection
	body, _ = json.Marshal(map[string]string{
		"role": "DEPARTMENT", "username": "dewi", "password": "pw",
	})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(body), "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without department, got %d", resp.Code)
	}

	// a department role cannot decide finance
	deptToken, _ := login(t, r, map[string]string{
		"role": "DEPARTMENT", "username": "dewi", "password": "pw", "departmentId": "1",
	})
	decideBody, _ := json.Marshal(map[string]string{"action": "APPROVE"})
	resp = performRequest(r, http.MethodPost, "/submissions/sub-x/finance", bytes.NewBuffer(decideBody), deptToken)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong role, got %d", resp.Code)
	}
}

func TestBuiltinAdminWithoutBackend(t *testing.T) {
	gin.SetMode(gin.TestMode)
	os.Setenv("LOCAL_DB_PATH", filepath.Join(t.TempDir(), "test.db"))
	initLocalDB()
	jwtSecret = []byte("test-secret")
	appState = NewAppState(models.WebSettings{SiteName: "Test"}, persistLocalSettings)

	r := gin.New()
	setupRoutes(r)

	token, _ := login(t, r, map[string]string{
		"role": "SUPER_ADMIN", "username": "admin", "password": "password123",
	})

	// settings are readable before any session and writable by the admin
	resp := performRequest(r, http.MethodGet, "/settings", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("public settings read failed: %d", resp.Code)
	}
	body, _ := json.Marshal(models.WebSettings{SiteName: "Renamed", LogoURL: "https://example.com/logo.png"})
	resp = performRequest(r, http.MethodPut, "/settings", bytes.NewBuffer(body), token)
	if resp.Code != http.StatusOK {
		t.Fatalf("settings update failed: %d body=%s", resp.Code, resp.Body.String())
	}
	if got := appState.Settings().SiteName; got != "Renamed" {
		t.Fatalf("settings not applied, site name = %q", got)
	}
}

func TestRefreshRotation(t *testing.T) {
	r := setupTestServer(t)

	_, loginResp := login(t, r, map[string]string{
		"role": "FINANCE", "username": "fina", "password": "pw",
	})
	refresh, _ := loginResp["refresh_token"].(string)
	if refresh == "" {
		t.Fatal("login did not issue a refresh token")
	}

	body, _ := json.Marshal(map[string]string{"refresh_token": refresh})
	resp := performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(body), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("refresh failed: %d body=%s", resp.Code, resp.Body.String())
	}

	// the old token was rotated out
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(bytes.Clone(body)), "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a rotated refresh token, got %d", resp.Code)
	}
}
