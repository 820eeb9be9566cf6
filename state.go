package main

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"katara/models"
	"katara/pkg/reconcile"
	"katara/pkg/sheetapi"
	"katara/pkg/workflow"
)

// defaultBusinesses backs the submission form when the store carries no
// business rows yet.
var defaultBusinesses = []models.BusinessUnit{
	{ID: "biz-1", Name: "Mbah Man"},
	{ID: "biz-2", Name: "Warung Bakso"},
	{ID: "biz-3", Name: "Katara Frozen Mart"},
	{ID: "biz-4", Name: "Katara GO"},
}

// AppState owns the single in-memory snapshot of every entity collection.
// The remote spreadsheet is the source of truth; every local mutation updates
// the snapshot first and then fires a write at the remote store without
// blocking the caller. A periodic reload replaces the collections wholesale;
// only the most recently started reload is allowed to apply its result.
type AppState struct {
	mu          sync.RWMutex
	users       []models.UserAccount
	departments []models.Department
	businesses  []models.BusinessUnit
	limits      []models.BudgetLimit
	submissions []models.BudgetSubmission
	settings    models.WebSettings

	remote    *sheetapi.Client
	reloadGen uint64

	// onSettings persists settings locally whenever they change (startup
	// blob writeback, see db.go).
	onSettings func(models.WebSettings)
}

func NewAppState(settings models.WebSettings, onSettings func(models.WebSettings)) *AppState {
	a := &AppState{
		users:      []models.UserAccount{reconcile.BuiltinAdmin},
		businesses: defaultBusinesses,
		settings:   settings,
		onSettings: onSettings,
	}
	if settings.BackendURL != "" {
		a.remote = sheetapi.New(settings.BackendURL)
	}
	return a
}

// Reload fetches everything from the remote store, reconciles it, and swaps
// the snapshot wholesale. A fetch failure leaves the cache untouched. If a
// newer reload started while this one was in flight, its result is discarded.
func (a *AppState) Reload(ctx context.Context) error {
	a.mu.Lock()
	a.reloadGen++
	gen := a.reloadGen
	client := a.remote
	a.mu.Unlock()

	if client == nil {
		return nil // no backend configured yet
	}

	payload, err := client.FetchAll(ctx)
	if err != nil {
		return err
	}

	users := reconcile.Users(payload.Users)
	departments := reconcile.Departments(payload.Departments)
	businesses := reconcile.Businesses(payload.Businesses)
	limits := reconcile.Limits(payload.Limits)
	submissions := reconcile.Submissions(payload.Submissions)
	remoteSettings, haveSettings := reconcile.Settings(payload.Settings)

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.reloadGen {
		return nil // superseded by a newer reload
	}
	a.users = users
	a.departments = departments
	if len(businesses) > 0 {
		a.businesses = businesses
	} else {
		a.businesses = defaultBusinesses
	}
	a.limits = limits
	a.submissions = submissions
	if haveSettings {
		a.applySettingsLocked(mergeSettings(a.settings, remoteSettings))
	}
	return nil
}

// mergeSettings overlays non-empty remote fields on the current settings.
func mergeSettings(cur, remote models.WebSettings) models.WebSettings {
	if remote.LogoURL != "" {
		cur.LogoURL = remote.LogoURL
	}
	if remote.SiteName != "" {
		cur.SiteName = remote.SiteName
	}
	if remote.DatabaseID != "" {
		cur.DatabaseID = remote.DatabaseID
	}
	if remote.BackendURL != "" {
		cur.BackendURL = remote.BackendURL
	}
	return cur
}

func (a *AppState) applySettingsLocked(s models.WebSettings) {
	if s.BackendURL != a.settings.BackendURL {
		if s.BackendURL != "" {
			a.remote = sheetapi.New(s.BackendURL)
		} else {
			a.remote = nil
		}
	}
	a.settings = s
	if a.onSettings != nil {
		a.onSettings(s)
	}
}

// saveAsync fires a write at the remote store without blocking the caller.
// Failures are logged and accepted: the local mutation stands, and the next
// full reload settles any divergence.
func (a *AppState) saveAsync(sheet string, data any) {
	a.mu.RLock()
	client := a.remote
	a.mu.RUnlock()
	if client == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := client.Save(ctx, sheet, data); err != nil {
			log.Printf("remote save %s failed: %v", sheet, err)
		}
	}()
}

func (a *AppState) deleteAsync(sheet, id string) {
	a.mu.RLock()
	client := a.remote
	a.mu.RUnlock()
	if client == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := client.Delete(ctx, sheet, id); err != nil {
			log.Printf("remote delete %s/%s failed: %v", sheet, id, err)
		}
	}()
}

// --- snapshot accessors (copies, never the backing slices) ---

func (a *AppState) Users() []models.UserAccount {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.UserAccount(nil), a.users...)
}

func (a *AppState) Departments() []models.Department {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.Department(nil), a.departments...)
}

func (a *AppState) Businesses() []models.BusinessUnit {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.BusinessUnit(nil), a.businesses...)
}

func (a *AppState) Limits() []models.BudgetLimit {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.BudgetLimit(nil), a.limits...)
}

func (a *AppState) Submissions() []models.BudgetSubmission {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.BudgetSubmission(nil), a.submissions...)
}

func (a *AppState) Settings() models.WebSettings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

func (a *AppState) UserByID(id string) (models.UserAccount, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, u := range a.users {
		if u.ID == id {
			return u, true
		}
	}
	return models.UserAccount{}, false
}

func (a *AppState) Submission(id string) (models.BudgetSubmission, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, s := range a.submissions {
		if s.ID == id {
			return s, true
		}
	}
	return models.BudgetSubmission{}, false
}

func (a *AppState) departmentNameLocked(id string) string {
	for _, d := range a.departments {
		if d.ID == id {
			return d.Name
		}
	}
	return ""
}

// DepartmentName resolves a department id to its display name.
func (a *AppState) DepartmentName(id string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.departmentNameLocked(id)
}

// LimitStats recomputes the monthly budget position from the live snapshot.
func (a *AppState) LimitStats(departmentID, date string) workflow.LimitStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return workflow.Stats(departmentID, date, a.limits, a.submissions)
}

// --- submission workflow ---

// Submit validates and appends a new submission. The location rule and the
// default location both derive from the submitting department's name.
func (a *AppState) Submit(in workflow.SubmitInput) (models.BudgetSubmission, error) {
	a.mu.Lock()
	deptName := a.departmentNameLocked(in.DepartmentID)
	in.RequireLocation = workflow.RequiresLocation(deptName)
	if !in.RequireLocation && strings.TrimSpace(in.Location) == "" {
		in.Location = deptName
	}
	sub, err := workflow.NewSubmission(in)
	if err != nil {
		a.mu.Unlock()
		return models.BudgetSubmission{}, err
	}
	a.submissions = append(append([]models.BudgetSubmission(nil), a.submissions...), sub)
	snapshot := a.submissions
	a.mu.Unlock()

	a.saveAsync(sheetapi.SheetSubmissions, snapshot)
	return sub, nil
}

// transitionSubmission applies fn to the identified submission and swaps the
// updated copy into the snapshot.
func (a *AppState) transitionSubmission(id string, fn func(models.BudgetSubmission) (models.BudgetSubmission, error)) (models.BudgetSubmission, error) {
	a.mu.Lock()
	idx := -1
	for i, s := range a.submissions {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		a.mu.Unlock()
		return models.BudgetSubmission{}, &workflow.NotFoundError{Kind: "submission", ID: id}
	}
	updated, err := fn(a.submissions[idx])
	if err != nil {
		a.mu.Unlock()
		return models.BudgetSubmission{}, err
	}
	next := append([]models.BudgetSubmission(nil), a.submissions...)
	next[idx] = updated
	a.submissions = next
	a.mu.Unlock()

	a.saveAsync(sheetapi.SheetSubmissions, next)
	return updated, nil
}

func (a *AppState) FinanceDecide(id string, action workflow.DecisionAction, note string) (models.BudgetSubmission, error) {
	return a.transitionSubmission(id, func(s models.BudgetSubmission) (models.BudgetSubmission, error) {
		return workflow.FinanceDecide(s, action, note)
	})
}

func (a *AppState) DireksiDecide(id string, action workflow.DecisionAction, note string) (models.BudgetSubmission, error) {
	return a.transitionSubmission(id, func(s models.BudgetSubmission) (models.BudgetSubmission, error) {
		return workflow.DireksiDecide(s, action, note)
	})
}

func (a *AppState) ReverseFinanceDecision(id string) (models.BudgetSubmission, error) {
	return a.transitionSubmission(id, workflow.ReverseFinanceDecision)
}

// DeleteSubmission removes a deletable submission. Ownership is checked by
// the handler before calling.
func (a *AppState) DeleteSubmission(id string) error {
	a.mu.Lock()
	idx := -1
	for i, s := range a.submissions {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		a.mu.Unlock()
		return &workflow.NotFoundError{Kind: "submission", ID: id}
	}
	if err := workflow.CheckDeletable(a.submissions[idx]); err != nil {
		a.mu.Unlock()
		return err
	}
	next := append([]models.BudgetSubmission(nil), a.submissions[:idx]...)
	next = append(next, a.submissions[idx+1:]...)
	a.submissions = next
	a.mu.Unlock()

	a.deleteAsync(sheetapi.SheetSubmissions, id)
	return nil
}

// --- master data ---

// UpsertLimit saves a monthly limit, replacing any existing limit for the
// same (department, month) key.
func (a *AppState) UpsertLimit(departmentID, month string, amount decimal.Decimal) (models.BudgetLimit, error) {
	if departmentID == "" {
		return models.BudgetLimit{}, &workflow.ValidationError{Msg: "department is required"}
	}
	if !amount.GreaterThan(decimal.Zero) {
		return models.BudgetLimit{}, &workflow.ValidationError{Msg: "limit amount must be greater than zero"}
	}
	l := models.BudgetLimit{
		ID:           "lim-" + uuid.NewString(),
		DepartmentID: departmentID,
		Month:        month,
		LimitAmount:  amount,
	}

	a.mu.Lock()
	next := append([]models.BudgetLimit(nil), a.limits...)
	replaced := false
	for i, cur := range next {
		if cur.DepartmentID == departmentID && cur.Month == month {
			l.ID = cur.ID
			next[i] = l
			replaced = true
			break
		}
	}
	if !replaced {
		next = append(next, l)
	}
	a.limits = next
	a.mu.Unlock()

	a.saveAsync(sheetapi.SheetLimits, next)
	return l, nil
}

func (a *AppState) DeleteLimit(id string) error {
	a.mu.Lock()
	idx := -1
	for i, l := range a.limits {
		if l.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		a.mu.Unlock()
		return &workflow.NotFoundError{Kind: "limit", ID: id}
	}
	next := append([]models.BudgetLimit(nil), a.limits[:idx]...)
	next = append(next, a.limits[idx+1:]...)
	a.limits = next
	a.mu.Unlock()

	a.deleteAsync(sheetapi.SheetLimits, id)
	return nil
}

// UpsertUser creates or replaces an account by id.
func (a *AppState) UpsertUser(u models.UserAccount) (models.UserAccount, error) {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return models.UserAccount{}, &workflow.ValidationError{Msg: "username is required"}
	}
	if !u.Role.Valid() {
		u.Role = reconcile.ClassifyRole(string(u.Role))
	}
	if u.ID == "" {
		u.ID = "user-" + uuid.NewString()
	}

	a.mu.Lock()
	next := append([]models.UserAccount(nil), a.users...)
	replaced := false
	for i, cur := range next {
		if cur.ID == u.ID {
			next[i] = u
			replaced = true
			break
		}
	}
	if !replaced {
		next = append(next, u)
	}
	a.users = next
	a.mu.Unlock()

	a.saveAsync(sheetapi.SheetUsers, next)
	return u, nil
}

func (a *AppState) DeleteUser(id string) error {
	a.mu.Lock()
	idx := -1
	for i, u := range a.users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		a.mu.Unlock()
		return &workflow.NotFoundError{Kind: "user", ID: id}
	}
	next := append([]models.UserAccount(nil), a.users[:idx]...)
	next = append(next, a.users[idx+1:]...)
	a.users = next
	a.mu.Unlock()

	a.deleteAsync(sheetapi.SheetUsers, id)
	return nil
}

func (a *AppState) UpsertDepartment(d models.Department) (models.Department, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return models.Department{}, &workflow.ValidationError{Msg: "department name is required"}
	}
	if d.ID == "" {
		d.ID = "dept-" + uuid.NewString()
	}

	a.mu.Lock()
	next := append([]models.Department(nil), a.departments...)
	replaced := false
	for i, cur := range next {
		if cur.ID == d.ID {
			next[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		next = append(next, d)
	}
	a.departments = next
	a.mu.Unlock()

	a.saveAsync(sheetapi.SheetDepartments, next)
	return d, nil
}

func (a *AppState) DeleteDepartment(id string) error {
	a.mu.Lock()
	idx := -1
	for i, d := range a.departments {
		if d.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		a.mu.Unlock()
		return &workflow.NotFoundError{Kind: "department", ID: id}
	}
	next := append([]models.Department(nil), a.departments[:idx]...)
	next = append(next, a.departments[idx+1:]...)
	a.departments = next
	a.mu.Unlock()

	a.deleteAsync(sheetapi.SheetDepartments, id)
	return nil
}

// --- bulk import (drop-directory ingestion) ---

// ImportUsers merges imported accounts into the snapshot by id. The builtin
// admin placeholder is never taken from an import file.
func (a *AppState) ImportUsers(users []models.UserAccount) int {
	imported := 0
	a.mu.Lock()
	next := append([]models.UserAccount(nil), a.users...)
	for _, u := range users {
		if u.ID == reconcile.BuiltinAdmin.ID {
			continue
		}
		replaced := false
		for i, cur := range next {
			if cur.ID == u.ID {
				next[i] = u
				replaced = true
				break
			}
		}
		if !replaced {
			next = append(next, u)
		}
		imported++
	}
	a.users = next
	a.mu.Unlock()

	if imported > 0 {
		a.saveAsync(sheetapi.SheetUsers, next)
	}
	return imported
}

func (a *AppState) ImportDepartments(departments []models.Department) int {
	imported := 0
	a.mu.Lock()
	next := append([]models.Department(nil), a.departments...)
	for _, d := range departments {
		replaced := false
		for i, cur := range next {
			if cur.ID == d.ID {
				next[i] = d
				replaced = true
				break
			}
		}
		if !replaced {
			next = append(next, d)
		}
		imported++
	}
	a.departments = next
	a.mu.Unlock()

	if imported > 0 {
		a.saveAsync(sheetapi.SheetDepartments, next)
	}
	return imported
}

func (a *AppState) ImportBusinesses(businesses []models.BusinessUnit) int {
	imported := 0
	a.mu.Lock()
	next := append([]models.BusinessUnit(nil), a.businesses...)
	for _, b := range businesses {
		replaced := false
		for i, cur := range next {
			if cur.ID == b.ID {
				next[i] = b
				replaced = true
				break
			}
		}
		if !replaced {
			next = append(next, b)
		}
		imported++
	}
	a.businesses = next
	a.mu.Unlock()

	if imported > 0 {
		a.saveAsync(sheetapi.SheetBusinesses, next)
	}
	return imported
}

// ImportLimits merges by the (department, month) key so an imported limit
// replaces the one already in effect.
func (a *AppState) ImportLimits(limits []models.BudgetLimit) int {
	imported := 0
	a.mu.Lock()
	next := append([]models.BudgetLimit(nil), a.limits...)
	for _, l := range limits {
		replaced := false
		for i, cur := range next {
			if cur.DepartmentID == l.DepartmentID && cur.Month == l.Month {
				l.ID = cur.ID
				next[i] = l
				replaced = true
				break
			}
		}
		if !replaced {
			next = append(next, l)
		}
		imported++
	}
	a.limits = next
	a.mu.Unlock()

	if imported > 0 {
		a.saveAsync(sheetapi.SheetLimits, next)
	}
	return imported
}

func (a *AppState) ImportSubmissions(submissions []models.BudgetSubmission) int {
	imported := 0
	a.mu.Lock()
	next := append([]models.BudgetSubmission(nil), a.submissions...)
	for _, s := range submissions {
		replaced := false
		for i, cur := range next {
			if cur.ID == s.ID {
				next[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			next = append(next, s)
		}
		imported++
	}
	a.submissions = next
	a.mu.Unlock()

	if imported > 0 {
		a.saveAsync(sheetapi.SheetSubmissions, next)
	}
	return imported
}

// UpdateSettings applies new settings and persists them locally. When a
// backend URL is configured the settings are pushed to the remote store too.
func (a *AppState) UpdateSettings(s models.WebSettings) {
	a.mu.Lock()
	a.applySettingsLocked(s)
	a.mu.Unlock()

	if s.BackendURL != "" {
		a.saveAsync(sheetapi.SheetSettings, s)
	}
}
