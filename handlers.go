package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"katara/models"
	"katara/pkg/match"
	"katara/pkg/sheetapi"
	"katara/pkg/workflow"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	// the login page needs the logo and site name before any session exists
	r.GET("/settings", getSettingsHandler)

	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/sync", syncHandler)

	authGroup.GET("/users", requireRole(models.RoleSuperAdmin), listUsersHandler)
	authGroup.POST("/users", requireRole(models.RoleSuperAdmin), upsertUserHandler)
	authGroup.DELETE("/users/:id", requireRole(models.RoleSuperAdmin), deleteUserHandler)

	authGroup.GET("/departments", listDepartmentsHandler)
	authGroup.POST("/departments", requireRole(models.RoleSuperAdmin), upsertDepartmentHandler)
	authGroup.DELETE("/departments/:id", requireRole(models.RoleSuperAdmin), deleteDepartmentHandler)

	authGroup.GET("/businesses", listBusinessesHandler)

	authGroup.GET("/limits", requireRole(models.RoleFinance, models.RoleDireksi, models.RoleSuperAdmin), listLimitsHandler)
	authGroup.POST("/limits", requireRole(models.RoleFinance), upsertLimitHandler)
	authGroup.DELETE("/limits/:id", requireRole(models.RoleFinance), deleteLimitHandler)
	authGroup.GET("/limits/stats", limitStatsHandler)

	authGroup.GET("/submissions", listSubmissionsHandler)
	authGroup.POST("/submissions", requireRole(models.RoleDepartment), submitHandler)
	authGroup.POST("/submissions/:id/finance", requireRole(models.RoleFinance), financeDecideHandler)
	authGroup.POST("/submissions/:id/direksi", requireRole(models.RoleDireksi), direksiDecideHandler)
	authGroup.POST("/submissions/:id/reverse", requireRole(models.RoleFinance), reverseDecisionHandler)
	authGroup.DELETE("/submissions/:id", requireRole(models.RoleDepartment, models.RoleSuperAdmin), deleteSubmissionHandler)

	authGroup.GET("/reports/monthly", monthlyReportHandler)

	authGroup.PUT("/settings", requireRole(models.RoleSuperAdmin), updateSettingsHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		userID, _ := claims["user_id"].(string)
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		deptID, _ := claims["department_id"].(string)
		business, _ := claims["business"].(string)
		c.Set("user_id", userID)
		c.Set("username", username)
		c.Set("role", role)
		c.Set("department_id", deptID)
		c.Set("business", business)
		c.Next()
	}
}

func requireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.Role(c.GetString("role"))
		for _, want := range roles {
			if role == want {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		c.Abort()
	}
}

// respondError maps core error types onto HTTP statuses. Remote sync
// failures surface as a generic notice; the cached data stays usable.
func respondError(c *gin.Context, err error) {
	var se *sheetapi.SyncError
	switch {
	case workflow.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case workflow.IsStateConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case workflow.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &se):
		c.JSON(http.StatusBadGateway, gin.H{"error": "synchronization failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func stripPassword(u models.UserAccount) models.UserAccount {
	u.Password = ""
	return u
}

// --- session ---

func loginHandler(c *gin.Context) {
	var req struct {
		Role         string `json:"role" binding:"required"`
		Username     string `json:"username" binding:"required"`
		Password     string `json:"password" binding:"required"`
		DepartmentID string `json:"departmentId"`
		Business     string `json:"business"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := models.Role(req.Role)
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	if role == models.RoleDepartment && req.DepartmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "department selection is required"})
		return
	}
	if role == models.RoleAccounting && req.Business == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "business selection is required"})
		return
	}

	user, err := authenticateAttempt(match.Attempt{
		Role:         role,
		Username:     req.Username,
		Password:     req.Password,
		DepartmentID: req.DepartmentID,
		Business:     req.Business,
	})
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	tokenString, err := issueAccessToken(user, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refresh, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "login successful",
		"token":         tokenString,
		"refresh_token": refresh,
		"user":          stripPassword(user),
	})
}

// refreshHandler exchanges a refresh token for a new access token and
// rotates the refresh token.
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	user, ok := appState.UserByID(rt.UserID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	tokenString, err := issueAccessToken(user, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	if err := revokeRefreshTokenRecord(rt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	if err := revokeRefreshTokenRecord(rt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

func meHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":       c.GetString("user_id"),
		"username":      c.GetString("username"),
		"role":          c.GetString("role"),
		"department_id": c.GetString("department_id"),
		"business":      c.GetString("business"),
	})
}

func syncHandler(c *gin.Context) {
	if err := appState.Reload(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "synchronized"})
}

// --- master data ---

func listUsersHandler(c *gin.Context) {
	c.JSON(http.StatusOK, appState.Users())
}

func upsertUserHandler(c *gin.Context) {
	var req models.UserAccount
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := appState.UpsertUser(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stripPassword(u))
}

func deleteUserHandler(c *gin.Context) {
	if err := appState.DeleteUser(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func listDepartmentsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, appState.Departments())
}

func upsertDepartmentHandler(c *gin.Context) {
	var req models.Department
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := appState.UpsertDepartment(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func deleteDepartmentHandler(c *gin.Context) {
	if err := appState.DeleteDepartment(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "department deleted"})
}

func listBusinessesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, appState.Businesses())
}

// --- limits ---

func listLimitsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, appState.Limits())
}

func upsertLimitHandler(c *gin.Context) {
	var req struct {
		DepartmentID string          `json:"departmentId" binding:"required"`
		Month        string          `json:"month" binding:"required"`
		LimitAmount  decimal.Decimal `json:"limitAmount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	l, err := appState.UpsertLimit(req.DepartmentID, workflow.MonthOf(req.Month), req.LimitAmount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func deleteLimitHandler(c *gin.Context) {
	if err := appState.DeleteLimit(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "limit deleted"})
}

func limitStatsHandler(c *gin.Context) {
	departmentID := c.Query("department_id")
	date := c.Query("date")
	if departmentID == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "department_id and date are required"})
		return
	}
	c.JSON(http.StatusOK, appState.LimitStats(departmentID, date))
}

// --- submissions ---

// listSubmissionsHandler scopes results by role: a department sees its own
// requests, accounting sees its business, reviewers see everything. Optional
// status and department_id query filters narrow further.
func listSubmissionsHandler(c *gin.Context) {
	role := models.Role(c.GetString("role"))
	subs := appState.Submissions()

	filterStatus := c.Query("status")
	filterDept := c.Query("department_id")

	out := make([]models.BudgetSubmission, 0, len(subs))
	for _, s := range subs {
		switch role {
		case models.RoleDepartment:
			if s.DepartmentID != c.GetString("department_id") {
				continue
			}
		case models.RoleAccounting:
			if biz := c.GetString("business"); biz != "" && s.Business != biz {
				continue
			}
		}
		if filterStatus != "" && string(s.Status) != filterStatus {
			continue
		}
		if filterDept != "" && s.DepartmentID != filterDept {
			continue
		}
		out = append(out, s)
	}
	c.JSON(http.StatusOK, out)
}

func submitHandler(c *gin.Context) {
	var req struct {
		Date     string          `json:"date"`
		Business string          `json:"business"`
		Amount   decimal.Decimal `json:"amount"`
		Note     string          `json:"note"`
		Location string          `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, err := appState.Submit(workflow.SubmitInput{
		Date:         req.Date,
		DepartmentID: c.GetString("department_id"),
		Business:     req.Business,
		Amount:       req.Amount,
		Note:         req.Note,
		Location:     req.Location,
		UserID:       c.GetString("user_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func financeDecideHandler(c *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, err := appState.FinanceDecide(c.Param("id"), workflow.DecisionAction(req.Action), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func direksiDecideHandler(c *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, err := appState.DireksiDecide(c.Param("id"), workflow.DecisionAction(req.Action), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func reverseDecisionHandler(c *gin.Context) {
	sub, err := appState.ReverseFinanceDecision(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// deleteSubmissionHandler enforces ownership at the edge: a department may
// only delete its own submissions.
func deleteSubmissionHandler(c *gin.Context) {
	id := c.Param("id")
	sub, ok := appState.Submission(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		return
	}
	role := models.Role(c.GetString("role"))
	if role == models.RoleDepartment && sub.DepartmentID != c.GetString("department_id") {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if err := appState.DeleteSubmission(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "submission deleted"})
}

// --- reports ---

func monthlyReportHandler(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	totals := workflow.ApprovedByDepartment(appState.Submissions(), month)

	type row struct {
		DepartmentID   string          `json:"departmentId"`
		DepartmentName string          `json:"departmentName"`
		Total          decimal.Decimal `json:"total"`
	}
	out := make([]row, 0, len(totals))
	for _, d := range appState.Departments() {
		total, ok := totals[d.ID]
		if !ok {
			continue
		}
		out = append(out, row{DepartmentID: d.ID, DepartmentName: d.Name, Total: total})
	}
	c.JSON(http.StatusOK, gin.H{"month": month, "departments": out})
}

// --- settings ---

func getSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, appState.Settings())
}

func updateSettingsHandler(c *gin.Context) {
	var req models.WebSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	appState.UpdateSettings(req)
	c.JSON(http.StatusOK, gin.H{"message": "settings saved"})
}
