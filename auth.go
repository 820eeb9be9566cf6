package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"katara/models"
	"katara/pkg/match"
)

// authenticateAttempt runs the four-factor matcher against the current user
// snapshot. The returned record carries the session-scoped context override;
// the cached record itself is untouched.
func authenticateAttempt(a match.Attempt) (models.UserAccount, error) {
	return match.Authenticate(a, appState.Users(), appState.Departments())
}

// issueAccessToken signs a short-lived HS256 token carrying the session's
// identity and scoping context. The department/business claims come from the
// session record, so a login-time context override sticks for the token's
// lifetime.
func issueAccessToken(u models.UserAccount, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":       u.ID,
		"username":      u.Username,
		"name":          u.Name,
		"role":          string(u.Role),
		"department_id": u.DepartmentID,
		"business":      u.Business,
		"exp":           time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(jwtSecret)
}

// createAndStoreRefreshToken generates a random refresh token, stores its
// hash with expiry in the local database, and returns the raw token string.
func createAndStoreRefreshToken(userID string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	h := sha256.Sum256([]byte(token))
	rt := refreshToken{
		UserID:    userID,
		TokenHash: hex.EncodeToString(h[:]),
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	}
	if err := localDB.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

func findRefreshTokenByRaw(token string) (*refreshToken, error) {
	h := sha256.Sum256([]byte(token))
	var rt refreshToken
	if err := localDB.Where("token_hash = ?", hex.EncodeToString(h[:])).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func revokeRefreshTokenRecord(rt *refreshToken) error {
	rt.Revoked = true
	return localDB.Save(rt).Error
}
