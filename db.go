package main

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"katara/models"
)

// localDB is the embedded store for state that must survive restarts without
// the spreadsheet: web settings and refresh tokens. All workflow data lives
// remotely and is only cached in memory.
var localDB *gorm.DB

// settingsRecord is the single-row local copy of WebSettings, loaded at
// startup and written back on every settings change.
type settingsRecord struct {
	ID         uint `gorm:"primaryKey"`
	UpdatedAt  time.Time
	LogoURL    string `gorm:"size:512"`
	SiteName   string `gorm:"size:255"`
	DatabaseID string `gorm:"size:255"`
	BackendURL string `gorm:"size:512"`
}

func (settingsRecord) TableName() string { return "web_settings" }

// refreshToken stores a hashed refresh token for session rotation and
// revocation. UserID is the spreadsheet account id, not a local key.
type refreshToken struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    string    `gorm:"size:64;index;not null"`
	TokenHash string    `gorm:"size:128;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"index;not null"`
	Revoked   bool      `gorm:"default:false"`
}

func localDBPath() string {
	if v := os.Getenv("LOCAL_DB_PATH"); v != "" {
		return v
	}
	return "katara.db"
}

func initLocalDB() {
	var err error
	localDB, err = gorm.Open(sqlite.Open(localDBPath()), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to open local database:", err)
	}
	// Migrate models individually so a failure on one doesn't block others
	if err := localDB.AutoMigrate(&settingsRecord{}); err != nil {
		log.Printf("migration warning (web_settings): %v", err)
	}
	if err := localDB.AutoMigrate(&refreshToken{}); err != nil {
		log.Printf("migration warning (refresh_tokens): %v", err)
	}
}

// initialSettings are used on first run, before anyone has configured a
// backend.
var initialSettings = models.WebSettings{
	LogoURL:  "https://picsum.photos/200/100",
	SiteName: "Katara Budget System",
}

// loadLocalSettings reads the persisted settings blob, falling back to the
// first-run defaults.
func loadLocalSettings() models.WebSettings {
	var rec settingsRecord
	if err := localDB.First(&rec, 1).Error; err != nil {
		return initialSettings
	}
	return models.WebSettings{
		LogoURL:    rec.LogoURL,
		SiteName:   rec.SiteName,
		DatabaseID: rec.DatabaseID,
		BackendURL: rec.BackendURL,
	}
}

// persistLocalSettings writes settings back to the local store. Called on
// every settings change, including those applied by a remote reload.
func persistLocalSettings(s models.WebSettings) {
	rec := settingsRecord{
		ID:         1,
		LogoURL:    s.LogoURL,
		SiteName:   s.SiteName,
		DatabaseID: s.DatabaseID,
		BackendURL: s.BackendURL,
	}
	if err := localDB.Save(&rec).Error; err != nil {
		log.Printf("failed to persist settings: %v", err)
	}
}
