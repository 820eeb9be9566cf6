package models

// WebSettings is process-wide configuration. It is loaded from the local
// store at startup, overwritten by a remote reload that carries a non-empty
// backend URL, and written back to the local store on every settings update.
type WebSettings struct {
	LogoURL    string `json:"logoUrl"`
	SiteName   string `json:"siteName"`
	DatabaseID string `json:"databaseId"`
	BackendURL string `json:"backendUrl"`
}
