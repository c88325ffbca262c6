package api

// Config is the API server configuration.
type Config struct {
	// CookieSecure marks the session cookie Secure, both when POST /api/session
	// sets it and when logout clears it. Enable behind TLS.
	CookieSecure bool
}
