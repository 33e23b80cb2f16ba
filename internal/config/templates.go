package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trade Journal Configuration

[server]
# Listen address for the HTTP API
addr = ":5000"
read_timeout = "15s"
write_timeout = "60s"
shutdown_timeout = "5s"
# Allowed browser origin for the frontend
cors_origin = "http://localhost:5173"
# Trades are grouped into days, weeks and months in this zone
timezone = "Asia/Kolkata"

[database]
# SQLite database file (defaults to <config dir>/journal.db)
# path = "/var/lib/trade-journal/journal.db"

[logging]
# Level: debug, info, warn, error
level = "info"
console = true
json = false
file = true
max_size = 100
max_backups = 7
max_age = 30

[market_data]
# Provider: "yahoo" (no credentials) or "kite" (needs credentials.toml [kite])
provider = "yahoo"
base_url = "https://query1.finance.yahoo.com"
# Daily history range used by predictions: 1mo, 3mo, 6mo, 1y, 2y
history_range = "6mo"
current_timeout = "10s"
history_timeout = "15s"
predict_timeout = "20s"
requests_per_minute = 120
# Quote/history cache lifetime when redis is enabled
cache_ttl = "5m"
# Parallel symbols per bulk prediction (1-10)
bulk_concurrency = 4
# Retries for 5xx responses and network errors (0 disables)
retries = 2
retry_wait = "300ms"
# Exchange holidays (YYYY-MM-DD) used for the market session status
holidays = []

[ai]
# Provider: "gemini" or "openai"
provider = "gemini"
# Models are tried in order until one answers
models = ["gemini-3-flash", "gemini-2.5-flash", "gemini-2.0-flash"]
timeout = "60s"
cache_ttl = "24h"

[redis]
enabled = false
addr = "localhost:6379"
password = ""
db = 0

[auth]
session_ttl = "168h"
bcrypt_cost = 10
# Append login and trade change events to audit/audit.log
audit_log = true
`

const credentialsTemplate = `# Trade Journal Credentials
# Keep this file private. Environment variables override these values.

[gemini]
# GEMINI_API_KEY
api_key = ""

[openai]
# OPENAI_API_KEY
api_key = ""

[kite]
# KITE_API_KEY / KITE_ACCESS_TOKEN
api_key = ""
access_token = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}

// WriteTemplates writes config.toml and credentials.toml into configDir.
// Existing files are left untouched unless overwrite is set.
func WriteTemplates(configDir string, overwrite bool) ([]string, error) {
	var written []string

	for _, f := range []struct {
		name  string
		write func(string) error
	}{
		{"config.toml", createTemplateConfig},
		{"credentials.toml", createTemplateCredentials},
	} {
		path := filepath.Join(configDir, f.name)
		if _, err := os.Stat(path); err == nil && !overwrite {
			continue
		}
		if err := f.write(configDir); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}
