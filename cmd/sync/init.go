package main

import (
	"fmt"
	"io"
	"os"

	"github.com/peteski22/prnbridge/internal/config"
)

const configTemplate = `# prnbridge configuration
# Values left empty fall back to their defaults. Leave an API's base_url
# empty to disable the runners that need it.

backend:
  base_url: ""
  # OAuth client credentials. Leave client_id empty for unauthenticated APIs.
  client_id: ""
  client_secret: ""
  token_url: ""
  scope: ""

npwd:
  base_url: ""
  client_id: ""
  client_secret: ""
  token_url: ""
  scope: ""

rrepw:
  base_url: ""
  client_id: ""
  client_secret: ""
  token_url: ""
  scope: ""

waste_organisations:
  base_url: ""
  client_id: ""
  client_secret: ""
  token_url: ""
  scope: ""

queue:
  # Required for FetchNpwdIssuedPrns.
  issued_prns_url: ""

email:
  # Leave from empty to log error emails instead of sending them.
  from: ""
  operator_recipients: []

# Watermarks are kept in watermarks.db next to this file by default.
state:
  backend: "sqlite"

runners:
  update_prns:
    enabled: true
    default_start_date: "2024-01-01"
    polling_lag_seconds: 0
    max_batch_size: 0
`

// runInit creates a sample configuration file.
func runInit(w io.Writer) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	configPath, err := config.ConfigFilePath()
	if err != nil {
		return fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintln(w, "Created config file:", configPath)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  1. Edit the config file with your API endpoints and credentials")
	fmt.Fprintln(w, "  2. Run 'prnbridge list' to see the sync keys")
	fmt.Fprintln(w, "  3. Run 'prnbridge run UpdatePrns --dry-run --since=2024-01-01T00:00:00Z' to test")

	return nil
}
