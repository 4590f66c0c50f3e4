package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/skyfeed/internal/config"
	"github.com/spf13/cobra"
)

const exampleEnvFile = ".env.example"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with example files",
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	created := 0

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(configPath, []byte(exampleConfig), 0o644)
	if err != nil {
		return err
	}
	if wrote {
		created++
	}

	envPath := filepath.Join(configDir, exampleEnvFile)
	wrote, err = writeIfNotExists(envPath, []byte(exampleEnv), 0o600)
	if err != nil {
		return err
	}
	if wrote {
		created++
	}

	if created == 0 {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Printf("Initialized %s with %d config files.\n", configDir, created)
		fmt.Printf("Copy %s to %s and set your app password.\n", exampleEnvFile, config.DefaultEnvFile)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte, perm os.FileMode) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# skyfeed configuration

bluesky:
  pds_host: https://bsky.social
  public_host: https://public.api.bsky.app
  timeout: 30s

server:
  listen: 127.0.0.1:8787

log:
  level: info
  format: text

feeds:
  - handle: you.bsky.social
    app_password_env: BSKY_APP_PASSWORD
    feed_type: timeline
    post_limit: 20
    update_interval: 300
  # - handle: you.bsky.social
  #   app_password_env: BSKY_APP_PASSWORD
  #   feed_type: author
  #   author_handle: someone.bsky.social
  # - handle: you.bsky.social
  #   app_password_env: BSKY_APP_PASSWORD
  #   feed_type: custom
  #   feed_uri: at://did:plc:z72i7hdynmk6r22z27h6tvur/app.bsky.feed.generator/whats-hot
  #   update_interval: 10m
`

const exampleEnv = `# App passwords: Settings > Privacy and security > App passwords
BSKY_APP_PASSWORD=xxxx-xxxx-xxxx-xxxx
`
