package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/skyfeed/internal/source/sourcetest"
	"github.com/spf13/cobra"
)

// withConfigDir points the commands at dir for the duration of the test.
func withConfigDir(t *testing.T, dir string) {
	t.Helper()
	old := configDir
	t.Cleanup(func() { configDir = old })
	configDir = dir
}

// writeBackendConfig writes a config.yaml whose hosts point at srv.
func writeBackendConfig(t *testing.T, srv *sourcetest.Server, feeds string) string {
	t.Helper()
	dir := t.TempDir()
	content := `
bluesky:
  pds_host: ` + srv.URL + `
  public_host: ` + srv.URL + `
  timeout: 5s
log:
  level: error
feeds:
` + feeds
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	withConfigDir(t, dir)
	return dir
}

const timelineFeed = `
  - handle: ` + sourcetest.DefaultHandle + `
    app_password: ` + sourcetest.DefaultPassword + `
`

func testCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("open stdout pipe: %v", err)
	}

	os.Stdout = writer
	runErr := fn()
	_ = writer.Close()
	os.Stdout = oldStdout

	out, readErr := io.ReadAll(reader)
	_ = reader.Close()
	if readErr != nil {
		t.Fatalf("read stdout pipe: %v", readErr)
	}
	return string(out), runErr
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()

	if !strings.Contains(got, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, got)
	}
}
