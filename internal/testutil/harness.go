package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/helpme/internal/app"
	"github.com/specialistvlad/helpme/internal/loader"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteFiles writes files, keyed by relative path, into a fresh temporary
// directory and returns it.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return dir
}

// HarnessResult holds the outcome of building an app from help files.
type HarnessResult struct {
	Dir       string
	LogBuffer *SafeBuffer
	Err       error
	App       *app.App
}

// LogOutput returns everything the app has logged so far.
func (r *HarnessResult) LogOutput() string {
	return r.LogBuffer.String()
}

// NewTestApp writes files to a temporary directory and builds an app that
// loads it. cfg may be nil; its DBPaths are replaced by the directory.
func NewTestApp(t *testing.T, files map[string]string, cfg *app.Config) *HarnessResult {
	t.Helper()

	dir := WriteFiles(t, files)
	if cfg == nil {
		cfg = &app.Config{}
	}
	cfg.DBPaths = []string{dir}
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"

	logBuffer := &SafeBuffer{}
	testApp, err := app.New(logBuffer, cfg, loader.New())

	t.Cleanup(func() {
		if os.Getenv("HELPME_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return &HarnessResult{
		Dir:       dir,
		LogBuffer: logBuffer,
		Err:       err,
		App:       testApp,
	}
}
