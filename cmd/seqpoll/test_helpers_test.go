package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"seqpoll/internal/config"
	"seqpoll/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *fakeFlowcelltool
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	store := newFakeFlowcelltool()
	server := httptest.NewServer(store)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithFlowcelltool(server.URL), testsupport.WithStubbedBinaries())
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("FLOWCELLTOOL_URL", "")
	t.Setenv("FLOWCELLTOOL_AUTH_TOKEN", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, store: store, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`operator = %q

[paths]
workspace_root = %q
search_roots = [%q]
log_dir = %q
journal_path = %q

[scan]
min_year = 2000

[flowcelltool]
url = %q
auth_token = %q
requests_per_second = 0

[archive]
compressor = []

[logging]
level = "error"

[metrics]
textfile_path = %q
`,
		cfg.Operator,
		cfg.Paths.WorkspaceRoot,
		cfg.Paths.SearchRoots[0],
		cfg.Paths.LogDir,
		cfg.Paths.JournalPath,
		cfg.Flowcelltool.URL,
		cfg.Flowcelltool.AuthToken,
		cfg.Metrics.TextfilePath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// fakeFlowcelltool serves the subset of the Flowcelltool REST API seqpoll
// uses, keyed by vendor id.
type fakeFlowcelltool struct {
	mu        sync.Mutex
	flowcells map[string]map[string]any
	broken    map[string]bool
	patches   []string
}

func newFakeFlowcelltool() *fakeFlowcelltool {
	return &fakeFlowcelltool{flowcells: map[string]map[string]any{}, broken: map[string]bool{}}
}

func (f *fakeFlowcelltool) add(vendorID, sequencing, conversion, delivery string, lanes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flowcells[vendorID] = map[string]any{
		"uuid":              "uuid-" + vendorID,
		"vendor_id":         vendorID,
		"status_sequencing": sequencing,
		"status_conversion": conversion,
		"delivery_type":     delivery,
		"num_lanes":         lanes,
		"libraries":         []any{},
	}
}

func (f *fakeFlowcelltool) status(vendorID, category string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, _ := f.flowcells[vendorID]["status_"+category].(string)
	return value
}

func (f *fakeFlowcelltool) patchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patches)
}

func (f *fakeFlowcelltool) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/flowcells/api/v0/flowcell/"
	path := strings.TrimPrefix(r.URL.Path, prefix)
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(path, "by_vendor_id/"):
		vendorID := strings.Trim(strings.TrimPrefix(path, "by_vendor_id/"), "/")
		if f.broken[vendorID] {
			http.Error(w, "database locked", http.StatusInternalServerError)
			return
		}
		fc, ok := f.flowcells[vendorID]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(fc)
	case r.Method == http.MethodPatch:
		uuid := strings.Trim(path, "/")
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, fc := range f.flowcells {
			if fc["uuid"] != uuid {
				continue
			}
			for key, values := range r.PostForm {
				fc[key] = values[0]
				f.patches = append(f.patches, key+"="+values[0])
			}
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	default:
		http.NotFound(w, r)
	}
}
