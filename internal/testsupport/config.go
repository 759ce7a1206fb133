package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"seqpoll/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test:
// runs/ is the only search root, workspaces/ and logs/ receive output, and
// archives use in-process gzip.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Operator = "test-operator"
	cfgVal.Paths.WorkspaceRoot = filepath.Join(base, "workspaces")
	cfgVal.Paths.SearchRoots = []string{filepath.Join(base, "runs")}
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.JournalPath = filepath.Join(base, "state", "journal.db")
	cfgVal.Scan.MinYear = 2000
	cfgVal.Archive.Compressor = nil
	cfgVal.Metrics.TextfilePath = filepath.Join(base, "metrics", "seqpoll.prom")

	for _, dir := range append([]string{cfgVal.Paths.WorkspaceRoot}, cfgVal.Paths.SearchRoots...) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithFlowcelltool points the status store client at url.
func WithFlowcelltool(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Flowcelltool.URL = url
		b.cfg.Flowcelltool.AuthToken = "test-token"
		b.cfg.Flowcelltool.RequestsPerSecond = 0
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default pipeline binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"bcl2fastq", "multiqc"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkspaceRoot)
}

// RunsRoot returns the first search root of a generated config.
func RunsRoot(cfg *config.Config) string {
	return cfg.Paths.SearchRoots[0]
}
