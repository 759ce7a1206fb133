package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths configures where runs are found and where seqpoll writes.
type Paths struct {
	WorkspaceRoot string   `toml:"workspace_root"`
	SearchRoots   []string `toml:"search_roots"`
	LogDir        string   `toml:"log_dir"`
	JournalPath   string   `toml:"journal_path"`
}

// Scan controls run directory discovery.
type Scan struct {
	MaxDepth   int    `toml:"max_depth"`
	MinYear    int    `toml:"min_year"` // 0 means the current calendar year
	MarkerFile string `toml:"marker_file"`
}

// Flowcelltool configures the status store client.
type Flowcelltool struct {
	URL               string  `toml:"url"`
	AuthToken         string  `toml:"auth_token"`
	RequestTimeout    int     `toml:"request_timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	MessageSignature  string  `toml:"message_signature"`
	MimeType          string  `toml:"mime_type"`
}

// Tools holds argv templates for the external pipeline steps.
type Tools struct {
	ExtractCommand []string `toml:"extract_command"`
	DemuxCommand   []string `toml:"demux_command"`
	QCCommand      []string `toml:"qc_command"`
	QCReportName   string   `toml:"qc_report_name"`
}

// Archive configures raw per-lane archives.
type Archive struct {
	Compressor      []string `toml:"compressor"`
	ExcludePatterns []string `toml:"exclude_patterns"`
	MinFreeGiB      int      `toml:"min_free_gib"`
}

type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for seqpoll.
type Config struct {
	Operator     string       `toml:"operator"`
	Paths        Paths        `toml:"paths"`
	Scan         Scan         `toml:"scan"`
	Flowcelltool Flowcelltool `toml:"flowcelltool"`
	Tools        Tools        `toml:"tools"`
	Archive      Archive      `toml:"archive"`
	Logging      Logging      `toml:"logging"`
	Metrics      Metrics      `toml:"metrics"`
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/seqpoll/config.toml")
}

// Load reads configuration from disk, applies defaults, and validates values.
// It returns the resolved config path and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	loadDotEnv()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads ./.env when present. Existing environment values win.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	_ = godotenv.Load(".env")
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("seqpoll.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates directories seqpoll writes to on every poll.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceRoot, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if journal := strings.TrimSpace(c.Paths.JournalPath); journal != "" {
		if err := os.MkdirAll(filepath.Dir(journal), 0o755); err != nil {
			return fmt.Errorf("create journal directory: %w", err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath expands user home shortcuts and returns an absolute path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the provided path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
