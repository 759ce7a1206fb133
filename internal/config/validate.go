package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"seqpoll/internal/services/tools"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateFlowcelltool(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireStore reports whether the status store connection is configured.
// Commands that talk to the store call it after Load.
func (c *Config) RequireStore() error {
	if c.Flowcelltool.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/seqpoll/config.toml"
		}
		return fmt.Errorf("flowcelltool.url is required. Set FLOWCELLTOOL_URL env var or edit %s (create with 'seqpoll config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.MaxDepth < 1 {
		return errors.New("scan.max_depth must be at least 1")
	}
	if c.Scan.MinYear != 0 && c.Scan.MinYear < minimumYear {
		return fmt.Errorf("scan.min_year must be 0 or at least %d", minimumYear)
	}
	if strings.ContainsAny(c.Scan.MarkerFile, `/\`) {
		return errors.New("scan.marker_file must be a file name, not a path")
	}
	return nil
}

func (c *Config) validateFlowcelltool() error {
	if c.Flowcelltool.URL != "" {
		parsed, err := url.Parse(c.Flowcelltool.URL)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("flowcelltool.url must be an http(s) URL, got %q", c.Flowcelltool.URL)
		}
	}
	if c.Flowcelltool.RequestTimeout <= 0 {
		return errors.New("flowcelltool.request_timeout must be positive")
	}
	if c.Flowcelltool.RequestsPerSecond < 0 {
		return errors.New("flowcelltool.requests_per_second must not be negative")
	}
	if c.Flowcelltool.Burst < 1 {
		return errors.New("flowcelltool.burst must be at least 1")
	}
	return nil
}

func (c *Config) validateTools() error {
	if len(c.Tools.DemuxCommand) == 0 {
		return errors.New("tools.demux_command must be set")
	}
	if len(c.Tools.QCCommand) == 0 {
		return errors.New("tools.qc_command must be set")
	}
	for name, argv := range map[string][]string{
		"tools.extract_command": c.Tools.ExtractCommand,
		"tools.demux_command":   c.Tools.DemuxCommand,
		"tools.qc_command":      c.Tools.QCCommand,
	} {
		if err := tools.CheckTemplate(argv); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if strings.ContainsAny(c.Tools.QCReportName, `/\`) {
		return errors.New("tools.qc_report_name must be a file name")
	}
	return nil
}

func (c *Config) validateArchive() error {
	for _, pattern := range c.Archive.ExcludePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("archive.exclude_patterns: invalid pattern %q", pattern)
		}
	}
	if c.Archive.MinFreeGiB < 0 {
		return errors.New("archive.min_free_gib must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
