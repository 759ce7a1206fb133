package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeFlowcelltool()
	c.normalizeTools()
	c.normalizeArchive()
	c.normalizeLogging()
	c.Metrics.TextfilePath = strings.TrimSpace(c.Metrics.TextfilePath)
	if c.Metrics.TextfilePath != "" {
		expanded, err := expandPath(c.Metrics.TextfilePath)
		if err != nil {
			return fmt.Errorf("metrics.textfile_path: %w", err)
		}
		c.Metrics.TextfilePath = expanded
	}
	c.Operator = strings.TrimSpace(c.Operator)
	if c.Operator == "" {
		if value, ok := os.LookupEnv("SEQPOLL_OPERATOR"); ok {
			c.Operator = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkspaceRoot) == "" {
		c.Paths.WorkspaceRoot = defaultWorkspaceRoot
	}
	if c.Paths.WorkspaceRoot, err = expandPath(c.Paths.WorkspaceRoot); err != nil {
		return fmt.Errorf("paths.workspace_root: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.JournalPath, err = expandPath(strings.TrimSpace(c.Paths.JournalPath)); err != nil {
		return fmt.Errorf("paths.journal_path: %w", err)
	}
	roots := make([]string, 0, len(c.Paths.SearchRoots))
	for _, root := range c.Paths.SearchRoots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		expanded, err := expandPath(root)
		if err != nil {
			return fmt.Errorf("paths.search_roots: %w", err)
		}
		roots = append(roots, expanded)
	}
	c.Paths.SearchRoots = roots
	return nil
}

func (c *Config) normalizeScan() {
	c.Scan.MarkerFile = strings.TrimSpace(c.Scan.MarkerFile)
	if c.Scan.MarkerFile == "" {
		c.Scan.MarkerFile = defaultMarkerFile
	}
}

func (c *Config) normalizeFlowcelltool() {
	if c.Flowcelltool.URL == "" {
		if value, ok := os.LookupEnv("FLOWCELLTOOL_URL"); ok {
			c.Flowcelltool.URL = value
		}
	}
	c.Flowcelltool.URL = strings.TrimRight(strings.TrimSpace(c.Flowcelltool.URL), "/")
	if c.Flowcelltool.AuthToken == "" {
		if value, ok := os.LookupEnv("FLOWCELLTOOL_AUTH_TOKEN"); ok {
			c.Flowcelltool.AuthToken = value
		}
	}
	c.Flowcelltool.AuthToken = strings.TrimSpace(c.Flowcelltool.AuthToken)
	c.Flowcelltool.MimeType = strings.TrimSpace(c.Flowcelltool.MimeType)
	if c.Flowcelltool.MimeType == "" {
		c.Flowcelltool.MimeType = defaultMimeType
	}
	if strings.TrimSpace(c.Flowcelltool.MessageSignature) == "" {
		c.Flowcelltool.MessageSignature = defaultMessageSignature
	}
}

func (c *Config) normalizeTools() {
	c.Tools.ExtractCommand = trimArgv(c.Tools.ExtractCommand)
	c.Tools.DemuxCommand = trimArgv(c.Tools.DemuxCommand)
	c.Tools.QCCommand = trimArgv(c.Tools.QCCommand)
	c.Tools.QCReportName = strings.TrimSpace(c.Tools.QCReportName)
	if c.Tools.QCReportName == "" {
		c.Tools.QCReportName = defaultQCReportName
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.Compressor = trimArgv(c.Archive.Compressor)
	patterns := c.Archive.ExcludePatterns[:0]
	for _, pattern := range c.Archive.ExcludePatterns {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			patterns = append(patterns, pattern)
		}
	}
	c.Archive.ExcludePatterns = patterns
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

// trimArgv trims the program name and returns nil when it is blank.
// Remaining arguments are kept verbatim.
func trimArgv(argv []string) []string {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil
	}
	out := make([]string, 0, len(argv))
	out = append(out, strings.TrimSpace(argv[0]))
	out = append(out, argv[1:]...)
	return out
}
