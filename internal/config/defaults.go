package config

import "time"

const (
	defaultWorkspaceRoot     = "~/.local/share/seqpoll/workspaces"
	defaultLogDir            = "~/.local/share/seqpoll/logs"
	defaultJournalPath       = "~/.local/share/seqpoll/journal.db"
	defaultMaxDepth          = 3
	defaultMarkerFile        = "RunInfo.xml"
	defaultRequestTimeout    = 30
	defaultRequestsPerSecond = 5
	defaultBurst             = 5
	defaultMessageSignature  = "This message was added by seqpoll"
	defaultMimeType          = "text/plain"
	defaultQCReportName      = "multiqc_report.html"
	defaultMinFreeGiB        = 0
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	minimumYear              = 2000
)

func defaultDemuxCommand() []string {
	return []string{
		"bcl2fastq",
		"--runfolder-dir", "{run_dir}",
		"--output-dir", "{demux_dir}",
		"--sample-sheet", "{sample_sheet}",
	}
}

func defaultQCCommand() []string {
	return []string{"multiqc", "--force", "--outdir", "{qc_dir}", "{demux_dir}"}
}

func defaultCompressor() []string {
	return []string{"pigz", "-c"}
}

func defaultExcludePatterns() []string {
	return []string{"**/Thumbnail_Images/**", "**/Images/**"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceRoot: defaultWorkspaceRoot,
			LogDir:        defaultLogDir,
			JournalPath:   defaultJournalPath,
		},
		Scan: Scan{
			MaxDepth:   defaultMaxDepth,
			MarkerFile: defaultMarkerFile,
		},
		Flowcelltool: Flowcelltool{
			RequestTimeout:    defaultRequestTimeout,
			RequestsPerSecond: defaultRequestsPerSecond,
			Burst:             defaultBurst,
			MessageSignature:  defaultMessageSignature,
			MimeType:          defaultMimeType,
		},
		Tools: Tools{
			DemuxCommand: defaultDemuxCommand(),
			QCCommand:    defaultQCCommand(),
			QCReportName: defaultQCReportName,
		},
		Archive: Archive{
			Compressor:      defaultCompressor(),
			ExcludePatterns: defaultExcludePatterns(),
			MinFreeGiB:      defaultMinFreeGiB,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

// EffectiveMinYear resolves the min_year setting against now.
func (c *Config) EffectiveMinYear(now time.Time) int {
	if c.Scan.MinYear == 0 {
		return now.Year()
	}
	return c.Scan.MinYear
}

// RequestTimeout returns the status store request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Flowcelltool.RequestTimeout) * time.Second
}
