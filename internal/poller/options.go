package poller

import (
	"errors"
	"strings"
	"time"

	"seqpoll/internal/config"
	"seqpoll/internal/lifecycle"
	"seqpoll/internal/scanner"
)

// Options is the resolved, read-only configuration of one poll. It is built
// once from the config file and CLI flags and never modified afterwards.
type Options struct {
	Roots         []string
	WorkspaceRoot string
	MaxDepth      int
	MarkerFile    string
	MinYear       int
	Mode          lifecycle.Mode
	Now           func() time.Time
}

// OptionsFromConfig resolves cfg into poll options, taking min_year 0 as the
// current calendar year.
func OptionsFromConfig(cfg *config.Config, mode lifecycle.Mode, now time.Time) Options {
	return Options{
		Roots:         append([]string(nil), cfg.Paths.SearchRoots...),
		WorkspaceRoot: cfg.Paths.WorkspaceRoot,
		MaxDepth:      cfg.Scan.MaxDepth,
		MarkerFile:    cfg.Scan.MarkerFile,
		MinYear:       cfg.EffectiveMinYear(now),
		Mode:          mode,
	}
}

// Validate checks the options before a poll starts.
func (o Options) Validate() error {
	if err := o.scan().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(o.WorkspaceRoot) == "" {
		return errors.New("workspace root is required")
	}
	return nil
}

func (o Options) scan() scanner.Options {
	return scanner.Options{Roots: o.Roots, MaxDepth: o.MaxDepth, MarkerFile: o.MarkerFile}
}
