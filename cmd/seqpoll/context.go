package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"seqpoll/internal/config"
	"seqpoll/internal/flowcelltool"
	"seqpoll/internal/logging"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg, c.verbose())
}

// storeClient builds a Flowcelltool client from cfg. It fails when no URL is
// configured.
func storeClient(cfg *config.Config, logger *slog.Logger) (*flowcelltool.Client, error) {
	if err := cfg.RequireStore(); err != nil {
		return nil, err
	}
	return flowcelltool.New(flowcelltool.Options{
		BaseURL:           cfg.Flowcelltool.URL,
		Token:             cfg.Flowcelltool.AuthToken,
		Timeout:           cfg.RequestTimeout(),
		RequestsPerSecond: cfg.Flowcelltool.RequestsPerSecond,
		Burst:             cfg.Flowcelltool.Burst,
		Signature:         cfg.Flowcelltool.MessageSignature,
		MimeType:          cfg.Flowcelltool.MimeType,
		Version:           version,
		Logger:            logger,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
