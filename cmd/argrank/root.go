package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/config"
	logpkg "github.com/kailas-cloud/argrank/internal/logger"
	"github.com/kailas-cloud/argrank/internal/metrics"
)

const rootLongDesc string = `argrank builds and refines ranked runs for argument retrieval.

It retrieves with BM25 and dense passage search, fuses the two runs,
reranks by pseudo-relevance feedback and a cross-encoder, and tracks
how a live ranking drifts over a debate transcript.

Configuration is read from config/<env>.yaml. ENV selects the
environment and --env overrides it.`

const rootShortDesc string = "Argument retrieval runs, fusion and reranking"

type rootCommander struct {
	env   string
	debug bool

	app *app
}

func newRootCmd() *cobra.Command {
	cmder := &rootCommander{}

	cmd := &cobra.Command{
		Use:           "argrank",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return cmder.setup()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if cmder.app != nil {
				cmder.app.close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cmder.env, "env", config.GetEnv(), "Config environment (local, dev, docker, prod)")
	cmd.PersistentFlags().BoolVar(&cmder.debug, "debug", false, "Force debug logging")

	cmd.AddCommand(
		newRunCmd(cmder.getApp),
		newFuseCmd(cmder.getApp),
		newPRFCmd(cmder.getApp),
		newCrossEncodeCmd(cmder.getApp),
		newTrackCmd(cmder.getApp),
		newServeCmd(cmder.getApp),
		newVersionCmd(),
	)

	return cmd
}

func (c *rootCommander) setup() error {
	cfg, err := config.Load(c.env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if c.debug {
		level = "debug"
	}
	logger, err := logpkg.NewLogger(c.env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRankingMetrics()

	logger.Debug("Configuration loaded", zap.String("env", c.env))
	c.app = newApp(cfg, logger)
	return nil
}

func (c *rootCommander) getApp() *app { return c.app }
