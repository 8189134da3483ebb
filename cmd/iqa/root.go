package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-iqa/config"
	"github.com/nvr-ai/go-iqa/images/cv"
	"github.com/nvr-ai/go-iqa/metrics"
)

// app carries state shared by all subcommands of one invocation.
type app struct {
	logLevel   string
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default()}

	root := &cobra.Command{
		Use:   "iqa",
		Short: "Image quality assessment with PSNR and SSIM",
		Long: `iqa scores image pairs and frame sequences with PSNR and SSIM, and writes
the per-step loss/PSNR/SSIM summary files used to track training runs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file")

	root.AddCommand(
		newCompareCmd(a, "psnr"),
		newCompareCmd(a, "ssim"),
		newSequenceCmd(a),
		newSummarizeCmd(a),
	)
	return root
}

// setup loads the config file, applies --log-level and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if cmd.Flags().Changed("log-level") || a.configPath == "" {
		a.cfg.LogLevel = a.logLevel
	}

	level, err := config.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	handler := slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	a.logger = slog.New(handler)
	slog.SetDefault(a.logger)
	return nil
}

// evaluator returns the SSIM evaluator for the configured backend.
func (a *app) evaluator() (*metrics.Evaluator, error) {
	opts := metrics.Options{Parallel: true, Logger: a.logger}
	if a.cfg.Backend == config.BackendOpenCV {
		opts.Filter = cv.GaussianFilter{Size: metrics.SSIMWindowSize, Sigma: metrics.SSIMWindowSigma}
	}
	return metrics.NewEvaluator(opts)
}

// intFlag returns the flag value when it was set on the command line, the
// config value otherwise.
func intFlag(cmd *cobra.Command, name string, flag, cfg int) int {
	if cmd.Flags().Changed(name) {
		return flag
	}
	return cfg
}

func boolFlag(cmd *cobra.Command, name string, flag, cfg bool) bool {
	if cmd.Flags().Changed(name) {
		return flag
	}
	return cfg
}

func stringFlag(cmd *cobra.Command, name string, flag, cfg string) string {
	if cmd.Flags().Changed(name) {
		return flag
	}
	return cfg
}
