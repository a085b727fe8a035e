package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/akolanti/GroundedRAG/internal/app"
	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

type rootOptions struct {
	settingsPath string
	dataDir      string
	verbose      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "indexer",
		Short:         "Build and maintain the local retrieval index",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			logger_i.InitWith(os.Stderr, level, false)
		},
	}
	root.PersistentFlags().StringVar(&opts.settingsPath, "settings", config.SettingsFileName, "path to settings.yaml")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "override storage.data_dir")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newIndexCmd(opts),
		newVerifyCmd(opts),
		newExportCmd(opts),
		newRemoveCmd(opts),
		newSourcesCmd(opts),
		newMCPCmd(opts),
	)
	return root
}

func (o *rootOptions) settings() (*config.Settings, error) {
	s, err := app.LoadSettings(o.settingsPath)
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		s.Storage.DataDir = o.dataDir
	}
	return s, nil
}

func (o *rootOptions) openEngine(ctx context.Context) (*app.Engine, error) {
	s, err := o.settings()
	if err != nil {
		return nil, err
	}
	return app.OpenEngine(ctx, s)
}
