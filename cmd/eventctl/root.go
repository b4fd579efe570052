package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"eventsaga/internal/application/factories/infrastructure"
	"eventsaga/internal/config"
)

type app struct {
	configPath string
	timeout    time.Duration

	cfg     *config.Config
	factory *infrastructure.Factory
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "eventctl",
		Short:         "Operate the event pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
			slog.SetDefault(logger)

			a.cfg = cfg
			a.factory = infrastructure.NewFactory(cfg, logger)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.factory != nil {
				a.factory.Close()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config.yaml", "path to the config file")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Second, "overall command timeout")

	root.AddCommand(newDLTCmd(a), newLedgerCmd(a), newTopicsCmd(a))
	return root
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
