package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/pubapi"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:          "pubapi",
		Short:        "pubapi - a JSON API for blog posts built with Go and Echo",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file (default ./config.yaml)")

	cmd.AddCommand(serveCmd(&configFile), seedCmd(&configFile), versionCmd())
	return cmd
}

func serveCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pubapi.LoadConfig(*configFile)
			if err != nil {
				return err
			}
			app := pubapi.New(cfg)
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- app.Start() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			app.Echo.Logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return <-errc
		},
	}
}

func seedCmd(configFile *string) *cobra.Command {
	var categories, tags []string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create categories and tags posts can refer to",
		Example: `  pubapi seed --category news --category tech
  pubapi seed --tag go --tag echo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(categories) == 0 && len(tags) == 0 {
				return fmt.Errorf("nothing to seed: pass --category or --tag")
			}
			cfg, err := pubapi.LoadConfig(*configFile)
			if err != nil {
				return err
			}
			store, err := pubapi.OpenBackend(cfg.Database, cfg.Debug)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			for _, name := range categories {
				c, err := store.EnsureCategory(ctx, name)
				if err != nil {
					return fmt.Errorf("category %q: %w", name, err)
				}
				fmt.Fprintf(out, "category %d\t%s\n", c.ID, c.Name)
			}
			for _, name := range tags {
				t, err := store.EnsureTag(ctx, name)
				if err != nil {
					return fmt.Errorf("tag %q: %w", name, err)
				}
				fmt.Fprintf(out, "tag %d\t%s\n", t.ID, t.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&categories, "category", nil, "category name to create (repeatable)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag name to create (repeatable)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pubapi version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pubapi %s\n", version)
		},
	}
}
