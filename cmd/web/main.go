// Command web serves the KickShop storefront.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/kickshop/internal/catalog"
	"finitefield.org/kickshop/internal/format"
	"finitefield.org/kickshop/internal/platform/config"
	"finitefield.org/kickshop/internal/platform/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		envFile  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:           "web",
		Short:         "RyzKickShop storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile, logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file layered under the process environment")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile, logLevel)
		},
	})
	cmd.AddCommand(catalogCmd())
	return cmd
}

func catalogCmd() *cobra.Command {
	var (
		file   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the generated catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := catalog.LoadDefinitions(file)
			if err != nil {
				return err
			}
			c, err := catalog.Build(defs)
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), c, output)
		},
	}
	cmd.Flags().StringVar(&file, "file", os.Getenv("SHOP_CATALOG_FILE"), "catalog definitions YAML (built-in when blank)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or json")
	return cmd
}

func printCatalog(w io.Writer, c *catalog.Catalog, output string) error {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "json":
		sections := make([]sectionJSON, 0)
		for _, s := range c.Sections() {
			sec := sectionJSON{Key: s.Key, Layout: s.Layout, Items: make([]itemJSON, 0, len(s.Items))}
			for _, item := range s.Items {
				sec.Items = append(sec.Items, toItemJSON(item, false))
			}
			sections = append(sections, sec)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"sections": sections})
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSECTION\tTITLE\tPRICE\tIMAGE")
		for _, item := range c.Items() {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", item.ID, item.Section, item.Title, format.Money(item.Price), item.ImageRef)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func serve(ctx context.Context, envFile, logLevel string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, config.WithEnvFile(envFile))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(logLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	janitorCtx, cancelJanitors := context.WithCancel(context.Background())
	defer cancelJanitors()
	a.runJanitors(janitorCtx)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr), zap.String("env", cfg.Environment))
	errCh := make(chan error, 1)
	go func() {
		serverLogger.Info("kickshop web listening", zap.Bool("dev", cfg.Dev))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received; draining requests")
	cancelJanitors()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
