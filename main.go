package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"proposal-engine/internal/config"
	"proposal-engine/internal/engine"
	"proposal-engine/internal/handler"
	"proposal-engine/internal/logging"
	"proposal-engine/internal/metrics"
	"proposal-engine/internal/plancatalog"
	"proposal-engine/internal/store"
	"proposal-engine/internal/tui"
)

const appName = "proposal-engine"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath string
	port       int
	backend    string
	dataDir    string
	plansFile  string
}

func rootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Motor insurance proposal wizard",
		Long: `proposal-engine walks a customer through choosing a motor insurance plan,
filling in a proposal and publishing it, while keeping the portal, agent and
policy document views of the proposal on the same version.

Without a subcommand it serves the HTTP API.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, f)
		},
	}

	cmd.PersistentFlags().StringVarP(&f.configPath, "config", "c", config.FileName, "Config file path (YAML)")
	cmd.PersistentFlags().IntVar(&f.port, "port", 0, "HTTP port (overrides config)")
	cmd.PersistentFlags().StringVar(&f.backend, "store", "", "Snapshot store: memory, file or sqlite")
	cmd.PersistentFlags().StringVar(&f.dataDir, "data-dir", "", "Directory for file and sqlite stores")
	cmd.PersistentFlags().StringVar(&f.plansFile, "plans", "", "YAML plan catalog replacing the built-in one")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, f)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "tui",
		Short: "Run the wizard in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, f)
		},
	})

	return cmd
}

// loadConfig reads the config file and lets explicitly set flags win.
func loadConfig(cmd *cobra.Command, f flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = f.port
	}
	if f.backend != "" {
		cfg.Store.Backend = f.backend
	}
	if f.dataDir != "" {
		cfg.Store.DataDir = f.dataDir
	}
	if f.plansFile != "" {
		cfg.Catalog.PlansFile = f.plansFile
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func loadCatalog(cfg config.Config) (*plancatalog.Catalog, error) {
	if cfg.Catalog.PlansFile == "" {
		return plancatalog.Default(), nil
	}
	return plancatalog.Load(cfg.Catalog.PlansFile)
}

func serve(cmd *cobra.Command, f flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	logging.Init(cfg.Log)
	logger := logging.Get()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	st, closeStore, err := store.Open(cfg.Store.Backend, cfg.Store.DataDir)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := handler.New(engine.Options{
		Catalog: cat,
		Store:   st,
		Logger:  logger,
		Metrics: metrics.New(),
	})
	server := &fasthttp.Server{Handler: srv.Handle, Name: appName}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.With(logger.Info(),
			logging.Str("addr", cfg.Addr()),
			logging.Str("store", cfg.Store.Backend),
		).Msg("proposal engine starting")
		errCh <- server.ListenAndServe(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		return server.Shutdown()
	}
}

func runTUI(cmd *cobra.Command, f flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file next to the store.
	if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(cfg.Store.DataDir, "tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	cfg.Log.Output = logFile
	logging.Init(cfg.Log)

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	st, closeStore, err := store.Open(cfg.Store.Backend, cfg.Store.DataDir)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := tui.New(ctx, engine.Options{
		Key:     store.DefaultKey,
		Catalog: cat,
		Store:   st,
		Logger:  logging.Get(),
	})
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(app, tea.WithAltScreen()).Run()
	return err
}
