package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazyplan/internal/cache"
	"github.com/Joseda-hg/lazyplan/internal/clock"
	"github.com/Joseda-hg/lazyplan/internal/config"
	"github.com/Joseda-hg/lazyplan/internal/db"
	"github.com/Joseda-hg/lazyplan/internal/planner"
	"github.com/Joseda-hg/lazyplan/internal/reminder"
	"github.com/Joseda-hg/lazyplan/internal/tui"
	"github.com/Joseda-hg/lazyplan/internal/web"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:          "lazyplan",
		Short:        "Lists, dated tasks and reminders in the terminal and the browser",
		Version:      Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file path")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "sqlite db path")

	root.AddCommand(tuiCmd(flags))
	root.AddCommand(serveCmd(flags))
	root.AddCommand(viewCmd(flags))
	root.AddCommand(searchCmd(flags))
	root.AddCommand(listsCmd(flags))
	return root
}

func tuiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), flags)
		},
	}
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server and the reminder sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "web server port")
	return cmd
}

// app is everything a command needs once config and storage are resolved.
type app struct {
	cfg        config.Config
	configPath string
	sqlDB      *sql.DB
	planner    *planner.Planner
	closeCache func() error
}

func openApp(ctx context.Context, flags *globalFlags, port int) (*app, error) {
	cfgPath, err := resolveConfigPath(flags.configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "lazyplan.db")
	}
	if port != 0 {
		cfg.WebPort = port
	}
	if cfg.WebPort == 0 {
		cfg.WebPort = config.Default().WebPort
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clk := clock.System{Location: loc}

	sqlDB, err := openDB(cfg.DBPath, clk)
	if err != nil {
		return nil, err
	}

	snapshots, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		configPath: cfgPath,
		sqlDB:      sqlDB,
		planner:    planner.New(db.NewStore(sqlDB, clk), clk, snapshots),
		closeCache: closeCache,
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.closeCache(), a.sqlDB.Close())
}

func (a *app) httpServer() *http.Server {
	handler := web.NewServer(a.planner, web.Options{
		RateLimit:   a.cfg.RateLimit,
		RateBurst:   a.cfg.RateBurst,
		CORSOrigins: a.cfg.CORSOrigins,
	}).Handler()
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.WebPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func runServe(ctx context.Context, flags *globalFlags, port int) error {
	a, err := openApp(ctx, flags, port)
	if err != nil {
		return err
	}
	defer a.Close()

	sweeper := reminder.NewSweeper(a.planner.Store, clock.System{Location: a.planner.Location()})
	if err := sweeper.Start(a.cfg.ReminderInterval.Std()); err != nil {
		return err
	}
	defer sweeper.Stop()

	gin.SetMode(gin.ReleaseMode)
	server := a.httpServer()
	errc := make(chan error, 1)
	go func() {
		log.Printf("[info] web server running at http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errc:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown web server: %w", err)
	}
	log.Printf("[info] web server stopped")
	return nil
}

func runTUI(ctx context.Context, flags *globalFlags) error {
	a, err := openApp(ctx, flags, 0)
	if err != nil {
		return err
	}
	defer a.Close()

	// gocui owns the terminal; logs go next to the config.
	logFile, err := os.OpenFile(filepath.Join(filepath.Dir(a.configPath), "lazyplan.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	defer log.SetOutput(os.Stderr)

	if a.cfg.WebEnabled {
		gin.SetMode(gin.ReleaseMode)
		gin.DefaultWriter = logFile
		server := a.httpServer()
		go func() {
			log.Printf("[info] web server running at http://localhost%s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[warn] web server error: %v", err)
			}
		}()
		defer server.Close()
	}

	return tui.Run(ctx, a.planner)
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openDB(dbPath string, clk clock.Clock) (*sql.DB, error) {
	if err := config.EnsureDir(dbPath); err != nil {
		return nil, err
	}
	return db.Open(dbPath, clk)
}

// openCache builds the snapshot cache named by cfg. The returned closer is
// never nil.
func openCache(ctx context.Context, cfg config.Config) (cache.Cache, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Cache {
	case config.CacheMemory:
		return cache.NewMemory(cfg.CacheTTL.Std()), noop, nil
	case config.CacheRedis:
		rdb, err := cache.Dial(ctx, cfg.RedisURL, cfg.CacheTTL.Std())
		if err != nil {
			return nil, nil, err
		}
		return rdb, rdb.Close, nil
	default:
		return nil, noop, nil
	}
}
