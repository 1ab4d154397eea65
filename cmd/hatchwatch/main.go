// Command hatchwatch serves fly recommendations built from scraped fly-shop
// fishing reports.
//
// Usage:
//
//	hatchwatch -config hatchwatch.yaml     # HTTP server
//	hatchwatch -config hatchwatch.yaml -mcp  # MCP server on stdio
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/riverbind/hatchwatch/dbopen"
	"github.com/riverbind/hatchwatch/hatch"
	"github.com/riverbind/hatchwatch/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to hatchwatch.yaml config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	mcpMode := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *addr, *mcpMode); err != nil {
		logger.Error("hatchwatch: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, addr string, mcpMode bool) error {
	cfg := hatch.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = hatch.LoadConfig(configPath)
		if err != nil {
			return err
		}
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	db, err := dbopen.Open(cfg.DBPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(store.Schema))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	svc, err := hatch.New(db, cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	go svc.Start(ctx)

	if mcpMode {
		srv := mcp.NewServer(&mcp.Implementation{Name: "hatchwatch", Version: "1.0.0"}, nil)
		svc.RegisterMCP(srv)
		logger.Info("hatchwatch: serving MCP on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	svc.RegisterHTTP(r)

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("hatchwatch: listening", "addr", cfg.Addr, "db", cfg.DBPath)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("hatchwatch: shutting down")
	return nil
}
