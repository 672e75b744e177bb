// ABOUTME: Entry point for the todo MCP server.
// ABOUTME: Exposes todo tools, resources, and prompts over Streamable HTTP.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/2389/todo-mcp/internal/auth"
	"github.com/2389/todo-mcp/internal/config"
	"github.com/2389/todo-mcp/internal/dispatch"
	"github.com/2389/todo-mcp/internal/mcp"
	"github.com/2389/todo-mcp/internal/todo"
	"github.com/2389/todo-mcp/internal/tools"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  _            _
 | |_ ___   __| | ___        _ __ ___   ___ _ __
 | __/ _ \ / _' |/ _ \ _____| '_ ' _ \ / __| '_ \
 | || (_) | (_| | (_) |_____| | | | | | (__| |_) |
  \__\___/ \__,_|\___/      |_| |_| |_|\___| .__/
                                           |_|
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: todo-server <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve          Start the MCP server")
		fmt.Println("  token          Mint a JWT for the todo capability")
		fmt.Println("  health         Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "token":
		err = runToken(os.Args[2:])
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the path to the server config file.
// Priority: TODO_MCP_CONFIG env var > XDG_CONFIG_HOME/todo-mcp/server.yaml > ~/.config/todo-mcp/server.yaml
func getConfigPath() string {
	if envPath := os.Getenv("TODO_MCP_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "server.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "todo-mcp", "server.yaml")
}

// loadConfig reads the config file if one exists, otherwise the defaults.
func loadConfig() (*config.Config, string, error) {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err != nil {
		return config.Default(), "(defaults)", nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

func runServe(ctx context.Context) error {
	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics: %s\n", cfg.Metrics.Path)
	}
	fmt.Println()

	logger.Info("starting todo-mcp server",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"require_auth", cfg.Auth.RequireAuth,
	)

	// Wire the stack: store -> dispatcher -> tool pack -> MCP server
	store := todo.NewStore()
	dispatcher := dispatch.New(store, logger)
	registry := tools.NewRegistry(logger)
	if err := registry.RegisterPack(tools.TodoPack(dispatcher)); err != nil {
		return fmt.Errorf("registering todo pack: %w", err)
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		jwtVerifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			return fmt.Errorf("creating JWT verifier: %w", err)
		}
		verifier = jwtVerifier
	}

	tokenStore := mcp.NewTokenStore()
	if cfg.Auth.RequireAuth {
		// Mint one startup token so a server without minted JWTs is reachable
		startupToken := tokenStore.CreateToken(tools.CapabilityTodo)
		logger.Info("startup MCP token created", "url", fmt.Sprintf("http://%s/mcp/%s", cfg.Server.HTTPAddr, startupToken))
	}

	promRegistry := prometheus.NewRegistry()
	var metrics *mcp.Metrics
	if cfg.Metrics.Enabled {
		promRegistry.MustRegister(collectors.NewGoCollector())
		metrics = mcp.NewMetrics(promRegistry)
	}

	server, err := mcp.NewServer(mcp.Config{
		Registry:      registry,
		Dispatcher:    dispatcher,
		Logger:        logger,
		TokenVerifier: verifier,
		TokenStore:    tokenStore,
		RequireAuth:   cfg.Auth.RequireAuth,
		DefaultCaps:   cfg.Auth.DefaultCaps,
		Metrics:       metrics,
		ServerName:    "todo-mcp",
		ServerVersion: version,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runToken mints a JWT for the todo capability using the configured secret.
func runToken(args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	ttl := 24 * time.Hour
	if len(args) > 0 {
		ttl, err = time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("parsing ttl %q: %w", args[0], err)
		}
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating JWT verifier: %w", err)
	}

	token, err := verifier.Generate(tools.CapabilityTodo, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
