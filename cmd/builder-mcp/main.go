package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yousuf/builder-typegen/internal/client"
	"github.com/yousuf/builder-typegen/internal/config"
	"github.com/yousuf/builder-typegen/internal/server"
	"github.com/yousuf/builder-typegen/internal/session"
)

func main() {
	if err := New().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Serve is the builder-mcp command.
type Serve struct {
	ConfigPath  string
	Port        string
	Stdio       bool
	IdleTimeout time.Duration
}

// New builds the root command.
func New() *cobra.Command {
	s := &Serve{}
	cmd := &cobra.Command{
		Use:          "builder-mcp",
		Short:        "Serve the Builder.io TypeScript generator over MCP",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         s.Run,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	flags := cmd.Flags()
	flags.StringVarP(&s.ConfigPath, "config", "c", os.Getenv("CONFIG_PATH"), "Path to config file (yaml or json)")
	flags.StringVar(&s.Port, "port", port, "HTTP port for the streamable transport")
	flags.BoolVar(&s.Stdio, "stdio", false, "Serve over stdin/stdout instead of HTTP")
	flags.DurationVar(&s.IdleTimeout, "idle-timeout", 30*time.Minute, "Drop sessions idle for longer than this (0 disables)")
	return cmd
}

func (s *Serve) Run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithOptions(config.LoadOptions{
		ConfigPath:        s.ConfigPath,
		SearchPaths:       config.DefaultSearchPaths(),
		AllowEnvOverrides: true,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Stdout carries the protocol in stdio mode, so logs always go to stderr.
	log, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var hub *client.McpClientHub
	if len(cfg.McpServers) > 0 {
		hub = client.NewMcpClientHub(log)
		if err := hub.Connect(ctx, cfg); err != nil {
			hub.Close()
			return err
		}
	}
	log.Infof("Loaded configuration with %d MCP server(s)", len(cfg.McpServers))

	sessionMgr := session.NewManager(cfg, hub, log)
	defer func() {
		if err := sessionMgr.CloseAll(); err != nil {
			log.WithError(err).Error("Error closing sessions")
		}
	}()

	if s.IdleTimeout > 0 {
		go reapIdle(ctx, sessionMgr, s.IdleTimeout)
	}

	mcpServer := server.NewMcpServer(sessionMgr, log)

	if s.Stdio {
		log.Info("Builder typegen MCP server listening on stdio")
		if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	return serveHTTP(ctx, log, s.Port, mcpServer)
}

// newHandler serves every HTTP session from the same MCP server. Per-session
// state lives in the session manager, keyed by the MCP session id.
func newHandler(mcpServer *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return mcpServer
	}, &mcp.StreamableHTTPOptions{})
}

func serveHTTP(ctx context.Context, log logrus.FieldLogger, port string, mcpServer *mcp.Server) error {
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      newHandler(mcpServer),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Builder typegen MCP server listening on port %s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}

	log.Info("Server stopped")
	return nil
}

func reapIdle(ctx context.Context, mgr *session.Manager, maxIdle time.Duration) {
	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mgr.ReapIdle(maxIdle)
		}
	}
}
