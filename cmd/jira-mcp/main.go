package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joeycmlam/jira-agent/internal/config"
	"github.com/joeycmlam/jira-agent/internal/convert"
	"github.com/joeycmlam/jira-agent/internal/jira"
)

const serverVersion = "v1.0.0"

const shutdownTimeout = 5 * time.Second

var loadDotEnv = godotenv.Load

func main() {
	httpAddr := flag.String("http", "", "serve MCP over HTTP on this address instead of stdio (e.g. :8080)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[JIRA MCP] Received signal %v, shutting down", sig)
		cancel()
	}()

	if err := run(ctx, *httpAddr); err != nil {
		log.Fatalf("[JIRA MCP] Server failed: %v", err)
	}
}

func run(ctx context.Context, httpAddr string) error {
	if err := loadDotEnv(); err != nil {
		log.Printf("[JIRA MCP] No .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		if missing := config.MissingVars(config.EnvironMap(os.Environ())); len(missing) > 0 {
			return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
		}
		return fmt.Errorf("load config: %w", err)
	}
	log.Printf("[JIRA MCP] Configured for %s", cfg.Summary())

	client := jira.NewClient(cfg)
	handler := newToolHandler(client, convert.New())

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "jira-mcp",
		Version: serverVersion,
	}, nil)
	handler.register(server)

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr)
	}

	log.Printf("[JIRA MCP] Serving on stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}

// serveHTTP exposes the MCP server over streamable HTTP with a health endpoint.
// The listener drains in-flight requests and stops when ctx is cancelled.
func serveHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	r := mux.NewRouter()
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)

	srv := &http.Server{Addr: addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[JIRA MCP] Serving HTTP on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("[JIRA MCP] Draining HTTP connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
