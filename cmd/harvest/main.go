// Command harvest extracts content URLs from creator accounts.
//
// Usage:
//
//	harvest -platform youtube -account https://www.youtube.com/@somechannel
//	harvest -config harvest.yaml -serve :8080    # HTTP API
//	harvest -config harvest.yaml -mcp            # MCP tools over stdio
package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/toseeq44/automation-fb-sub002/harvest"
	"github.com/toseeq44/automation-fb-sub002/shield"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "", "path to harvest.yaml config file")
	serveAddr := flag.String("serve", "", "serve the HTTP API on this address")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools over stdio")
	platform := flag.String("platform", "", "one-shot: platform key")
	account := flag.String("account", "", "one-shot: account URL")
	maxItems := flag.Int("max-items", 0, "one-shot: cap on returned links")
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

	if err := run(ctx, logger, *configPath, *serveAddr, *mcpMode, *platform, *account, *maxItems); err != nil {
		logger.Error("harvest: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, serveAddr string, mcpMode bool, platform, account string, maxItems int) error {
	cfg, err := harvest.LoadConfig(configPath)
	if err != nil {
		return err
	}

	svc := harvest.New(cfg, logger)
	defer svc.Close()

	switch {
	case mcpMode:
		return svc.NewMCPServer(version).Run(ctx, &sdkmcp.StdioTransport{})
	case serveAddr != "":
		return serveHTTP(ctx, logger, svc, serveAddr)
	case platform != "" && account != "":
		return runOnce(ctx, svc, platform, account, maxItems)
	}

	fmt.Fprintln(os.Stderr, "usage: harvest -platform <p> -account <url> | -serve <addr> | -mcp")
	os.Exit(1)
	return nil
}

// runOnce extracts one account and prints the result as JSON on stdout.
// Exhaustion exits non-zero but still prints the attempt trail.
func runOnce(ctx context.Context, svc *harvest.Service, platform, account string, maxItems int) error {
	res, err := svc.Extract(ctx, harvest.Request{
		Platform:   harvest.Platform(platform),
		AccountURL: account,
		MaxItems:   maxItems,
	})
	if res != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(res)
	}
	if err != nil && !errors.Is(err, harvest.ErrExhausted) {
		return err
	}
	if err != nil {
		os.Exit(2)
	}
	return nil
}

func serveHTTP(ctx context.Context, logger *slog.Logger, svc *harvest.Service, addr string) error {
	handler := http.Handler(svc.Router())
	stack := shield.DefaultStack()
	for i := len(stack) - 1; i >= 0; i-- {
		handler = stack[i](handler)
	}
	if auth := os.Getenv("HARVEST_AUTH"); auth != "" {
		h, err := basicAuth(auth, handler)
		if err != nil {
			return err
		}
		handler = h
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("http listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// basicAuth wraps a handler with HTTP basic auth. The credential is given
// as "user:bcrypt-hash" (generate the hash with htpasswd -B).
func basicAuth(credential string, next http.Handler) (http.Handler, error) {
	user, hash, ok := strings.Cut(credential, ":")
	if !ok || user == "" || hash == "" {
		return nil, errors.New("HARVEST_AUTH must be user:bcrypt-hash")
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
			bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="harvest"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}), nil
}
