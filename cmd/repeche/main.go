// CLAUDE:SUMMARY Entry point — HTTP API (chi), optional MCP stdio transport, one-shot batch mode.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/repeche"
	"github.com/hazyhaar/repeche/internal/interview"
)

func main() {
	configPath := flag.String("config", env("REPECHE_CONFIG", ""), "path to YAML config")
	batchFile := flag.String("batch", "", "fetch URLs listed in this file (one per line) and exit")
	interactive := flag.Bool("interactive", false, "with -batch: escalate failures to a terminal interview")
	flag.Parse()

	logger := newLogger(env("LOG_LEVEL", "info"))
	slog.SetDefault(logger)

	cfg, err := repeche.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var opts []repeche.ServiceOption
	if *interactive {
		opts = append(opts, repeche.WithInterviewRunner(&terminalRunner{}))
	}
	svc, err := repeche.New(cfg, logger, opts...)
	if err != nil {
		slog.Error("service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	if *batchFile != "" {
		if err := runBatch(ctx, svc, *batchFile, *interactive); err != nil {
			slog.Error("batch", "error", err)
			os.Exit(1)
		}
		return
	}

	// MCP over stdio turns the process into a tool server; the HTTP API is
	// skipped because stdout belongs to the protocol.
	if env("MCP_TRANSPORT", "") == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "repeche",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		slog.Info("MCP stdio starting")
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/fetch", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			writeError(w, 400, fmt.Errorf("body must be {\"url\": ...}"))
			return
		}
		writeJSON(w, 200, svc.FetchURL(r.Context(), req.URL))
	})

	r.Post("/api/batch", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URLs []string `json:"urls"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URLs) == 0 {
			writeError(w, 400, fmt.Errorf("body must be {\"urls\": [...]}"))
			return
		}
		results := svc.FetchBatch(r.Context(), req.URLs)
		writeJSON(w, 200, map[string]any{
			"results":  results,
			"analysis": svc.AnalyzeBatch(results),
		})
	})

	r.Get("/api/strategies/{domain}", func(w http.ResponseWriter, r *http.Request) {
		domain := chi.URLParam(r, "domain")
		writeJSON(w, 200, map[string]any{
			"domain":  domain,
			"records": svc.StrategiesForDomain(r.Context(), domain),
		})
	})

	r.Post("/api/strategies", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL      string `json:"url"`
			Strategy string `json:"strategy"`
			Notes    string `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" || req.Strategy == "" {
			writeError(w, 400, fmt.Errorf("body must be {\"url\": ..., \"strategy\": ...}"))
			return
		}
		stored := svc.LearnStrategy(r.Context(), req.URL, req.Strategy, req.Notes)
		writeJSON(w, 200, map[string]bool{"stored": stored})
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // a batch can take a while
	}
	go func() {
		<-ctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()
		srv.Shutdown(shutCtx)
	}()

	slog.Info("repeche listening", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server", "error", err)
		os.Exit(1)
	}
}

// runBatch fetches every URL in the file, prints the analysis, and
// optionally walks the operator through recovery of the failures.
func runBatch(ctx context.Context, svc *repeche.Service, path string, interactive bool) error {
	urls, err := readURLFile(path)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs in %s", path)
	}

	results := svc.FetchBatch(ctx, urls)
	analysis := svc.AnalyzeBatch(results)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(analysis); err != nil {
		return err
	}

	if interactive && len(analysis.Unrecoverable) > 0 {
		recovered, err := svc.EscalateAndRecover(ctx, results)
		if err != nil {
			return err
		}
		return enc.Encode(map[string]any{"recovered": recovered})
	}
	return nil
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

// terminalRunner asks the interview questions on the controlling terminal.
type terminalRunner struct{}

func (t *terminalRunner) Run(ctx context.Context, iv *interview.Interview) (*interview.Response, error) {
	fmt.Fprintf(os.Stderr, "\n%s\n%s\n", iv.Title, iv.Context)
	resp := &interview.Response{Completed: true, Responses: make(map[string]interview.Answer)}
	sc := bufio.NewScanner(os.Stdin)

	for _, q := range iv.Questions {
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		fmt.Fprintf(os.Stderr, "\n[%s] %s\n", q.Header, q.Body)
		for i, opt := range q.Options {
			fmt.Fprintf(os.Stderr, "  %d) %s\n", i+1, opt.Label)
		}
		fmt.Fprint(os.Stderr, "choice (empty to skip question): ")
		if !sc.Scan() {
			break
		}
		choice := strings.TrimSpace(sc.Text())
		if choice == "" {
			continue
		}
		idx := int(choice[0] - '1')
		if idx < 0 || idx >= len(q.Options) {
			continue
		}
		fmt.Fprint(os.Stderr, "details (optional): ")
		var text string
		if sc.Scan() {
			text = strings.TrimSpace(sc.Text())
		}
		resp.Responses[q.ID] = interview.Answer{
			Decision:  q.Options[idx].Label,
			OtherText: text,
		}
	}
	return resp, sc.Err()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: lvl}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
