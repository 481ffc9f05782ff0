// Command roomboard is the entrypoint for the room-booking chat service.
// It:
//   - Loads configuration and initializes structured logging.
//   - Optionally connects to Postgres for draft persistence and the booking
//     audit trail, running idempotent migrations.
//   - Wires the Joan token source, API client, room directory, draft store,
//     and booking orchestrator.
//   - Exposes the chat-facing HTTP surface plus /healthz, /readyz, /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/factorydtw/roomboard/booking"
	"github.com/factorydtw/roomboard/config"
	"github.com/factorydtw/roomboard/db"
	"github.com/factorydtw/roomboard/joanapi"
	"github.com/factorydtw/roomboard/schedule"
	"github.com/factorydtw/roomboard/server"
	"github.com/factorydtw/roomboard/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateBookingReady(); err != nil {
		slog.Warn("joan credentials incomplete; booking calls will fail until configured", slog.Any("err", err))
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("roomboard", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Joan token source and client
	tokens := &joanapi.TokenSource{
		BaseURL:      cfg.JoanBaseURL,
		ClientID:     cfg.JoanClientID,
		ClientSecret: cfg.JoanClientSecret,
	}
	joan := &joanapi.Client{
		BaseURL:  cfg.JoanBaseURL,
		Tokens:   tokens,
		Timezone: cfg.Timezone,
	}

	// Best-effort: warm the token cache so the first chat interaction is fast.
	if cfg.JoanClientID != "" && cfg.JoanClientSecret != "" {
		ctx2, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		if tok, err := tokens.Get(ctx2); err != nil {
			slog.Warn("joan token fetch failed", slog.Any("err", err))
		} else if len(tok.Secret) > 6 {
			masked := "***" + tok.Secret[len(tok.Secret)-6:]
			slog.Info("joan token acquired", slog.String("tail", masked))
		}
		cancel()
	}

	// Draft store and audit: Postgres when DB_DSN is set, in-memory otherwise.
	var drafts booking.DraftStore = booking.NewMemoryDraftStore()
	var audit booking.AuditRecorder
	var database *sql.DB
	if cfg.DBDsn != "" {
		database, err = db.Connect(cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
		drafts = &db.DraftStore{DB: database}
		audit = &db.AuditRecorder{DB: database}
		slog.Info("draft persistence enabled")
	} else {
		slog.Info("DB_DSN not set; drafts are in-memory and the audit trail is disabled")
	}

	orch := &booking.Orchestrator{
		Drafts:    drafts,
		Rooms:     &booking.RoomDirectory{Source: joan},
		Inventory: joan,
		Location:  cfg.Location(),
		Timezone:  cfg.Timezone,
		Audit:     audit,
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	deps := server.Deps{
		Cfg:          cfg,
		Orchestrator: orch,
		Joan:         joan,
		Index:        schedule.NewEventIndex(),
		RenderOpts: schedule.Options{
			GenericSummary:  cfg.GenericSummary,
			DeskOwnerPrefix: cfg.DeskOwnerPrefix,
			Location:        cfg.Location(),
		},
	}
	deps.DB = database

	go func() {
		if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
