// Package dialogmote parses dialogmote command flags and wires the
// meeting coordination service.
package dialogmote

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpapi "github.com/navikt/isdialogmote/internal/dialogmote/api/http"
	"github.com/navikt/isdialogmote/internal/dialogmote/app"
	"github.com/navikt/isdialogmote/internal/dialogmote/domain"
	"github.com/navikt/isdialogmote/internal/dialogmote/render"
	"github.com/navikt/isdialogmote/internal/dialogmote/storage/sqlite"
	entrypoint "github.com/navikt/isdialogmote/internal/platform/cmd"
)

const shutdownTimeout = 10 * time.Second

// Config holds dialogmote command configuration.
type Config struct {
	HTTPAddr                    string `env:"DIALOGMOTE_HTTP_ADDR"                       envDefault:":8080"`
	StoragePath                 string `env:"DIALOGMOTE_STORAGE_PATH"                    envDefault:"dialogmote.db"`
	Locale                      string `env:"DIALOGMOTE_LOCALE"                          envDefault:"nb"`
	SuppressPastMeetingDispatch bool   `env:"DIALOGMOTE_SUPPRESS_PAST_MEETING_DISPATCH"  envDefault:"true"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "dialogmote HTTP listen address")
	fs.StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "sqlite database path")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "notification document locale")
	fs.BoolVar(&cfg.SuppressPastMeetingDispatch, "suppress-past-meeting-dispatch", cfg.SuppressPastMeetingDispatch, "skip outbound dispatch for meetings already in the past")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run opens storage, wires the service and serves HTTP until the
// context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDialogmote, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.StoragePath)
		if err != nil {
			return fmt.Errorf("open meeting store: %w", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("close meeting store", "error", closeErr)
			}
		}()

		logger := slog.Default()
		service := domain.NewService(app.NewStoreAdapter(store), nil, nil)
		sink := logSink{logger: logger}
		dispatcher := app.NewDispatcher(app.DispatcherConfig{
			Digital:                     sink,
			Letters:                     sink,
			Messaging:                   sink,
			Logger:                      logger,
			SuppressPastMeetingDispatch: cfg.SuppressPastMeetingDispatch,
		})
		renderer := render.NewRenderer(render.NewLocalizer(cfg.Locale), render.NewMemoryArtifactStore())
		handler := httpapi.NewServer(service, dispatcher, renderer, logger)

		if err := serve(ctx, cfg.HTTPAddr, handler, logger); err != nil {
			return fmt.Errorf("serve dialogmote: %w", err)
		}
		return nil
	})
}

// serve runs the HTTP server until the context ends, then drains it.
func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	logger.Info("dialogmote server listening", "addr", addr)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// logSink records outbound deliveries in the process log. The real
// delivery integrations live in downstream systems; this sink keeps a
// standalone process observable.
type logSink struct {
	logger *slog.Logger
}

func (s logSink) SendDigital(ctx context.Context, notification domain.Notification) error {
	s.logger.InfoContext(ctx, "digital notification dispatched",
		"notification_id", notification.ID, "type", notification.Type)
	return nil
}

func (s logSink) OrderLetter(ctx context.Context, notification domain.Notification) error {
	s.logger.InfoContext(ctx, "letter ordered",
		"notification_id", notification.ID, "type", notification.Type)
	return nil
}

func (s logSink) SendPractitionerMessage(ctx context.Context, notification domain.Notification) error {
	s.logger.InfoContext(ctx, "practitioner message sent",
		"notification_id", notification.ID,
		"conversation_ref", notification.ConversationRef,
		"parent_ref", notification.ParentRef)
	return nil
}
