// Package mockmate is the top-level entry point for the MockMate server.
//
// Use the Builder to compose an application from configuration:
//
//	app, err := mockmate.NewBuilder().WithConfig(cfg).Build(ctx)
//	app.Start(ctx)
//
// Or swap components, for example in tests:
//
//	app, err := mockmate.NewBuilder().
//	    WithStore(memory.New()).
//	    WithProvider(myProvider).
//	    Build(ctx)
package mockmate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jxucoder/mockmate/internal/config"
	"github.com/jxucoder/mockmate/internal/httpapi"
	"github.com/jxucoder/mockmate/internal/metrics"
	"github.com/jxucoder/mockmate/pkg/llm"
	"github.com/jxucoder/mockmate/pkg/llm/gemini"
	"github.com/jxucoder/mockmate/pkg/relay"
	"github.com/jxucoder/mockmate/pkg/store"
	memoryStore "github.com/jxucoder/mockmate/pkg/store/memory"
	sqliteStore "github.com/jxucoder/mockmate/pkg/store/sqlite"
)

// Builder constructs a MockMate App.
type Builder struct {
	config   *config.Config
	store    store.InterviewStore
	provider llm.Provider
	logger   *zerolog.Logger
	metrics  *metrics.Metrics
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the application configuration.
func (b *Builder) WithConfig(cfg *config.Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the interview store implementation.
func (b *Builder) WithStore(s store.InterviewStore) *Builder {
	b.store = s
	return b
}

// WithProvider sets the model provider. It is only used when an API key is
// configured.
func (b *Builder) WithProvider(p llm.Provider) *Builder {
	b.provider = p
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = &l
	return b
}

// WithMetrics sets the Prometheus metrics. Tests pass their own to inspect
// counters.
func (b *Builder) WithMetrics(m *metrics.Metrics) *Builder {
	b.metrics = m
	return b
}

// Build creates the App. Missing components are filled with defaults.
func (b *Builder) Build(ctx context.Context) (*App, error) {
	if err := applyDefaults(ctx, b); err != nil {
		return nil, err
	}

	r := relay.New(relay.Config{
		APIKey:          b.config.GeminiAPIKey,
		InterviewModel:  b.config.InterviewModel,
		TranscribeModel: b.config.TranscribeModel,
		Timeout:         b.config.ProviderTimeout,
		MaxRetries:      b.config.MaxRetries,
		RetryBaseDelay:  b.config.RetryBaseDelay,
	}, b.provider, *b.logger).WithObserver(b.metrics)

	return &App{
		config:  b.config,
		relay:   r,
		store:   b.store,
		handler: httpapi.New(r, b.store, b.metrics, *b.logger),
		log:     *b.logger,
	}, nil
}

// App is a MockMate server.
type App struct {
	config  *config.Config
	relay   *relay.Relay
	store   store.InterviewStore
	handler *httpapi.Handler
	log     zerolog.Logger
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler { return a.handler }

// Relay returns the relay for in-process use.
func (a *App) Relay() *relay.Relay { return a.relay }

// Store returns the interview store.
func (a *App) Store() store.InterviewStore { return a.store }

// Start serves HTTP until ctx is done, then shuts down and closes the store.
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.config.ServerAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	a.log.Info().
		Str("addr", a.config.ServerAddr).
		Str("store", a.config.Store).
		Bool("relay_configured", a.relay.Configured()).
		Msg("MockMate server listening")
	if !a.relay.Configured() {
		a.log.Warn().Msg("GEMINI_API_KEY is not set; relay endpoints will answer 500")
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.store.Close()
		return err
	}
	return a.store.Close()
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// applyDefaults fills in missing fields on the builder.
func applyDefaults(ctx context.Context, b *Builder) error {
	if b.config == nil {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		b.config = cfg
	}
	if err := b.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if b.logger == nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		b.logger = &l
	}
	if b.metrics == nil {
		b.metrics = metrics.New()
	}

	// Store.
	if b.store == nil {
		switch b.config.Store {
		case "memory":
			b.store = memoryStore.New()
		default:
			if err := os.MkdirAll(b.config.DataDir, 0o755); err != nil {
				return fmt.Errorf("creating data directory: %w", err)
			}
			st, err := sqliteStore.New(b.config.DatabasePath)
			if err != nil {
				return fmt.Errorf("initializing store: %w", err)
			}
			b.store = st
		}
	}

	// Provider. Without a key the relay stays unconfigured and never calls out.
	if b.config.GeminiAPIKey == "" {
		b.provider = nil
	} else if b.provider == nil {
		p, err := gemini.New(ctx, gemini.Config{
			APIKey:  b.config.GeminiAPIKey,
			BaseURL: b.config.ProviderURL,
		})
		if err != nil {
			return fmt.Errorf("initializing provider: %w", err)
		}
		b.provider = p
	}

	return nil
}
