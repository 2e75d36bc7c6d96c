package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/kickshop/internal/catalog"
	"finitefield.org/kickshop/internal/content"
	"finitefield.org/kickshop/internal/i18n"
	mw "finitefield.org/kickshop/internal/middleware"
	"finitefield.org/kickshop/internal/platform/config"
	"finitefield.org/kickshop/internal/platform/httpx"
	"finitefield.org/kickshop/internal/platform/idempotency"
	"finitefield.org/kickshop/internal/platform/observability"
	"finitefield.org/kickshop/internal/session"
)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 30 * time.Second
)

// app carries the dependencies shared by every handler.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	bundle   *i18n.Bundle
	render   *renderer
	pages    *content.Loader
	store    *session.MemoryStore
	sessions *mw.Sessions
	limiter  *mw.RateLimiter
	metrics  *observability.Metrics
	idem     *idempotency.Middleware
	now      func() time.Time
}

func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defs, err := catalog.LoadDefinitions(cfg.Catalog.File)
	if err != nil {
		return nil, err
	}
	factory, err := session.NewFactory(defs,
		session.WithCartSeed(cfg.Catalog.SeedCart),
		session.WithMaxDepth(cfg.Nav.MaxDepth),
	)
	if err != nil {
		return nil, err
	}
	bundle, err := i18n.Load(cfg.I18n.LocalesDir, cfg.I18n.DefaultLocale, cfg.I18n.Supported)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errStartup, err)
	}
	rd, err := newRenderer(cfg.Assets.TemplatesDir, cfg.Dev, bundle)
	if err != nil {
		return nil, fmt.Errorf("%w: parse templates: %v", errStartup, err)
	}
	store := session.NewMemoryStore(factory, session.WithTTL(cfg.Session.TTL))
	return &app{
		cfg:      cfg,
		logger:   logger,
		bundle:   bundle,
		render:   rd,
		pages:    content.NewLoader(cfg.Assets.ContentDir, cfg.I18n.DefaultLocale, cfg.Dev),
		store:    store,
		sessions: mw.NewSessions(cfg.Session.SigningKey, cfg.Session.SecureCookie, 30*24*time.Hour, logger),
		limiter:  mw.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
		metrics:  observability.NewMetrics(store.Len),
		idem:     idempotency.NewMiddleware(idempotency.NewMemoryStore(), idempotency.WithTTL(cfg.Session.TTL), idempotency.WithMaxBody(maxAPIBody)),
		now:      time.Now,
	}, nil
}

var errStartup = errors.New("startup")

// routes builds the chi router. Middleware order matters: the session must be
// resolved before request logging so every line carries the session id.
func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; deploy behind a proxy that sets it.
	r.Use(chimw.RealIP)
	r.Use(observability.TraceMiddleware())
	r.Use(observability.InjectLoggerMiddleware(a.logger))
	r.Use(observability.RecoveryMiddleware(a.logger))
	r.Use(a.metrics.InstrumentHandler)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(mw.HTMX)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", a.metrics.Handler())

	assets := http.StripPrefix("/assets/", http.FileServer(http.Dir(filepath.Join(a.cfg.Assets.PublicDir, "assets"))))
	r.Handle("/assets/*", assets)

	r.Group(func(r chi.Router) {
		r.Use(a.sessions.Handler)
		r.Use(mw.Locale(a.bundle))
		r.Use(observability.RequestLoggerMiddleware())
		r.Use(mw.CSRF(a.sessions.Secure()))
		r.Use(a.limiter.Handler)

		r.Get("/", a.homeHandler)
		r.Get("/detail/{itemID}", a.detailHandler)
		r.Get("/cart", a.cartHandler)
		r.Get("/cart/table", a.cartTableFrag)
		r.Get("/about", a.aboutHandler)
		r.Get("/back", a.backHandler)
		r.Post("/cart/items", a.cartAddHandler)
		r.Post("/cart/items/{itemID}/remove", a.cartRemoveHandler)
		r.Post("/cart/checkout", a.checkoutHandler)

		r.Route(apiPrefix, a.apiRoutes)

		r.NotFound(a.notFoundHandler)
	})

	return r
}

// withState runs fn against the caller's session state.
func (a *app) withState(r *http.Request, fn func(*session.State) error) error {
	return a.store.Do(r.Context(), mw.GetSession(r).ID, fn)
}

// runJanitors starts background cleanup until ctx is done.
func (a *app) runJanitors(ctx context.Context) {
	go a.store.RunJanitor(ctx, a.cfg.Session.CleanupInterval, a.logger)
	go func() {
		ticker := time.NewTicker(a.cfg.Session.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.limiter.Cleanup(a.cfg.Session.TTL)
				if n, err := a.idem.Store().CleanupExpired(ctx, time.Now().UTC(), 0); err == nil && n > 0 {
					a.logger.Debug("idempotency records expired", zap.Int("removed", n))
				}
			}
		}
	}()
}

func (a *app) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	herr := httpx.FromDomainError(err)
	if herr.Status >= http.StatusInternalServerError {
		observability.FromContext(r.Context()).Error("api request failed", zap.Error(err))
	}
	httpx.WriteError(r.Context(), w, herr)
}
