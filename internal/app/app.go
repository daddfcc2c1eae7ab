package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lovoo/goka"
	"github.com/niksmo/fakestore/config"
	"github.com/niksmo/fakestore/internal/adapter"
	"github.com/niksmo/fakestore/internal/adapter/catalogapi"
	"github.com/niksmo/fakestore/internal/adapter/httphandler"
	"github.com/niksmo/fakestore/internal/adapter/kafka"
	"github.com/niksmo/fakestore/internal/adapter/metrics"
	"github.com/niksmo/fakestore/internal/core/domain"
	"github.com/niksmo/fakestore/internal/core/port"
	"github.com/niksmo/fakestore/internal/core/service"
	"github.com/niksmo/fakestore/pkg/schema"
	"github.com/twmb/franz-go/pkg/sr"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

const keepAliveInterval = 15 * time.Second

type serdes struct {
	cartUpdated   schema.Serde
	filterChanged schema.Serde
}

type broker struct {
	cartProducer  *kafka.CartEventsProducer
	filterEmitter *kafka.FilterEventsEmitter
}

type App struct {
	ctx        context.Context
	cfg        config.Config
	logFile    io.Closer
	tlsConfig  *tls.Config
	serdes     serdes
	broker     broker
	metrics    *metrics.Metrics
	catalog    *service.CatalogStore
	sessions   *service.Sessions
	httpServer *httphandler.HTTPServer
	done       chan struct{}
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg, done: make(chan struct{})}

	app.initLogger()
	app.initMetrics()
	if cfg.Broker.Enabled {
		app.initTLS()
		app.initSerdes()
		app.initOutboundAdapters()
	}
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	var w io.Writer = os.Stderr
	if app.cfg.LogFile != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   app.cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		app.logFile = fileWriter
		w = io.MultiWriter(os.Stderr, fileWriter)
	}

	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(w, opts))
	slog.SetDefault(logger)
}

func (app *App) initMetrics() {
	app.metrics = metrics.New()
}

func (app *App) initTLS() {
	const op = "App.initTLS"
	t := app.cfg.Broker.TLS
	if !t.Enabled {
		return
	}

	tlsConfig, err := adapter.MakeClientTLSConfig(t.CAFile, t.CertFile, t.KeyFile)
	if err != nil {
		app.fallDown(op, err)
	}
	app.tlsConfig = tlsConfig
}

func (app *App) initSerdes() {
	const op = "App.initSerdes"
	ctx := app.ctx
	topics := app.cfg.Broker.Topics

	srOpts := []sr.ClientOpt{sr.URLs(app.cfg.Broker.SchemaRegistryURLs...)}
	if app.tlsConfig != nil {
		srOpts = append(srOpts, sr.DialTLSConfig(app.tlsConfig))
	}

	srClient, err := sr.NewClient(srOpts...)
	if err != nil {
		app.fallDown(op, err)
	}
	schemaIdentifier := schema.NewRegistryIdentifier(srClient)

	cartUpdatedSerde, err := schema.NewSerdeCartUpdatedV1(
		ctx,
		schema.SubjectOpt(topics.CartEvents+"-value"),
		schema.SchemaIdentifierOpt(schemaIdentifier),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	filterChangedSerde, err := schema.NewSerdeFilterChangedV1(
		ctx,
		schema.SubjectOpt(topics.FilterEvents+"-value"),
		schema.SchemaIdentifierOpt(schemaIdentifier),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.serdes.cartUpdated = cartUpdatedSerde
	app.serdes.filterChanged = filterChangedSerde
}

func (app *App) initOutboundAdapters() {
	const op = "App.initOutboundAdapters"

	ctx := app.ctx
	seedBrokers := app.cfg.Broker.SeedBrokers
	topics := app.cfg.Broker.Topics

	cartProducer, err := kafka.NewCartEventsProducer(
		kafka.ProducerClientOpt(ctx, seedBrokers, topics.CartEvents, app.tlsConfig),
		kafka.ProducerEncoderOpt(app.serdes.cartUpdated),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	var emitterOpts []goka.EmitterOption
	if app.tlsConfig != nil {
		emitterOpts = append(emitterOpts, kafka.EmitterTLSOpt(app.tlsConfig))
	}

	filterEmitter, err := kafka.NewFilterEventsEmitter(
		seedBrokers, topics.FilterEvents, app.serdes.filterChanged, emitterOpts...,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.broker.cartProducer = cartProducer
	app.broker.filterEmitter = filterEmitter
}

func (app *App) initCoreService() {
	const op = "App.initCoreService"

	criteria, err := app.defaultCriteria()
	if err != nil {
		app.fallDown(op, err)
	}

	catalogClient := catalogapi.New(catalogapi.Config{
		URL:         app.cfg.Catalog.URL,
		Timeout:     app.cfg.Catalog.Timeout,
		MaxAttempts: app.cfg.Catalog.MaxAttempts,
	})
	app.catalog = service.NewCatalogStore(catalogClient)

	cartObs := []port.CartObserver{app.metrics}
	filterObs := []port.FilterObserver{app.metrics}
	if app.broker.cartProducer != nil {
		cartObs = append(cartObs, app.broker.cartProducer)
	}
	if app.broker.filterEmitter != nil {
		filterObs = append(filterObs, app.broker.filterEmitter)
	}

	app.sessions = service.NewSessions(
		app.catalog,
		service.SessionsIdleTTLOpt(app.cfg.Session.IdleTTL),
		service.SessionsDefaultCriteriaOpt(criteria),
		service.SessionsCartObserversOpt(cartObs...),
		service.SessionsFilterObserversOpt(filterObs...),
	)

	app.metrics.TrackCatalog(app.catalog)
	app.metrics.TrackSessions(app.sessions)
}

func (app *App) defaultCriteria() (domain.FilterCriteria, error) {
	minB, err := domain.ParsePriceBound(app.cfg.Filter.DefaultMinPrice)
	if err != nil {
		return domain.FilterCriteria{}, fmt.Errorf("filter.default_min_price: %w", err)
	}
	maxB, err := domain.ParsePriceBound(app.cfg.Filter.DefaultMaxPrice)
	if err != nil {
		return domain.FilterCriteria{}, fmt.Errorf("filter.default_max_price: %w", err)
	}
	return domain.FilterCriteria{MinPrice: minB, MaxPrice: maxB}, nil
}

func (app *App) initInboundAdapters() {
	router := httphandler.NewRouter(
		app.sessions,
		httphandler.RouterMetricsOpt(app.metrics),
		httphandler.RouterKeepAliveOpt(min(keepAliveInterval, app.cfg.Session.IdleTTL/2)),
	)
	app.httpServer = httphandler.NewHTTPServer(app.cfg.HTTPServerAddr, router)
}

// Run starts the catalog load, the session sweeper and the http server.
// stopFn is called when any of them fails.
func (app *App) Run(stopFn context.CancelFunc) {
	g, ctx := errgroup.WithContext(app.ctx)

	g.Go(func() error {
		app.catalog.Load(ctx)
		return nil
	})
	g.Go(func() error {
		app.sessions.Run(ctx)
		return nil
	})
	g.Go(app.httpServer.Run)

	go func() {
		defer close(app.done)
		if err := g.Wait(); err != nil {
			slog.Error("application failed", "op", "App.Run", "err", err)
		}
		stopFn()
	}()

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)

	select {
	case <-app.done:
	case <-ctx.Done():
		slog.Warn("background tasks did not stop in time", "err", ctx.Err())
	}

	if app.broker.cartProducer != nil {
		app.broker.cartProducer.Close(ctx)
	}
	if app.broker.filterEmitter != nil {
		app.broker.filterEmitter.Close()
	}

	slog.Info("application is closed")

	if app.logFile != nil {
		_ = app.logFile.Close()
	}
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
