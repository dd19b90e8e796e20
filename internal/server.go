package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sheetfit/sheetfit/internal/calendar"
	"github.com/sheetfit/sheetfit/internal/config"
	"github.com/sheetfit/sheetfit/internal/diet"
	"github.com/sheetfit/sheetfit/internal/foodscan"
	"github.com/sheetfit/sheetfit/internal/middleware"
	"github.com/sheetfit/sheetfit/internal/profile"
	"github.com/sheetfit/sheetfit/internal/run"
	"github.com/sheetfit/sheetfit/internal/sheets"
	"github.com/sheetfit/sheetfit/internal/telemetry/metrics"
	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"
	"github.com/sheetfit/sheetfit/internal/workout"
	"github.com/sheetfit/sheetfit/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// sheetsBackend is everything the domain services need from the spreadsheet
// client, gathered in one place so the whole server can run against the
// in-memory test client.
type sheetsBackend interface {
	Get(ctx context.Context, readRange string) ([][]string, error)
	Update(ctx context.Context, writeRange string, values [][]string) error
	Append(ctx context.Context, appendRange string, values [][]string) error
	SheetTitles(ctx context.Context) ([]string, error)
}

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config       *config.Config
	sheetsClient sheetsBackend
	analyzer     *foodscan.Analyzer
	rateLimiter  middleware.RequestRateLimiter
	redisClient  *redis.Client

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                *config.Config
	GoogleCredentialsJSON []byte
	AIAPIKey              string
	RedisPassword         string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("sheetfit", "backend", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		// the analyze rate limiter fails open, the server can run without redis
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.Config.HoneycombTracingEnabled, "sheetfit-backend")
	if err != nil {
		return nil, err
	}

	sheetsClient, err := sheets.NewClient(ctx, sheets.NewClientParams{
		CredentialsJSON: params.GoogleCredentialsJSON,
		SpreadsheetID:   params.Config.SpreadsheetID,
		MetricsManager:  metricsManager,
	})
	if err != nil {
		return nil, fmt.Errorf("new sheets client: %w", err)
	}

	analyzer := foodscan.NewAnalyzer(foodscan.Config{
		BaseURL: params.Config.AIBaseURL,
		APIKey:  params.AIAPIKey,
		Model:   params.Config.AIModel,
	}, metricsManager)

	s := newServerWithDeps(
		params.Config,
		sheetsClient,
		analyzer,
		redis_rate.NewLimiter(rdb),
		metricsManager,
		promRegistry,
	)
	s.redisClient = rdb
	s.otelShutdown = otelShutdown
	return s, nil
}

// newServerWithDeps wires the server from already-built dependencies, so
// tests can inject the in-memory sheets client and a stub rate limiter.
func newServerWithDeps(
	cfg *config.Config,
	sheetsClient sheetsBackend,
	analyzer *foodscan.Analyzer,
	rateLimiter middleware.RequestRateLimiter,
	metricsManager *metrics.Manager,
	promRegistry *prometheus.Registry,
) *Server {
	return &Server{
		config:         cfg,
		sheetsClient:   sheetsClient,
		analyzer:       analyzer,
		rateLimiter:    rateLimiter,
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   func() {},
	}
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("sheetfit-router"))

	historyRouter := r.PathPrefix("/api/history").Subrouter()

	workoutHandler := workout.NewHandler(
		workout.NewService(s.sheetsClient),
		workout.NewAnalyzer(s.sheetsClient),
		s.metricsManager,
	)
	workoutHandler.SetupRoutes(r.PathPrefix("/api/workout").Subrouter(), historyRouter)

	dietService := diet.NewService(
		s.sheetsClient,
		s.config.FoodSheetName,
		s.config.DeficitSheetName,
		s.config.ProfileSheetName,
	)
	dietHandler := diet.NewHandler(dietService, s.metricsManager)
	dietHandler.SetupRoutes(r.PathPrefix("/api/diet").Subrouter())

	// the analyze endpoint gets its own subrouter so only it is rate limited
	analyzeRouter := r.PathPrefix("/api/diet").Subrouter()
	analyzeRouter.Use(middleware.RateLimit(
		s.rateLimiter,
		"analyze-meal-photo",
		s.config.AnalyzeRateLimitAllowedPerMin,
		s.metricsManager,
	))
	foodscanHandler := foodscan.NewHandler(s.analyzer)
	foodscanHandler.SetupRoutes(analyzeRouter)

	profileHandler := profile.NewHandler(
		profile.NewService(s.sheetsClient, s.config.ProfileSheetName),
		s.metricsManager,
	)
	profileHandler.SetupRoutes(r.PathPrefix("/api/profile").Subrouter())

	runHandler := run.NewHandler(
		run.NewService(s.sheetsClient, s.config.RunSheetName),
	)
	runHandler.SetupRoutes(r.PathPrefix("/api/run").Subrouter(), historyRouter)

	calendarHandler := calendar.NewHandler(
		calendar.NewService(s.sheetsClient, s.config.RunSheetName),
	)
	calendarHandler.SetupRoutes(r.PathPrefix("/api/calendar").Subrouter())

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	})

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("sheetfit service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
