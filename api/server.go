package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Aidin1998/cryptoapi/api/responses"
	"github.com/Aidin1998/cryptoapi/internal/crypto"
	"github.com/Aidin1998/cryptoapi/pkg/validation"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiter "github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	homeMessage     = "This is the home of our crypto API"
	notFoundMessage = "Sorry :( we could not find the page you requested."
)

// Options configures the API server
type Options struct {
	Addr              string
	ServiceName       string
	AllowedOrigins    []string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	// Pagination bounds for GET /crypto
	Limits crypto.Limits
	// RateLimit uses the limiter format, e.g. "100-M". Empty disables rate limiting.
	RateLimit string
	// RateLimitStore defaults to an in-process memory store
	RateLimitStore limiter.Store
	// MaxBodyBytes caps JSON request bodies; zero uses validation.DefaultMaxBodyBytes
	MaxBodyBytes int64
}

// Server represents the API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	logger      *zap.Logger
	cryptos     crypto.CryptoService
	limits      crypto.Limits
	rateLimiter gin.HandlerFunc
	guard       gin.HandlerFunc
}

// NewServer creates a new API server over the given crypto service
func NewServer(logger *zap.Logger, cryptos crypto.CryptoService, opts Options) (*Server, error) {
	server := &Server{
		logger:  logger,
		cryptos: cryptos,
		limits:  opts.Limits,
		guard:   validation.RequestGuardMiddleware(logger, opts.MaxBodyBytes),
	}
	if server.limits.Default <= 0 {
		server.limits = crypto.DefaultLimits
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "cryptoapi"
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()

	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(otelgin.Middleware(opts.ServiceName))
	router.Use(traceIDMiddleware())
	router.Use(metricsMiddleware())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Trace-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Trace-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	router.Use(cors.New(corsConfig))

	if opts.RateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(opts.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit %q: %w", opts.RateLimit, err)
		}
		store := opts.RateLimitStore
		if store == nil {
			store = memory.NewStore()
		}
		server.rateLimiter = ginlimiter.NewMiddleware(limiter.New(store, rate),
			ginlimiter.WithLimitReachedHandler(func(c *gin.Context) {
				responses.TooManyRequests(c, "rate limit exceeded, retry later")
			}),
			ginlimiter.WithErrorHandler(func(c *gin.Context, err error) {
				logger.Error("Rate limiter failed", zap.Error(err))
				responses.InternalServerError(c, err.Error())
			}),
		)
	}

	server.router = router
	server.registerRoutes()

	server.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}
	return server, nil
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the internal Gin engine for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.GET("/", s.home)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cryptos := s.router.Group("/crypto")
	if s.rateLimiter != nil {
		cryptos.Use(s.rateLimiter)
	}
	cryptos.Use(s.guard)
	{
		cryptos.GET("", s.listCryptos)
		cryptos.GET("/sorted-by-marketcap", s.sortedByMarketCap)
		cryptos.GET("/sorted-by-date", s.sortedByDate)
		cryptos.GET("/price-range", s.priceRange)
		cryptos.GET("/csv", s.exportCSV)
		cryptos.GET("/name/:name", s.searchByName)
		cryptos.GET("/:id", s.getCrypto)
		cryptos.POST("", s.createCrypto)
		cryptos.POST("/reset", s.resetCryptos)
		cryptos.PUT("/:id", s.replaceCrypto)
		cryptos.DELETE("/:id", s.deleteCrypto)
	}

	s.router.NoRoute(s.notFound)
}

func (s *Server) home(c *gin.Context) {
	c.String(http.StatusOK, homeMessage)
}

func (s *Server) notFound(c *gin.Context) {
	c.String(http.StatusNotFound, notFoundMessage)
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.cryptos.Ping(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		responses.ServiceUnavailable(c, "database unreachable: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
