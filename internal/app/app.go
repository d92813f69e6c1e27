package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/config"
	"github.com/prperemyshlev/account-service/internal/handler"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/service"
	"github.com/prperemyshlev/account-service/internal/utils"
	"github.com/prperemyshlev/account-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	serviceName     = "account-service"
	shutdownTimeout = 5 * time.Second
)

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

type handlers struct {
	auth    *handler.AuthHandler
	account *handler.AccountHandler
	gate    *handler.Gate
	limiter service.Limiter
	health  *HealthChecker
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	repos := repository.NewRepositories(infra.Mongo())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
	)

	metrics, err := observability.NewAuthMetrics(infra.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth metrics: %w", err)
	}

	ledger := service.NewRedisTokenLedger(infra.Redis())
	sessions := service.NewSessionManager(repos.User, jwtManager, ledger, metrics, logger)

	deps := service.AuthDeps{
		Users:          repos.User,
		Channels:       repos.Channel,
		JWT:            jwtManager,
		Sessions:       sessions,
		Hasher:         utils.NewPasswordHasher(cfg.Security.BCryptCost),
		Validator:      utils.NewValidator(),
		Media:          infra.MediaStore(),
		AvatarPrefix:   cfg.Storage.AvatarPrefix,
		MaxAvatarBytes: cfg.Security.MaxAvatarBytes,
		Metrics:        metrics,
		Logger:         logger,
	}
	authService := service.NewAuthService(deps)
	accountService := service.NewAccountService(deps)

	cookies := handler.CookieOptions{Secure: cfg.Cookie.Secure, Domain: cfg.Cookie.Domain}
	h := handlers{
		auth:    handler.NewAuthHandler(authService, cookies, cfg.Security.MaxAvatarBytes, logger),
		account: handler.NewAccountHandler(accountService, cfg.Security.MaxAvatarBytes, logger),
		gate:    handler.NewGate(authService, logger),
		limiter: service.NewRateLimiter(infra.Redis()),
		health:  NewHealthChecker(infra),
	}

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))
	router.MaxMultipartMemory = cfg.Security.MaxAvatarBytes

	setupRoutes(router, cfg, h, infra.MetricsHandler(), logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(router *gin.Engine, cfg *config.Config, h handlers, metricsHandler http.Handler, logger *zap.Logger) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", h.health.Handler)

	rateLimit := handler.RateLimitMiddleware(
		h.limiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.IPBasedKey,
		logger,
	)
	protected := h.gate.Protected

	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("/register", rateLimit, h.auth.Register)
			users.POST("/login", rateLimit, h.auth.Login)
			users.POST("/refresh-token", h.auth.RefreshToken)
			users.POST("/logout", protected(h.auth.Logout))

			users.GET("/get-current-user", protected(h.account.CurrentUser))
			users.PATCH("/update-password", protected(h.account.ChangePassword))
			users.PATCH("/update-username", protected(h.account.UpdateUsername))
			users.PATCH("/update-profile", protected(h.account.UpdateProfile))
			users.PATCH("/update-contact", protected(h.account.UpdateContact))
			users.PATCH("/update-address", protected(h.account.UpdateAddress))
			users.PATCH("/update-avatar", protected(h.account.UpdateAvatar))

			users.GET("/c/:username", protected(h.account.ChannelProfile))
			users.GET("/history", protected(h.account.WatchHistory))
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
