package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gmaiocc/itic-website-sub000/idp"
	"github.com/gmaiocc/itic-website-sub000/idp/idpfactory"
	"github.com/gmaiocc/itic-website-sub000/notification"
	"github.com/gmaiocc/itic-website-sub000/notification/resend"
	"github.com/gmaiocc/itic-website-sub000/pkg/monitoring"
	"github.com/gmaiocc/itic-website-sub000/shared/audit"
	"github.com/gmaiocc/itic-website-sub000/shared/config"
	"github.com/gmaiocc/itic-website-sub000/shared/redis"
	"github.com/gmaiocc/itic-website-sub000/shared/utils"
	"github.com/gmaiocc/itic-website-sub000/storage"
	"github.com/gmaiocc/itic-website-sub000/storage/cloudinary"
	v1 "github.com/gmaiocc/itic-website-sub000/v1"
	v1handlers "github.com/gmaiocc/itic-website-sub000/v1/handlers"
	v1middleware "github.com/gmaiocc/itic-website-sub000/v1/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

const serviceName = "itic-portal-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting ITIC portal backend initialization", "environment", cfg.Environment)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	shutdownTelemetry, err := monitoring.Setup(ctx, monitoring.Config{
		ServiceName:   serviceName,
		ResourceAttrs: map[string]string{"deployment.environment": cfg.Environment},
	})
	if err != nil {
		slog.Error("Failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	gormDB, err := v1.ConnectGormDB(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to GORM database", "error", err)
		os.Exit(1)
	}

	identityProvider, err := idpfactory.NewIdpAPIProvider(idpfactory.FactoryConfig{
		ProviderType: idp.ProviderType(cfg.Auth.Provider),
		BaseURL:      identityBaseURL(cfg.Auth),
		ServiceKey:   cfg.Auth.SupabaseServiceRoleKey,
		ClientID:     cfg.Auth.AsgardeoClientID,
		ClientSecret: cfg.Auth.AsgardeoClientSecret,
		Scopes:       cfg.Auth.AsgardeoScopes,
		HTTPClient:   &http.Client{Timeout: 15 * time.Second},
	})
	if err != nil {
		slog.Error("Failed to create identity provider client", "error", err)
		os.Exit(1)
	}

	verifier, err := v1middleware.NewTokenVerifier(v1middleware.JWTAuthConfig{
		JWKSURL:  cfg.Auth.JWKSURL,
		Issuer:   cfg.Auth.Issuer,
		Audience: firstOrEmpty(cfg.Auth.Audiences),
		Secret:   cfg.Auth.Secret,
	})
	if err != nil {
		slog.Error("Invalid JWT configuration", "error", err)
		os.Exit(1)
	}

	classifier := config.LoadPositionsOrDefault(cfg.Positions.ConfigPath)

	// Redis backs the audit stream and the shared contact rate limit; both
	// degrade to local behaviour when it is not configured.
	var redisClient *redis.RedisClient
	var publisher audit.StreamPublisher
	var contactLimiter v1middleware.Limiter = v1middleware.NewRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.NewClient(ctx, redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxStreamLen: 100000,
		})
		if err != nil {
			slog.Warn("Redis unavailable, continuing without audit stream", "error", err)
		} else {
			publisher = redisClient
			contactLimiter = v1middleware.NewRedisRateLimiter(redisClient.GetClient(), "ratelimit:contact",
				cfg.RateLimit.Limit, cfg.RateLimit.Window)
		}
	}
	auditor := audit.NewStreamAuditor(publisher, cfg.Redis.AuditStream)

	var uploader storage.Uploader
	if cfg.Storage.StorageConfigured() {
		cld, err := cloudinary.NewUploader(cfg.Storage.CloudName, cfg.Storage.APIKey, cfg.Storage.APISecret)
		if err != nil {
			slog.Error("Failed to create Cloudinary client", "error", err)
			os.Exit(1)
		}
		uploader = cld
	} else {
		slog.Warn("File storage not configured, uploads will be rejected")
	}

	var notifier notification.Notifier = notification.Disabled{}
	if !config.IsPlaceholder(cfg.Email.ResendAPIKey) && len(cfg.Email.To) > 0 {
		mailer, err := resend.NewMailer(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.To)
		if err != nil {
			slog.Error("Failed to create Resend mailer", "error", err)
			os.Exit(1)
		}
		notifier = mailer
	} else {
		slog.Warn("Contact notifications disabled", "reason", "RESEND_API_KEY or CONTACT_NOTIFY_TO not configured")
	}

	v1Handler := v1handlers.NewV1Handler(v1handlers.Dependencies{
		DB:               gormDB,
		IdentityProvider: identityProvider,
		Verifier:         verifier,
		Classifier:       classifier,
		Auditor:          auditor,
		Uploader:         uploader,
		Notifier:         notifier,
		ContactLimiter:   contactLimiter,
		UploadFolder:     cfg.Storage.Folder,
		MaxUploadBytes:   cfg.Server.UploadMaxBytes,
	})

	r := chi.NewRouter()
	if cfg.Server.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.RequestID)
	r.Use(utils.PanicRecoveryMiddleware)
	r.Use(v1middleware.SecurityHeaders)
	r.Use(v1middleware.RequestLogging)
	r.Use(monitoring.HTTPMetricsMiddleware)
	r.Use(v1middleware.CORS())
	r.Use(v1middleware.OptionsOK)

	r.Get("/health", healthHandler(gormDB, redisClient))
	r.Method(http.MethodGet, "/metrics", monitoring.Handler())
	v1Handler.RegisterRoutes(r)

	server := utils.CreateServer(utils.ServerConfig{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, r)

	cleanup := []func(context.Context) error{
		auditor.Wait,
		func(context.Context) error {
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
	if redisClient != nil {
		cleanup = append(cleanup, func(context.Context) error { return redisClient.Close() })
	}
	cleanup = append(cleanup, shutdownTelemetry)

	if err := utils.StartServerWithGracefulShutdown(server, serviceName, cleanup...); err != nil {
		os.Exit(1)
	}
}

type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthStatus struct {
	Status     string                     `json:"status"`
	Service    string                     `json:"service"`
	Components map[string]componentHealth `json:"components"`
}

// healthHandler reports database reachability. Redis is optional, so its
// failure is reported without marking the service unhealthy.
func healthHandler(gormDB *gorm.DB, redisClient *redis.RedisClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := healthStatus{
			Status:     "healthy",
			Service:    serviceName,
			Components: map[string]componentHealth{},
		}

		if err := v1.PingDB(ctx, gormDB); err != nil {
			status.Components["database"] = componentHealth{Status: "unhealthy", Error: err.Error()}
			status.Status = "unhealthy"
		} else {
			status.Components["database"] = componentHealth{Status: "healthy"}
		}

		switch {
		case redisClient == nil:
			status.Components["redis"] = componentHealth{Status: "disabled"}
		case redisClient.HealthCheck(ctx) != nil:
			status.Components["redis"] = componentHealth{Status: "degraded"}
		default:
			status.Components["redis"] = componentHealth{Status: "healthy"}
		}

		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		utils.RespondWithJSON(w, code, status)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func identityBaseURL(auth config.AuthConfig) string {
	if idp.ProviderType(auth.Provider) == idp.ProviderAsgardeo {
		return auth.AsgardeoBaseURL
	}
	return auth.SupabaseURL
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
