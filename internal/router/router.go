package router

import (
	"momogate/config"
	"momogate/internal/handler"
	"momogate/internal/middleware"
	"momogate/internal/repository"
	"momogate/internal/service"
	"momogate/internal/webhook"
	"momogate/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Setup wires the gateway client, services and handlers. A nil db records outcomes in the log only.
func Setup(cfg *config.Config, db *gorm.DB, logger zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	client, err := payment.NewSwahiliesClient(payment.SwahiliesConfig{
		APIKey:         cfg.Swahilies.APIKey,
		SecretKey:      cfg.Swahilies.SecretKey,
		APIURL:         cfg.Swahilies.APIURL,
		WebhookBaseURL: cfg.Server.BaseURL,
		Live:           cfg.IsProduction(),
		Timeout:        cfg.Swahilies.Timeout,
		MaxBodyBytes:   cfg.Swahilies.MaxBodyBytes,
		CountryCode:    cfg.Swahilies.CountryCode,
	})
	if err != nil {
		return nil, err
	}
	bodyHMAC, err := webhook.NewBodyHMAC(cfg.Swahilies.SecretKey)
	if err != nil {
		return nil, err
	}
	digest, err := webhook.NewDigest(cfg.Swahilies.APIKey, cfg.Swahilies.SecretKey)
	if err != nil {
		return nil, err
	}

	var recorder repository.OutcomeRecorder = repository.LogRecorder{}
	var pinger handler.Pinger
	if db != nil {
		recorder = repository.NewPaymentRepository(db)
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		pinger = sqlDB
	}

	// Services
	paymentSvc := service.NewPaymentService(client, recorder)
	webhookSvc := service.NewWebhookService(recorder)

	// Handlers
	paymentH := handler.NewPaymentHandler(paymentSvc, cfg)
	webhookH := handler.NewWebhookHandler(webhookSvc, cfg.Swahilies.MaxBodyBytes)
	healthH := handler.NewHealthHandler(pinger)

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	limiter := middleware.NewInMemoryRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)

	r.GET("/health", healthH.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		payments := api.Group("/payments")
		payments.POST("/mobile-money", middleware.RateLimit(limiter), middleware.OptionalAuth(&cfg.JWT), paymentH.Initiate)
		payments.GET("/status/:orderId", middleware.RateLimit(limiter), paymentH.Status)
		payments.GET("/verify-config", paymentH.VerifyConfig)

		// gateway callbacks are never rate limited
		payments.POST("/webhook", webhookH.Handle(webhook.AckAlways{Verifier: bodyHMAC}))
		api.POST("/webhook", webhookH.Handle(webhook.AckOnlyOnSuccess{Verifier: digest}))
	}

	return r, nil
}
