package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/dialogue-verify/internal/config"
	"github.com/yourusername/dialogue-verify/internal/handler"
	"github.com/yourusername/dialogue-verify/internal/middleware"
	pgRepo "github.com/yourusername/dialogue-verify/internal/repository/postgres"
	"github.com/yourusername/dialogue-verify/internal/service"
	"github.com/yourusername/dialogue-verify/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Loading configuration from %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}

	verificationRepo := pgRepo.NewVerificationRepo(db)

	// Channels without credentials stay up but answer every send with a
	// clear "not configured" error.
	var smsSender service.SMSSender = &service.DisabledSMSSender{}
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" && cfg.Twilio.FromNumber != "" {
		smsSender, err = service.NewTwilioSMSSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
		if err != nil {
			log.Printf("Failed to init Twilio sender: %v", err)
			os.Exit(1)
		}
		log.Println("SMS channel enabled (Twilio)")
	} else {
		log.Println("SMS channel disabled: Twilio credentials not configured")
	}

	var emailSender service.EmailSender = &service.DisabledEmailSender{}
	if cfg.Resend.APIKey != "" && cfg.Resend.FromEmail != "" {
		emailSender, err = service.NewResendEmailSender(cfg.Resend.APIKey, cfg.Resend.FromEmail)
		if err != nil {
			log.Printf("Failed to init Resend sender: %v", err)
			os.Exit(1)
		}
		log.Println("Email channel enabled (Resend)")
	} else {
		log.Println("Email channel disabled: Resend credentials not configured")
	}

	storageMode := service.StorageModeDigestOnly
	if cfg.OTP.DevMode {
		storageMode = service.StorageModePlaintextAndDigest
		log.Println("WARNING: OTP dev mode enabled, plaintext codes are retained in the store")
	}

	otpService, err := service.NewOTPService(
		verificationRepo,
		smsSender,
		emailSender,
		time.Duration(cfg.OTP.TTLMinutes)*time.Minute,
		cfg.OTP.MaxAttempts,
		time.Duration(cfg.OTP.RateWindowSeconds)*time.Second,
		cfg.OTP.RateMaxRequests,
		storageMode,
	)
	if err != nil {
		log.Printf("Failed to init OTP service: %v", err)
		os.Exit(1)
	}

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	otpService.StartCleanupLoop(appCtx, time.Duration(cfg.OTP.CleanupIntervalSeconds)*time.Second)

	otpHandler := handler.NewOTPHandler(otpService)
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	otp := router.Group("/otp")
	otp.Use(rateLimiter.Limit(middleware.DefaultOTPRateLimitConfig()))
	{
		otp.POST("/request", otpHandler.RequestCode)
		otp.POST("/verify", otpHandler.VerifyCode)
		otp.GET("/stats", authMiddleware.RequireAdmin(), otpHandler.Stats)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Failed to close redis client: %v", err)
	}
	log.Println("Server exited.")
}
