// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/registration-backend/internal/config"
	"github.com/javajoker/registration-backend/internal/database"
	"github.com/javajoker/registration-backend/internal/i18n"
	"github.com/javajoker/registration-backend/internal/repository"
	"github.com/javajoker/registration-backend/internal/router"
	"github.com/javajoker/registration-backend/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	configureLogging(cfg)

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	// Run database migrations
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db); err != nil {
			logrus.WithError(err).Fatal("Failed to run migrations")
		}
	}
	if err := database.SeedInitialData(db, cfg.Seed); err != nil {
		logrus.WithError(err).Fatal("Failed to seed initial data")
	}

	cache, err := database.ConnectRedis(context.Background(), cfg.Redis)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}
	if cache != nil {
		defer cache.Close()
	}

	var sess *session.Session
	if cfg.AWS.AccessKeyID != "" || cfg.Email.Provider == "ses" || cfg.SMS.Provider == "sns" {
		sess, err = services.NewAWSSession(cfg.AWS)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to create AWS session")
		}
	}

	mailer, err := services.NewMailer(cfg.Email, sess)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure mailer")
	}
	sms, err := services.NewSMSSender(cfg.SMS, sess)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure SMS sender")
	}

	store := repository.NewGormStore(db)
	svc, err := services.New(cfg, services.Dependencies{
		Store:   store,
		Objects: services.NewObjectStore(cfg, sess),
		Mailer:  mailer,
		SMS:     sms,
		Cache:   cache,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize services")
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.Initialize(svc, store, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
		return
	}

	logrus.Info("Server exited")
}

func configureLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
