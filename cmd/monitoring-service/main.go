package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/wardwatch/platform/pkg/alerts"
	"github.com/wardwatch/platform/pkg/broadcast"
	"github.com/wardwatch/platform/pkg/common/config"
	"github.com/wardwatch/platform/pkg/common/database"
	"github.com/wardwatch/platform/pkg/common/kafka"
	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/detections"
	"github.com/wardwatch/platform/pkg/enrollment"
	"github.com/wardwatch/platform/pkg/operational"
	"github.com/wardwatch/platform/pkg/registry"
	"github.com/wardwatch/platform/pkg/store"
	"gorm.io/gorm"
)

func main() {
	logger.Init()
	cfg := config.Load()

	operationalDB, err := database.GetOperational()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to operational store")
	}
	if err := operational.AutoMigrate(operationalDB); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate operational tables")
	}

	// A down registry degrades alert names and patient detail, never startup:
	// the operational side must keep accepting safety events.
	var registryDB *gorm.DB
	if db, err := database.GetRegistry(); err != nil {
		logger.Log.WithError(err).Warn("registry store unavailable, patient names will be unresolved")
	} else {
		registryDB = db
	}

	redisClient := database.GetRedis()

	hub := broadcast.NewHub(cfg.SubscriberBuffer)
	producer := kafka.NewProducer(cfg.MonitoringEventsTopic)
	defer producer.Close()

	sinks := broadcast.Multi{
		hub,
		broadcast.NewKafkaBroadcaster(producer, "monitoring-service"),
	}

	rules := alerts.DefaultRules()
	if cfg.AlertRulesPath != "" {
		loaded, err := alerts.LoadRules(cfg.AlertRulesPath)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to load alert rules")
		}
		rules = loaded
	}

	alertService := alerts.NewService(alerts.NewUnitFactory(operationalDB, registryDB), sinks, rules, cfg.RegistryLookupTimeout)
	detectionService := detections.NewService(detections.NewUnitFactory(operationalDB), redisClient, sinks)
	enrollmentService := enrollment.NewService(enrollment.NewUnitFactory(operationalDB))

	var patientRepo *registry.Repository
	if registryDB != nil {
		patientRepo = registry.NewRepository(registryDB)
	}
	operationalConn := store.NewConn(operationalDB)
	patientHandler := registry.NewHTTPHandler(
		patientRepo,
		operational.NewDetectionRepository(operationalConn),
		operational.NewQueueRepository(operationalConn),
	)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	alerts.NewHTTPHandler(alertService, cfg.MaxRequestBody).Register(api)
	detections.NewHTTPHandler(detectionService).Register(api)
	enrollment.NewHTTPHandler(enrollmentService).Register(api)
	patientHandler.Register(api)
	broadcast.NewSSEHandler(hub).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Monitoring Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Monitoring Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	database.CloseOperational()
	database.CloseRegistry()
	database.CloseRedis()

	logger.Log.Info("Monitoring Service stopped")
}
