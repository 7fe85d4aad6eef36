package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/wardwatch/platform/pkg/alerts"
	"github.com/wardwatch/platform/pkg/broadcast"
	"github.com/wardwatch/platform/pkg/common/config"
	"github.com/wardwatch/platform/pkg/common/database"
	"github.com/wardwatch/platform/pkg/common/kafka"
	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/common/models"
	"github.com/wardwatch/platform/pkg/detections"
	"gorm.io/gorm"
)

// Event types produced by the camera-side pipeline on the vision topic.
const (
	eventFallAlert       = "fall_alert"
	eventPatientDetected = "patient_detected"
)

func main() {
	logger.Init()
	cfg := config.Load()

	operationalDB, err := database.GetOperational()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to operational store")
	}

	var registryDB *gorm.DB
	if db, err := database.GetRegistry(); err != nil {
		logger.Log.WithError(err).Warn("registry store unavailable, patient names will be unresolved")
	} else {
		registryDB = db
	}

	redisClient := database.GetRedis()

	producer := kafka.NewProducer(cfg.MonitoringEventsTopic)
	defer producer.Close()
	sink := broadcast.NewKafkaBroadcaster(producer, "vision-consumer")

	alertService := alerts.NewService(alerts.NewUnitFactory(operationalDB, registryDB), sink, alerts.DefaultRules(), cfg.RegistryLookupTimeout)
	detectionService := detections.NewService(detections.NewUnitFactory(operationalDB), redisClient, sink)

	consumer := kafka.NewConsumer(cfg.VisionEventsTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("Shutting down Vision Consumer...")
		cancel()
	}()

	logger.Log.WithField("topic", cfg.VisionEventsTopic).Info("Vision Consumer started")

	err = consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
		switch event.Type {
		case eventFallAlert:
			var req models.FallAlertRequest
			if err := decodeData(event.Data, &req); err != nil {
				logger.Log.WithError(err).Warn("skipping malformed fall event")
				return nil
			}
			_, err := alertService.Create(ctx, req)
			return err

		case eventPatientDetected:
			var req models.PatientDetectedRequest
			if err := decodeData(event.Data, &req); err != nil {
				logger.Log.WithError(err).Warn("skipping malformed detection event")
				return nil
			}
			_, _, err := detectionService.Record(ctx, req)
			return err

		default:
			logger.Log.WithField("event_type", event.Type).Debug("ignoring unknown vision event")
			return nil
		}
	})
	if err != nil && err != context.Canceled {
		logger.Log.WithError(err).Error("consumer stopped with error")
	}

	database.CloseOperational()
	database.CloseRegistry()
	database.CloseRedis()

	logger.Log.Info("Vision Consumer stopped")
}

func decodeData(data map[string]interface{}, target interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
