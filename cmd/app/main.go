package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abriesk/psychobotV1/config"
	"github.com/abriesk/psychobotV1/internal/bootstrap"
	"github.com/abriesk/psychobotV1/internal/cache"
	"github.com/abriesk/psychobotV1/internal/kafka"
	"github.com/abriesk/psychobotV1/internal/logging"
	"github.com/abriesk/psychobotV1/internal/repository"
	"github.com/abriesk/psychobotV1/internal/service/booking"
	"github.com/abriesk/psychobotV1/internal/service/outbox"
	"github.com/abriesk/psychobotV1/internal/service/slots"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Development)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.SlotsCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	slotRepo := repository.NewSlotRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	negotiationRepo := repository.NewNegotiationRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	slotService := slots.NewSlotService(slotRepo, redisCache, cfg.Booking.HoldTTL())
	bookingService := booking.NewBookingService(
		requestRepo,
		negotiationRepo,
		notificationRepo,
		userRepo,
		slotService,
		producer,
		cfg.Kafka.BookingEventsTopic,
		logger,
		booking.WithAutoConfirm(cfg.Booking.AutoConfirmSlots),
		booking.WithStaleWindow(cfg.Booking.StalePendingWindow()),
	)
	outboxService := outbox.NewOutboxService(notificationRepo, cfg.Worker.DeliveryMaxAttempts)

	if err := bootstrap.Run(ctx, cfg, logger, slotService, bookingService, outboxService); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
