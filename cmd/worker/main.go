package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abriesk/psychobotV1/config"
	"github.com/abriesk/psychobotV1/internal/cache"
	"github.com/abriesk/psychobotV1/internal/chat"
	"github.com/abriesk/psychobotV1/internal/kafka"
	"github.com/abriesk/psychobotV1/internal/logging"
	"github.com/abriesk/psychobotV1/internal/repository"
	"github.com/abriesk/psychobotV1/internal/service/booking"
	"github.com/abriesk/psychobotV1/internal/service/outbox"
	"github.com/abriesk/psychobotV1/internal/service/slots"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	var sender chat.Sender
	if cfg.Telegram.Token != "" {
		sender = chat.NewTelegramSender(cfg.Telegram.Token, cfg.Telegram.APIBase)
	} else {
		logger.Warn("no telegram token configured, chat messages will be logged only")
		sender = chat.NewLogSender(logger)
	}

	dispatcher := outbox.NewDispatcher(
		notificationRepo,
		userRepo,
		redisCache,
		sender,
		cfg.Worker.DeliveryMaxAttempts,
		cfg.Worker.DeliveryBatchSize,
		cfg.Telegram.DefaultLanguage,
		logger,
	)

	// Admin alerting: booking lifecycle events published by the web process
	// are consumed here and fanned out to admin chats.
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingEventsTopic)
	defer consumer.Close()

	go func() {
		err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				logger.Warn("skipping undecodable booking event", zap.Error(err))
				return nil
			}
			notifyAdmins(ctx, logger, sender, cfg.Telegram.AdminChatIDs, event)
			return nil
		})
		if err != nil {
			logger.Warn("consumer stopped", zap.Error(err))
		}
	}()

	deliveryTicker := time.NewTicker(time.Duration(cfg.Worker.DeliveryIntervalSeconds) * time.Second)
	defer deliveryTicker.Stop()
	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.HoldSweepMinutes) * time.Minute)
	defer sweepTicker.Stop()
	reaperTicker := time.NewTicker(time.Duration(cfg.Worker.ReaperIntervalMinutes) * time.Minute)
	defer reaperTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-deliveryTicker.C:
			sent, err := dispatcher.DispatchBatch(ctx)
			if err != nil {
				logger.Error("dispatch batch error", zap.Error(err))
				continue
			}
			if sent > 0 {
				logger.Info("delivered notifications", zap.Int("count", sent))
			}
		case <-sweepTicker.C:
			count, err := slotService.ReleaseExpiredHolds(ctx)
			if err != nil {
				logger.Error("hold sweep error", zap.Error(err))
				continue
			}
			if count > 0 {
				logger.Info("released expired slot holds", zap.Int64("count", count))
			}
			queued, err := bookingService.EnqueueDueReminders(ctx)
			if err != nil {
				logger.Error("reminder enqueue error", zap.Error(err))
				continue
			}
			if queued > 0 {
				logger.Info("queued session reminders", zap.Int("count", queued))
			}
		case <-reaperTicker.C:
			rejected, err := bookingService.RejectStale(ctx)
			if err != nil {
				logger.Error("stale request reaper error", zap.Error(err))
				continue
			}
			if rejected > 0 {
				logger.Info("auto-rejected stale requests", zap.Int("count", rejected))
			}
		case s := <-sig:
			logger.Info("received signal, shutting down", zap.String("signal", s.String()))
			return
		}
	}
}

func notifyAdmins(ctx context.Context, logger *zap.Logger, sender chat.Sender, adminIDs []int64, event kafka.BookingEvent) {
	if len(adminIDs) == 0 {
		return
	}
	text := fmt.Sprintf("<b>%s</b>\nRequest: <code>%s</code>\nUser: %d\nType: %s\nStatus: %s",
		event.Type, event.Token, event.UserID, event.RequestType, event.Status)
	if event.FinalTime != "" {
		text += "\nFinal time: " + event.FinalTime
	}
	for _, adminID := range adminIDs {
		if err := sender.Send(ctx, chat.Message{ChatID: adminID, Text: text}); err != nil {
			logger.Warn("failed to notify admin", zap.Int64("admin_id", adminID), zap.Error(err))
		}
	}
}
