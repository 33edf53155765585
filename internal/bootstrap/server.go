package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/abriesk/psychobotV1/api"
	"github.com/abriesk/psychobotV1/config"
	"github.com/abriesk/psychobotV1/internal/service/booking"
	"github.com/abriesk/psychobotV1/internal/service/outbox"
	"github.com/abriesk/psychobotV1/internal/service/slots"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger,
	slotSvc slots.SlotUseCase, bookingSvc booking.BookingUseCase, outboxSvc outbox.OutboxUseCase) error {

	router := newRouter(logger, slotSvc, bookingSvc, outboxSvc)
	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(logger *zap.Logger,
	slotSvc slots.SlotUseCase, bookingSvc booking.BookingUseCase, outboxSvc outbox.OutboxUseCase) *gin.Engine {

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	slotHandler := api.NewSlotHandler(slotSvc)
	requestHandler := api.NewRequestHandler(bookingSvc)
	notificationHandler := api.NewNotificationHandler(outboxSvc)

	slotHandler.Register(router.Group("/slots"))
	requestHandler.Register(router.Group("/requests"))

	admin := router.Group("/admin")
	slotHandler.RegisterAdmin(admin.Group("/slots"))
	requestHandler.RegisterAdmin(admin.Group("/requests"))
	notificationHandler.RegisterAdmin(admin.Group("/notifications"))

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
