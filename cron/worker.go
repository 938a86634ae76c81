package cron

import (
	"context"
	"fmt"
	"time"

	"edufees/models"
	"edufees/services/notification"
	"edufees/services/payment"
	"edufees/services/tasks"
	"edufees/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// systemActor is recorded for reads made by the worker.
var systemActor = models.Actor{UserID: "system", UserName: "receipt-worker", Role: "system"}

// InitReceiptWorker runs the receipt delivery worker in the background until
// Shutdown is called on the returned server.
func InitReceiptWorker(payments payment.PaymentService, notifier notification.ReceiptNotifier, logger *zap.Logger) *asynq.Server {
	srv := asynq.NewServer(
		utils.QueueRedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeReceiptDeliver, HandleReceiptTask(payments, notifier, logger))

	go func() {
		logger.Info("starting receipt worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Error("receipt worker failed to start",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err),
			)
			if attempts == maxAttempts {
				logger.Error("receipt worker gave up; receipts stay queued")
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
	return srv
}

// HandleReceiptTask loads the receipt bundle and hands it to the notifier.
// Receipts whose records are gone are dropped instead of retried.
func HandleReceiptTask(payments payment.PaymentService, notifier notification.ReceiptNotifier, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseReceiptTask(task)
		if err != nil {
			logger.Warn("dropping receipt task", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		scope := models.Scope{TenantID: p.TenantID, Actor: systemActor}
		bundle, err := payments.Receipt(ctx, scope, p.PaymentID)
		if err != nil {
			if utils.IsKind(err, utils.KindNotFound) {
				logger.Warn("receipt records missing", zap.String("paymentId", p.PaymentID), zap.Error(err))
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}

		if err := notifier.SendReceipt(ctx, *bundle, p.Reversal); err != nil {
			logger.Error("receipt delivery failed",
				zap.String("tenantId", p.TenantID),
				zap.String("receiptNumber", bundle.Payment.ReceiptNumber),
				zap.Error(err),
			)
			return err
		}
		return nil
	}
}
