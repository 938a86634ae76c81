package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"edufees/models"

	"github.com/hibiken/asynq"
)

const TypeReceiptDeliver = "receipt:deliver"

// NewReceiptTask builds the delivery task for one payment receipt.
func NewReceiptTask(payload models.ReceiptPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeReceiptDeliver, b)
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
		asynq.TaskID("receipt:" + payload.TenantID + ":" + payload.PaymentID),
	}
	return task, opts, nil
}

// ParseReceiptTask decodes the payload of a receipt task.
func ParseReceiptTask(task *asynq.Task) (models.ReceiptPayload, error) {
	var p models.ReceiptPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid receipt payload: %w", err)
	}
	if p.TenantID == "" || p.PaymentID == "" {
		return p, fmt.Errorf("invalid receipt payload: tenant and payment are required")
	}
	return p, nil
}

// ReceiptPublisher hands receipts to the delivery queue.
type ReceiptPublisher interface {
	PublishReceipt(ctx context.Context, payload models.ReceiptPayload) error
}

type AsynqReceiptPublisher struct {
	Client *asynq.Client
}

func NewAsynqReceiptPublisher(client *asynq.Client) *AsynqReceiptPublisher {
	return &AsynqReceiptPublisher{Client: client}
}

func (p *AsynqReceiptPublisher) PublishReceipt(ctx context.Context, payload models.ReceiptPayload) error {
	task, opts, err := NewReceiptTask(payload)
	if err != nil {
		return err
	}
	if _, err := p.Client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue receipt %s: %w", payload.PaymentID, err)
	}
	return nil
}

// NopReceiptPublisher drops receipts; used when the queue is disabled.
type NopReceiptPublisher struct{}

func (NopReceiptPublisher) PublishReceipt(context.Context, models.ReceiptPayload) error { return nil }
