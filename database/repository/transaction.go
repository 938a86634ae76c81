package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TxMode is how multi-document writes are made atomic in a deployment.
type TxMode string

const (
	// TxModeTransactional runs writes inside a Mongo session transaction (replica set required).
	TxModeTransactional TxMode = "transactional"
	// TxModeSequential runs writes in order and undoes completed steps on failure.
	TxModeSequential TxMode = "sequential"
)

// Compensations collects undo steps registered by a unit of work.
// They only run in sequential mode, newest first.
type Compensations struct {
	steps []func(ctx context.Context) error
}

// Add registers the undo step for a write that just succeeded.
func (c *Compensations) Add(step func(ctx context.Context) error) {
	c.steps = append(c.steps, step)
}

// PartialWriteError reports a failed unit of work whose compensations did not all succeed.
type PartialWriteError struct {
	Cause    error
	Failures []error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%v (compensation failed: %v)", e.Cause, errors.Join(e.Failures...))
}

func (e *PartialWriteError) Unwrap() error { return e.Cause }

// TxFunc is one unit of work. Repositories must be called with the ctx it receives.
type TxFunc func(ctx context.Context, comp *Compensations) error

// Transactor runs units of work atomically according to its mode.
type Transactor interface {
	WithinTx(ctx context.Context, fn TxFunc) error
	Mode() TxMode
}

// MongoTransactor uses session transactions when enabled and falls back to sequential writes.
type MongoTransactor struct {
	client        *mongo.Client
	transactional bool
	logger        *zap.Logger
}

// NewMongoTransactor returns a transactor for the given client.
func NewMongoTransactor(client *mongo.Client, transactional bool, logger *zap.Logger) *MongoTransactor {
	return &MongoTransactor{client: client, transactional: transactional, logger: logger}
}

func (t *MongoTransactor) Mode() TxMode {
	if t.transactional {
		return TxModeTransactional
	}
	return TxModeSequential
}

func (t *MongoTransactor) WithinTx(ctx context.Context, fn TxFunc) error {
	if !t.transactional {
		return runSequential(ctx, fn, t.logger)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc, &Compensations{}); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return fmt.Errorf("ledger transaction failed: %w", err)
	}
	return nil
}

// SequentialTransactor always runs in sequential mode. Used by the in-memory store.
type SequentialTransactor struct {
	logger *zap.Logger
}

func NewSequentialTransactor(logger *zap.Logger) *SequentialTransactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SequentialTransactor{logger: logger}
}

func (t *SequentialTransactor) Mode() TxMode { return TxModeSequential }

func (t *SequentialTransactor) WithinTx(ctx context.Context, fn TxFunc) error {
	return runSequential(ctx, fn, t.logger)
}

func runSequential(ctx context.Context, fn TxFunc, logger *zap.Logger) error {
	comp := &Compensations{}
	err := fn(ctx, comp)
	if err == nil {
		return nil
	}

	// Undo must finish even if the request context is already gone.
	undoCtx := context.WithoutCancel(ctx)
	var failures []error
	for i := len(comp.steps) - 1; i >= 0; i-- {
		if cerr := comp.steps[i](undoCtx); cerr != nil {
			logger.Error("compensation step failed", zap.Int("step", i), zap.Error(cerr))
			failures = append(failures, cerr)
		}
	}
	if len(failures) > 0 {
		return &PartialWriteError{Cause: err, Failures: failures}
	}
	return err
}
