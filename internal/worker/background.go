package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"travelchat/internal/model"
)

var ErrDispatcherClosed = errors.New("sync dispatcher closed")

// Syncer pushes sessions to the remote store.
type Syncer interface {
	UpsertMany(ctx context.Context, sessions []model.Session, ownerID string)
}

// Background runs each sync job in its own goroutine inside this process.
type Background struct {
	syncer Syncer
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewBackground(syncer Syncer, logger *zap.Logger) *Background {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Background{syncer: syncer, logger: logger}
}

func (b *Background) Dispatch(ctx context.Context, job model.SyncJob) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrDispatcherClosed
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("session sync panicked", zap.String("owner_id", job.OwnerID), zap.Any("panic", r))
			}
		}()
		b.syncer.UpsertMany(ctx, job.Sessions, job.OwnerID)
	}()
	return nil
}

// Wait blocks until every dispatched job has finished.
func (b *Background) Wait() {
	b.wg.Wait()
}

// Close rejects new jobs and waits for running ones.
func (b *Background) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}
