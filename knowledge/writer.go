package knowledge

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"kurogo/storage"
)

const (
	maxRetries       = 3
	retryBackoffBase = 100 * time.Millisecond
)

// Writer pushes full snapshots to a knowledge repo, retrying transient
// lock and serialization failures.
type Writer struct {
	repo   storage.KnowledgeRepo
	logger *zap.Logger
}

func NewWriter(repo storage.KnowledgeRepo, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{repo: repo, logger: logger}
}

func (w *Writer) Execute(ctx context.Context, docs []storage.Document) error {
	if w == nil || w.repo == nil {
		return nil
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := w.repo.Replace(ctx, docs)
		if err == nil {
			return nil
		}
		if !isRetriableError(err) || attempt == maxRetries-1 {
			return err
		}
		backoff := retryBackoffBase * time.Duration(1<<attempt)
		w.logger.Debug("retrying snapshot write", zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return errors.New("max retries exceeded")
}

func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"database is locked", "sqlite_busy", "restart transaction", "serialization failure", "deadlock"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
