package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"account_service/internal/avatar"
	"account_service/internal/worker"

	"go.uber.org/zap"
)

// TaskAvatarDerivatives is the queue task type that resizes a saved original.
const TaskAvatarDerivatives = "avatar.derivatives"

// AvatarStore is the part of avatar.Store the services need.
type AvatarStore interface {
	Create(userID int64, raw string) (*avatar.Handle, error)
	FetchSmallest(userID int64) (string, bool, error)
}

// JobQueue accepts background tasks.
type JobQueue interface {
	Enqueue(task worker.Task) error
}

// Avatars saves uploads synchronously and hands resizing to the queue.
type Avatars struct {
	store AvatarStore
	queue JobQueue
	log   *zap.Logger
}

func NewAvatars(store AvatarStore, queue JobQueue, log *zap.Logger) *Avatars {
	return &Avatars{store: store, queue: queue, log: log}
}

// save writes the original; a bad payload becomes ErrAvatarDecode.
func (a *Avatars) save(userID int64, raw string) (*avatar.Handle, error) {
	h, err := a.store.Create(userID, raw)
	if err != nil {
		if errors.Is(err, avatar.ErrDecode) {
			return nil, fmt.Errorf("%w: %v", ErrAvatarDecode, err)
		}
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}
	return h, nil
}

// schedule enqueues derivative generation. Failing to enqueue is logged and
// never reaches the client.
func (a *Avatars) schedule(h *avatar.Handle) {
	err := a.queue.Enqueue(worker.Task{Type: TaskAvatarDerivatives, UserID: h.UserID, Dir: h.Dir})
	if err != nil {
		a.log.Error("failed to schedule avatar derivatives",
			zap.Int64("user_id", h.UserID), zap.Error(err))
	}
}

// preview returns the smallest derivative, or "" when there is none yet.
func (a *Avatars) preview(userID int64) string {
	encoded, ok, err := a.store.FetchSmallest(userID)
	if err != nil {
		a.log.Warn("failed to read avatar", zap.Int64("user_id", userID), zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return encoded
}

// DerivativesHandler is the queue handler for TaskAvatarDerivatives.
// A missing original cannot fix itself, so it is not retried.
func DerivativesHandler(store *avatar.Store) worker.Handler {
	return func(_ context.Context, task worker.Task) error {
		err := store.GenerateDerivatives(avatar.Handle{
			UserID:   task.UserID,
			Dir:      task.Dir,
			Original: avatar.OriginalPath(task.Dir),
		})
		if errors.Is(err, os.ErrNotExist) {
			return worker.Permanent(err)
		}
		return err
	}
}
