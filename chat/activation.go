package chat

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ojamarket/realtime-api/cache"
	"github.com/ojamarket/realtime-api/models"
)

const activationTTL = 24 * time.Hour

func activationKey(orderID string) string {
	return "chat:active:" + orderID
}

// ActivationStore tracks which order chats are live. Activation is monotonic:
// a chat goes inactive only by cache TTL expiry, never by explicit
// deactivation.
type ActivationStore struct {
	Cache cache.Service
}

// Activate writes the activation record for the order. Re-activating simply
// rewrites the record and resets the TTL, so the call is idempotent and
// last-writer-wins. Returns false when the cache write fails so callers can
// degrade gracefully instead of surfacing an infrastructure error.
func (s *ActivationStore) Activate(ctx context.Context, orderID string, by models.ChatActivator) bool {
	record := models.ChatActivation{
		OrderID:     orderID,
		ActivatedBy: by,
		ActivatedAt: time.Now().UTC(),
	}
	b, err := json.Marshal(record)
	if err != nil {
		zap.S().Errorw("failed to marshal chat activation", "orderID", orderID, "error", err)
		return false
	}
	if err := s.Cache.Set(ctx, activationKey(orderID), string(b), activationTTL); err != nil {
		zap.S().Errorw("failed to write chat activation", "orderID", orderID, "error", err)
		return false
	}
	return true
}

// IsActive reports whether the order's chat is live. A cache read failure
// counts as inactive: the activation check fails closed.
func (s *ActivationStore) IsActive(ctx context.Context, orderID string) bool {
	ok, err := s.Cache.Exists(ctx, activationKey(orderID))
	if err != nil {
		zap.S().Warnw("chat activation check failed, treating as inactive", "orderID", orderID, "error", err)
		return false
	}
	return ok
}

// Get returns the current activation record, or nil when the chat is not
// active or the record cannot be read.
func (s *ActivationStore) Get(ctx context.Context, orderID string) *models.ChatActivation {
	v, err := s.Cache.Get(ctx, activationKey(orderID))
	if err != nil {
		if !cache.IsMiss(err) {
			zap.S().Warnw("failed to read chat activation", "orderID", orderID, "error", err)
		}
		return nil
	}
	record := &models.ChatActivation{}
	if err := json.Unmarshal([]byte(v), record); err != nil {
		zap.S().Warnw("failed to decode chat activation", "orderID", orderID, "error", err)
		return nil
	}
	return record
}
