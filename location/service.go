package location

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ojamarket/realtime-api/cache"
	"github.com/ojamarket/realtime-api/databases"
	"github.com/ojamarket/realtime-api/models"
)

// lastKnownTTL bounds how long a stale position is served to late subscribers
const lastKnownTTL = time.Hour

func lastKnownKey(agentID string) string {
	return "location:last:" + agentID
}

// AgentRoom names the broadcast room for one agent's position stream
func AgentRoom(agentID string) string {
	return "location:agent:" + agentID
}

// OrderRoom names the broadcast room for positions of the agent on an order
func OrderRoom(orderID string) string {
	return "location:order:" + orderID
}

// RegionRoom names the broadcast room for positions within a region
func RegionRoom(regionID string) string {
	return "location:region:" + regionID
}

// Broadcaster fans an event out to every connection in a room
type Broadcaster interface {
	BroadcastToRoom(room, event string, args ...interface{})
}

// Service ingests agent position updates. Each update is appended to the
// history collection, cached as the agent's last-known position, and broadcast
// to every matching location room. Broadcast is the primary product; history
// and cache writes are best-effort.
type Service struct {
	History   databases.LocationDatabase
	Cache     cache.Service
	Broadcast Broadcaster
}

// UpdateLocation accepts a position sample from the agent and fans it out.
// Only agents report positions, and only for themselves.
func (s *Service) UpdateLocation(ctx context.Context, reporter *models.Principal, sample models.AgentLocation) (*models.AgentLocation, error) {
	if reporter.Role != models.RoleAgent {
		return nil, models.AuthorizationError{Reason: "only agents report locations"}
	}
	if sample.AgentID == "" {
		sample.AgentID = reporter.ID
	}
	if sample.AgentID != reporter.ID {
		return nil, models.AuthorizationError{Reason: "agents report only their own location"}
	}
	if sample.Timestamp == 0 {
		sample.Timestamp = primitive.NewDateTimeFromTime(time.Now().UTC())
	}

	if _, err := s.History.InsertOne(ctx, sample); err != nil {
		zap.S().Warnw("failed to append location history", "agentID", sample.AgentID, "error", err)
	}
	s.cacheLastKnown(ctx, sample)

	payload := sample
	s.Broadcast.BroadcastToRoom(AgentRoom(sample.AgentID), "location-update", payload)
	if sample.OrderID != "" {
		s.Broadcast.BroadcastToRoom(OrderRoom(sample.OrderID), "location-update", payload)
	}
	if sample.RegionID != "" {
		s.Broadcast.BroadcastToRoom(RegionRoom(sample.RegionID), "location-update", payload)
	}

	return &sample, nil
}

// LastKnown returns the agent's cached position, or nil when none is cached
// or the cached record has expired
func (s *Service) LastKnown(ctx context.Context, agentID string) *models.AgentLocation {
	v, err := s.Cache.Get(ctx, lastKnownKey(agentID))
	if err != nil {
		if !cache.IsMiss(err) {
			zap.S().Warnw("failed to read last-known location", "agentID", agentID, "error", err)
		}
		return nil
	}
	sample := &models.AgentLocation{}
	if err := json.Unmarshal([]byte(v), sample); err != nil {
		zap.S().Warnw("failed to decode last-known location", "agentID", agentID, "error", err)
		return nil
	}
	return sample
}

// PurgeHistoryBefore drops history samples recorded before the cutoff,
// returning the number removed
func (s *Service) PurgeHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.History.DeleteMany(ctx, map[string]interface{}{
		"recordedAt": map[string]interface{}{"$lt": primitive.NewDateTimeFromTime(cutoff)},
	})
}

func (s *Service) cacheLastKnown(ctx context.Context, sample models.AgentLocation) {
	b, err := json.Marshal(sample)
	if err != nil {
		zap.S().Warnw("failed to marshal last-known location", "agentID", sample.AgentID, "error", err)
		return
	}
	if err := s.Cache.Set(ctx, lastKnownKey(sample.AgentID), string(b), lastKnownTTL); err != nil {
		zap.S().Warnw("failed to cache last-known location", "agentID", sample.AgentID, "error", err)
	}
}
