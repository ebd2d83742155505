package sockets

import (
	"context"

	socketio "github.com/googollee/go-socket.io"

	"github.com/ojamarket/realtime-api/api"
	"github.com/ojamarket/realtime-api/location"
	"github.com/ojamarket/realtime-api/models"
)

// subscriptionRooms maps the identifiers of a subscribe/unsubscribe request to
// location rooms. A request may carry several identifiers; it matches every
// corresponding room, not the first one.
func subscriptionRooms(msg map[string]interface{}) []string {
	var rooms []string
	if agentID := stringField(msg, "agentId", "agentID"); agentID != "" {
		rooms = append(rooms, location.AgentRoom(agentID))
	}
	if orderID := stringField(msg, "orderId", "orderID"); orderID != "" {
		rooms = append(rooms, location.OrderRoom(orderID))
	}
	if regionID := stringField(msg, "regionId", "regionID"); regionID != "" {
		rooms = append(rooms, location.RegionRoom(regionID))
	}
	return rooms
}

func (g *Gateway) registerLocationEvents(server *socketio.Server) {
	server.OnEvent("/", "update-location", func(s socketio.Conn, msg map[string]interface{}) {
		p := principalOf(s)
		if p == nil {
			return
		}

		sample := models.AgentLocation{
			AgentID:   stringField(msg, "agentId", "agentID"),
			Latitude:  floatField(msg, "latitude"),
			Longitude: floatField(msg, "longitude"),
			OrderID:   stringField(msg, "orderId", "orderID"),
			RegionID:  stringField(msg, "regionId", "regionID"),
		}

		ctx, cancel := api.WithQueryTimeout(context.Background())
		defer cancel()

		if _, err := g.Location.UpdateLocation(ctx, p, sample); err != nil {
			emitError(s, err)
		}
	})

	server.OnEvent("/", "subscribe-to-location", func(s socketio.Conn, msg map[string]interface{}) {
		p := principalOf(s)
		if p == nil {
			return
		}

		rooms := subscriptionRooms(msg)
		if len(rooms) == 0 {
			emitError(s, models.InvalidStateError{Reason: "agentID, orderID or regionID required"})
			return
		}
		for _, room := range rooms {
			s.Join(room)
		}

		s.Emit("location-subscription-status", map[string]interface{}{
			"subscribed": true,
			"rooms":      rooms,
		})

		// late subscribers get the cached position straight away
		if agentID := stringField(msg, "agentId", "agentID"); agentID != "" {
			ctx, cancel := api.WithQueryTimeout(context.Background())
			defer cancel()
			if last := g.Location.LastKnown(ctx, agentID); last != nil {
				s.Emit("location-update", last)
			}
		}
	})

	server.OnEvent("/", "unsubscribe-from-location", func(s socketio.Conn, msg map[string]interface{}) {
		p := principalOf(s)
		if p == nil {
			return
		}

		rooms := subscriptionRooms(msg)
		if len(rooms) == 0 {
			emitError(s, models.InvalidStateError{Reason: "agentID, orderID or regionID required"})
			return
		}
		for _, room := range rooms {
			s.Leave(room)
		}

		s.Emit("location-subscription-status", map[string]interface{}{
			"subscribed": false,
			"rooms":      rooms,
		})
	})
}
