package sockets

import (
	"context"
	"strings"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"go.uber.org/zap"

	"github.com/ojamarket/realtime-api/api"
	"github.com/ojamarket/realtime-api/chat"
	"github.com/ojamarket/realtime-api/config"
	"github.com/ojamarket/realtime-api/limiter"
	"github.com/ojamarket/realtime-api/location"
	"github.com/ojamarket/realtime-api/models"
)

// PersonalRoom is the room every authenticated connection joins, used for
// direct emits to one user across all their connections
func PersonalRoom(userID string) string {
	return "user:" + userID
}

// Gateway owns the socket.io server and the event handlers behind it
type Gateway struct {
	IO       *socketio.Server
	Auth     *api.Authenticator
	Chat     *chat.Service
	Location *location.Service
	Limiter  *limiter.Manager
}

// Adapter adapts the socket.io server to the room broadcaster interfaces the
// chat and location services depend on
type Adapter struct {
	IO *socketio.Server
}

// BroadcastToRoom emits the event to every connection in the room on the
// default namespace
func (a Adapter) BroadcastToRoom(room, event string, args ...interface{}) {
	a.IO.BroadcastToRoom("/", room, event, args...)
}

// New builds the socket.io server, attaches the redis adapter when configured
// so rooms span instances, and registers the connection lifecycle plus the
// chat and location event handlers. Serve() is started by the caller.
func New(conf *config.Config, g *Gateway) *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			polling.Default,
			websocket.Default,
		},
	})
	g.IO = server

	if conf.RedisURI != "" && !strings.Contains(conf.RedisURI, "://") {
		ok, err := server.Adapter(&socketio.RedisAdapterOptions{
			Addr:   conf.RedisURI,
			Prefix: "socket.io",
		})
		if err != nil || !ok {
			zap.S().Warnw("socket.io redis adapter unavailable, rooms are instance-local", "error", err)
		}
	}

	server.OnConnect("/", func(s socketio.Conn) error {
		principal, err := g.authenticate(s)
		if err != nil {
			zap.S().Infow("socket handshake rejected", "sid", s.ID(), "error", err)
			return err
		}
		s.SetContext(principal)
		s.Join(PersonalRoom(principal.ID))
		zap.S().Infow("socket connected", "sid", s.ID(), "principal", principal.ID, "role", principal.Role)
		return nil
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		zap.S().Warnw("socket error", "error", e)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if p := principalOf(s); p != nil {
			zap.S().Infow("socket disconnected", "sid", s.ID(), "principal", p.ID, "reason", reason)
		}
	})

	g.registerChatEvents(server)
	g.registerLocationEvents(server)

	return server
}

// authenticate resolves the handshake credentials to a principal. The token
// comes from the Authorization header or the token query parameter; the admin
// header or query flag selects the admin verification path.
func (g *Gateway) authenticate(s socketio.Conn) (*models.Principal, error) {
	header := s.RemoteHeader()
	u := s.URL()
	q := u.Query()

	token := header.Get("Authorization")
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer"))
	if token == "" {
		token = q.Get("token")
	}

	adminFlag := header.Get(api.AdminAccessHeader) == "true" || q.Get(api.AdminAccessHeader) == "true"

	ctx, cancel := api.WithQueryTimeout(context.Background())
	defer cancel()
	return g.Auth.Authenticate(ctx, token, adminFlag)
}

func principalOf(s socketio.Conn) *models.Principal {
	p, _ := s.Context().(*models.Principal)
	return p
}

// emitError reports an operation failure back to the offending connection
// only; the connection stays open
func emitError(s socketio.Conn, err error) {
	code := "internal"
	switch err.(type) {
	case models.AuthenticationError:
		code = "unauthenticated"
	case models.AuthorizationError:
		code = "forbidden"
	case models.InvalidStateError:
		code = "invalid_state"
	case models.NotFoundError:
		code = "not_found"
	}
	s.Emit("error", map[string]interface{}{
		"code":    code,
		"message": err.Error(),
	})
}

// stringField reads the first non-empty string among the given keys. Clients
// send both camelCase and ID-suffixed spellings in the wild, so every call
// site lists the accepted aliases.
func stringField(msg map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, _ := msg[key].(string); v != "" {
			return v
		}
	}
	return ""
}

func floatField(msg map[string]interface{}, key string) float64 {
	v, _ := msg[key].(float64)
	return v
}

// orderIDOf extracts the order id from an event payload that is either the
// bare id string or an object carrying it
func orderIDOf(msg interface{}) string {
	switch v := msg.(type) {
	case string:
		return v
	case map[string]interface{}:
		return stringField(v, "orderId", "orderID")
	}
	return ""
}
