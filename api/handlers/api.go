package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ojamarket/realtime-api/api"
	"github.com/ojamarket/realtime-api/api/scheduler"
	"github.com/ojamarket/realtime-api/api/sockets"
	"github.com/ojamarket/realtime-api/cache"
	"github.com/ojamarket/realtime-api/chat"
	"github.com/ojamarket/realtime-api/config"
	"github.com/ojamarket/realtime-api/databases"
	"github.com/ojamarket/realtime-api/limiter"
	"github.com/ojamarket/realtime-api/location"
	"github.com/ojamarket/realtime-api/models"
)

// App stores the router and service wiring, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Socket    *socketio.Server
	Scheduler *scheduler.Scheduler

	dbHelper databases.DatabaseHelper
	cache    *cache.Redis
	hub      *NotificationHub
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	userDB := databases.NewUserDatabase(a.dbHelper)
	adminDB := databases.NewAdminDatabase(a.dbHelper)
	orderDB := databases.NewOrderDatabase(a.dbHelper)
	messageDB := databases.NewChatMessageDatabase(a.dbHelper)
	notificationDB := databases.NewNotificationDatabase(a.dbHelper)
	locationDB := databases.NewLocationDatabase(a.dbHelper)
	pushTokenDB := databases.NewPushTokenDatabase(a.dbHelper)

	authn := &api.Authenticator{Users: userDB, Admins: adminDB, Cache: a.cache}

	// setup go-guardian for middleware
	m := api.MiddlewareAuth{Auth: authn}
	m.SetupGoGuardian()

	broadcast := sockets.Adapter{}
	notifier := &chat.Notifier{
		Orders:        orderDB,
		Notifications: notificationDB,
		PushTokens:    pushTokenDB,
		Cache:         a.cache,
		Push:          chat.ExpoPush{},
	}
	chatService := &chat.Service{
		DB:         a.dbHelper,
		Messages:   messageDB,
		Orders:     orderDB,
		Users:      userDB,
		Activation: &chat.ActivationStore{Cache: a.cache},
		Notifier:   notifier,
		Broadcast:  &broadcast,
	}
	locationService := &location.Service{
		History:   locationDB,
		Cache:     a.cache,
		Broadcast: &broadcast,
	}

	gateway := &sockets.Gateway{
		Auth:     authn,
		Chat:     chatService,
		Location: locationService,
		Limiter:  limiter.NewManager(a.cache.Client, &limiter.FixedWindow{}),
	}
	a.Socket = sockets.New(&a.Config, gateway)
	broadcast.IO = a.Socket

	a.hub = NewNotificationHub(authn, a.cache)
	a.Scheduler = scheduler.NewScheduler(notificationDB, userDB, locationService, a.cache)

	auth := Auth{UDB: userDB, ADB: adminDB, PTDB: pushTokenDB, Cache: a.cache}
	chatHandlers := Chat{Service: chatService}
	notifications := Notifications{NDB: notificationDB}
	cloudinaryHandler := CloudinaryHandler{}

	r := mux.NewRouter()
	r.Use(api.RequestLogger)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	r.Handle("/socket.io/", a.Socket)
	r.Handle("/ws/notifications", a.hub)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/auth/login", http.HandlerFunc(auth.LoginHandler)).Methods("POST")
	apiCreate.Handle("/auth/admin/login", http.HandlerFunc(auth.AdminLoginHandler)).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(auth.LogoutHandler))).Methods("DELETE")
	apiCreate.Handle("/push-tokens", api.Middleware(http.HandlerFunc(auth.RegisterPushTokenHandler))).Methods("POST")

	apiCreate.Handle("/chat/order/{order_id}/messages", api.Middleware(http.HandlerFunc(chatHandlers.MessagesByOrderHandler))).Methods("GET")
	apiCreate.Handle("/chat/order/{order_id}/read", api.Middleware(http.HandlerFunc(chatHandlers.MarkMessagesReadHandler))).Methods("PUT")
	apiCreate.Handle("/chat/order/{order_id}/activate", api.Middleware(http.HandlerFunc(chatHandlers.ActivateChatHandler))).Methods("POST")
	apiCreate.Handle("/chat/unread-count", api.Middleware(http.HandlerFunc(chatHandlers.UnreadCountHandler))).Methods("GET")
	apiCreate.Handle("/chat/upload-signature", api.Middleware(http.HandlerFunc(cloudinaryHandler.GenerateSignature))).Methods("POST")

	apiCreate.Handle("/notifications", api.Middleware(http.HandlerFunc(notifications.ListHandler))).Methods("GET")
	apiCreate.Handle("/notifications/read-all", api.Middleware(http.HandlerFunc(notifications.MarkAllReadHandler))).Methods("PUT")
	apiCreate.Handle("/notifications/{notification_id}/read", api.Middleware(http.HandlerFunc(notifications.MarkReadHandler))).Methods("PUT")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("realtime-api has connected to the database")

	a.cache, err = cache.NewRedis(&a.Config)
	if err != nil {
		// chat activation, auth and fan-out all ride on the cache
		zap.S().With(err).Error("failed to connect to redis")
		return err
	}
	zap.S().Info("realtime-api has connected to redis")

	// initialize api router, socket gateway, hub and scheduler
	a.initializeRoutes()

	go func() {
		if err := a.Socket.Serve(); err != nil {
			zap.S().Fatalw("socket.io server error", "error", err)
		}
	}()
	go a.hub.Run(context.Background())
	a.Scheduler.Start()

	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
