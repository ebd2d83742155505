package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ojamarket/realtime-api/api"
	"github.com/ojamarket/realtime-api/config"
	"github.com/ojamarket/realtime-api/databases"
	"github.com/ojamarket/realtime-api/models"
)

const defaultNotificationPageSize = 50

// Notifications exposes the caller's notification feed
type Notifications struct {
	NDB databases.NotificationDatabase
}

// ListHandler returns the caller's notifications newest first. The limit and
// page query parameters page through the feed; unread_only narrows it.
func (h Notifications) ListHandler(w http.ResponseWriter, r *http.Request) {
	p := api.PrincipalFrom(r.Context())
	if p == nil {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, nil)
		return
	}

	limit := parsePositiveInt(r, "limit", defaultNotificationPageSize)
	page := parsePositiveInt(r, "page", 1)

	filter := bson.M{"recipientID": p.ID}
	if r.URL.Query().Get("unread_only") == "true" {
		filter["read"] = false
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	notifications, err := h.NDB.Find(r.Context(), filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get notifications", http.StatusInternalServerError, w, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	unread, err := h.NDB.CountDocuments(r.Context(), bson.M{"recipientID": p.ID, "read": false})
	if err != nil {
		config.ErrorStatus("failed to count unread notifications", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(map[string]interface{}{
		"notifications": notifications,
		"unreadCount":   unread,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MarkReadHandler marks one of the caller's notifications as read
func (h Notifications) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	p := api.PrincipalFrom(r.Context())
	if p == nil {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, nil)
		return
	}

	notificationID := mux.Vars(r)["notification_id"]
	oid, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		config.ErrorStatus("invalid notification ID", http.StatusBadRequest, w, err)
		return
	}

	res, err := h.NDB.UpdateOne(r.Context(),
		bson.M{"_id": oid, "recipientID": p.ID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		config.ErrorStatus("failed to mark notification as read", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("notification not found", http.StatusNotFound, w, nil)
		return
	}

	b, _ := json.Marshal(map[string]string{"message": "notification marked as read"})
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MarkAllReadHandler marks every unread notification of the caller as read
func (h Notifications) MarkAllReadHandler(w http.ResponseWriter, r *http.Request) {
	p := api.PrincipalFrom(r.Context())
	if p == nil {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, nil)
		return
	}

	res, err := h.NDB.UpdateMany(r.Context(),
		bson.M{"recipientID": p.ID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		config.ErrorStatus("failed to mark notifications as read", http.StatusInternalServerError, w, err)
		return
	}

	b, _ := json.Marshal(map[string]interface{}{"updated": res.ModifiedCount})
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
