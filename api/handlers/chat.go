package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ojamarket/realtime-api/api"
	"github.com/ojamarket/realtime-api/chat"
	"github.com/ojamarket/realtime-api/config"
	"github.com/ojamarket/realtime-api/models"
)

// Chat exposes the REST surface over the chat service for clients without a
// live socket, e.g. the order history screen
type Chat struct {
	Service *chat.Service
}

// MessagesByOrderHandler returns the order's chat messages ascending by
// creation time. Only participants of the order may read them.
func (h Chat) MessagesByOrderHandler(w http.ResponseWriter, r *http.Request) {
	p := api.PrincipalFrom(r.Context())
	if p == nil {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, nil)
		return
	}
	orderID := mux.Vars(r)["order_id"]

	order, err := h.Service.Order(r.Context(), orderID)
	if err != nil {
		config.ErrorStatus("failed to get order by ID", http.StatusNotFound, w, err)
		return
	}
	if !order.IsParticipant(p) {
		config.ErrorStatus("not a participant of this order", http.StatusForbidden, w, nil)
		return
	}

	var messages []models.ChatMessage
	if limit := parsePositiveInt(r, "limit", 0); limit > 0 {
		messages, err = h.Service.MessagesByOrderPage(r.Context(), orderID, limit, parsePositiveInt(r, "page", 1))
	} else {
		messages, err = h.Service.MessagesByOrder(r.Context(), orderID)
	}
	if err != nil {
		config.ErrorStatus("failed to get messages", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(messages)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MarkMessagesReadHandler marks every message in the order not authored by
// the caller as read and returns the number updated
func (h Chat) MarkMessagesReadHandler(w http.ResponseWriter, r *http.Request) {
	p := api.PrincipalFrom(r.Context())
	if p == nil {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, nil)
		return
	}
	orderID := mux.Vars(r)["order_id"]

	order, err := h.Service.Order(r.Context(), orderID)
	if err != nil {
		config.ErrorStatus("failed to get order by ID", http.StatusNotFound, w, err)
		return
	}
	if !order.IsParticipant(p) {
		config.ErrorStatus("not a participant of this order", http.StatusForbidden, w, nil)
		return
	}

	updated, err := h.Service.MarkMessagesAsRead(r.Context(), orderID, p.ID)
	if err != nil {
		config.ErrorStatus("failed to mark messages as read", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(map[string]interface{}{"updated": updated})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UnreadCountHandler returns the caller's unread message counts. With an
// order_id query it returns the count for one order, otherwise counts grouped
// by order across everything the caller participates in.
func (h Chat) UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	p := api.PrincipalFrom(r.Context())
	if p == nil {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, nil)
		return
	}

	if orderID := r.URL.Query().Get("order_id"); orderID != "" {
		count, err := h.Service.UnreadCount(r.Context(), p.ID, orderID)
		if err != nil {
			config.ErrorStatus("failed to count unread messages", http.StatusInternalServerError, w, err)
			return
		}
		b, _ := json.Marshal(map[string]interface{}{"orderID": orderID, "count": count})
		w.WriteHeader(http.StatusOK)
		w.Write(b)
		return
	}

	counts, err := h.Service.UnreadCountsByOrder(r.Context(), p.ID)
	if err != nil {
		config.ErrorStatus("failed to count unread messages", http.StatusInternalServerError, w, err)
		return
	}

	var total int64
	for _, c := range counts {
		total += c.Count
	}
	b, err := json.Marshal(map[string]interface{}{"total": total, "orders": counts})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ActivateChatHandler activates the order's chat over REST, for clients that
// open the chat screen before the socket connects
func (h Chat) ActivateChatHandler(w http.ResponseWriter, r *http.Request) {
	p := api.PrincipalFrom(r.Context())
	if p == nil {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, nil)
		return
	}
	orderID := mux.Vars(r)["order_id"]

	record, err := h.Service.Activate(r.Context(), p, orderID)
	if err != nil {
		switch err.(type) {
		case models.NotFoundError:
			config.ErrorStatus("failed to get order by ID", http.StatusNotFound, w, err)
		case models.AuthorizationError:
			config.ErrorStatus("not a participant of this order", http.StatusForbidden, w, err)
		default:
			config.ErrorStatus("failed to activate chat", http.StatusInternalServerError, w, err)
		}
		return
	}

	b, err := json.Marshal(record)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// parsePositiveInt reads a positive integer query parameter with a fallback
func parsePositiveInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
