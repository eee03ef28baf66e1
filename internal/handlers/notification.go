package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/derivation"
	"github.com/stanstork/sponsordesk-api/internal/notification"
)

const notificationNotFound = "notification not found"

type NotificationHandler struct {
	service notification.Service
	scanner ScanTrigger
	logger  zerolog.Logger
}

func NewNotificationHandler(service notification.Service, scanner ScanTrigger, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		scanner: scanner,
		logger:  logger.With().Str("handler", "notification").Logger(),
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	notifications, err := h.service.ListRecent(r.Context(), id.Email, limit)
	if err != nil {
		writeError(w, h.logger, err, notificationNotFound)
		return
	}
	unread, err := h.service.UnreadCount(r.Context(), id.Email)
	if err != nil {
		writeError(w, h.logger, err, notificationNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	notifID := strings.TrimSpace(mux.Vars(r)["notificationID"])
	if notifID == "" {
		writeMessage(w, http.StatusBadRequest, "Notification ID is required")
		return
	}

	notif, err := h.service.MarkRead(r.Context(), id.Email, notifID)
	if err != nil {
		writeError(w, h.logger, err, notificationNotFound)
		return
	}
	writeJSON(w, http.StatusOK, notif)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	updated, err := h.service.MarkAllRead(r.Context(), id.Email)
	if err != nil {
		writeError(w, h.logger, err, notificationNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id.Email, mux.Vars(r)["notificationID"]); err != nil {
		writeError(w, h.logger, err, notificationNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Scan queues a derivation scan for the caller. Results arrive through the
// notification list and stream.
func (h *NotificationHandler) Scan(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.scanner == nil || !h.scanner.Trigger(id, derivation.ReasonManual) {
		writeMessage(w, http.StatusServiceUnavailable, "scan queue is full, try again later")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}

func (h *NotificationHandler) Settings(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	settings, err := h.service.Settings(r.Context(), id.Email)
	if err != nil {
		writeError(w, h.logger, err, "settings not found")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *NotificationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var update notification.SettingsUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	settings, err := h.service.UpdateSettings(r.Context(), id.Email, update)
	if err != nil {
		writeError(w, h.logger, err, "settings not found")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
