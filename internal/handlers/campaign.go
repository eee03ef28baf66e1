package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/authz"
	"github.com/stanstork/sponsordesk-api/internal/campaign"
	"github.com/stanstork/sponsordesk-api/internal/models"
)

const campaignNotFound = "campaign not found"

type CampaignService interface {
	List(ctx context.Context, id authz.Identity, filter models.CampaignFilter) ([]models.Campaign, error)
	Get(ctx context.Context, id authz.Identity, campaignID string) (models.Campaign, error)
	Create(ctx context.Context, id authz.Identity, in campaign.Input) (models.Campaign, error)
	Update(ctx context.Context, id authz.Identity, campaignID string, in campaign.Input) (models.Campaign, error)
	Delete(ctx context.Context, id authz.Identity, campaignID string) error
	SetStatus(ctx context.Context, id authz.Identity, campaignID string, status models.CampaignStatus) (models.Campaign, error)
	MarkPaid(ctx context.Context, id authz.Identity, campaignID string) (models.Campaign, error)
	ToggleContentItem(ctx context.Context, id authz.Identity, campaignID string, index int) (models.Campaign, error)
	UpdatePublishedLink(ctx context.Context, id authz.Identity, campaignID, link string) (models.Campaign, error)
}

type CampaignHandler struct {
	service CampaignService
	logger  zerolog.Logger
}

func NewCampaignHandler(service CampaignService, logger zerolog.Logger) *CampaignHandler {
	return &CampaignHandler{
		service: service,
		logger:  logger.With().Str("handler", "campaign").Logger(),
	}
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := models.CampaignFilter{
		Search:   q.Get("search"),
		Platform: models.Platform(q.Get("platform")),
		Status:   models.CampaignStatus(q.Get("status")),
	}
	if raw := strings.TrimSpace(q.Get("month")); raw != "" {
		month, err := strconv.Atoi(raw)
		if err != nil || month < 1 || month > 12 {
			writeMessage(w, http.StatusBadRequest, "month must be between 1 and 12")
			return
		}
		filter.Month = month
	}

	campaigns, err := h.service.List(r.Context(), id, filter)
	if err != nil {
		writeError(w, h.logger, err, campaignNotFound)
		return
	}
	views := make([]models.CampaignView, 0, len(campaigns))
	for _, c := range campaigns {
		views = append(views, models.NewCampaignView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), id, mux.Vars(r)["campaignID"])
	h.respond(w, http.StatusOK, c, err)
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var in campaign.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.service.Create(r.Context(), id, in)
	h.respond(w, http.StatusCreated, c, err)
}

func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var in campaign.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.service.Update(r.Context(), id, mux.Vars(r)["campaignID"], in)
	h.respond(w, http.StatusOK, c, err)
}

func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, mux.Vars(r)["campaignID"]); err != nil {
		writeError(w, h.logger, err, campaignNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CampaignHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var payload struct {
		Status models.CampaignStatus `json:"status"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	c, err := h.service.SetStatus(r.Context(), id, mux.Vars(r)["campaignID"], payload.Status)
	h.respond(w, http.StatusOK, c, err)
}

func (h *CampaignHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	c, err := h.service.MarkPaid(r.Context(), id, mux.Vars(r)["campaignID"])
	h.respond(w, http.StatusOK, c, err)
}

func (h *CampaignHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "index must be a number")
		return
	}
	c, err := h.service.ToggleContentItem(r.Context(), id, mux.Vars(r)["campaignID"], index)
	h.respond(w, http.StatusOK, c, err)
}

func (h *CampaignHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var payload struct {
		PublishedLink string `json:"published_link"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	c, err := h.service.UpdatePublishedLink(r.Context(), id, mux.Vars(r)["campaignID"], payload.PublishedLink)
	h.respond(w, http.StatusOK, c, err)
}

func (h *CampaignHandler) respond(w http.ResponseWriter, status int, c models.Campaign, err error) {
	if err != nil {
		writeError(w, h.logger, err, campaignNotFound)
		return
	}
	writeJSON(w, status, models.NewCampaignView(c))
}
