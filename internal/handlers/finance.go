package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/authz"
	"github.com/stanstork/sponsordesk-api/internal/finance"
	"github.com/stanstork/sponsordesk-api/internal/models"
)

type CampaignLister interface {
	List(ctx context.Context, id authz.Identity, filter models.CampaignFilter) ([]models.Campaign, error)
}

type FinanceHandler struct {
	campaigns CampaignLister
	now       func() time.Time
	logger    zerolog.Logger
}

type financeResponse struct {
	finance.Summary
	Years []int `json:"years"`
}

func NewFinanceHandler(campaigns CampaignLister, logger zerolog.Logger) *FinanceHandler {
	return &FinanceHandler{
		campaigns: campaigns,
		now:       time.Now,
		logger:    logger.With().Str("handler", "finance").Logger(),
	}
}

// Summary aggregates net income for ?year= (default current) and optional ?month=.
func (h *FinanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	now := h.now()
	scope := finance.Scope{Year: now.Year()}
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1900 || year > 9999 {
			writeMessage(w, http.StatusBadRequest, "invalid year")
			return
		}
		scope.Year = year
	}
	if raw := strings.TrimSpace(q.Get("month")); raw != "" && raw != "all" {
		month, err := strconv.Atoi(raw)
		if err != nil || month < 0 || month > 12 {
			writeMessage(w, http.StatusBadRequest, "month must be between 1 and 12")
			return
		}
		scope.Month = month
	}

	campaigns, err := h.campaigns.List(r.Context(), id, models.CampaignFilter{})
	if err != nil {
		writeError(w, h.logger, err, campaignNotFound)
		return
	}
	writeJSON(w, http.StatusOK, financeResponse{
		Summary: finance.Summarize(campaigns, scope),
		Years:   finance.Years(campaigns, now),
	})
}

func (h *FinanceHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	campaigns, err := h.campaigns.List(r.Context(), id, models.CampaignFilter{})
	if err != nil {
		writeError(w, h.logger, err, campaignNotFound)
		return
	}
	writeJSON(w, http.StatusOK, finance.Dashboard(campaigns, h.now()))
}
