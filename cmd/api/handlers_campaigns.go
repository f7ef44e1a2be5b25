package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"creatorflow/auth"
	"creatorflow/campaign"
)

// canManageFunds reports whether role may create campaigns and move money.
func canManageFunds(role auth.Role) bool {
	return role == auth.RoleBrand || role == auth.RoleAdmin
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	campaigns, err := s.campaignService.List(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	items := make([]campaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		items = append(items, newCampaignResponse(c))
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"items":   items,
		"summary": newSummaryResponse(campaign.Summarize(campaigns)),
	})
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	if !canManageFunds(roleFromContext(r.Context())) {
		writeError(w, http.StatusForbidden, "Only brands can create campaigns")
		return
	}
	userID, _ := userIDFromContext(r.Context())

	var req campaign.CreateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := s.campaignService.Create(r.Context(), userID, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, newCampaignResponse(created))
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())
	campaignID, ok := campaignIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "campaign not found")
		return
	}

	c, err := s.campaignService.Get(r.Context(), userID, campaignID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, newCampaignResponse(c))
}

type fundRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleFundCampaign(w http.ResponseWriter, r *http.Request) {
	if !canManageFunds(roleFromContext(r.Context())) {
		writeError(w, http.StatusForbidden, "Only brands can fund campaigns")
		return
	}
	userID, _ := userIDFromContext(r.Context())
	campaignID, ok := campaignIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "campaign not found")
		return
	}

	var req fundRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, tx, err := s.campaignService.Fund(r.Context(), userID, campaignID, req.Amount)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"campaign":    newCampaignResponse(c),
		"transaction": newTransactionResponse(tx),
	})
}

func (s *Server) handleReleaseMilestone(w http.ResponseWriter, r *http.Request) {
	if !canManageFunds(roleFromContext(r.Context())) {
		writeError(w, http.StatusForbidden, "Only brands can release milestones")
		return
	}
	userID, _ := userIDFromContext(r.Context())
	campaignID, ok := campaignIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "campaign not found")
		return
	}
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil || position < 0 {
		writeError(w, http.StatusNotFound, "milestone not found")
		return
	}

	c, tx, err := s.campaignService.ReleaseMilestone(r.Context(), userID, campaignID, position)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"campaign":    newCampaignResponse(c),
		"transaction": newTransactionResponse(tx),
	})
}

func campaignIDParam(r *http.Request) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
