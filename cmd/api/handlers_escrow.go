package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"creatorflow/escrow"
)

func (s *Server) handleEscrowDashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	dash, err := s.escrowService.Dashboard(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, newDashboardResponse(dash))
}

func (s *Server) handleEscrowTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}

	items, err := s.escrowService.Feed(r.Context(), userID, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"items": items})
}

type adjustmentRequest struct {
	CampaignID *string          `json:"campaignId"`
	Amount     decimal.Decimal  `json:"amount"`
	Direction  escrow.Direction `json:"direction"`
	Note       string           `json:"note"`
}

func (s *Server) handleCreateAdjustment(w http.ResponseWriter, r *http.Request) {
	if !canManageFunds(roleFromContext(r.Context())) {
		writeError(w, http.StatusForbidden, "Only brands can adjust escrow")
		return
	}
	userID, _ := userIDFromContext(r.Context())

	var req adjustmentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := s.escrowService.Adjust(r.Context(), userID, escrow.AdjustmentRequest{
		CampaignID: req.CampaignID,
		Amount:     req.Amount,
		Direction:  req.Direction,
		Note:       req.Note,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, newTransactionResponse(tx))
}
