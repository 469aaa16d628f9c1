// Package gateway exposes the claim lifecycle over HTTP.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	apicommon "github.com/axal-network/claim-agent/server/api"
	"github.com/axal-network/claim-agent/x/claim"
	"github.com/axal-network/claim-agent/x/ledger"
	"github.com/axal-network/claim-agent/x/orchestrator"
)

type Handler struct {
	orch orchestrator.Orchestrator
	log  zerolog.Logger
}

func NewHandler(orch orchestrator.Orchestrator, log zerolog.Logger) *Handler {
	return &Handler{
		orch: orch,
		log:  log.With().Str("component", "gateway-http").Logger(),
	}
}

// handleSubmitClaim posts a bonded claim and returns its id without waiting
// out the dispute window.
func (h *Handler) handleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req submitClaimReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apicommon.WriteError(w, r, http.StatusBadRequest, "invalid_json", "failed to decode request", nil)
		return
	}

	if !common.IsHexAddress(req.Beneficiary) {
		apicommon.WriteError(w, r, http.StatusBadRequest, "invalid_beneficiary", "bad address", nil)
		return
	}

	id, err := h.orch.SubmitClaim(r.Context(), orchestrator.SubmitRequest{
		SubjectLabel: strings.TrimSpace(req.SubjectLabel),
		Beneficiary:  common.HexToAddress(req.Beneficiary),
		NotifyTarget: strings.TrimSpace(req.NotifyTarget),
	})
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}

	apicommon.WriteJSON(w, http.StatusAccepted, map[string]any{
		"claim_id": id.Hex(),
		"status":   string(claim.StatePending),
	})
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrStopped):
		apicommon.WriteError(w, r, http.StatusServiceUnavailable, "shutting_down", err.Error(), nil)
	case errors.Is(err, orchestrator.ErrNoPools):
		apicommon.WriteError(w, r, http.StatusServiceUnavailable, "no_pools", err.Error(), nil)
	case errors.Is(err, ledger.ErrSubmissionFailed):
		apicommon.WriteError(w, r, http.StatusBadGateway, "submit_failed", err.Error(), nil)
	default:
		h.log.Error().Err(err).Msg("claim submission failed")
		apicommon.WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	}
}

// handleSubmitDispute forwards a dispute to the ledger. The ledger is the
// authority on window validity; a rejection maps to 409.
func (h *Handler) handleSubmitDispute(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req submitDisputeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apicommon.WriteError(w, r, http.StatusBadRequest, "invalid_json", "failed to decode request", nil)
		return
	}

	claimID, ok := parseClaimID(req.ClaimID)
	if !ok {
		apicommon.WriteError(
			w, r,
			http.StatusBadRequest,
			"invalid_claim_id",
			fmt.Sprintf("expect %d-byte hash", common.HashLength),
			nil,
		)
		return
	}

	if !common.IsHexAddress(req.Disputer) {
		apicommon.WriteError(w, r, http.StatusBadRequest, "invalid_disputer", "bad address", nil)
		return
	}

	txRef, err := h.orch.SubmitDispute(r.Context(), common.HexToAddress(req.Disputer), claimID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDisputeRejected):
			apicommon.WriteError(w, r, http.StatusConflict, "dispute_rejected", err.Error(), nil)
		case errors.Is(err, ledger.ErrUnknownIdentity):
			apicommon.WriteError(w, r, http.StatusBadRequest, "unknown_identity", err.Error(), nil)
		default:
			h.log.Error().Err(err).Str("claim_id", claimID.Hex()).Msg("dispute submission failed")
			apicommon.WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return
	}

	apicommon.WriteJSON(w, http.StatusOK, map[string]any{
		"claim_id": claimID.Hex(),
		"tx_hash":  txRef.Hex(),
	})
}

// handleClaimStatus returns the orchestrator-local record for a claim.
func (h *Handler) handleClaimStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	claimID, ok := parseClaimID(vars["claimId"])
	if !ok {
		apicommon.WriteError(
			w, r,
			http.StatusBadRequest,
			"invalid_claim_id",
			fmt.Sprintf("expect %d-byte hash", common.HashLength),
			nil,
		)
		return
	}

	rec, err := h.orch.ClaimStatus(claimID)
	if err != nil {
		if errors.Is(err, claim.ErrNotFound) {
			apicommon.WriteError(w, r, http.StatusNotFound, "not_found", err.Error(), nil)
			return
		}
		apicommon.WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}

	apicommon.WriteJSON(w, http.StatusOK, renderClaim(rec))
}

// handleListPools returns the subject candidates ordered as configured.
func (h *Handler) handleListPools(w http.ResponseWriter, _ *http.Request) {
	apicommon.WriteJSON(w, http.StatusOK, map[string]any{"pools": h.orch.Pools()})
}

func parseClaimID(s string) (claim.ID, bool) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil || len(b) != common.HashLength {
		return claim.ID{}, false
	}
	return common.BytesToHash(b), true
}

func renderClaim(rec claim.Claim) claimResp {
	resp := claimResp{
		ClaimID:      rec.ID.Hex(),
		Submitter:    rec.Submitter.Hex(),
		Beneficiary:  rec.Beneficiary.Hex(),
		SubjectLabel: rec.SubjectLabel,
		CreatedAt:    rec.CreatedAt.Unix(),
		State:        string(rec.State),
		Disputed:     rec.Disputed,
		SubmitTx:     rec.SubmitTx,
		FinalizeTx:   rec.FinalizeTx,
	}
	if rec.BondWei != nil {
		resp.BondWei = rec.BondWei.String()
	}
	if !rec.FinalizedAt.IsZero() {
		resp.FinalizedAt = rec.FinalizedAt.Unix()
	}
	return resp
}
