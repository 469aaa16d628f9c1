package gateway

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterMux binds gorilla/mux routes.
func (h *Handler) RegisterMux(r *mux.Router) {
	r.HandleFunc(routeSubmitClaim, h.handleSubmitClaim).
		Methods(http.MethodPost).
		Name(routeNameSubmitClaim)
	r.HandleFunc(routeSubmitDispute, h.handleSubmitDispute).
		Methods(http.MethodPost).
		Name(routeNameSubmitDispute)
	r.HandleFunc(routeClaimStatus, h.handleClaimStatus).
		Methods(http.MethodGet).
		Name(routeNameClaimStatus)
	r.HandleFunc(routeListPools, h.handleListPools).
		Methods(http.MethodGet).
		Name(routeNameListPools)
}
