package gateway

// Route patterns for the claim lifecycle HTTP surface.
const (
	routeSubmitClaim   = "/v1/claims"
	routeSubmitDispute = "/v1/disputes"
	routeClaimStatus   = "/v1/claims/{claimId}"
	routeListPools     = "/v1/pools"
)

// Route names for mux URL building.
const (
	routeNameSubmitClaim   = "claims_submit"
	routeNameSubmitDispute = "disputes_submit"
	routeNameClaimStatus   = "claims_status"
	routeNameListPools     = "pools_list"
)
