package gateway

// submitClaimReq is the JSON schema for POST routeSubmitClaim.
type submitClaimReq struct {
	SubjectLabel string `json:"subject_label,omitempty"` // empty selects the best-ranked pool
	Beneficiary  string `json:"beneficiary"`             // 0x-hex address
	NotifyTarget string `json:"notify_target,omitempty"` // email for the outcome notification
}

// submitDisputeReq is the JSON schema for POST routeSubmitDispute.
type submitDisputeReq struct {
	ClaimID  string `json:"claim_id"` // 0x-hex 32-byte id
	Disputer string `json:"disputer"` // 0x-hex address of a registered disputer identity
}

// claimResp is the JSON rendering of an orchestrator claim record.
type claimResp struct {
	ClaimID      string `json:"claim_id"`
	Submitter    string `json:"submitter"`
	Beneficiary  string `json:"beneficiary"`
	SubjectLabel string `json:"subject_label"`
	CreatedAt    int64  `json:"created_at"`
	BondWei      string `json:"bond_wei"`
	State        string `json:"state"`
	Disputed     bool   `json:"disputed"`
	FinalizedAt  int64  `json:"finalized_at,omitempty"`
	SubmitTx     string `json:"submit_tx,omitempty"`
	FinalizeTx   string `json:"finalize_tx,omitempty"`
}
