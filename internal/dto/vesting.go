package dto

import (
	"vesting-backend/internal/auth"
)

// EventMessage is a committed vesting event as published to NATS, pushed
// over websocket and stored in the journal.
type EventMessage struct {
	EventID           string `json:"event_id"`
	CallID            string `json:"call_id"`
	Contract          string `json:"contract"`
	Name              string `json:"name"`
	Token             string `json:"token,omitempty"`
	Account           string `json:"account,omitempty"`
	Amount            string `json:"amount,omitempty"`
	StartTime         uint64 `json:"start_time,omitempty"`
	CliffDuration     uint64 `json:"cliff_duration,omitempty"`
	VestingDuration   uint64 `json:"vesting_duration,omitempty"`
	EligibleCount     int    `json:"eligible_count,omitempty"`
	Nonce             string `json:"nonce,omitempty"`
	PreviousAuthority string `json:"previous_authority,omitempty"`
	Timestamp         uint64 `json:"timestamp"`
}

// SetScheduleRequest body of POST /api/vesting/schedules
type SetScheduleRequest struct {
	Token             string   `json:"token" binding:"required"`
	TotalAmount       string   `json:"total_amount" binding:"required"`
	StartTime         uint64   `json:"start_time"`
	CliffDuration     uint64   `json:"cliff_duration"`
	VestingDuration   uint64   `json:"vesting_duration"`
	EligibleAddresses []string `json:"eligible_addresses"`
}

// EligibleAddressRequest body of POST /api/vesting/schedules/:token/eligible
type EligibleAddressRequest struct {
	Address string `json:"address" binding:"required"`
}

// AmountRequest body of deposit, withdraw, attestation and dev token calls
type AmountRequest struct {
	Token  string `json:"token" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// ClaimRequest body of POST /api/vesting/claims
type ClaimRequest struct {
	Token   string       `json:"token" binding:"required"`
	Amount  string       `json:"amount" binding:"required"`
	Payload auth.Payload `json:"payload"`
}

// AuthorityRequest body of PUT /api/admin/authority
type AuthorityRequest struct {
	Authority string `json:"authority" binding:"required"`
}

// ScheduleResponse a token's schedule with its current progress
type ScheduleResponse struct {
	Token             string   `json:"token"`
	TotalAmount       string   `json:"total_amount"`
	StartTime         uint64   `json:"start_time"`
	CliffDuration     uint64   `json:"cliff_duration"`
	VestingDuration   uint64   `json:"vesting_duration"`
	IsActive          bool     `json:"is_active"`
	Creator           string   `json:"creator"`
	EligibleAddresses []string `json:"eligible_addresses"`
	ProgressPerMille  uint64   `json:"progress_per_mille"`
}

// AccountPosition an account's standing for one token
type AccountPosition struct {
	Account   string `json:"account"`
	Token     string `json:"token"`
	Eligible  bool   `json:"eligible"`
	Vested    string `json:"vested"`
	Claimed   string `json:"claimed"`
	Claimable string `json:"claimable"`
	Deposited string `json:"deposited"`
}

// TokenTotals pooled aggregates for one token
type TokenTotals struct {
	Token          string `json:"token"`
	TotalDeposited string `json:"total_deposited"`
	TotalClaimed   string `json:"total_claimed"`
	Available      string `json:"available"`
	Balance        string `json:"balance"`
}

// TokenList known and deposited tokens
type TokenList struct {
	Known     []string `json:"known"`
	Deposited []string `json:"deposited"`
}
