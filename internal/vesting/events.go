package vesting

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	EventScheduleCreated     = "ScheduleCreated"
	EventScheduleUpdated     = "ScheduleUpdated"
	EventEligibilityAdded    = "EligibilityAdded"
	EventEligibilityRemoved  = "EligibilityRemoved"
	EventDeposited           = "Deposited"
	EventClaimed             = "Claimed"
	EventWithdrawn           = "Withdrawn"
	EventAuthorityKeyUpdated = "AuthorityKeyUpdated"
)

// Event is emitted after a call commits.
type Event struct {
	Name    string         `json:"name"`
	Token   common.Address `json:"token"`
	Account common.Address `json:"account"`
	Amount  *big.Int       `json:"amount,omitempty"`

	// Schedule events
	StartTime       uint64 `json:"start_time,omitempty"`
	CliffDuration   uint64 `json:"cliff_duration,omitempty"`
	VestingDuration uint64 `json:"vesting_duration,omitempty"`
	EligibleCount   int    `json:"eligible_count,omitempty"`

	// Claimed
	Nonce *big.Int `json:"nonce,omitempty"`

	// AuthorityKeyUpdated
	PreviousAuthority common.Address `json:"previous_authority,omitempty"`

	Timestamp uint64 `json:"timestamp"`
}

// EventSink receives committed events in emission order.
type EventSink interface {
	HandleEvent(ctx context.Context, ev Event)
}

type discardSink struct{}

func (discardSink) HandleEvent(context.Context, Event) {}
