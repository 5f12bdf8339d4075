package models

import (
	"time"

	"github.com/lib/pq"
)

// VestingEvent committed vesting contract event, one row per emission
type VestingEvent struct {
	ID              uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	EventID         string    `json:"event_id" gorm:"uniqueIndex;size:36;not null"` // UUID
	CallID          string    `json:"call_id" gorm:"index;size:36;not null"`        // UUID of the call that emitted it
	ContractAddress string    `json:"contract_address" gorm:"size:42;not null"`
	EventName       string    `json:"event_name" gorm:"index;size:32;not null"`
	Token           string    `json:"token" gorm:"index:idx_vesting_event_token_account;size:42"`
	Account         string    `json:"account" gorm:"index:idx_vesting_event_token_account;size:42"`
	Amount          string    `json:"amount"`                             // uint256 decimal
	Nonce           string    `json:"nonce,omitempty"`                    // attestation nonce (Claimed)
	Details         string    `json:"details,omitempty" gorm:"type:text"` // JSON encoded event
	BlockTimestamp  time.Time `json:"block_timestamp" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (VestingEvent) TableName() string {
	return "vesting_events"
}

// ScheduleRecord latest schedule of a token as seen by the event journal
type ScheduleRecord struct {
	Token             string         `json:"token" gorm:"primaryKey;size:42"`
	ContractAddress   string         `json:"contract_address" gorm:"size:42;not null"`
	Creator           string         `json:"creator" gorm:"size:42"`
	TotalAmount       string         `json:"total_amount" gorm:"not null"`
	StartTime         uint64         `json:"start_time" gorm:"not null"`
	CliffDuration     uint64         `json:"cliff_duration" gorm:"not null"`
	VestingDuration   uint64         `json:"vesting_duration" gorm:"not null"`
	EligibleAddresses pq.StringArray `json:"eligible_addresses" gorm:"type:text[]"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ScheduleRecord) TableName() string {
	return "vesting_schedules"
}

// StringArray converts addresses to the postgres text[] column type
func StringArray(values []string) pq.StringArray {
	return pq.StringArray(values)
}
