package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vesting-backend/internal/dto"
	"vesting-backend/internal/models"
	"vesting-backend/internal/repository"
	"vesting-backend/internal/vesting"

	"github.com/ethereum/go-ethereum/common"
)

// ScheduleSource is the read side the journal snapshots schedules from.
type ScheduleSource interface {
	Schedule(ctx context.Context, token common.Address) (dto.ScheduleResponse, bool)
}

// EventJournalService persists committed events and keeps a per-token
// schedule snapshot for indexing.
type EventJournalService struct {
	repo      repository.VestingEventRepository
	schedules ScheduleSource
}

func NewEventJournalService(repo repository.VestingEventRepository, schedules ScheduleSource) *EventJournalService {
	return &EventJournalService{repo: repo, schedules: schedules}
}

func (j *EventJournalService) Name() string { return "journal" }

func (j *EventJournalService) HandleEventMessage(ctx context.Context, msg *dto.EventMessage) error {
	details, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &models.VestingEvent{
		EventID:         msg.EventID,
		CallID:          msg.CallID,
		ContractAddress: msg.Contract,
		EventName:       msg.Name,
		Token:           msg.Token,
		Account:         msg.Account,
		Amount:          msg.Amount,
		Nonce:           msg.Nonce,
		Details:         string(details),
		BlockTimestamp:  time.Unix(int64(msg.Timestamp), 0).UTC(),
	}
	if err := j.repo.CreateEvent(ctx, record); err != nil {
		return fmt.Errorf("store event: %w", err)
	}

	switch msg.Name {
	case vesting.EventScheduleCreated, vesting.EventScheduleUpdated,
		vesting.EventEligibilityAdded, vesting.EventEligibilityRemoved:
		return j.snapshotSchedule(ctx, msg)
	}
	return nil
}

func (j *EventJournalService) snapshotSchedule(ctx context.Context, msg *dto.EventMessage) error {
	schedule, ok := j.schedules.Schedule(ctx, common.HexToAddress(msg.Token))
	if !ok {
		return nil
	}
	if msg.Name == vesting.EventEligibilityAdded || msg.Name == vesting.EventEligibilityRemoved {
		return j.repo.UpdateEligibleAddresses(ctx, schedule.Token, schedule.EligibleAddresses)
	}
	return j.repo.UpsertSchedule(ctx, &models.ScheduleRecord{
		Token:             schedule.Token,
		ContractAddress:   msg.Contract,
		Creator:           schedule.Creator,
		TotalAmount:       schedule.TotalAmount,
		StartTime:         schedule.StartTime,
		CliffDuration:     schedule.CliffDuration,
		VestingDuration:   schedule.VestingDuration,
		EligibleAddresses: models.StringArray(schedule.EligibleAddresses),
	})
}

// Events pages through the journal.
func (j *EventJournalService) Events(ctx context.Context, filter repository.EventFilter, page, limit int) ([]*models.VestingEvent, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return j.repo.FindEvents(ctx, filter, page, limit)
}

// StoredSchedule returns the indexed snapshot of a token's schedule.
func (j *EventJournalService) StoredSchedule(ctx context.Context, token string) (*models.ScheduleRecord, error) {
	return j.repo.GetSchedule(ctx, token)
}
