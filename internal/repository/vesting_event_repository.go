package repository

import (
	"context"

	"vesting-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventFilter narrows event queries. Empty fields match everything.
type EventFilter struct {
	Token     string
	Account   string
	EventName string
}

// VestingEventRepository defines the interface for vesting event data access
type VestingEventRepository interface {
	CreateEvent(ctx context.Context, event *models.VestingEvent) error
	FindEvents(ctx context.Context, filter EventFilter, page, limit int) ([]*models.VestingEvent, int64, error)
	FindEventsByCall(ctx context.Context, callID string) ([]*models.VestingEvent, error)

	UpsertSchedule(ctx context.Context, schedule *models.ScheduleRecord) error
	UpdateEligibleAddresses(ctx context.Context, token string, eligible []string) error
	GetSchedule(ctx context.Context, token string) (*models.ScheduleRecord, error)
}

// vestingEventRepository implements VestingEventRepository
type vestingEventRepository struct {
	db *gorm.DB
}

// NewVestingEventRepository creates a new VestingEventRepository instance
func NewVestingEventRepository(db *gorm.DB) VestingEventRepository {
	return &vestingEventRepository{db: db}
}

func (r *vestingEventRepository) CreateEvent(ctx context.Context, event *models.VestingEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *vestingEventRepository) FindEvents(ctx context.Context, filter EventFilter, page, limit int) ([]*models.VestingEvent, int64, error) {
	var events []*models.VestingEvent
	var total int64

	query := r.db.WithContext(ctx).Model(&models.VestingEvent{})
	if filter.Token != "" {
		query = query.Where("token = ?", filter.Token)
	}
	if filter.Account != "" {
		query = query.Where("account = ?", filter.Account)
	}
	if filter.EventName != "" {
		query = query.Where("event_name = ?", filter.EventName)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit
	err := query.Offset(offset).Limit(limit).Order("id DESC").Find(&events).Error
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func (r *vestingEventRepository) FindEventsByCall(ctx context.Context, callID string) ([]*models.VestingEvent, error) {
	var events []*models.VestingEvent
	err := r.db.WithContext(ctx).Where("call_id = ?", callID).Order("id ASC").Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// UpsertSchedule replaces the stored schedule of a token
func (r *vestingEventRepository) UpsertSchedule(ctx context.Context, schedule *models.ScheduleRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"contract_address", "creator", "total_amount", "start_time",
			"cliff_duration", "vesting_duration", "eligible_addresses", "updated_at",
		}),
	}).Create(schedule).Error
}

func (r *vestingEventRepository) UpdateEligibleAddresses(ctx context.Context, token string, eligible []string) error {
	return r.db.WithContext(ctx).Model(&models.ScheduleRecord{}).
		Where("token = ?", token).
		Update("eligible_addresses", models.StringArray(eligible)).Error
}

func (r *vestingEventRepository) GetSchedule(ctx context.Context, token string) (*models.ScheduleRecord, error) {
	var schedule models.ScheduleRecord
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}
