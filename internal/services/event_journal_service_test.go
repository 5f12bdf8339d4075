package services

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"vesting-backend/internal/dto"
	"vesting-backend/internal/models"
	"vesting-backend/internal/repository"
	"vesting-backend/internal/vesting"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type fakeEventRepository struct {
	mu        sync.Mutex
	events    []*models.VestingEvent
	schedules map[string]*models.ScheduleRecord
	eligible  map[string][]string
	createErr error
	lastLimit int
}

func newFakeEventRepository() *fakeEventRepository {
	return &fakeEventRepository{
		schedules: make(map[string]*models.ScheduleRecord),
		eligible:  make(map[string][]string),
	}
}

func (r *fakeEventRepository) CreateEvent(_ context.Context, event *models.VestingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeEventRepository) FindEvents(_ context.Context, filter repository.EventFilter, _, limit int) ([]*models.VestingEvent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit = limit
	var out []*models.VestingEvent
	for _, ev := range r.events {
		if filter.Token != "" && ev.Token != filter.Token {
			continue
		}
		out = append(out, ev)
	}
	return out, int64(len(out)), nil
}

func (r *fakeEventRepository) FindEventsByCall(_ context.Context, callID string) ([]*models.VestingEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.VestingEvent
	for _, ev := range r.events {
		if ev.CallID == callID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *fakeEventRepository) UpsertSchedule(_ context.Context, schedule *models.ScheduleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[schedule.Token] = schedule
	return nil
}

func (r *fakeEventRepository) UpdateEligibleAddresses(_ context.Context, token string, eligible []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eligible[token] = eligible
	return nil
}

func (r *fakeEventRepository) GetSchedule(_ context.Context, token string) (*models.ScheduleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[token]
	if !ok {
		return nil, errors.New("record not found")
	}
	return s, nil
}

type staticSchedules map[common.Address]dto.ScheduleResponse

func (s staticSchedules) Schedule(_ context.Context, token common.Address) (dto.ScheduleResponse, bool) {
	resp, ok := s[token]
	return resp, ok
}

func TestEventJournalStoresEvents(t *testing.T) {
	require := require.New(t)
	repo := newFakeEventRepository()
	journal := NewEventJournalService(repo, staticSchedules{})

	msg := &dto.EventMessage{
		EventID:   "ev-1",
		CallID:    "call-1",
		Contract:  contractAddr.Hex(),
		Name:      vesting.EventClaimed,
		Token:     tokenAddr.Hex(),
		Account:   alice.Hex(),
		Amount:    "250",
		Nonce:     "7",
		Timestamp: testStart,
	}
	require.NoError(journal.HandleEventMessage(context.Background(), msg))
	require.Len(repo.events, 1)

	stored := repo.events[0]
	require.Equal("ev-1", stored.EventID)
	require.Equal("call-1", stored.CallID)
	require.Equal(vesting.EventClaimed, stored.EventName)
	require.Equal("250", stored.Amount)
	require.Equal(int64(testStart), stored.BlockTimestamp.Unix())
	require.Contains(stored.Details, `"nonce":"7"`)
	require.Empty(repo.schedules)

	byCall, err := repo.FindEventsByCall(context.Background(), "call-1")
	require.NoError(err)
	require.Len(byCall, 1)
}

func TestEventJournalSnapshotsSchedules(t *testing.T) {
	require := require.New(t)
	repo := newFakeEventRepository()
	schedules := staticSchedules{
		tokenAddr: {
			Token:             tokenAddr.Hex(),
			TotalAmount:       "1000",
			StartTime:         testStart,
			VestingDuration:   100,
			IsActive:          true,
			Creator:           ownerAddr.Hex(),
			EligibleAddresses: []string{alice.Hex()},
		},
	}
	journal := NewEventJournalService(repo, schedules)
	ctx := context.Background()

	require.NoError(journal.HandleEventMessage(ctx, &dto.EventMessage{
		EventID: "ev-1", Name: vesting.EventScheduleCreated, Token: tokenAddr.Hex(), Contract: contractAddr.Hex(),
	}))
	record, err := journal.StoredSchedule(ctx, tokenAddr.Hex())
	require.NoError(err)
	require.Equal("1000", record.TotalAmount)
	require.Equal(contractAddr.Hex(), record.ContractAddress)
	require.Equal([]string{alice.Hex()}, []string(record.EligibleAddresses))

	require.NoError(journal.HandleEventMessage(ctx, &dto.EventMessage{
		EventID: "ev-2", Name: vesting.EventEligibilityAdded, Token: tokenAddr.Hex(), Account: alice.Hex(),
	}))
	require.Equal([]string{alice.Hex()}, repo.eligible[tokenAddr.Hex()])

	// Unknown tokens have nothing to snapshot.
	require.NoError(journal.HandleEventMessage(ctx, &dto.EventMessage{
		EventID: "ev-3", Name: vesting.EventScheduleUpdated, Token: funder.Hex(),
	}))
	_, err = journal.StoredSchedule(ctx, funder.Hex())
	require.Error(err)
}

func TestEventJournalStoreFailure(t *testing.T) {
	repo := newFakeEventRepository()
	repo.createErr = errors.New("connection refused")
	journal := NewEventJournalService(repo, staticSchedules{})

	err := journal.HandleEventMessage(context.Background(), &dto.EventMessage{EventID: "ev-1", Name: vesting.EventDeposited})
	require.ErrorContains(t, err, "store event")
}

func TestEventJournalPagingLimits(t *testing.T) {
	repo := newFakeEventRepository()
	journal := NewEventJournalService(repo, staticSchedules{})

	tests := []struct {
		limit int
		want  int
	}{
		{0, 20},
		{50, 50},
		{500, 20},
	}
	for _, tt := range tests {
		_, _, err := journal.Events(context.Background(), repository.EventFilter{}, 1, tt.limit)
		require.NoError(t, err)
		require.Equal(t, tt.want, repo.lastLimit)
	}
}

func (r *fakeEventRepository) eligibleFor(token string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eligible[token]
}

func (r *fakeEventRepository) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestEventJournalWiredToVestingService(t *testing.T) {
	require := require.New(t)
	f := newServiceFixture(t)
	repo := newFakeEventRepository()
	f.svc.AddHandler(NewEventJournalService(repo, f.svc))
	f.scheduleAndFund(1000, alice)

	const accounts = 20
	var wg sync.WaitGroup
	errs := make(chan error, accounts)
	for i := 0; i < accounts; i++ {
		wg.Add(2)
		addr := common.BigToAddress(big.NewInt(int64(0x1000 + i)))
		go func() {
			defer wg.Done()
			errs <- f.svc.AddEligibleAddress(f.ctx, ownerAddr, tokenAddr, addr)
		}()
		go func() {
			defer wg.Done()
			_ = f.svc.Position(f.ctx, addr, tokenAddr)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(err)
	}
	require.Equal(2+accounts, repo.eventCount())

	last := common.HexToAddress("0x000000000000000000000000000000000000beef")
	require.NoError(f.svc.AddEligibleAddress(f.ctx, ownerAddr, tokenAddr, last))
	require.Len(repo.eligibleFor(tokenAddr.Hex()), accounts+2)

	record, err := repo.GetSchedule(f.ctx, tokenAddr.Hex())
	require.NoError(err)
	require.Equal("1000", record.TotalAmount)
}

// hookHandler runs hook on the first event it receives.
type hookHandler struct {
	once sync.Once
	hook func(ctx context.Context)
}

func (h *hookHandler) Name() string { return "hook" }

func (h *hookHandler) HandleEventMessage(ctx context.Context, _ *dto.EventMessage) error {
	h.once.Do(func() { h.hook(ctx) })
	return nil
}

func TestDispatchedHandlerWaitsForServiceLock(t *testing.T) {
	require := require.New(t)
	f := newServiceFixture(t)

	var callID string
	f.svc.AddHandler(&hookHandler{hook: func(ctx context.Context) {
		callID, _ = CallIDFromContext(ctx)

		// Another call holds the lock while the handler reads.
		f.svc.mu.Lock()
		done := make(chan bool, 1)
		go func() {
			_, found := f.svc.Schedule(ctx, tokenAddr)
			done <- found
		}()

		select {
		case <-done:
			f.svc.mu.Unlock()
			require.FailNow("schedule read did not wait for the service lock")
		case <-time.After(100 * time.Millisecond):
		}
		f.svc.mu.Unlock()

		select {
		case found := <-done:
			require.True(found)
		case <-time.After(5 * time.Second):
			require.FailNow("schedule read blocked after the lock was released")
		}
	}})

	f.scheduleAndFund(1000, alice)
	require.NotEmpty(callID)
}
