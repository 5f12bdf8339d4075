package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"vesting-backend/internal/auth"
	"vesting-backend/internal/dto"
	"vesting-backend/internal/metrics"
	"vesting-backend/internal/tokens"
	"vesting-backend/internal/vesting"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventHandler consumes committed events once the emitting call has returned.
type EventHandler interface {
	Name() string
	HandleEventMessage(ctx context.Context, msg *dto.EventMessage) error
}

type callKey struct{}

// callState travels in the context of one serialized call. inside is set
// only while the call holds the service lock.
type callState struct {
	id     string
	events []*dto.EventMessage
	inside atomic.Bool
}

// nestedCall reports whether ctx belongs to a call that currently holds the
// service lock. Handlers run after unlock and see false.
func nestedCall(ctx context.Context) bool {
	state, ok := ctx.Value(callKey{}).(*callState)
	return ok && state.inside.Load()
}

// CallIDFromContext returns the id of the service call ctx belongs to.
func CallIDFromContext(ctx context.Context) (string, bool) {
	state, ok := ctx.Value(callKey{}).(*callState)
	if !ok {
		return "", false
	}
	return state.id, true
}

// VestingService serializes access to the vesting contract and fans
// committed events out to the registered handlers.
//
// A collaborator that calls back into the service from inside a call (a
// token transfer hook) carries the call's context and goes straight to the
// contract, where the reentrancy latch rejects it instead of the mutex
// deadlocking. Event handlers run after the lock is released and take it
// again like any other caller.
type VestingService struct {
	mu       sync.Mutex
	contract *vesting.Contract
	registry *tokens.Registry

	handlersMu sync.RWMutex
	handlers   []EventHandler

	logger *logrus.Entry
}

func NewVestingService(cfg vesting.Config, registry *tokens.Registry, logger *logrus.Logger, handlers ...EventHandler) (*VestingService, error) {
	if registry == nil {
		return nil, errors.New("token registry is required")
	}
	s := &VestingService{
		registry: registry,
		handlers: handlers,
		logger:   logger.WithField("component", "vesting_service"),
	}
	cfg.Tokens = registry
	cfg.Sink = s

	contract, err := vesting.NewContract(cfg)
	if err != nil {
		return nil, fmt.Errorf("create vesting contract: %w", err)
	}
	s.contract = contract
	return s, nil
}

// AddHandler registers an event handler for subsequent calls.
func (s *VestingService) AddHandler(h EventHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers = append(s.handlers, h)
}

func (s *VestingService) Registry() *tokens.Registry      { return s.registry }
func (s *VestingService) ContractAddress() common.Address { return s.contract.Address() }
func (s *VestingService) Owner() common.Address           { return s.contract.Owner() }
func (s *VestingService) VerifierID() uint64              { return s.contract.VerifierID() }

// exec runs one mutating call under the service lock and dispatches its
// events after the lock is released.
func (s *VestingService) exec(ctx context.Context, operation string, from common.Address, fn func(ctx context.Context) error) error {
	if nestedCall(ctx) {
		return fn(ctx)
	}

	state := &callState{id: uuid.NewString()}
	ctx = context.WithValue(ctx, callKey{}, state)
	started := time.Now()

	s.mu.Lock()
	state.inside.Store(true)
	err := fn(ctx)
	state.inside.Store(false)
	s.mu.Unlock()

	elapsed := time.Since(started)
	metrics.ContractCallDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	entry := s.logger.WithFields(logrus.Fields{
		"operation": operation,
		"call_id":   state.id,
		"from":      from.Hex(),
		"duration":  elapsed.String(),
	})
	if err != nil {
		metrics.ContractCalls.WithLabelValues(operation, "error").Inc()
		entry.WithError(err).Warn("Vesting call reverted")
		return err
	}
	metrics.ContractCalls.WithLabelValues(operation, "ok").Inc()
	entry.WithField("events", len(state.events)).Info("Vesting call committed")

	s.dispatch(context.WithoutCancel(ctx), state.events)
	return nil
}

// view runs a read-only query under the service lock.
func (s *VestingService) view(ctx context.Context, fn func()) {
	if nestedCall(ctx) {
		fn()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// HandleEvent implements vesting.EventSink. Events are queued on the call
// and dispatched by exec.
func (s *VestingService) HandleEvent(ctx context.Context, ev vesting.Event) {
	msg := s.toMessage(ctx, ev)
	metrics.EventsEmitted.WithLabelValues(ev.Name).Inc()
	if ev.Amount != nil {
		amount, _ := new(big.Float).SetInt(ev.Amount).Float64()
		switch ev.Name {
		case vesting.EventClaimed:
			metrics.ClaimedAmount.WithLabelValues(ev.Token.Hex()).Add(amount)
		case vesting.EventDeposited:
			metrics.DepositedAmount.WithLabelValues(ev.Token.Hex()).Add(amount)
		}
	}

	if state, ok := ctx.Value(callKey{}).(*callState); ok && state.inside.Load() {
		state.events = append(state.events, msg)
		return
	}
	s.dispatch(ctx, []*dto.EventMessage{msg})
}

func (s *VestingService) toMessage(ctx context.Context, ev vesting.Event) *dto.EventMessage {
	callID, _ := CallIDFromContext(ctx)
	msg := &dto.EventMessage{
		EventID:         uuid.NewString(),
		CallID:          callID,
		Contract:        s.contract.Address().Hex(),
		Name:            ev.Name,
		StartTime:       ev.StartTime,
		CliffDuration:   ev.CliffDuration,
		VestingDuration: ev.VestingDuration,
		EligibleCount:   ev.EligibleCount,
		Timestamp:       ev.Timestamp,
	}
	if ev.Token != (common.Address{}) {
		msg.Token = ev.Token.Hex()
	}
	if ev.Account != (common.Address{}) {
		msg.Account = ev.Account.Hex()
	}
	if ev.Amount != nil {
		msg.Amount = ev.Amount.String()
	}
	if ev.Nonce != nil {
		msg.Nonce = ev.Nonce.String()
	}
	if ev.PreviousAuthority != (common.Address{}) {
		msg.PreviousAuthority = ev.PreviousAuthority.Hex()
	}
	return msg
}

func (s *VestingService) dispatch(ctx context.Context, events []*dto.EventMessage) {
	if len(events) == 0 {
		return
	}
	s.handlersMu.RLock()
	handlers := append([]EventHandler(nil), s.handlers...)
	s.handlersMu.RUnlock()

	for _, msg := range events {
		for _, h := range handlers {
			if err := h.HandleEventMessage(ctx, msg); err != nil {
				metrics.EventHandlerErrors.WithLabelValues(h.Name(), msg.Name).Inc()
				s.logger.WithFields(logrus.Fields{
					"handler":  h.Name(),
					"event":    msg.Name,
					"event_id": msg.EventID,
				}).WithError(err).Error("Event handler failed")
			}
		}
	}
}

// Mutating calls

func (s *VestingService) SetSchedule(ctx context.Context, from, token common.Address, p vesting.ScheduleParams) error {
	return s.exec(ctx, "set_schedule", from, func(ctx context.Context) error {
		return s.contract.SetSchedule(ctx, from, token, p)
	})
}

func (s *VestingService) AddEligibleAddress(ctx context.Context, from, token, addr common.Address) error {
	return s.exec(ctx, "add_eligible_address", from, func(ctx context.Context) error {
		return s.contract.AddEligibleAddress(ctx, from, token, addr)
	})
}

func (s *VestingService) RemoveEligibleAddress(ctx context.Context, from, token, addr common.Address) error {
	return s.exec(ctx, "remove_eligible_address", from, func(ctx context.Context) error {
		return s.contract.RemoveEligibleAddress(ctx, from, token, addr)
	})
}

func (s *VestingService) Deposit(ctx context.Context, from, token common.Address, amount *big.Int) error {
	return s.exec(ctx, "deposit", from, func(ctx context.Context) error {
		return s.contract.DepositTokens(ctx, from, token, amount)
	})
}

func (s *VestingService) Claim(ctx context.Context, from common.Address, payload auth.Payload, token common.Address, amount *big.Int) error {
	return s.exec(ctx, "claim", from, func(ctx context.Context) error {
		return s.contract.ClaimTokens(ctx, from, payload, token, amount)
	})
}

func (s *VestingService) Withdraw(ctx context.Context, from, token common.Address, amount *big.Int) error {
	return s.exec(ctx, "withdraw", from, func(ctx context.Context) error {
		return s.contract.WithdrawTokens(ctx, from, token, amount)
	})
}

func (s *VestingService) SetAuthorityKey(ctx context.Context, from, authority common.Address) error {
	return s.exec(ctx, "set_authority_key", from, func(ctx context.Context) error {
		return s.contract.SetAuthorityKey(ctx, from, authority)
	})
}

// RotateAuthority sets the authority key on behalf of the contract owner.
func (s *VestingService) RotateAuthority(ctx context.Context, authority common.Address) error {
	return s.SetAuthorityKey(ctx, s.contract.Owner(), authority)
}

// Queries

func (s *VestingService) Schedule(ctx context.Context, token common.Address) (dto.ScheduleResponse, bool) {
	var (
		resp  dto.ScheduleResponse
		found bool
	)
	s.view(ctx, func() {
		schedule, ok := s.contract.GetVestingSchedule(token)
		if !ok {
			return
		}
		found = true
		resp = dto.ScheduleResponse{
			Token:             schedule.Token.Hex(),
			TotalAmount:       schedule.TotalAmount.String(),
			StartTime:         schedule.StartTime,
			CliffDuration:     schedule.CliffDuration,
			VestingDuration:   schedule.VestingDuration,
			IsActive:          schedule.IsActive,
			Creator:           schedule.Creator.Hex(),
			EligibleAddresses: hexAddresses(schedule.EligibleAddresses),
			ProgressPerMille:  s.contract.GetVestingProgress(token),
		}
	})
	return resp, found
}

func (s *VestingService) EligibleAddresses(ctx context.Context, token common.Address) []common.Address {
	var out []common.Address
	s.view(ctx, func() { out = s.contract.GetEligibleAddresses(token) })
	return out
}

func (s *VestingService) HasActiveSchedule(ctx context.Context, token common.Address) bool {
	var active bool
	s.view(ctx, func() { active = s.contract.HasActiveSchedule(token) })
	return active
}

// VestedAmount computes the vested allocation from the local schedule.
func (s *VestingService) VestedAmount(ctx context.Context, token, account common.Address) *big.Int {
	var vested *big.Int
	s.view(ctx, func() { vested = s.contract.GetVestedAmount(token, account) })
	return vested
}

func (s *VestingService) Position(ctx context.Context, account, token common.Address) dto.AccountPosition {
	var pos dto.AccountPosition
	s.view(ctx, func() {
		vested := s.contract.GetVestedAmount(token, account)
		claimed := s.contract.GetUserClaims(account, token)
		claimable := new(big.Int).Sub(vested, claimed)
		if claimable.Sign() < 0 {
			claimable.SetUint64(0)
		}
		pos = dto.AccountPosition{
			Account:   account.Hex(),
			Token:     token.Hex(),
			Eligible:  s.contract.IsEligible(token, account),
			Vested:    vested.String(),
			Claimed:   claimed.String(),
			Claimable: claimable.String(),
			Deposited: s.contract.GetUserDeposits(account, token).String(),
		}
	})
	return pos
}

func (s *VestingService) Totals(ctx context.Context, token common.Address) (dto.TokenTotals, error) {
	var (
		totals dto.TokenTotals
		err    error
	)
	s.view(ctx, func() {
		deposited := s.contract.GetTotalDeposits(token)
		claimed := s.contract.GetTotalClaims(token)
		totals = dto.TokenTotals{
			Token:          token.Hex(),
			TotalDeposited: deposited.String(),
			TotalClaimed:   claimed.String(),
			Available:      new(big.Int).Sub(deposited, claimed).String(),
			Balance:        "0",
		}
		erc20, ok := s.registry.Token(token)
		if !ok {
			return
		}
		var balance *big.Int
		balance, err = erc20.BalanceOf(ctx, s.contract.Address())
		if err == nil {
			totals.Balance = balance.String()
		}
	})
	return totals, err
}

func (s *VestingService) Tokens(ctx context.Context) dto.TokenList {
	var list dto.TokenList
	s.view(ctx, func() {
		list = dto.TokenList{
			Known:     hexAddresses(s.contract.GetAllKnownTokens()),
			Deposited: hexAddresses(s.contract.GetDepositedTokens()),
		}
	})
	return list
}

func (s *VestingService) Authority(ctx context.Context) common.Address {
	var authority common.Address
	s.view(ctx, func() { authority = s.contract.AuthorityKey() })
	return authority
}

func hexAddresses(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}
