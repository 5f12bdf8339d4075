package vesting

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Schedule is the vesting configuration of one token. TotalAmount is the
// allocation of each eligible account, not an aggregate.
type Schedule struct {
	Token             common.Address   `json:"token"`
	TotalAmount       *big.Int         `json:"total_amount"`
	StartTime         uint64           `json:"start_time"`
	CliffDuration     uint64           `json:"cliff_duration"`
	VestingDuration   uint64           `json:"vesting_duration"`
	IsActive          bool             `json:"is_active"`
	Creator           common.Address   `json:"creator"`
	EligibleAddresses []common.Address `json:"eligible_addresses"`
}

// ScheduleParams is the input of SetSchedule.
type ScheduleParams struct {
	TotalAmount       *big.Int
	StartTime         uint64
	CliffDuration     uint64
	VestingDuration   uint64
	EligibleAddresses []common.Address
}

type scheduleEntry struct {
	schedule Schedule
	// eligible is the source of truth; index is derived from it and maps an
	// account to its position. Order is not stable across removals.
	eligible []common.Address
	index    map[common.Address]int
}

// ScheduleStore holds one schedule per token plus its eligibility set.
type ScheduleStore struct {
	schedules map[common.Address]*scheduleEntry
	known     []common.Address
	journal   *journal
}

func newScheduleStore(j *journal) *ScheduleStore {
	return &ScheduleStore{
		schedules: make(map[common.Address]*scheduleEntry),
		journal:   j,
	}
}

func validateSchedule(token common.Address, p ScheduleParams) error {
	switch {
	case token == (common.Address{}):
		return validationError("token is the zero address")
	case p.TotalAmount == nil || p.TotalAmount.Sign() <= 0:
		return validationError("total amount must be positive")
	case p.StartTime == 0:
		return validationError("start time must be positive")
	case p.VestingDuration == 0:
		return validationError("vesting duration must be positive")
	case len(p.EligibleAddresses) == 0:
		return validationError("eligible address list is empty")
	}

	seen := make(map[common.Address]struct{}, len(p.EligibleAddresses))
	for i, addr := range p.EligibleAddresses {
		if addr == (common.Address{}) {
			return validationError("eligible address %d is the zero address", i)
		}
		if _, dup := seen[addr]; dup {
			return validationError("eligible address %s is duplicated", addr.Hex())
		}
		seen[addr] = struct{}{}
	}
	return nil
}

// set installs a schedule, fully replacing any previous one and its
// eligibility set. It reports whether a schedule already existed.
func (s *ScheduleStore) set(creator, token common.Address, p ScheduleParams) (bool, error) {
	if err := validateSchedule(token, p); err != nil {
		return false, err
	}

	entry := &scheduleEntry{
		schedule: Schedule{
			Token:           token,
			TotalAmount:     new(big.Int).Set(p.TotalAmount),
			StartTime:       p.StartTime,
			CliffDuration:   p.CliffDuration,
			VestingDuration: p.VestingDuration,
			IsActive:        true,
			Creator:         creator,
		},
		eligible: make([]common.Address, 0, len(p.EligibleAddresses)),
		index:    make(map[common.Address]int, len(p.EligibleAddresses)),
	}
	for _, addr := range p.EligibleAddresses {
		entry.index[addr] = len(entry.eligible)
		entry.eligible = append(entry.eligible, addr)
	}

	previous, existed := s.schedules[token]
	s.schedules[token] = entry
	s.journal.record(func() {
		if existed {
			s.schedules[token] = previous
		} else {
			delete(s.schedules, token)
		}
	})

	if !existed {
		s.known = append(s.known, token)
		s.journal.record(func() { s.known = s.known[:len(s.known)-1] })
	}
	return existed, nil
}

func (s *ScheduleStore) active(token common.Address) (*scheduleEntry, error) {
	entry, ok := s.schedules[token]
	if !ok || !entry.schedule.IsActive {
		return nil, ErrNoActiveSchedule
	}
	return entry, nil
}

func (s *ScheduleStore) addEligible(token, addr common.Address) error {
	if addr == (common.Address{}) {
		return validationError("address is the zero address")
	}
	entry, err := s.active(token)
	if err != nil {
		return err
	}
	if _, ok := entry.index[addr]; ok {
		return ErrAlreadyEligible
	}

	entry.index[addr] = len(entry.eligible)
	entry.eligible = append(entry.eligible, addr)
	s.journal.record(func() {
		entry.eligible = entry.eligible[:len(entry.eligible)-1]
		delete(entry.index, addr)
	})
	return nil
}

// removeEligible swap-removes addr in O(1).
func (s *ScheduleStore) removeEligible(token, addr common.Address) error {
	entry, err := s.active(token)
	if err != nil {
		return err
	}
	pos, ok := entry.index[addr]
	if !ok {
		return ErrNotEligible
	}

	lastPos := len(entry.eligible) - 1
	last := entry.eligible[lastPos]
	entry.eligible[pos] = last
	entry.index[last] = pos
	entry.eligible = entry.eligible[:lastPos]
	delete(entry.index, addr)

	s.journal.record(func() {
		entry.eligible = append(entry.eligible, last)
		entry.index[last] = lastPos
		entry.eligible[pos] = addr
		entry.index[addr] = pos
	})
	return nil
}

func (s *ScheduleStore) isEligible(token, addr common.Address) bool {
	entry, ok := s.schedules[token]
	if !ok {
		return false
	}
	_, eligible := entry.index[addr]
	return eligible
}

// schedule returns the internal schedule without its eligibility list.
func (s *ScheduleStore) schedule(token common.Address) *Schedule {
	entry, ok := s.schedules[token]
	if !ok {
		return nil
	}
	return &entry.schedule
}

// Schedule returns a copy of the schedule of token.
func (s *ScheduleStore) Schedule(token common.Address) (Schedule, bool) {
	entry, ok := s.schedules[token]
	if !ok {
		return Schedule{}, false
	}
	out := entry.schedule
	out.TotalAmount = new(big.Int).Set(entry.schedule.TotalAmount)
	out.EligibleAddresses = s.EligibleAddresses(token)
	return out, true
}

// EligibleAddresses returns a copy of the eligibility list. Callers must not
// rely on its order.
func (s *ScheduleStore) EligibleAddresses(token common.Address) []common.Address {
	entry, ok := s.schedules[token]
	if !ok {
		return []common.Address{}
	}
	out := make([]common.Address, len(entry.eligible))
	copy(out, entry.eligible)
	return out
}

func (s *ScheduleStore) KnownTokens() []common.Address {
	out := make([]common.Address, len(s.known))
	copy(out, s.known)
	return out
}

func (s *ScheduleStore) HasActiveSchedule(token common.Address) bool {
	_, err := s.active(token)
	return err == nil
}
