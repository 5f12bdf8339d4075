// Package vesting holds per-token vesting schedules and the deposit/claim
// ledger. Claims are authorized by an external attestation of the vested
// amount rather than by the local schedule.
package vesting

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"vesting-backend/internal/auth"

	"github.com/ethereum/go-ethereum/common"
)

// Authorizer validates claim payloads. *auth.Verifier implements it.
type Authorizer interface {
	Verify(payload auth.Payload, caller common.Address, functionParams []byte) (*auth.Auth, error)
	Authority() common.Address
	SetAuthority(authority common.Address)
}

// Config wires a Contract to its collaborators.
type Config struct {
	// Address is the contract's own account: spender for deposits, sender for payouts.
	Address common.Address
	// Owner is the only account allowed to rotate the authority key.
	Owner common.Address
	// VerifierID selects the attestation entry carrying the vested amount.
	VerifierID uint64
	Tokens     TokenResolver
	Authorizer Authorizer
	Nonces     *auth.NonceRegistry
	Sink       EventSink
	Clock      func() uint64
}

// Contract executes vesting calls atomically: each call either commits all
// of its effects or none. It is not safe for concurrent use; callers
// serialize access (see services.VestingService).
type Contract struct {
	address    common.Address
	owner      common.Address
	verifierID uint64

	schedules  *ScheduleStore
	ledger     *Ledger
	tokens     TokenResolver
	authorizer Authorizer
	nonces     *auth.NonceRegistry
	sink       EventSink
	clock      func() uint64

	journal journal
	pending []Event
	depth   int
	locked  bool
}

func NewContract(cfg Config) (*Contract, error) {
	if cfg.Address == (common.Address{}) {
		return nil, errors.New("contract address is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token resolver is required")
	}
	if cfg.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}

	c := &Contract{
		address:    cfg.Address,
		owner:      cfg.Owner,
		verifierID: cfg.VerifierID,
		tokens:     cfg.Tokens,
		authorizer: cfg.Authorizer,
		nonces:     cfg.Nonces,
		sink:       cfg.Sink,
		clock:      cfg.Clock,
	}
	if c.nonces == nil {
		c.nonces = auth.NewNonceRegistry()
	}
	if c.sink == nil {
		c.sink = discardSink{}
	}
	if c.clock == nil {
		c.clock = func() uint64 { return uint64(time.Now().Unix()) }
	}
	c.schedules = newScheduleStore(&c.journal)
	c.ledger = newLedger(&c.journal)
	return c, nil
}

func (c *Contract) Address() common.Address { return c.address }
func (c *Contract) Owner() common.Address   { return c.owner }
func (c *Contract) VerifierID() uint64      { return c.verifierID }

// run executes fn as one call frame. A failing frame reverts only its own
// mutations and events; the outermost frame commits and flushes events.
func (c *Contract) run(ctx context.Context, fn func() error) error {
	cp, emitted := c.journal.checkpoint(), len(c.pending)
	c.depth++
	err := fn()
	c.depth--

	if err != nil {
		c.journal.revertTo(cp)
		c.pending = c.pending[:emitted]
		return err
	}
	if c.depth > 0 {
		return nil
	}

	c.journal.commit()
	events := c.pending
	c.pending = nil
	for _, ev := range events {
		c.sink.HandleEvent(ctx, ev)
	}
	return nil
}

// nonReentrant holds the single latch shared by deposit, claim and withdraw.
func (c *Contract) nonReentrant(fn func() error) error {
	if c.locked {
		return ErrReentrancy
	}
	c.locked = true
	defer func() { c.locked = false }()
	return fn()
}

func (c *Contract) emit(ev Event) {
	ev.Timestamp = c.clock()
	c.pending = append(c.pending, ev)
}

func (c *Contract) token(addr common.Address) (Token, error) {
	token, ok := c.tokens.Token(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr.Hex())
	}
	return token, nil
}

func requirePositive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return validationError("amount must be positive")
	}
	return nil
}

// SetSchedule installs or fully replaces the schedule of token. Open to any caller.
func (c *Contract) SetSchedule(ctx context.Context, from, token common.Address, p ScheduleParams) error {
	return c.run(ctx, func() error {
		existed, err := c.schedules.set(from, token, p)
		if err != nil {
			return err
		}
		name := EventScheduleCreated
		if existed {
			name = EventScheduleUpdated
		}
		c.emit(Event{
			Name:            name,
			Token:           token,
			Account:         from,
			Amount:          new(big.Int).Set(p.TotalAmount),
			StartTime:       p.StartTime,
			CliffDuration:   p.CliffDuration,
			VestingDuration: p.VestingDuration,
			EligibleCount:   len(p.EligibleAddresses),
		})
		return nil
	})
}

func (c *Contract) AddEligibleAddress(ctx context.Context, from, token, addr common.Address) error {
	return c.run(ctx, func() error {
		if err := c.schedules.addEligible(token, addr); err != nil {
			return err
		}
		c.emit(Event{Name: EventEligibilityAdded, Token: token, Account: addr})
		return nil
	})
}

// RemoveEligibleAddress revokes eligibility. Claim history of addr is kept.
func (c *Contract) RemoveEligibleAddress(ctx context.Context, from, token, addr common.Address) error {
	return c.run(ctx, func() error {
		if err := c.schedules.removeEligible(token, addr); err != nil {
			return err
		}
		c.emit(Event{Name: EventEligibilityRemoved, Token: token, Account: addr})
		return nil
	})
}

// DepositTokens pulls amount of token from `from` into the pool.
func (c *Contract) DepositTokens(ctx context.Context, from, token common.Address, amount *big.Int) error {
	return c.run(ctx, func() error {
		return c.nonReentrant(func() error {
			if err := requirePositive(amount); err != nil {
				return err
			}
			erc20, err := c.token(token)
			if err != nil {
				return err
			}

			balance, err := erc20.BalanceOf(ctx, from)
			if err != nil {
				return fmt.Errorf("read balance: %w", err)
			}
			if balance.Cmp(amount) < 0 {
				return ErrInsufficientExternalBalance
			}
			allowance, err := erc20.Allowance(ctx, from, c.address)
			if err != nil {
				return fmt.Errorf("read allowance: %w", err)
			}
			if allowance.Cmp(amount) < 0 {
				return ErrInsufficientAllowance
			}

			ok, err := erc20.TransferFrom(ctx, c.address, from, c.address, amount)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
			if !ok {
				return ErrTransferFailed
			}

			c.ledger.recordDeposit(from, token, amount)
			c.emit(Event{Name: EventDeposited, Token: token, Account: from, Amount: new(big.Int).Set(amount)})
			return nil
		})
	})
}

// ClaimTokens pays out amount of token to `from` if payload attests enough
// vested, unclaimed allocation. The binding is EncodeClaimParams(token, amount).
func (c *Contract) ClaimTokens(ctx context.Context, from common.Address, payload auth.Payload, token common.Address, amount *big.Int) error {
	return c.run(ctx, func() error {
		return c.nonReentrant(func() error {
			if err := requirePositive(amount); err != nil {
				return err
			}
			params, err := auth.EncodeClaimParams(token, amount)
			if err != nil {
				return validationError("encode claim params: %v", err)
			}
			authorization, err := c.authorizer.Verify(payload, from, params)
			if err != nil {
				return err
			}
			if c.nonces.IsUsed(from, authorization.Nonce) {
				return auth.ErrNonceReplayed
			}

			entries, err := auth.DecodeAttestationBody(payload.AttestationBody)
			if err != nil {
				return err
			}
			vested, err := auth.AttestedAmount(entries, c.verifierID)
			if err != nil {
				return err
			}

			claimable := new(big.Int).Sub(vested, c.ledger.Claimed(from, token))
			if claimable.Sign() < 0 {
				claimable.SetUint64(0)
			}
			if amount.Cmp(claimable) > 0 {
				return fmt.Errorf("%w: requested %s, claimable %s", ErrExceedsVestedAmount, amount, claimable)
			}

			erc20, err := c.token(token)
			if err != nil {
				return err
			}
			if err := c.requireLiquidity(ctx, erc20, token, amount); err != nil {
				return err
			}

			c.ledger.recordClaim(from, token, amount)
			if err := c.nonces.Consume(from, authorization.Nonce); err != nil {
				return err
			}
			nonce := authorization.Nonce
			c.journal.record(func() { c.nonces.Release(from, nonce) })

			if err := c.payOut(ctx, erc20, from, amount); err != nil {
				return err
			}
			c.emit(Event{
				Name:    EventClaimed,
				Token:   token,
				Account: from,
				Amount:  new(big.Int).Set(amount),
				Nonce:   new(big.Int).Set(nonce),
			})
			return nil
		})
	})
}

// WithdrawTokens returns up to the caller's own deposit.
func (c *Contract) WithdrawTokens(ctx context.Context, from, token common.Address, amount *big.Int) error {
	return c.run(ctx, func() error {
		return c.nonReentrant(func() error {
			if err := requirePositive(amount); err != nil {
				return err
			}
			if amount.Cmp(c.ledger.Deposited(from, token)) > 0 {
				return ErrExceedsDeposit
			}
			erc20, err := c.token(token)
			if err != nil {
				return err
			}
			if err := c.requireLiquidity(ctx, erc20, token, amount); err != nil {
				return err
			}

			c.ledger.recordWithdrawal(from, token, amount)
			if err := c.payOut(ctx, erc20, from, amount); err != nil {
				return err
			}
			c.emit(Event{Name: EventWithdrawn, Token: token, Account: from, Amount: new(big.Int).Set(amount)})
			return nil
		})
	})
}

// requireLiquidity checks amount against both the pooled ledger and the
// live balance, so totalClaimed never exceeds totalDeposited.
func (c *Contract) requireLiquidity(ctx context.Context, erc20 Token, token common.Address, amount *big.Int) error {
	if amount.Cmp(c.ledger.Available(token)) > 0 {
		return fmt.Errorf("%w: pool holds %s", ErrInsufficientContractBalance, c.ledger.Available(token))
	}
	held, err := erc20.BalanceOf(ctx, c.address)
	if err != nil {
		return fmt.Errorf("read contract balance: %w", err)
	}
	if held.Cmp(amount) < 0 {
		return fmt.Errorf("%w: contract holds %s", ErrInsufficientContractBalance, held)
	}
	return nil
}

func (c *Contract) payOut(ctx context.Context, erc20 Token, to common.Address, amount *big.Int) error {
	ok, err := erc20.Transfer(ctx, c.address, to, amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !ok {
		return ErrTransferFailed
	}
	return nil
}

// SetAuthorityKey rotates the trusted attestation key. Owner only.
func (c *Contract) SetAuthorityKey(ctx context.Context, from, authority common.Address) error {
	return c.run(ctx, func() error {
		if from != c.owner {
			return ErrUnauthorized
		}
		if authority == (common.Address{}) {
			return validationError("authority is the zero address")
		}
		previous := c.authorizer.Authority()
		c.authorizer.SetAuthority(authority)
		c.journal.record(func() { c.authorizer.SetAuthority(previous) })
		c.emit(Event{Name: EventAuthorityKeyUpdated, Account: authority, PreviousAuthority: previous})
		return nil
	})
}

// Queries

func (c *Contract) GetVestedAmount(token, user common.Address) *big.Int {
	return VestedAmount(c.schedules.schedule(token), c.clock(), c.schedules.isEligible(token, user))
}

func (c *Contract) GetVestingSchedule(token common.Address) (Schedule, bool) {
	return c.schedules.Schedule(token)
}

func (c *Contract) GetEligibleAddresses(token common.Address) []common.Address {
	return c.schedules.EligibleAddresses(token)
}

func (c *Contract) IsEligible(token, user common.Address) bool {
	return c.schedules.isEligible(token, user)
}

func (c *Contract) GetAllKnownTokens() []common.Address {
	return c.schedules.KnownTokens()
}

func (c *Contract) HasActiveSchedule(token common.Address) bool {
	return c.schedules.HasActiveSchedule(token)
}

// GetVestingProgress returns schedule-wide progress in per-mille.
func (c *Contract) GetVestingProgress(token common.Address) uint64 {
	return VestingProgress(c.schedules.schedule(token), c.clock())
}

func (c *Contract) GetUserDeposits(user, token common.Address) *big.Int {
	return c.ledger.Deposited(user, token)
}

func (c *Contract) GetUserClaims(user, token common.Address) *big.Int {
	return c.ledger.Claimed(user, token)
}

func (c *Contract) GetTotalDeposits(token common.Address) *big.Int {
	return c.ledger.TotalDeposited(token)
}

func (c *Contract) GetTotalClaims(token common.Address) *big.Int {
	return c.ledger.TotalClaimed(token)
}

func (c *Contract) GetDepositedTokens() []common.Address {
	return c.ledger.Tokens()
}

func (c *Contract) AuthorityKey() common.Address {
	return c.authorizer.Authority()
}
