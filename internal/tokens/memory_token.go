// Package tokens provides in-process ERC20 collaborators for development
// deployments and tests.
package tokens

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance   = errors.New("erc20: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("erc20: insufficient allowance")
	ErrZeroAddress           = errors.New("erc20: zero address")
)

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// MemoryToken is a plain ERC20 ledger kept in memory. It has no fee or
// rebasing behaviour.
type MemoryToken struct {
	mu          sync.Mutex
	address     common.Address
	symbol      string
	balances    map[common.Address]*big.Int
	allowances  map[allowanceKey]*big.Int
	totalSupply *big.Int
}

func NewMemoryToken(address common.Address, symbol string) *MemoryToken {
	return &MemoryToken{
		address:     address,
		symbol:      symbol,
		balances:    make(map[common.Address]*big.Int),
		allowances:  make(map[allowanceKey]*big.Int),
		totalSupply: new(big.Int),
	}
}

func (t *MemoryToken) Address() common.Address { return t.address }
func (t *MemoryToken) Symbol() string          { return t.symbol }

func (t *MemoryToken) TotalSupply() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.totalSupply)
}

// Mint credits amount to account.
func (t *MemoryToken) Mint(account common.Address, amount *big.Int) error {
	if account == (common.Address{}) {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] = new(big.Int).Add(t.balanceLocked(account), amount)
	t.totalSupply.Add(t.totalSupply, amount)
	return nil
}

// Approve sets spender's allowance over owner's balance.
func (t *MemoryToken) Approve(owner, spender common.Address, amount *big.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowances[allowanceKey{owner, spender}] = new(big.Int).Set(amount)
	return nil
}

func (t *MemoryToken) BalanceOf(_ context.Context, account common.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balanceLocked(account), nil
}

func (t *MemoryToken) Allowance(_ context.Context, owner, spender common.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.allowances[allowanceKey{owner, spender}]; ok {
		return new(big.Int).Set(a), nil
	}
	return new(big.Int), nil
}

func (t *MemoryToken) TransferFrom(_ context.Context, spender, from, to common.Address, amount *big.Int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := allowanceKey{from, spender}
	allowance, ok := t.allowances[k]
	if !ok || allowance.Cmp(amount) < 0 {
		return false, ErrInsufficientAllowance
	}
	if err := t.moveLocked(from, to, amount); err != nil {
		return false, err
	}
	t.allowances[k] = new(big.Int).Sub(allowance, amount)
	return true, nil
}

func (t *MemoryToken) Transfer(_ context.Context, sender, to common.Address, amount *big.Int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.moveLocked(sender, to, amount); err != nil {
		return false, err
	}
	return true, nil
}

func (t *MemoryToken) moveLocked(from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	balance := t.balanceLocked(from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	t.balances[from] = balance.Sub(balance, amount)
	t.balances[to] = new(big.Int).Add(t.balanceLocked(to), amount)
	return nil
}

func (t *MemoryToken) balanceLocked(account common.Address) *big.Int {
	if b, ok := t.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}
