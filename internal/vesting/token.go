package vesting

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the minimal ERC20 surface the contract consumes. Transfer and
// TransferFrom hand control to untrusted code.
type Token interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	// TransferFrom moves amount from `from` to `to` using spender's allowance.
	TransferFrom(ctx context.Context, spender, from, to common.Address, amount *big.Int) (bool, error)
	// Transfer moves amount from sender to `to`.
	Transfer(ctx context.Context, sender, to common.Address, amount *big.Int) (bool, error)
}

// TokenResolver maps a token identifier to its implementation.
type TokenResolver interface {
	Token(token common.Address) (Token, bool)
}
