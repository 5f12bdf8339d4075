package vesting

import (
	"math/big"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

type accountKey struct {
	account common.Address
	token   common.Address
}

// Ledger tracks per-account deposits and claims plus per-token aggregates.
// Deposits and claims are pooled per token: a deposit is not earmarked for
// any claimant.
type Ledger struct {
	deposited      map[accountKey]*big.Int
	claimed        map[accountKey]*big.Int
	totalDeposited map[common.Address]*big.Int
	totalClaimed   map[common.Address]*big.Int
	tokens         []common.Address
	tokenSet       mapset.Set[common.Address]
	journal        *journal
}

func newLedger(j *journal) *Ledger {
	return &Ledger{
		deposited:      make(map[accountKey]*big.Int),
		claimed:        make(map[accountKey]*big.Int),
		totalDeposited: make(map[common.Address]*big.Int),
		totalClaimed:   make(map[common.Address]*big.Int),
		tokenSet:       mapset.NewThreadUnsafeSet[common.Address](),
		journal:        j,
	}
}

func valueOf(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func (l *Ledger) Deposited(account, token common.Address) *big.Int {
	return valueOf(l.deposited[accountKey{account, token}])
}

func (l *Ledger) Claimed(account, token common.Address) *big.Int {
	return valueOf(l.claimed[accountKey{account, token}])
}

func (l *Ledger) TotalDeposited(token common.Address) *big.Int {
	return valueOf(l.totalDeposited[token])
}

func (l *Ledger) TotalClaimed(token common.Address) *big.Int {
	return valueOf(l.totalClaimed[token])
}

// Available is the pooled amount of token not yet claimed, floored at zero.
func (l *Ledger) Available(token common.Address) *big.Int {
	available := new(big.Int).Sub(l.TotalDeposited(token), l.TotalClaimed(token))
	if available.Sign() < 0 {
		return new(big.Int)
	}
	return available
}

// Tokens lists every token that has ever been deposited, in first-deposit order.
func (l *Ledger) Tokens() []common.Address {
	out := make([]common.Address, len(l.tokens))
	copy(out, l.tokens)
	return out
}

func (l *Ledger) recordDeposit(account, token common.Address, amount *big.Int) {
	if l.tokenSet.Add(token) {
		l.tokens = append(l.tokens, token)
		l.journal.record(func() {
			l.tokenSet.Remove(token)
			l.tokens = l.tokens[:len(l.tokens)-1]
		})
	}
	addAccount(l, l.deposited, accountKey{account, token}, amount)
	addTotal(l, l.totalDeposited, token, amount)
}

func (l *Ledger) recordClaim(account, token common.Address, amount *big.Int) {
	addAccount(l, l.claimed, accountKey{account, token}, amount)
	addTotal(l, l.totalClaimed, token, amount)
}

func (l *Ledger) recordWithdrawal(account, token common.Address, amount *big.Int) {
	negated := new(big.Int).Neg(amount)
	addAccount(l, l.deposited, accountKey{account, token}, negated)
	addTotal(l, l.totalDeposited, token, negated)
}

func addAccount(l *Ledger, m map[accountKey]*big.Int, k accountKey, delta *big.Int) {
	previous, existed := m[k]
	m[k] = new(big.Int).Add(valueOf(previous), delta)
	l.journal.record(func() {
		if existed {
			m[k] = previous
		} else {
			delete(m, k)
		}
	})
}

func addTotal(l *Ledger, m map[common.Address]*big.Int, token common.Address, delta *big.Int) {
	previous, existed := m[token]
	m[token] = new(big.Int).Add(valueOf(previous), delta)
	l.journal.record(func() {
		if existed {
			m[token] = previous
		} else {
			delete(m, token)
		}
	})
}
