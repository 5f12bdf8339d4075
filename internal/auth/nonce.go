package auth

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NonceRegistry records the (caller, nonce) pairs of accepted payloads so a
// payload cannot be replayed verbatim. The call signature already binds the
// nonce to its caller, so nonces are scoped per caller.
type NonceRegistry struct {
	mu   sync.Mutex
	used map[nonceKey]struct{}
}

type nonceKey struct {
	caller common.Address
	nonce  string
}

func NewNonceRegistry() *NonceRegistry {
	return &NonceRegistry{used: make(map[nonceKey]struct{})}
}

func (r *NonceRegistry) IsUsed(caller common.Address, nonce *big.Int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.used[key(caller, nonce)]
	return ok
}

// Consume marks nonce as used by caller, failing with ErrNonceReplayed if it already was.
func (r *NonceRegistry) Consume(caller common.Address, nonce *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(caller, nonce)
	if _, ok := r.used[k]; ok {
		return ErrNonceReplayed
	}
	r.used[k] = struct{}{}
	return nil
}

// Release undoes Consume when the surrounding call is reverted.
func (r *NonceRegistry) Release(caller common.Address, nonce *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.used, key(caller, nonce))
}

func key(caller common.Address, nonce *big.Int) nonceKey {
	if nonce == nil {
		return nonceKey{caller: caller, nonce: "0"}
	}
	return nonceKey{caller: caller, nonce: nonce.String()}
}
