package tokens

import (
	"sort"
	"sync"

	"vesting-backend/internal/vesting"

	"github.com/ethereum/go-ethereum/common"
)

// Registry resolves token addresses to their implementation.
type Registry struct {
	mu     sync.RWMutex
	tokens map[common.Address]vesting.Token
}

func NewRegistry() *Registry {
	return &Registry{tokens: make(map[common.Address]vesting.Token)}
}

func (r *Registry) Register(addr common.Address, token vesting.Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[addr] = token
}

func (r *Registry) Token(addr common.Address) (vesting.Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[addr]
	return token, ok
}

// Memory returns the token at addr if it is a MemoryToken.
func (r *Registry) Memory(addr common.Address) (*MemoryToken, bool) {
	token, ok := r.Token(addr)
	if !ok {
		return nil, false
	}
	mem, ok := token.(*MemoryToken)
	return mem, ok
}

// Addresses lists registered tokens in byte order.
func (r *Registry) Addresses() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.Address, 0, len(r.tokens))
	for addr := range r.tokens {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}
