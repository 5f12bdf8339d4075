package vesting_test

import (
	"context"
	"math/big"
	"testing"

	"vesting-backend/internal/auth"
	"vesting-backend/internal/tokens"
	"vesting-backend/internal/vesting"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const (
	testVerifierID = 3
	start          = uint64(1_700_000_000)
)

var (
	contractAddr  = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	ownerAddr     = common.HexToAddress("0x0000000000000000000000000000000000000001")
	tokenAddr     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice         = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob           = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol         = common.HexToAddress("0x000000000000000000000000000000000000ca01")
	depositorAddr = common.HexToAddress("0x000000000000000000000000000000000000d001")
)

// hookToken lets tests run code inside the payout transfer, the only point
// where the contract hands control to untrusted code.
type hookToken struct {
	*tokens.MemoryToken
	onTransfer func(ctx context.Context)
	refuse     bool
}

func (h *hookToken) Transfer(ctx context.Context, sender, to common.Address, amount *big.Int) (bool, error) {
	if h.onTransfer != nil {
		h.onTransfer(ctx)
	}
	if h.refuse {
		return false, nil
	}
	return h.MemoryToken.Transfer(ctx, sender, to, amount)
}

type recordingSink struct {
	events []vesting.Event
}

func (s *recordingSink) HandleEvent(_ context.Context, ev vesting.Event) {
	s.events = append(s.events, ev)
}

func (s *recordingSink) names() []string {
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Name)
	}
	return out
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	now      uint64
	contract *vesting.Contract
	token    *hookToken
	signer   *auth.Signer
	verifier *auth.Verifier
	sink     *recordingSink
	nonce    int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		now:    start,
		token:  &hookToken{MemoryToken: tokens.NewMemoryToken(tokenAddr, "VEST")},
		signer: auth.NewSigner(key),
		sink:   &recordingSink{},
	}
	f.verifier = auth.NewVerifier(f.signer.Address())

	registry := tokens.NewRegistry()
	registry.Register(tokenAddr, f.token)

	f.contract, err = vesting.NewContract(vesting.Config{
		Address:    contractAddr,
		Owner:      ownerAddr,
		VerifierID: testVerifierID,
		Tokens:     registry,
		Authorizer: f.verifier,
		Sink:       f.sink,
		Clock:      func() uint64 { return f.now },
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) schedule(total int64, cliff, duration uint64, eligible ...common.Address) {
	f.t.Helper()
	require.NoError(f.t, f.contract.SetSchedule(f.ctx, ownerAddr, tokenAddr, vesting.ScheduleParams{
		TotalAmount:       big.NewInt(total),
		StartTime:         start,
		CliffDuration:     cliff,
		VestingDuration:   duration,
		EligibleAddresses: eligible,
	}))
}

func (f *fixture) fund(depositor common.Address, amount int64) {
	f.t.Helper()
	require.NoError(f.t, f.token.Mint(depositor, big.NewInt(amount)))
	require.NoError(f.t, f.token.Approve(depositor, contractAddr, big.NewInt(amount)))
	require.NoError(f.t, f.contract.DepositTokens(f.ctx, depositor, tokenAddr, big.NewInt(amount)))
}

// payload attests vested for caller and binds it to a claim of amount.
func (f *fixture) payload(caller common.Address, amount, vested int64) auth.Payload {
	f.t.Helper()
	f.nonce++
	return f.payloadWithNonce(caller, amount, vested, f.nonce)
}

func (f *fixture) payloadWithNonce(caller common.Address, amount, vested, nonce int64) auth.Payload {
	f.t.Helper()
	result, err := auth.EncodeUint256(big.NewInt(vested))
	require.NoError(f.t, err)
	body, err := auth.EncodeAttestationBody([]auth.AttestationEntry{
		{VerifierID: big.NewInt(testVerifierID), Result: result},
	})
	require.NoError(f.t, err)
	params, err := auth.EncodeClaimParams(tokenAddr, big.NewInt(amount))
	require.NoError(f.t, err)

	p, err := f.signer.Authorize(caller, params, auth.Attestation{
		Body:         body,
		Params:       []byte("vesting-claim"),
		Nonce:        big.NewInt(nonce),
		FinalOpinion: true,
	})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) claim(caller common.Address, amount, vested int64) error {
	return f.contract.ClaimTokens(f.ctx, caller, f.payload(caller, amount, vested), tokenAddr, big.NewInt(amount))
}

func (f *fixture) balance(account common.Address) *big.Int {
	b, err := f.token.BalanceOf(f.ctx, account)
	require.NoError(f.t, err)
	return b
}

// requireAggregates checks that per-token totals equal the sums over accounts.
func (f *fixture) requireAggregates(accounts ...common.Address) {
	f.t.Helper()
	deposited, claimed := new(big.Int), new(big.Int)
	for _, a := range accounts {
		deposited.Add(deposited, f.contract.GetUserDeposits(a, tokenAddr))
		claimed.Add(claimed, f.contract.GetUserClaims(a, tokenAddr))
	}
	require.Equal(f.t, deposited.String(), f.contract.GetTotalDeposits(tokenAddr).String())
	require.Equal(f.t, claimed.String(), f.contract.GetTotalClaims(tokenAddr).String())
	require.LessOrEqual(f.t, f.contract.GetTotalClaims(tokenAddr).Cmp(f.contract.GetTotalDeposits(tokenAddr)), 0)
}

func requireAmount(t *testing.T, want int64, got *big.Int) {
	t.Helper()
	require.Equal(t, big.NewInt(want).String(), got.String())
}
