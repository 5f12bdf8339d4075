package services

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"vesting-backend/internal/auth"
	"vesting-backend/internal/dto"
	"vesting-backend/internal/tokens"
	"vesting-backend/internal/vesting"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const (
	testVerifierID = 5
	testStart      = uint64(1_700_000_000)
)

var (
	contractAddr = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	ownerAddr    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	tokenAddr    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice        = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	funder       = common.HexToAddress("0x000000000000000000000000000000000000f00d")
)

type recordingHandler struct {
	mu     sync.Mutex
	name   string
	events []*dto.EventMessage
	err    error
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) HandleEventMessage(_ context.Context, msg *dto.EventMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, msg)
	return h.err
}

func (h *recordingHandler) names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	for i, ev := range h.events {
		out[i] = ev.Name
	}
	return out
}

// callbackToken runs onTransfer inside the payout, before moving funds.
type callbackToken struct {
	*tokens.MemoryToken
	onTransfer func(ctx context.Context)
}

func (c *callbackToken) Transfer(ctx context.Context, sender, to common.Address, amount *big.Int) (bool, error) {
	if c.onTransfer != nil {
		hook := c.onTransfer
		c.onTransfer = nil
		hook(ctx)
	}
	return c.MemoryToken.Transfer(ctx, sender, to, amount)
}

type serviceFixture struct {
	t        *testing.T
	ctx      context.Context
	now      uint64
	svc      *VestingService
	token    *callbackToken
	signer   *auth.Signer
	handler  *recordingHandler
	logs     *test.Hook
	attester *AttestationService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &serviceFixture{
		t:       t,
		ctx:     context.Background(),
		now:     testStart,
		token:   &callbackToken{MemoryToken: tokens.NewMemoryToken(tokenAddr, "VEST")},
		signer:  auth.NewSigner(key),
		handler: &recordingHandler{name: "recorder"},
		logs:    hook,
	}
	registry := tokens.NewRegistry()
	registry.Register(tokenAddr, f.token)

	f.svc, err = NewVestingService(vesting.Config{
		Address:    contractAddr,
		Owner:      ownerAddr,
		VerifierID: testVerifierID,
		Authorizer: auth.NewVerifier(f.signer.Address()),
		Clock:      func() uint64 { return f.now },
	}, registry, logger, f.handler)
	require.NoError(t, err)
	f.attester = NewAttestationService(f.signer, f.svc, logger)
	return f
}

func (f *serviceFixture) scheduleAndFund(total int64, eligible ...common.Address) {
	f.t.Helper()
	require.NoError(f.t, f.svc.SetSchedule(f.ctx, ownerAddr, tokenAddr, vesting.ScheduleParams{
		TotalAmount:       big.NewInt(total),
		StartTime:         testStart,
		VestingDuration:   100,
		EligibleAddresses: eligible,
	}))
	require.NoError(f.t, f.token.Mint(funder, big.NewInt(total)))
	require.NoError(f.t, f.token.Approve(funder, contractAddr, big.NewInt(total)))
	require.NoError(f.t, f.svc.Deposit(f.ctx, funder, tokenAddr, big.NewInt(total)))
}
