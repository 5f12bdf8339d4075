package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"vesting-backend/internal/auth"
	"vesting-backend/internal/metrics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// attestationParams is what the attester was asked to verify.
type attestationParams struct {
	Contract   string `json:"contract"`
	VerifierID uint64 `json:"verifier_id"`
	Token      string `json:"token"`
	Account    string `json:"account"`
	IssuedAt   int64  `json:"issued_at"`
}

// AttestationService is the off-chain attester: it reads the vested amount
// from the local schedule and signs an authorization payload for one claim.
type AttestationService struct {
	signer  *auth.Signer
	vesting *VestingService
	now     func() time.Time
	logger  *logrus.Entry
}

func NewAttestationService(signer *auth.Signer, vesting *VestingService, logger *logrus.Logger) *AttestationService {
	return &AttestationService{
		signer:  signer,
		vesting: vesting,
		now:     time.Now,
		logger:  logger.WithField("component", "attester"),
	}
}

func (a *AttestationService) Address() common.Address {
	return a.signer.Address()
}

// Attest signs a payload allowing caller to claim amount of token.
func (a *AttestationService) Attest(ctx context.Context, caller, token common.Address, amount *big.Int) (auth.Payload, error) {
	payload, err := a.attest(ctx, caller, token, amount)
	if err != nil {
		metrics.AttestationsIssued.WithLabelValues("error").Inc()
		return auth.Payload{}, err
	}
	metrics.AttestationsIssued.WithLabelValues("ok").Inc()
	return payload, nil
}

func (a *AttestationService) attest(ctx context.Context, caller, token common.Address, amount *big.Int) (auth.Payload, error) {
	vested := a.vesting.VestedAmount(ctx, token, caller)
	if vested.Sign() == 0 {
		return auth.Payload{}, fmt.Errorf("%w: %s has nothing vested for %s", auth.ErrNoVestedAmount, caller.Hex(), token.Hex())
	}

	result, err := auth.EncodeUint256(vested)
	if err != nil {
		return auth.Payload{}, err
	}
	body, err := auth.EncodeAttestationBody([]auth.AttestationEntry{{
		VerifierID: new(big.Int).SetUint64(a.vesting.VerifierID()),
		Result:     result,
	}})
	if err != nil {
		return auth.Payload{}, err
	}
	params, err := json.Marshal(attestationParams{
		Contract:   a.vesting.ContractAddress().Hex(),
		VerifierID: a.vesting.VerifierID(),
		Token:      token.Hex(),
		Account:    caller.Hex(),
		IssuedAt:   a.now().Unix(),
	})
	if err != nil {
		return auth.Payload{}, err
	}
	functionParams, err := auth.EncodeClaimParams(token, amount)
	if err != nil {
		return auth.Payload{}, err
	}

	id := uuid.New()
	nonce := new(big.Int).SetBytes(id[:])
	payload, err := a.signer.Authorize(caller, functionParams, auth.Attestation{
		Body:         body,
		Params:       params,
		Nonce:        nonce,
		FinalOpinion: true,
	})
	if err != nil {
		return auth.Payload{}, err
	}

	a.logger.WithFields(logrus.Fields{
		"caller": caller.Hex(),
		"token":  token.Hex(),
		"amount": amount.String(),
		"vested": vested.String(),
		"nonce":  id.String(),
	}).Info("Attestation issued")
	return payload, nil
}
