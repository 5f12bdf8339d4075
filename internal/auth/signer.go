package auth

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Attestation is what the authority asserts for one call.
type Attestation struct {
	Body         []byte
	Params       []byte
	Nonce        *big.Int
	FinalOpinion bool
}

// Signer produces authorization payloads on behalf of the authority.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// NewSignerFromHex parses a hex private key with or without 0x prefix.
func NewSignerFromHex(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewSigner(key), nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

// Sign signs the EIP-191 prefixed digest and returns [R||S||V] with V in {27,28}.
func (s *Signer) Sign(digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(digest.Bytes()), s.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Authorize builds the payload binding att to caller and functionParams.
func (s *Signer) Authorize(caller common.Address, functionParams []byte, att Attestation) (Payload, error) {
	responseSig, err := s.Sign(ResponseDigest(att.Body, caller))
	if err != nil {
		return Payload{}, fmt.Errorf("sign response: %w", err)
	}

	paramsDigest := ParamsDigest(att.Params, caller)
	callSig, err := s.Sign(DataDigest(functionParams, paramsDigest, caller, att.Nonce, att.FinalOpinion))
	if err != nil {
		return Payload{}, fmt.Errorf("sign call: %w", err)
	}

	encoded, err := (&Auth{
		ResponseSignature: responseSig,
		ParamsDigest:      paramsDigest,
		CallSignature:     callSig,
		Nonce:             att.Nonce,
		FinalOpinion:      att.FinalOpinion,
	}).Encode()
	if err != nil {
		return Payload{}, fmt.Errorf("encode auth: %w", err)
	}

	return Payload{
		Auth:              encoded,
		AttestationBody:   att.Body,
		AttestationParams: att.Params,
	}, nil
}
