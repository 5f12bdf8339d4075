package auth

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Verifier checks authorization payloads against a single trusted authority.
// Both signatures of the chain are checked against the same key.
type Verifier struct {
	mu        sync.RWMutex
	authority common.Address
}

// NewVerifier creates a Verifier trusting authority.
func NewVerifier(authority common.Address) *Verifier {
	return &Verifier{authority: authority}
}

func (v *Verifier) Authority() common.Address {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.authority
}

// SetAuthority replaces the trusted key. Callers enforce privilege.
func (v *Verifier) SetAuthority(authority common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.authority = authority
}

// Verify validates payload for caller and the encoded call parameters. On
// success the attestation body can be trusted as authority-issued for this
// exact (caller, functionParams, nonce) triple; the decoded auth is returned
// so the caller can consume its nonce.
func (v *Verifier) Verify(payload Payload, caller common.Address, functionParams []byte) (*Auth, error) {
	auth, err := DecodeAuth(payload.Auth)
	if err != nil {
		return nil, err
	}
	if !auth.FinalOpinion {
		return nil, ErrAttestationDenied
	}

	authority := v.Authority()

	signer, err := RecoverSigner(ResponseDigest(payload.AttestationBody, caller), auth.ResponseSignature)
	if err != nil || signer != authority {
		return nil, ErrInvalidResponseSignature
	}

	if ParamsDigest(payload.AttestationParams, caller) != auth.ParamsDigest {
		return nil, ErrParamsDigestMismatch
	}

	digest := DataDigest(functionParams, auth.ParamsDigest, caller, auth.Nonce, auth.FinalOpinion)
	signer, err = RecoverSigner(digest, auth.CallSignature)
	if err != nil || signer != authority {
		return nil, ErrInvalidCallSignature
	}

	return auth, nil
}
