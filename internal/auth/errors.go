package auth

import (
	"errors"
	"fmt"
)

// ErrAuthorization is the category every rejected authorization payload wraps.
var ErrAuthorization = errors.New("authorization failed")

var (
	ErrMalformedPayload         = fmt.Errorf("%w: malformed authorization payload", ErrAuthorization)
	ErrAttestationDenied        = fmt.Errorf("%w: attestation denied", ErrAuthorization)
	ErrInvalidResponseSignature = fmt.Errorf("%w: invalid response signature", ErrAuthorization)
	ErrParamsDigestMismatch     = fmt.Errorf("%w: params digest mismatch", ErrAuthorization)
	ErrInvalidCallSignature     = fmt.Errorf("%w: invalid call signature", ErrAuthorization)
	ErrNonceReplayed            = fmt.Errorf("%w: nonce already consumed", ErrAuthorization)
)

var (
	// ErrAttestation is returned when the verifier reported a failure inside the attested body.
	ErrAttestation = errors.New("attestation error")
	// ErrNoVestedAmount is returned when no positive vested amount was attested.
	ErrNoVestedAmount = errors.New("no vested amount attested")
)
