// Package auth implements the attestation authorization protocol used to
// protect claims: an authority signs an opaque attestation body and a second
// digest binding that body to the caller, nonce and call parameters.
package auth

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// mustNewType creates a new ABI type, panicking on error (for use in package-level vars)
func mustNewType(t string, components ...abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(fmt.Sprintf("failed to create ABI type %s: %v", t, err))
	}
	return typ
}

var (
	authArguments = abi.Arguments{
		{Name: "responseSignature", Type: mustNewType("bytes")},
		{Name: "paramsDigest", Type: mustNewType("bytes32")},
		{Name: "callSignature", Type: mustNewType("bytes")},
		{Name: "nonce", Type: mustNewType("uint256")},
		{Name: "finalOpinion", Type: mustNewType("bool")},
	}

	entriesArguments = abi.Arguments{
		{Name: "entries", Type: mustNewType("tuple[]",
			abi.ArgumentMarshaling{Name: "verifierId", Type: "uint256"},
			abi.ArgumentMarshaling{Name: "result", Type: "bytes"},
			abi.ArgumentMarshaling{Name: "err", Type: "string"},
		)},
	}

	uint256Arguments = abi.Arguments{{Name: "value", Type: mustNewType("uint256")}}

	claimParamsArguments = abi.Arguments{
		{Name: "token", Type: mustNewType("address")},
		{Name: "amount", Type: mustNewType("uint256")},
	}
)

// Payload is submitted with every protected call. It is never persisted.
type Payload struct {
	Auth              hexutil.Bytes `json:"auth"`
	AttestationBody   hexutil.Bytes `json:"attestation_body"`
	AttestationParams hexutil.Bytes `json:"attestation_params"`
}

// Auth is the decoded form of Payload.Auth.
//
//	abi.encode(bytes responseSignature, bytes32 paramsDigest, bytes callSignature, uint256 nonce, bool finalOpinion)
type Auth struct {
	ResponseSignature []byte
	ParamsDigest      common.Hash
	CallSignature     []byte
	Nonce             *big.Int
	FinalOpinion      bool
}

// AttestationEntry is one verifier result packed into the attestation body.
type AttestationEntry struct {
	VerifierID *big.Int `abi:"verifierId" json:"verifier_id"`
	Result     []byte   `abi:"result" json:"result"`
	Err        string   `abi:"err" json:"err"`
}

// DecodeAuth unpacks the auth field of a payload.
func DecodeAuth(data []byte) (*Auth, error) {
	unpacked, err := authArguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(unpacked) != 5 {
		return nil, fmt.Errorf("%w: expected 5 fields, got %d", ErrMalformedPayload, len(unpacked))
	}

	responseSig, ok1 := unpacked[0].([]byte)
	paramsDigest, ok2 := unpacked[1].([32]byte)
	callSig, ok3 := unpacked[2].([]byte)
	nonce, ok4 := unpacked[3].(*big.Int)
	finalOpinion, ok5 := unpacked[4].(bool)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, fmt.Errorf("%w: unexpected field types", ErrMalformedPayload)
	}

	return &Auth{
		ResponseSignature: responseSig,
		ParamsDigest:      common.Hash(paramsDigest),
		CallSignature:     callSig,
		Nonce:             nonce,
		FinalOpinion:      finalOpinion,
	}, nil
}

// Encode packs the auth fields in the layout DecodeAuth expects.
func (a *Auth) Encode() ([]byte, error) {
	nonce := a.Nonce
	if nonce == nil {
		nonce = new(big.Int)
	}
	return authArguments.Pack(a.ResponseSignature, [32]byte(a.ParamsDigest), a.CallSignature, nonce, a.FinalOpinion)
}

// EncodeAttestationBody packs verifier entries as tuple(uint256,bytes,string)[].
func EncodeAttestationBody(entries []AttestationEntry) ([]byte, error) {
	if entries == nil {
		entries = []AttestationEntry{}
	}
	return entriesArguments.Pack(entries)
}

// DecodeAttestationBody unpacks the verifier entries of an attestation body.
func DecodeAttestationBody(body []byte) ([]AttestationEntry, error) {
	unpacked, err := entriesArguments.Unpack(body)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable attestation body: %v", ErrAttestation, err)
	}
	if len(unpacked) != 1 {
		return nil, fmt.Errorf("%w: unexpected attestation body layout", ErrAttestation)
	}

	// The ABI decoder returns a slice of an anonymous struct type, so read the
	// tuple fields positionally.
	rv := reflect.ValueOf(unpacked[0])
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%w: attestation body is not a list", ErrAttestation)
	}
	entries := make([]AttestationEntry, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		e := rv.Index(i)
		if e.Kind() != reflect.Struct || e.NumField() != 3 {
			return nil, fmt.Errorf("%w: malformed entry %d", ErrAttestation, i)
		}
		verifierID, ok1 := e.Field(0).Interface().(*big.Int)
		result, ok2 := e.Field(1).Interface().([]byte)
		errMsg, ok3 := e.Field(2).Interface().(string)
		if !ok1 || !ok2 || !ok3 {
			return nil, fmt.Errorf("%w: malformed entry %d", ErrAttestation, i)
		}
		entries = append(entries, AttestationEntry{VerifierID: verifierID, Result: result, Err: errMsg})
	}
	return entries, nil
}

// EncodeUint256 packs a single uint256 result.
func EncodeUint256(v *big.Int) ([]byte, error) {
	return uint256Arguments.Pack(v)
}

// AttestedAmount finds the entry of verifierID and decodes its uint256 result.
func AttestedAmount(entries []AttestationEntry, verifierID uint64) (*big.Int, error) {
	for _, entry := range entries {
		if entry.VerifierID == nil || !entry.VerifierID.IsUint64() || entry.VerifierID.Uint64() != verifierID {
			continue
		}
		if entry.Err != "" {
			return nil, fmt.Errorf("%w: verifier %d: %s", ErrAttestation, verifierID, entry.Err)
		}
		unpacked, err := uint256Arguments.Unpack(entry.Result)
		if err != nil || len(unpacked) != 1 {
			return nil, fmt.Errorf("%w: verifier %d: undecodable result", ErrAttestation, verifierID)
		}
		amount, ok := unpacked[0].(*big.Int)
		if !ok || amount.Sign() == 0 {
			return nil, ErrNoVestedAmount
		}
		return amount, nil
	}
	return nil, ErrNoVestedAmount
}

// EncodeClaimParams is the function-parameter binding of claimTokens:
// abi.encode(address token, uint256 amount).
func EncodeClaimParams(token common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil {
		amount = new(big.Int)
	}
	return claimParamsArguments.Pack(token, amount)
}
