package auth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ResponseDigest = keccak256(attestationBody ‖ caller)
func ResponseDigest(body []byte, caller common.Address) common.Hash {
	return crypto.Keccak256Hash(body, caller.Bytes())
}

// ParamsDigest = keccak256(attestationParams ‖ caller)
func ParamsDigest(params []byte, caller common.Address) common.Hash {
	return crypto.Keccak256Hash(params, caller.Bytes())
}

// DataDigest = keccak256(keccak256(functionParams) ‖ paramsDigest ‖ caller ‖ uint256(nonce) ‖ finalOpinion)
func DataDigest(functionParams []byte, paramsDigest common.Hash, caller common.Address, nonce *big.Int, finalOpinion bool) common.Hash {
	if nonce == nil {
		nonce = new(big.Int)
	}
	opinion := []byte{0}
	if finalOpinion {
		opinion[0] = 1
	}
	return crypto.Keccak256Hash(
		crypto.Keccak256(functionParams),
		paramsDigest.Bytes(),
		caller.Bytes(),
		common.BigToHash(nonce).Bytes(),
		opinion,
	)
}

// RecoverSigner returns the address that produced sig over the EIP-191
// prefixed form of digest. Both 0/1 and 27/28 recovery ids are accepted;
// high-s signatures are rejected.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	return recoverAddress(accounts.TextHash(digest.Bytes()), sig)
}

// RecoverMessageSigner recovers the signer of a personal_sign message.
func RecoverMessageSigner(message []byte, sig []byte) (common.Address, error) {
	return recoverAddress(accounts.TextHash(message), sig)
}

func recoverAddress(hash []byte, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature length %d, want %d", len(sig), crypto.SignatureLength)
	}
	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	if !crypto.ValidateSignatureValues(normalized[crypto.RecoveryIDOffset], r, s, true) {
		return common.Address{}, fmt.Errorf("invalid signature values")
	}

	pub, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
