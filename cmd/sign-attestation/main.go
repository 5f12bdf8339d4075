package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"vesting-backend/internal/auth"
	"vesting-backend/internal/dto"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/google/uuid"
)

// sign-attestation prints a claim request body signed with an authority key,
// for driving /api/vesting/claims without the built-in attester.
func main() {
	keyHex := flag.String("key", os.Getenv("ATTESTER_PRIVATE_KEY"), "authority private key (hex)")
	caller := flag.String("caller", "", "claiming wallet address")
	token := flag.String("token", "", "token address")
	vested := flag.String("vested", "", "attested vested amount")
	amount := flag.String("amount", "", "amount to claim (defaults to -vested)")
	verifierID := flag.Uint64("verifier-id", 1, "attestation entry carrying the vested amount")
	attErr := flag.String("error", "", "attest a verifier error instead of an amount")
	deny := flag.Bool("deny", false, "sign a negative final opinion")
	flag.Parse()

	if *keyHex == "" || !common.IsHexAddress(*caller) || !common.IsHexAddress(*token) || *vested == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *amount == "" {
		*amount = *vested
	}

	signer, err := auth.NewSignerFromHex(*keyHex)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	vestedAmount := mustAmount(*vested)
	claimAmount := mustAmount(*amount)

	result, err := auth.EncodeUint256(vestedAmount)
	if err != nil {
		log.Fatalf("❌ encode vested amount: %v", err)
	}
	entry := auth.AttestationEntry{VerifierID: new(big.Int).SetUint64(*verifierID), Result: result}
	if *attErr != "" {
		entry.Result, entry.Err = nil, *attErr
	}
	body, err := auth.EncodeAttestationBody([]auth.AttestationEntry{entry})
	if err != nil {
		log.Fatalf("❌ encode body: %v", err)
	}
	params, err := json.Marshal(map[string]interface{}{
		"token":     common.HexToAddress(*token).Hex(),
		"account":   common.HexToAddress(*caller).Hex(),
		"issued_at": time.Now().Unix(),
		"source":    "sign-attestation",
	})
	if err != nil {
		log.Fatalf("❌ encode params: %v", err)
	}
	functionParams, err := auth.EncodeClaimParams(common.HexToAddress(*token), claimAmount)
	if err != nil {
		log.Fatalf("❌ encode claim params: %v", err)
	}

	id := uuid.New()
	payload, err := signer.Authorize(common.HexToAddress(*caller), functionParams, auth.Attestation{
		Body:         body,
		Params:       params,
		Nonce:        new(big.Int).SetBytes(id[:]),
		FinalOpinion: !*deny,
	})
	if err != nil {
		log.Fatalf("❌ sign: %v", err)
	}

	out, err := json.MarshalIndent(dto.ClaimRequest{
		Token:   common.HexToAddress(*token).Hex(),
		Amount:  claimAmount.String(),
		Payload: payload,
	}, "", "  ")
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	fmt.Fprintf(os.Stderr, "✍️ Signed by %s, nonce %s\n", signer.Address().Hex(), id)
	fmt.Println(string(out))
}

func mustAmount(s string) *big.Int {
	v, ok := math.ParseBig256(s)
	if !ok || v.Sign() < 0 {
		log.Fatalf("❌ invalid amount %q", s)
	}
	return v
}
