package auth

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestAttestedAmount(t *testing.T) {
	five, err := EncodeUint256(big.NewInt(5))
	require.NoError(t, err)
	zero, err := EncodeUint256(big.NewInt(0))
	require.NoError(t, err)

	tests := []struct {
		name    string
		entries []AttestationEntry
		want    int64
		wantErr error
	}{
		{
			name: "picks configured verifier",
			entries: []AttestationEntry{
				{VerifierID: big.NewInt(1), Result: zero},
				{VerifierID: big.NewInt(testVerifierID), Result: five},
			},
			want: 5,
		},
		{
			name: "verifier reported error",
			entries: []AttestationEntry{
				{VerifierID: big.NewInt(testVerifierID), Result: five, Err: "schedule not found"},
			},
			wantErr: ErrAttestation,
		},
		{
			name:    "no matching entry",
			entries: []AttestationEntry{{VerifierID: big.NewInt(1), Result: five}},
			wantErr: ErrNoVestedAmount,
		},
		{
			name:    "zero vested",
			entries: []AttestationEntry{{VerifierID: big.NewInt(testVerifierID), Result: zero}},
			wantErr: ErrNoVestedAmount,
		},
		{
			name:    "undecodable result",
			entries: []AttestationEntry{{VerifierID: big.NewInt(testVerifierID), Result: []byte{0x01}}},
			wantErr: ErrAttestation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := EncodeAttestationBody(tt.entries)
			require.NoError(t, err)
			entries, err := DecodeAttestationBody(body)
			require.NoError(t, err)
			require.Len(t, entries, len(tt.entries))

			got, err := AttestedAmount(entries, testVerifierID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, big.NewInt(tt.want), got)
		})
	}
}

func TestDecodeAttestationBodyRejectsGarbage(t *testing.T) {
	_, err := DecodeAttestationBody([]byte{0x01, 0x02})
	require.ErrorIs(t, err, ErrAttestation)
}

func TestNonceRegistry(t *testing.T) {
	require := require.New(t)

	r := NewNonceRegistry()
	alice := common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob := common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	n := big.NewInt(99)

	require.False(r.IsUsed(alice, n))
	require.NoError(r.Consume(alice, n))
	require.True(r.IsUsed(alice, n))
	require.ErrorIs(r.Consume(alice, big.NewInt(99)), ErrNonceReplayed)

	require.False(r.IsUsed(bob, n))
	require.NoError(r.Consume(bob, n))

	r.Release(alice, n)
	require.False(r.IsUsed(alice, n))
	require.True(r.IsUsed(bob, n))
	require.NoError(r.Consume(alice, n))
}
