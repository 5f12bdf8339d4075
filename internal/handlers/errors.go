package handlers

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"vesting-backend/internal/auth"
	"vesting-backend/internal/vesting"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Ordered: wrapped errors come before the category they wrap.
var errorMappings = []errorMapping{
	{vesting.ErrReentrancy, http.StatusConflict, "REENTRANT_CALL"},
	{auth.ErrNonceReplayed, http.StatusConflict, "NONCE_REPLAYED"},
	{auth.ErrMalformedPayload, http.StatusBadRequest, "MALFORMED_PAYLOAD"},
	{auth.ErrAttestationDenied, http.StatusForbidden, "ATTESTATION_DENIED"},
	{auth.ErrInvalidResponseSignature, http.StatusForbidden, "INVALID_RESPONSE_SIGNATURE"},
	{auth.ErrParamsDigestMismatch, http.StatusForbidden, "PARAMS_DIGEST_MISMATCH"},
	{auth.ErrInvalidCallSignature, http.StatusForbidden, "INVALID_CALL_SIGNATURE"},
	{auth.ErrAuthorization, http.StatusForbidden, "AUTHORIZATION_FAILED"},
	{auth.ErrAttestation, http.StatusUnprocessableEntity, "ATTESTATION_ERROR"},
	{auth.ErrNoVestedAmount, http.StatusUnprocessableEntity, "NO_VESTED_AMOUNT"},
	{vesting.ErrExceedsVestedAmount, http.StatusUnprocessableEntity, "EXCEEDS_VESTED_AMOUNT"},
	{vesting.ErrInsufficientContractBalance, http.StatusUnprocessableEntity, "INSUFFICIENT_CONTRACT_BALANCE"},
	{vesting.ErrInsufficientExternalBalance, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE"},
	{vesting.ErrInsufficientAllowance, http.StatusUnprocessableEntity, "INSUFFICIENT_ALLOWANCE"},
	{vesting.ErrNotEligible, http.StatusConflict, "NOT_ELIGIBLE"},
	{vesting.ErrAlreadyEligible, http.StatusConflict, "ALREADY_ELIGIBLE"},
	{vesting.ErrNoActiveSchedule, http.StatusNotFound, "NO_ACTIVE_SCHEDULE"},
	{vesting.ErrUnauthorized, http.StatusForbidden, "NOT_OWNER"},
	{vesting.ErrTransferFailed, http.StatusBadGateway, "TRANSFER_FAILED"},
	{vesting.ErrExceedsDeposit, http.StatusUnprocessableEntity, "EXCEEDS_DEPOSIT"},
	{vesting.ErrUnknownToken, http.StatusNotFound, "UNKNOWN_TOKEN"},
	{vesting.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
}

// errorStatus maps a contract or authorization error to an HTTP status and
// a machine readable code.
func errorStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	c.JSON(status, gin.H{
		"success": false,
		"error":   http.StatusText(status),
		"message": err.Error(),
		"code":    code,
	})
}

func respondBadRequest(c *gin.Context, code string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Invalid request",
		"message": err.Error(),
		"code":    code,
	})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func parseAddress(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(value), nil
}

// parseAmount accepts decimal or 0x-prefixed hex uint256 values.
func parseAmount(value string) (*big.Int, error) {
	amount, ok := math.ParseBig256(value)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}
