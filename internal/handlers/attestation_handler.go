package handlers

import (
	"vesting-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AttestationHandler issues claim authorizations for the calling wallet.
type AttestationHandler struct {
	attester *services.AttestationService
}

func NewAttestationHandler(attester *services.AttestationService) *AttestationHandler {
	return &AttestationHandler{attester: attester}
}

// AttestHandler POST /api/vesting/attestations
func (h *AttestationHandler) AttestHandler(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	token, amount, ok := bindAmountRequest(c)
	if !ok {
		return
	}
	payload, err := h.attester.Attest(c.Request.Context(), caller, token, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"attester": h.attester.Address().Hex(),
		"caller":   caller.Hex(),
		"token":    token.Hex(),
		"amount":   amount.String(),
		"payload":  payload,
	})
}
