package handlers

import (
	"errors"
	"net/http"

	"vesting-backend/internal/dto"
	"vesting-backend/internal/services"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler wallet login
type AuthHandler struct {
	auth   *services.AuthService
	logger *logrus.Logger
}

func NewAuthHandler(auth *services.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// NonceHandler POST /api/auth/nonce
func (h *AuthHandler) NonceHandler(c *gin.Context) {
	var req dto.NonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	address, err := parseAddress(req.Address)
	if err != nil {
		respondBadRequest(c, "INVALID_ADDRESS", err)
		return
	}
	c.JSON(http.StatusOK, h.auth.IssueChallenge(address))
}

// AuthenticateHandler POST /api/auth/login
func (h *AuthHandler) AuthenticateHandler(c *gin.Context) {
	var req dto.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.AuthResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}
	address, err := parseAddress(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.AuthResponse{Success: false, Message: err.Error()})
		return
	}
	signature, err := hexutil.Decode(req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.AuthResponse{Success: false, Message: "signature must be 0x-prefixed hex"})
		return
	}

	token, err := h.auth.Login(address, req.Message, signature)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"address": address.Hex(),
			"error":   err.Error(),
		}).Warn("Wallet login failed")

		status := http.StatusUnauthorized
		if !errors.Is(err, services.ErrLoginSignature) && !errors.Is(err, services.ErrLoginChallengeMissing) &&
			!errors.Is(err, services.ErrLoginMessageMismatch) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, dto.AuthResponse{Success: false, Message: err.Error()})
		return
	}

	h.logger.WithField("address", address.Hex()).Info("Wallet login success")
	c.JSON(http.StatusOK, dto.AuthResponse{
		Success: true,
		Token:   token,
		Message: "success",
	})
}
