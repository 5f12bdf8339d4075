package handlers

import (
	"fmt"
	"net/http"

	"vesting-backend/internal/tokens"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DevTokenHandler faucet and approve endpoints over in-memory tokens. Only
// registered in dev mode.
type DevTokenHandler struct {
	registry *tokens.Registry
	contract common.Address
	logger   *logrus.Logger
}

func NewDevTokenHandler(registry *tokens.Registry, contract common.Address, logger *logrus.Logger) *DevTokenHandler {
	return &DevTokenHandler{registry: registry, contract: contract, logger: logger}
}

// MintHandler POST /api/dev/tokens/mint credits the caller.
func (h *DevTokenHandler) MintHandler(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	token, amount, ok := bindAmountRequest(c)
	if !ok {
		return
	}
	erc20, ok := h.memoryToken(c, token)
	if !ok {
		return
	}
	if err := erc20.Mint(caller, amount); err != nil {
		respondBadRequest(c, "INVALID_AMOUNT", err)
		return
	}
	h.logger.WithFields(logrus.Fields{
		"token":   token.Hex(),
		"account": caller.Hex(),
		"amount":  amount.String(),
	}).Info("Dev tokens minted")
	h.balance(c, erc20, caller)
}

// ApproveHandler POST /api/dev/tokens/approve lets the vesting contract pull
// amount from the caller.
func (h *DevTokenHandler) ApproveHandler(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	token, amount, ok := bindAmountRequest(c)
	if !ok {
		return
	}
	erc20, ok := h.memoryToken(c, token)
	if !ok {
		return
	}
	if err := erc20.Approve(caller, h.contract, amount); err != nil {
		respondBadRequest(c, "INVALID_AMOUNT", err)
		return
	}
	h.balance(c, erc20, caller)
}

// BalanceHandler GET /api/dev/tokens/:token/balances/:account
func (h *DevTokenHandler) BalanceHandler(c *gin.Context) {
	token, err := parseAddress(c.Param("token"))
	if err != nil {
		respondBadRequest(c, "INVALID_ADDRESS", err)
		return
	}
	account, err := parseAddress(c.Param("account"))
	if err != nil {
		respondBadRequest(c, "INVALID_ADDRESS", err)
		return
	}
	erc20, ok := h.memoryToken(c, token)
	if !ok {
		return
	}
	h.balance(c, erc20, account)
}

func (h *DevTokenHandler) memoryToken(c *gin.Context, token common.Address) (*tokens.MemoryToken, bool) {
	erc20, ok := h.registry.Memory(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   fmt.Sprintf("no dev token at %s", token.Hex()),
			"code":    "UNKNOWN_TOKEN",
		})
	}
	return erc20, ok
}

func (h *DevTokenHandler) balance(c *gin.Context, erc20 *tokens.MemoryToken, account common.Address) {
	ctx := c.Request.Context()
	balance, err := erc20.BalanceOf(ctx, account)
	if err != nil {
		respondError(c, err)
		return
	}
	allowance, err := erc20.Allowance(ctx, account, h.contract)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"token":     erc20.Address().Hex(),
		"symbol":    erc20.Symbol(),
		"account":   account.Hex(),
		"balance":   balance.String(),
		"allowance": allowance.String(),
	})
}
