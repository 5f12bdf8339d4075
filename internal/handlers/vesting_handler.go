package handlers

import (
	"math/big"
	"net/http"
	"strconv"

	"vesting-backend/internal/dto"
	"vesting-backend/internal/middleware"
	"vesting-backend/internal/repository"
	"vesting-backend/internal/services"
	"vesting-backend/internal/vesting"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// VestingHandler exposes the vesting contract over HTTP. Mutating calls act
// on behalf of the authenticated wallet.
type VestingHandler struct {
	vesting *services.VestingService
	journal *services.EventJournalService
	logger  *logrus.Logger
}

// NewVestingHandler journal may be nil when no database is configured.
func NewVestingHandler(vesting *services.VestingService, journal *services.EventJournalService, logger *logrus.Logger) *VestingHandler {
	return &VestingHandler{
		vesting: vesting,
		journal: journal,
		logger:  logger,
	}
}

// GetTokensHandler GET /api/vesting/tokens
func (h *VestingHandler) GetTokensHandler(c *gin.Context) {
	respondOK(c, h.vesting.Tokens(c.Request.Context()))
}

// GetScheduleHandler GET /api/vesting/schedules/:token
func (h *VestingHandler) GetScheduleHandler(c *gin.Context) {
	token, ok := h.tokenParam(c)
	if !ok {
		return
	}
	schedule, found := h.vesting.Schedule(c.Request.Context(), token)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Schedule not found",
			"code":    "SCHEDULE_NOT_FOUND",
		})
		return
	}
	respondOK(c, schedule)
}

// GetEligibleAddressesHandler GET /api/vesting/schedules/:token/eligible
func (h *VestingHandler) GetEligibleAddressesHandler(c *gin.Context) {
	token, ok := h.tokenParam(c)
	if !ok {
		return
	}
	addrs := h.vesting.EligibleAddresses(c.Request.Context(), token)
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	respondOK(c, gin.H{
		"token":              token.Hex(),
		"active":             h.vesting.HasActiveSchedule(c.Request.Context(), token),
		"eligible_addresses": out,
	})
}

// GetPositionHandler GET /api/vesting/positions/:token/:account
func (h *VestingHandler) GetPositionHandler(c *gin.Context) {
	token, ok := h.tokenParam(c)
	if !ok {
		return
	}
	account, err := parseAddress(c.Param("account"))
	if err != nil {
		respondBadRequest(c, "INVALID_ADDRESS", err)
		return
	}
	respondOK(c, h.vesting.Position(c.Request.Context(), account, token))
}

// GetTotalsHandler GET /api/vesting/totals/:token
func (h *VestingHandler) GetTotalsHandler(c *gin.Context) {
	token, ok := h.tokenParam(c)
	if !ok {
		return
	}
	totals, err := h.vesting.Totals(c.Request.Context(), token)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"token": token.Hex(),
			"error": err.Error(),
		}).Error("Failed to read contract balance")
		respondError(c, err)
		return
	}
	respondOK(c, totals)
}

// GetContractInfoHandler GET /api/vesting/contract
func (h *VestingHandler) GetContractInfoHandler(c *gin.Context) {
	respondOK(c, gin.H{
		"contract":    h.vesting.ContractAddress().Hex(),
		"owner":       h.vesting.Owner().Hex(),
		"authority":   h.vesting.Authority(c.Request.Context()).Hex(),
		"verifier_id": h.vesting.VerifierID(),
	})
}

// GetEventsHandler GET /api/vesting/events?token=&account=&name=&page=&limit=
func (h *VestingHandler) GetEventsHandler(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Event journal is not configured",
			"code":    "JOURNAL_DISABLED",
		})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	filter := repository.EventFilter{
		Token:     normalizeAddress(c.Query("token")),
		Account:   normalizeAddress(c.Query("account")),
		EventName: c.Query("name"),
	}

	events, total, err := h.journal.Events(c.Request.Context(), filter, page, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query vesting events")
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"events": events,
		"total":  total,
		"page":   page,
	})
}

// SetScheduleHandler POST /api/vesting/schedules
func (h *VestingHandler) SetScheduleHandler(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req dto.SetScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		respondBadRequest(c, "INVALID_ADDRESS", err)
		return
	}
	total, err := parseAmount(req.TotalAmount)
	if err != nil {
		respondBadRequest(c, "INVALID_AMOUNT", err)
		return
	}
	eligible := make([]common.Address, 0, len(req.EligibleAddresses))
	for _, s := range req.EligibleAddresses {
		addr, err := parseAddress(s)
		if err != nil {
			respondBadRequest(c, "INVALID_ADDRESS", err)
			return
		}
		eligible = append(eligible, addr)
	}

	err = h.vesting.SetSchedule(c.Request.Context(), caller, token, vesting.ScheduleParams{
		TotalAmount:       total,
		StartTime:         req.StartTime,
		CliffDuration:     req.CliffDuration,
		VestingDuration:   req.VestingDuration,
		EligibleAddresses: eligible,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	schedule, _ := h.vesting.Schedule(c.Request.Context(), token)
	respondOK(c, schedule)
}

// AddEligibleAddressHandler POST /api/vesting/schedules/:token/eligible
func (h *VestingHandler) AddEligibleAddressHandler(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	token, ok := h.tokenParam(c)
	if !ok {
		return
	}
	var req dto.EligibleAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		respondBadRequest(c, "INVALID_ADDRESS", err)
		return
	}
	if err := h.vesting.AddEligibleAddress(c.Request.Context(), caller, token, addr); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token": token.Hex(), "address": addr.Hex(), "eligible": true})
}

// RemoveEligibleAddressHandler DELETE /api/vesting/schedules/:token/eligible/:address
func (h *VestingHandler) RemoveEligibleAddressHandler(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	token, ok := h.tokenParam(c)
	if !ok {
		return
	}
	addr, err := parseAddress(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "INVALID_ADDRESS", err)
		return
	}
	if err := h.vesting.RemoveEligibleAddress(c.Request.Context(), caller, token, addr); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token": token.Hex(), "address": addr.Hex(), "eligible": false})
}

// DepositHandler POST /api/vesting/deposits
func (h *VestingHandler) DepositHandler(c *gin.Context) {
	caller, token, amount, ok := h.amountRequest(c)
	if !ok {
		return
	}
	if err := h.vesting.Deposit(c.Request.Context(), caller, token, amount); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, h.vesting.Position(c.Request.Context(), caller, token))
}

// WithdrawHandler POST /api/vesting/withdrawals
func (h *VestingHandler) WithdrawHandler(c *gin.Context) {
	caller, token, amount, ok := h.amountRequest(c)
	if !ok {
		return
	}
	if err := h.vesting.Withdraw(c.Request.Context(), caller, token, amount); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, h.vesting.Position(c.Request.Context(), caller, token))
}

// ClaimHandler POST /api/vesting/claims
func (h *VestingHandler) ClaimHandler(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req dto.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		respondBadRequest(c, "INVALID_ADDRESS", err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondBadRequest(c, "INVALID_AMOUNT", err)
		return
	}
	if err := h.vesting.Claim(c.Request.Context(), caller, req.Payload, token, amount); err != nil {
		h.logger.WithFields(logrus.Fields{
			"caller": caller.Hex(),
			"token":  token.Hex(),
			"amount": amount.String(),
			"error":  err.Error(),
		}).Warn("Claim rejected")
		respondError(c, err)
		return
	}
	respondOK(c, h.vesting.Position(c.Request.Context(), caller, token))
}

func (h *VestingHandler) amountRequest(c *gin.Context) (caller, token common.Address, amount *big.Int, ok bool) {
	caller, ok = requireCaller(c)
	if !ok {
		return
	}
	token, amount, ok = bindAmountRequest(c)
	return
}

// requireCaller returns the wallet set by the auth middleware.
func requireCaller(c *gin.Context) (common.Address, bool) {
	caller, ok := middleware.UserAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Authentication required",
			"code":    "MISSING_AUTH",
		})
	}
	return caller, ok
}

func (h *VestingHandler) tokenParam(c *gin.Context) (common.Address, bool) {
	token, err := parseAddress(c.Param("token"))
	if err != nil {
		respondBadRequest(c, "INVALID_ADDRESS", err)
		return common.Address{}, false
	}
	return token, true
}

// bindAmountRequest reads a dto.AmountRequest body.
func bindAmountRequest(c *gin.Context) (common.Address, *big.Int, bool) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err)
		return common.Address{}, nil, false
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		respondBadRequest(c, "INVALID_ADDRESS", err)
		return common.Address{}, nil, false
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondBadRequest(c, "INVALID_AMOUNT", err)
		return common.Address{}, nil, false
	}
	return token, amount, true
}

// normalizeAddress returns the checksummed form so journal filters match
// stored values. Non-addresses pass through unchanged.
func normalizeAddress(value string) string {
	if common.IsHexAddress(value) {
		return common.HexToAddress(value).Hex()
	}
	return value
}
