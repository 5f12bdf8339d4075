package handlers

import (
	"errors"
	"net/http"

	"vesting-backend/internal/dto"
	"vesting-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdminHandler admin login and authority rotation
type AdminHandler struct {
	admin   *services.AdminAuthService
	vesting *services.VestingService
	logger  *logrus.Logger
}

func NewAdminHandler(admin *services.AdminAuthService, vesting *services.VestingService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, vesting: vesting, logger: logger}
}

// LoginHandler POST /api/admin/login
func (h *AdminHandler) LoginHandler(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err)
		return
	}

	token, err := h.admin.Login(req.Username, req.Password, req.TOTPCode)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"username":  req.Username,
			"client_ip": c.ClientIP(),
			"error":     err.Error(),
		}).Warn("Admin login failed")

		status, code := http.StatusUnauthorized, "INVALID_CREDENTIALS"
		switch {
		case errors.Is(err, services.ErrAdminDisabled):
			status, code = http.StatusServiceUnavailable, "ADMIN_DISABLED"
		case errors.Is(err, services.ErrAdminInvalidTOTP):
			code = "INVALID_TOTP"
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
			"code":    code,
		})
		return
	}

	h.logger.WithField("username", req.Username).Info("Admin login success")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
	})
}

// SetAuthorityHandler PUT /api/admin/authority
func (h *AdminHandler) SetAuthorityHandler(c *gin.Context) {
	var req dto.AuthorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	authority, err := parseAddress(req.Authority)
	if err != nil {
		respondBadRequest(c, "INVALID_ADDRESS", err)
		return
	}
	previous := h.vesting.Authority(c.Request.Context())
	if err := h.vesting.RotateAuthority(c.Request.Context(), authority); err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"admin":    c.GetString("admin_username"),
		"previous": previous.Hex(),
		"current":  authority.Hex(),
	}).Info("Authority key rotated")
	respondOK(c, gin.H{
		"previous_authority": previous.Hex(),
		"authority":          authority.Hex(),
	})
}
