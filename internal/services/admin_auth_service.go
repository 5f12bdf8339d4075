package services

import (
	"errors"
	"fmt"
	"time"

	"vesting-backend/internal/dto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const adminTokenIssuer = "vesting-backend-admin"

var (
	ErrAdminDisabled           = errors.New("admin login is not configured")
	ErrAdminInvalidCredentials = errors.New("invalid credentials")
	ErrAdminInvalidTOTP        = errors.New("invalid TOTP code")
)

// AdminAuthService checks the admin password (bcrypt) and TOTP code and
// issues admin tokens.
type AdminAuthService struct {
	username     string
	passwordHash []byte
	totpSecret   string
	secret       []byte
	tokenTTL     time.Duration
	now          func() time.Time
}

func NewAdminAuthService(username, passwordHash, totpSecret, jwtSecret string, tokenTTL time.Duration) *AdminAuthService {
	return &AdminAuthService{
		username:     username,
		passwordHash: []byte(passwordHash),
		totpSecret:   totpSecret,
		secret:       []byte(jwtSecret),
		tokenTTL:     tokenTTL,
		now:          time.Now,
	}
}

func (s *AdminAuthService) Enabled() bool {
	return len(s.passwordHash) > 0 && s.totpSecret != "" && len(s.secret) > 0
}

// Login verifies all three factors and returns an admin token.
func (s *AdminAuthService) Login(username, password, code string) (string, error) {
	if !s.Enabled() {
		return "", ErrAdminDisabled
	}
	if username != s.username {
		return "", ErrAdminInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", ErrAdminInvalidCredentials
	}
	valid, err := totp.ValidateCustom(code, s.totpSecret, s.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !valid {
		return "", ErrAdminInvalidTOTP
	}

	now := s.now()
	claims := dto.AdminJWTClaims{
		Username: username,
		Role:     RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    adminTokenIssuer,
			Subject:   username,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ValidateToken parses an admin token.
func (s *AdminAuthService) ValidateToken(tokenString string) (*dto.AdminJWTClaims, error) {
	if !s.Enabled() {
		return nil, ErrAdminDisabled
	}
	claims := &dto.AdminJWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(adminTokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashAdminPassword returns the bcrypt hash stored in admin.passwordHash.
func HashAdminPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateAdminTOTPKey creates a new TOTP secret for the admin account.
func GenerateAdminTOTPKey(account string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      "Vesting Admin",
		AccountName: account,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
}
