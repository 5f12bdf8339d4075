package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"vesting-backend/internal/auth"
	"vesting-backend/internal/dto"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	tokenIssuer = "vesting-backend"
)

var (
	ErrLoginChallengeMissing = errors.New("login challenge missing or expired")
	ErrLoginMessageMismatch  = errors.New("signed message does not match the issued challenge")
	ErrLoginSignature        = errors.New("signature does not recover to the address")
	ErrInvalidToken          = errors.New("invalid token")
)

type loginChallenge struct {
	message   string
	expiresAt time.Time
}

// AuthService runs wallet login: a one-time challenge signed with
// personal_sign is exchanged for an HS256 JWT whose subject is the wallet.
type AuthService struct {
	secret   []byte
	tokenTTL time.Duration
	nonceTTL time.Duration
	now      func() time.Time

	mu         sync.Mutex
	challenges map[common.Address]loginChallenge
}

func NewAuthService(secret string, tokenTTL, nonceTTL time.Duration) *AuthService {
	return &AuthService{
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		nonceTTL:   nonceTTL,
		now:        time.Now,
		challenges: make(map[common.Address]loginChallenge),
	}
}

// IssueChallenge replaces any pending challenge of address.
func (s *AuthService) IssueChallenge(address common.Address) dto.NonceResponse {
	now := s.now()
	nonce := uuid.NewString()
	message := fmt.Sprintf("Vesting Authentication\nAddress: %s\nNonce: %s\nIssued At: %d", address.Hex(), nonce, now.Unix())
	expiresAt := now.Add(s.nonceTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	s.challenges[address] = loginChallenge{message: message, expiresAt: expiresAt}

	return dto.NonceResponse{
		Success:   true,
		Nonce:     nonce,
		Message:   message,
		ExpiresAt: expiresAt.Unix(),
	}
}

// Login consumes the challenge of address and returns a session token.
func (s *AuthService) Login(address common.Address, message string, signature []byte) (string, error) {
	s.mu.Lock()
	challenge, ok := s.challenges[address]
	if !ok || s.now().After(challenge.expiresAt) {
		delete(s.challenges, address)
		s.mu.Unlock()
		return "", ErrLoginChallengeMissing
	}
	if challenge.message != message {
		s.mu.Unlock()
		return "", ErrLoginMessageMismatch
	}
	delete(s.challenges, address)
	s.mu.Unlock()

	signer, err := auth.RecoverMessageSigner([]byte(message), signature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLoginSignature, err)
	}
	if signer != address {
		return "", ErrLoginSignature
	}
	return s.IssueToken(address, RoleUser)
}

// IssueToken signs a session token for address.
func (s *AuthService) IssueToken(address common.Address, role string) (string, error) {
	now := s.now()
	claims := dto.JWTClaims{
		Address: address.Hex(),
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   address.Hex(),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ValidateToken parses a session token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*dto.JWTClaims, error) {
	claims := &dto.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || !common.IsHexAddress(claims.Subject) || !strings.EqualFold(claims.Subject, claims.Address) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) pruneLocked(now time.Time) {
	for addr, c := range s.challenges {
		if now.After(c.expiresAt) {
			delete(s.challenges, addr)
		}
	}
}
