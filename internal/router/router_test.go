package router

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vesting-backend/internal/app"
	"vesting-backend/internal/auth"
	"vesting-backend/internal/config"
	"vesting-backend/internal/dto"
	"vesting-backend/internal/services"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	testContract = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	testOwner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	testToken    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

type apiFixture struct {
	t          *testing.T
	router     *gin.Engine
	container  *app.ServiceContainer
	totpSecret string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	attesterKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	totpKey, err := services.GenerateAdminTOTPKey("admin")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Vesting.ContractAddress = testContract.Hex()
	cfg.Vesting.Owner = testOwner.Hex()
	cfg.Vesting.DevMode = true
	cfg.Vesting.Tokens = []config.TokenConfig{{Address: testToken.Hex(), Symbol: "VEST"}}
	cfg.Attester = config.AttesterConfig{Enabled: true, PrivateKey: hexutil.Encode(crypto.FromECDSA(attesterKey))}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Admin.PasswordHash = string(hash)
	cfg.Admin.TOTPSecret = totpKey.Secret()
	cfg.Admin.JWTSecret = "admin-secret"
	require.NoError(t, cfg.Validate())

	logger, _ := test.NewNullLogger()
	container, err := app.NewServiceContainer(cfg, nil, logger)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	return &apiFixture{
		t:          t,
		router:     SetupRouter(container),
		container:  container,
		totpSecret: totpKey.Secret(),
	}
}

func (f *apiFixture) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) login(key *ecdsa.PrivateKey) string {
	f.t.Helper()
	address := crypto.PubkeyToAddress(key.PublicKey)

	w := f.request(http.MethodPost, "/api/auth/nonce", "", dto.NonceRequest{Address: address.Hex()})
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	var challenge dto.NonceResponse
	require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &challenge))

	sig, err := crypto.Sign(accounts.TextHash([]byte(challenge.Message)), key)
	require.NoError(f.t, err)
	w = f.request(http.MethodPost, "/api/auth/login", "", dto.AuthRequest{
		Address:   address.Hex(),
		Message:   challenge.Message,
		Signature: hexutil.Encode(sig),
	})
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.AuthResponse
	require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(f.t, resp.Success)
	return resp.Token
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

type attestationResponse struct {
	Payload auth.Payload `json:"payload"`
}

// fundedSchedule installs a fully vested schedule for beneficiary, funded by
// the wallet logged in with session.
func (f *apiFixture) fundedSchedule(session string, total string, beneficiary common.Address) {
	f.t.Helper()
	amount := dto.AmountRequest{Token: testToken.Hex(), Amount: total}
	require.Equal(f.t, http.StatusOK, f.request(http.MethodPost, "/api/dev/tokens/mint", session, amount).Code)
	require.Equal(f.t, http.StatusOK, f.request(http.MethodPost, "/api/dev/tokens/approve", session, amount).Code)

	w := f.request(http.MethodPost, "/api/vesting/schedules", session, dto.SetScheduleRequest{
		Token:             testToken.Hex(),
		TotalAmount:       total,
		StartTime:         uint64(time.Now().Unix()) - 1000,
		VestingDuration:   100,
		EligibleAddresses: []string{beneficiary.Hex()},
	})
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())

	w = f.request(http.MethodPost, "/api/vesting/deposits", session, amount)
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
}

func TestClaimFlow(t *testing.T) {
	f := newAPIFixture(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	user := crypto.PubkeyToAddress(key.PublicKey)
	token := f.login(key)

	f.fundedSchedule(token, "1000", user)

	w := f.request(http.MethodPost, "/api/vesting/attestations", token, dto.AmountRequest{Token: testToken.Hex(), Amount: "400"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var attestation attestationResponse
	decodeData(t, w, &attestation)

	claim := dto.ClaimRequest{Token: testToken.Hex(), Amount: "400", Payload: attestation.Payload}
	w = f.request(http.MethodPost, "/api/vesting/claims", token, claim)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var position dto.AccountPosition
	decodeData(t, w, &position)
	require.Equal(t, "400", position.Claimed)
	require.Equal(t, "600", position.Claimable)
	require.Equal(t, "1000", position.Deposited)

	w = f.request(http.MethodPost, "/api/vesting/claims", token, claim)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "NONCE_REPLAYED", errorCode(t, w))

	w = f.request(http.MethodGet, "/api/vesting/totals/"+testToken.Hex(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var totals dto.TokenTotals
	decodeData(t, w, &totals)
	require.Equal(t, "1000", totals.TotalDeposited)
	require.Equal(t, "400", totals.TotalClaimed)
	require.Equal(t, "600", totals.Balance)
}

func TestClaimErrorsMapToStatusCodes(t *testing.T) {
	f := newAPIFixture(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	user := crypto.PubkeyToAddress(key.PublicKey)
	token := f.login(key)
	f.fundedSchedule(token, "1000", user)

	attest := func(amount string) auth.Payload {
		w := f.request(http.MethodPost, "/api/vesting/attestations", token, dto.AmountRequest{Token: testToken.Hex(), Amount: amount})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp attestationResponse
		decodeData(t, w, &resp)
		return resp.Payload
	}

	t.Run("over vested", func(t *testing.T) {
		w := f.request(http.MethodPost, "/api/vesting/claims", token, dto.ClaimRequest{
			Token: testToken.Hex(), Amount: "1001", Payload: attest("1001"),
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Equal(t, "EXCEEDS_VESTED_AMOUNT", errorCode(t, w))
	})

	t.Run("amount differs from attestation", func(t *testing.T) {
		w := f.request(http.MethodPost, "/api/vesting/claims", token, dto.ClaimRequest{
			Token: testToken.Hex(), Amount: "20", Payload: attest("10"),
		})
		require.Equal(t, http.StatusForbidden, w.Code)
		require.Equal(t, "INVALID_CALL_SIGNATURE", errorCode(t, w))
	})

	t.Run("malformed payload", func(t *testing.T) {
		w := f.request(http.MethodPost, "/api/vesting/claims", token, dto.ClaimRequest{
			Token: testToken.Hex(), Amount: "10", Payload: auth.Payload{Auth: []byte{1, 2, 3}},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "MALFORMED_PAYLOAD", errorCode(t, w))
	})

	t.Run("withdraw over deposit", func(t *testing.T) {
		w := f.request(http.MethodPost, "/api/vesting/withdrawals", token, dto.AmountRequest{Token: testToken.Hex(), Amount: "1001"})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Equal(t, "EXCEEDS_DEPOSIT", errorCode(t, w))
	})

	t.Run("invalid amount", func(t *testing.T) {
		w := f.request(http.MethodPost, "/api/vesting/deposits", token, dto.AmountRequest{Token: testToken.Hex(), Amount: "-5"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "INVALID_AMOUNT", errorCode(t, w))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := f.request(http.MethodPost, "/api/vesting/claims", "", dto.ClaimRequest{Token: testToken.Hex(), Amount: "1"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Equal(t, "MISSING_AUTH_HEADER", errorCode(t, w))
	})

	t.Run("remove unknown eligible", func(t *testing.T) {
		w := f.request(http.MethodDelete, "/api/vesting/schedules/"+testToken.Hex()+"/eligible/"+testOwner.Hex(), token, nil)
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, "NOT_ELIGIBLE", errorCode(t, w))
	})
}

func TestScheduleQueries(t *testing.T) {
	f := newAPIFixture(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	user := crypto.PubkeyToAddress(key.PublicKey)
	token := f.login(key)

	w := f.request(http.MethodGet, "/api/vesting/schedules/"+testToken.Hex(), "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	f.fundedSchedule(token, "500", user)

	w = f.request(http.MethodGet, "/api/vesting/schedules/"+testToken.Hex(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var schedule dto.ScheduleResponse
	decodeData(t, w, &schedule)
	require.Equal(t, "500", schedule.TotalAmount)
	require.Equal(t, uint64(1000), schedule.ProgressPerMille)
	require.Equal(t, user.Hex(), schedule.Creator)

	w = f.request(http.MethodPost, "/api/vesting/schedules/"+testToken.Hex()+"/eligible", token, dto.EligibleAddressRequest{Address: testOwner.Hex()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.request(http.MethodGet, "/api/vesting/schedules/"+testToken.Hex()+"/eligible", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var eligible struct {
		Active            bool     `json:"active"`
		EligibleAddresses []string `json:"eligible_addresses"`
	}
	decodeData(t, w, &eligible)
	require.True(t, eligible.Active)
	require.ElementsMatch(t, []string{user.Hex(), testOwner.Hex()}, eligible.EligibleAddresses)

	w = f.request(http.MethodGet, "/api/vesting/tokens", "", nil)
	var list dto.TokenList
	decodeData(t, w, &list)
	require.Equal(t, []string{testToken.Hex()}, list.Known)
	require.Equal(t, []string{testToken.Hex()}, list.Deposited)

	w = f.request(http.MethodGet, "/api/vesting/events", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminRotatesAuthority(t *testing.T) {
	f := newAPIFixture(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	user := crypto.PubkeyToAddress(key.PublicKey)
	token := f.login(key)
	f.fundedSchedule(token, "1000", user)

	w := f.request(http.MethodPost, "/api/vesting/attestations", token, dto.AmountRequest{Token: testToken.Hex(), Amount: "100"})
	require.Equal(t, http.StatusOK, w.Code)
	var stale attestationResponse
	decodeData(t, w, &stale)

	code, err := totp.GenerateCode(f.totpSecret, time.Now())
	require.NoError(t, err)
	w = f.request(http.MethodPost, "/api/admin/login", "", dto.AdminLoginRequest{Username: "admin", Password: "hunter2", TOTPCode: code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	// Wallet tokens are not admin tokens.
	w = f.request(http.MethodPut, "/api/admin/authority", token, dto.AuthorityRequest{Authority: user.Hex()})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.request(http.MethodPut, "/api/admin/authority", login.Token, dto.AuthorityRequest{Authority: user.Hex()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, user, f.container.VestingService.Authority(context.Background()))

	w = f.request(http.MethodPost, "/api/vesting/claims", token, dto.ClaimRequest{Token: testToken.Hex(), Amount: "100", Payload: stale.Payload})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "INVALID_RESPONSE_SIGNATURE", errorCode(t, w))
}

func TestAdminRoutesRejectRemoteClients(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewBufferString(`{}`))
	req.RemoteAddr = "203.0.113.7:5000"
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "IP_NOT_ALLOWED", errorCode(t, w))
}

func TestCORSPreflight(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/vesting/tokens", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
