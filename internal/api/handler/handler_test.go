package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/aipara_account_server/config"
	"github.com/qs3c/aipara_account_server/internal/api/middleware"
	"github.com/qs3c/aipara_account_server/internal/pkg/identity"
	"github.com/qs3c/aipara_account_server/internal/pkg/response"
	"github.com/qs3c/aipara_account_server/internal/repository"
	"github.com/qs3c/aipara_account_server/internal/service"
	"github.com/qs3c/aipara_account_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testContext struct {
	DB       *gorm.DB
	Profiles *service.ProfileService
	Accounts *service.AccountService
	Provider *stubProvider
}

// stubProvider 身份服务桩，每一步都成功
type stubProvider struct {
	lastToken string
}

func (p *stubProvider) RequestVerification(ctx context.Context, target identity.Target) (*identity.Verification, error) {
	return &identity.Verification{ID: "vid-" + target.Value(), ExpiresIn: 600}, nil
}

func (p *stubProvider) ExchangeVerification(ctx context.Context, verificationID, code string) (string, error) {
	return "vt", nil
}

func (p *stubProvider) Elevate(ctx context.Context, accessToken string, cred identity.Credential) (string, error) {
	p.lastToken = accessToken
	return "sudo", nil
}

func (p *stubProvider) SetPassword(ctx context.Context, accessToken, sudoToken, newPassword string) error {
	return nil
}

func (p *stubProvider) BindEmail(ctx context.Context, accessToken, sudoToken, email, verificationToken string) error {
	return nil
}

func (p *stubProvider) BindPhone(ctx context.Context, accessToken, sudoToken, phone, verificationToken string) error {
	return nil
}

func setupServices(t *testing.T, avatars service.AvatarStore) *testContext {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	testutil.SeedCatalog(t, db)

	cfg := &config.Config{
		Billing: config.BillingConfig{UnitPrice: 10, Currency: "CNY"},
		Upload:  config.UploadConfig{MaxAvatarSize: 1024},
	}
	profiles := service.NewProfileService(
		repository.NewProfileRepository(db),
		repository.NewSubscriptionRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewPlanRepository(db),
		repository.NewTransactor(db),
		avatars,
		cfg,
		nil,
	)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	provider := &stubProvider{}
	accounts := service.NewAccountService(provider, identity.NewPendingStore(rdb), profiles, nil)

	return &testContext{DB: db, Profiles: profiles, Accounts: accounts, Provider: provider}
}

func mockAuth(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UIDKey, uid)
		c.Set(middleware.AccessTokenKey, "access-"+uid)
		c.Next()
	}
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}
