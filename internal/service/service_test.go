package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/aipara_account_server/config"
	"github.com/qs3c/aipara_account_server/internal/model"
	"github.com/qs3c/aipara_account_server/internal/pkg/pubsub"
	"github.com/qs3c/aipara_account_server/internal/repository"
	"github.com/qs3c/aipara_account_server/internal/testutil"
)

var fixedNow = time.Date(2025, 2, 18, 10, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Billing: config.BillingConfig{UnitPrice: 10, Currency: "CNY"},
		Upload:  config.UploadConfig{MaxAvatarSize: 1024},
	}
}

func newProfileService(db *gorm.DB, avatars AvatarStore) *ProfileService {
	svc := NewProfileService(
		repository.NewProfileRepository(db),
		repository.NewSubscriptionRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewPlanRepository(db),
		repository.NewTransactor(db),
		avatars,
		testConfig(),
		nil,
	)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// setupProfileService 内存库 + 默认套餐配置
func setupProfileService(t *testing.T) (*ProfileService, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	testutil.SeedCatalog(t, db)

	return newProfileService(db, nil), db
}

func reload(t *testing.T, db *gorm.DB, uid string) *model.Profile {
	t.Helper()

	var p model.Profile
	if err := db.Where("uid = ?", uid).First(&p).Error; err != nil {
		t.Fatalf("Failed to reload profile: %v", err)
	}
	return &p
}

func decimalEq(a decimal.Decimal, b int64) bool {
	return a.Equal(decimal.NewFromInt(b))
}

// fakeEvents 记录发布的账户事件
type fakeEvents struct {
	mu     sync.Mutex
	events []*pubsub.AccountEvent
	err    error
}

func (f *fakeEvents) PublishAccountEvent(ctx context.Context, event *pubsub.AccountEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *fakeEvents) list() []*pubsub.AccountEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*pubsub.AccountEvent(nil), f.events...)
}

// fakeAvatars 内存头像存储
type fakeAvatars struct {
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeAvatars) UploadAvatar(uid string, data []byte, ext string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	url := "https://cdn.example.com/avatars/" + uid + "/" + fixedNow.Format("20060102") + ext
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeAvatars) DeleteByURL(url string) error {
	f.deleted = append(f.deleted, url)
	return errors.New("not found")
}
