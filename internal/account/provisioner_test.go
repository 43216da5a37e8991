package account

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bookline_backend/internal/plan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// SQLite only supports one writer; serialize through the pool.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Account{}, &Entitlement{}))
	return db
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
}

func (n *recordingNotifier) SendWelcome(_ context.Context, acct *Account) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("relay unreachable")
	}
	n.sent = append(n.sent, acct.Email)
	return nil
}

func newTestProvisioner(t *testing.T) (*Provisioner, Repository, *recordingNotifier) {
	t.Helper()
	db := newTestDB(t)
	repo := NewGORMRepository(db)
	notifier := &recordingNotifier{}
	return NewProvisioner(repo, notifier, zap.NewNop()), repo, notifier
}

func freePlan() plan.Plan {
	return plan.Plan{Code: "free", Tier: plan.TierFree, TrialDays: 30}
}

func proPlan() plan.Plan {
	return plan.Plan{Code: "pro", Tier: plan.TierPaid, PriceID: "price_123"}
}

func sampleInput(email string) ProvisionInput {
	return ProvisionInput{
		Email:        email,
		Provider:     "google",
		ProviderID:   "sub-" + email,
		FirstName:    "Ada",
		ConsentTerms: true,
	}
}

func TestProvisionFreeAccount(t *testing.T) {
	p, repo, notifier := newTestProvisioner(t)

	acct, err := p.Provision(context.Background(), sampleInput("ada@example.com"), freePlan(), Immediate())
	require.NoError(t, err)
	require.NotNil(t, acct)

	assert.Equal(t, "free", acct.PlanCode)
	assert.Equal(t, "immediate", acct.ProvisioningSource)
	require.NotNil(t, acct.Entitlement)
	assert.Equal(t, EntitlementTrialing, acct.Entitlement.State)
	require.NotNil(t, acct.Entitlement.TrialEndsAt)
	assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), *acct.Entitlement.TrialEndsAt, time.Minute)
	assert.Nil(t, acct.Entitlement.CheckoutSessionID)

	stored, err := repo.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, stored.ID)

	assert.Equal(t, []string{"ada@example.com"}, notifier.sent)
}

func TestProvisionPaidAccountWithConfirmedPayment(t *testing.T) {
	p, _, _ := newTestProvisioner(t)

	acct, err := p.Provision(context.Background(), sampleInput("grace@example.com"), proPlan(), PaymentConfirmed("cs_test_789"))
	require.NoError(t, err)

	assert.Equal(t, "payment_confirmed", acct.ProvisioningSource)
	require.NotNil(t, acct.Entitlement)
	assert.Equal(t, EntitlementActive, acct.Entitlement.State)
	require.NotNil(t, acct.Entitlement.CheckoutSessionID)
	assert.Equal(t, "cs_test_789", *acct.Entitlement.CheckoutSessionID)
	assert.Nil(t, acct.Entitlement.TrialEndsAt)
}

func TestProvisionPaidWithoutPaymentIsRejected(t *testing.T) {
	p, repo, notifier := newTestProvisioner(t)

	acct, err := p.Provision(context.Background(), sampleInput("mallory@example.com"), proPlan(), Immediate())
	assert.Nil(t, acct)
	assert.True(t, errors.Is(err, ErrInvariantViolation))

	// The guard must reject before any write.
	_, err = repo.FindByEmail(context.Background(), "mallory@example.com")
	assert.Error(t, err)
	assert.Empty(t, notifier.sent)
}

func TestProvisionFreePlanWithoutTrialIsRejected(t *testing.T) {
	p, _, _ := newTestProvisioner(t)

	noTrial := plan.Plan{Code: "free", Tier: plan.TierFree, TrialDays: 0}
	_, err := p.Provision(context.Background(), sampleInput("eve@example.com"), noTrial, Immediate())
	assert.True(t, errors.Is(err, ErrInvariantViolation))
}

func TestProvisionZeroValueSourceIsRejected(t *testing.T) {
	p, _, _ := newTestProvisioner(t)

	var src ProvisioningSource
	_, err := p.Provision(context.Background(), sampleInput("zero@example.com"), proPlan(), src)
	assert.True(t, errors.Is(err, ErrInvariantViolation))
}

func TestProvisionDuplicateEmail(t *testing.T) {
	p, _, notifier := newTestProvisioner(t)

	_, err := p.Provision(context.Background(), sampleInput("dup@example.com"), freePlan(), Immediate())
	require.NoError(t, err)

	input := sampleInput("dup@example.com")
	input.ProviderID = "sub-other"
	_, err = p.Provision(context.Background(), input, freePlan(), Immediate())
	assert.True(t, errors.Is(err, ErrDuplicateAccount))

	// The welcome goes out once, to the account that won.
	assert.Equal(t, []string{"dup@example.com"}, notifier.sent)
}

func TestProvisionEmailIsNormalized(t *testing.T) {
	p, repo, _ := newTestProvisioner(t)

	_, err := p.Provision(context.Background(), sampleInput("  Ada@Example.COM "), freePlan(), Immediate())
	require.NoError(t, err)

	stored, err := repo.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", stored.Email)
}

func TestProvisionSurvivesNotifierFailure(t *testing.T) {
	p, repo, notifier := newTestProvisioner(t)
	notifier.fail = true

	acct, err := p.Provision(context.Background(), sampleInput("welcome-fail@example.com"), freePlan(), Immediate())
	require.NoError(t, err)
	require.NotNil(t, acct)

	stored, err := repo.FindByID(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "welcome-fail@example.com", stored.Email)
}

func TestConcurrentProvisionCreatesExactlyOneAccount(t *testing.T) {
	p, _, _ := newTestProvisioner(t)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Provision(context.Background(), sampleInput("race@example.com"), freePlan(), Immediate())
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
		} else {
			assert.True(t, errors.Is(err, ErrDuplicateAccount), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
}
