package registration

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"bookline_backend/internal/account"
	"bookline_backend/internal/common"
	"bookline_backend/internal/payment"
	"bookline_backend/internal/plan"

	"github.com/stretchr/testify/require"
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
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&PendingRegistration{}, &WebhookEvent{}))
	return db
}

// fakeGateway implements payment.Gateway for tests.
type fakeGateway struct {
	mu             sync.Mutex
	createErr      error
	createdParams  []payment.CheckoutParams
	sessionCounter int
	parseEvent     *payment.Event
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, params payment.CheckoutParams) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.createdParams = append(g.createdParams, params)
	g.sessionCounter++
	id := fmt.Sprintf("cs_test_%d", g.sessionCounter)
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.example.com/" + id}, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, signature string) (*payment.Event, error) {
	if g.parseEvent == nil || signature == "" {
		return nil, payment.ErrInvalidSignature
	}
	return g.parseEvent, nil
}

// fakeProvisioner implements AccountProvisioner for tests.
type fakeProvisioner struct {
	mu      sync.Mutex
	calls   []account.ProvisionInput
	sources []account.ProvisioningSource
	err     error
}

func (p *fakeProvisioner) Provision(_ context.Context, input account.ProvisionInput, _ plan.Plan, src account.ProvisioningSource) (*account.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.calls = append(p.calls, input)
	p.sources = append(p.sources, src)
	return &account.Account{Email: input.Email}, nil
}

func (p *fakeProvisioner) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// fakeAccounts implements AccountLookup for tests.
type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]*account.Account
}

func (a *fakeAccounts) put(acct *account.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.accounts == nil {
		a.accounts = make(map[string]*account.Account)
	}
	a.accounts[acct.Email] = acct
}

func (a *fakeAccounts) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if acct, ok := a.accounts[email]; ok {
		return acct, nil
	}
	return nil, common.ErrNotFound
}

// fakeFailureNotifier implements PaymentFailureNotifier for tests.
type fakeFailureNotifier struct {
	mu       sync.Mutex
	notified []*account.Account
}

func (n *fakeFailureNotifier) SendPaymentFailed(_ context.Context, acct *account.Account) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, acct)
	return nil
}

func (n *fakeFailureNotifier) notifyCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notified)
}
