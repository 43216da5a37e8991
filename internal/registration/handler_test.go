package registration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookline_backend/internal/config"
	"bookline_backend/internal/payment"
	"bookline_backend/internal/plan"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWebhookTestRouter(t *testing.T, gateway payment.Gateway, processor *WebhookProcessor) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog, err := plan.NewCatalog(&config.Config{FreePlanTrialDays: 30, ProPlanPriceID: "price_pro"})
	require.NoError(t, err)

	handler := NewHandler(nil, nil, nil, processor, nil, gateway, catalog, nil, nil, &config.Config{}, zap.NewNop())

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postWebhook(router *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func getStart(router *gin.Engine, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start?"+query, nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestStartRejectsUnknownFlow(t *testing.T) {
	router := newWebhookTestRouter(t, &fakeGateway{}, nil)

	recorder := getStart(router, "flow=sideways")
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "VALIDATION_ERROR")
	assert.Contains(t, recorder.Body.String(), "Flow")
}

func TestStartRejectsRegistrationWithoutTermsConsent(t *testing.T) {
	router := newWebhookTestRouter(t, &fakeGateway{}, nil)

	recorder := getStart(router, "flow=register&plan=free")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "terms of service")
}

func TestStartRejectsUnsellablePlanBeforeRedirect(t *testing.T) {
	// The test catalog configures no premium price id.
	router := newWebhookTestRouter(t, &fakeGateway{}, nil)

	recorder := getStart(router, "flow=register&plan=premium&consent_terms=true")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "PAYMENT_NOT_CONFIGURED")
}

func TestWebhookEndpointRejectsInvalidSignature(t *testing.T) {
	db := newTestDB(t)
	repo := NewGORMRepository(db)
	provisioner := &fakeProvisioner{}
	catalog, err := plan.NewCatalog(&config.Config{FreePlanTrialDays: 30, ProPlanPriceID: "price_pro"})
	require.NoError(t, err)
	processor := NewWebhookProcessor(repo, provisioner, &fakeAccounts{}, &fakeFailureNotifier{}, catalog, zap.NewNop())
	router := newWebhookTestRouter(t, &fakeGateway{}, processor)

	recorder := postWebhook(router, `{"id":"evt_1"}`, "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	// Nothing reached the ledger or the provisioner.
	_, fresh, err := repo.RecordEvent(context.Background(), &WebhookEvent{ExternalEventID: "evt_1", Type: "x"})
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Zero(t, provisioner.callCount())
}

func TestWebhookEndpointProcessesVerifiedEvent(t *testing.T) {
	db := newTestDB(t)
	repo := NewGORMRepository(db)
	provisioner := &fakeProvisioner{}
	catalog, err := plan.NewCatalog(&config.Config{FreePlanTrialDays: 30, ProPlanPriceID: "price_pro"})
	require.NoError(t, err)
	processor := NewWebhookProcessor(repo, provisioner, &fakeAccounts{}, &fakeFailureNotifier{}, catalog, zap.NewNop())

	pending := seedPending(t, repo, "cs_http_1", time.Now().UTC().Add(time.Hour))

	gateway := &fakeGateway{parseEvent: confirmedEvent("evt_http_1", "cs_http_1")}
	router := newWebhookTestRouter(t, gateway, processor)

	recorder := postWebhook(router, `{"id":"evt_http_1"}`, "t=1,v1=valid")
	assert.Equal(t, http.StatusOK, recorder.Code)

	assert.Equal(t, 1, provisioner.callCount())
	stored, err := repo.FindPendingByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProvisioned, stored.Status)
}
