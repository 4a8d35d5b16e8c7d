package apiv1

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/PlanFox/app/models"
	"github.com/ManuelReschke/PlanFox/internal/pkg/levelcache"
	"github.com/ManuelReschke/PlanFox/internal/pkg/matcher"
	"github.com/ManuelReschke/PlanFox/internal/pkg/middleware"
	"github.com/ManuelReschke/PlanFox/internal/pkg/tokenstore"
	"github.com/ManuelReschke/PlanFox/internal/pkg/validation"
)

type memPlanRepo struct {
	mu     sync.Mutex
	plans  []*models.Plan
	nextID uint
}

func (f *memPlanRepo) Create(plan *models.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	plan.ID = f.nextID
	f.plans = append(f.plans, plan)
	return nil
}

func (f *memPlanRepo) GetByID(id uint) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *memPlanRepo) FindMatching(params models.PlanParams) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plans {
		if p.Name == params.Name &&
			p.BillingAmount == params.BillingAmount &&
			p.CycleNumber == params.CycleNumber &&
			p.CyclePeriod == params.CyclePeriod &&
			p.InitialPayment == params.InitialPayment &&
			p.TrialAmount == params.TrialAmount &&
			p.TrialLimit == params.TrialLimit &&
			p.BillingLimit == params.BillingLimit &&
			p.ExpirationNumber == params.ExpirationNumber &&
			p.ExpirationPeriod == params.ExpirationPeriod {
			return p, nil
		}
	}
	return nil, nil
}

func (f *memPlanRepo) Update(plan *models.Plan) error                { return nil }
func (f *memPlanRepo) Delete(id uint) error                          { return nil }
func (f *memPlanRepo) List(offset, limit int) ([]models.Plan, error) { return nil, nil }

func (f *memPlanRepo) Count() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.plans)), nil
}

type memGroupRepo struct {
	mu     sync.Mutex
	groups map[string]*models.PlanGroup
	nextID uint
}

func (f *memGroupRepo) GetByName(name string) (*models.PlanGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups[name], nil
}

func (f *memGroupRepo) Create(group *models.PlanGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	group.ID = f.nextID
	f.groups[group.Name] = group
	return nil
}

func (f *memGroupRepo) FindOrCreate(name string) (*models.PlanGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if group, ok := f.groups[name]; ok {
		return group, nil
	}
	f.nextID++
	group := &models.PlanGroup{ID: f.nextID, Name: name}
	f.groups[name] = group
	return group, nil
}

func (f *memGroupRepo) LinkPlan(groupID, planID uint) error      { return nil }
func (f *memGroupRepo) PlansInGroup(uint) ([]models.Plan, error) { return nil, nil }

type memContentRepo struct{}

func (memContentRepo) ResourceExists(id uint, resourceType string) (bool, error) { return true, nil }
func (memContentRepo) AddRestriction(resourceID, planID uint) error              { return nil }
func (memContentRepo) RestrictedPlans(resourceID uint) ([]uint, error)           { return nil, nil }

type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.AccessToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*models.AccessToken)}
}

func (f *memTokenRepo) Create(token *models.AccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *token
	f.tokens[token.ID] = &copied
	return nil
}

func (f *memTokenRepo) GetByID(id string) (*models.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *token
	return &copied, nil
}

func (f *memTokenRepo) GetAll() ([]models.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AccessToken
	for _, token := range f.tokens {
		out = append(out, *token)
	}
	return out, nil
}

func (f *memTokenRepo) Update(token *models.AccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *token
	f.tokens[token.ID] = &copied
	return nil
}

func (f *memTokenRepo) Delete(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[id]; !ok {
		return false, nil
	}
	delete(f.tokens, id)
	return true, nil
}

func (f *memTokenRepo) TouchLastUsed(id string, when time.Time) error { return nil }

func (f *memTokenRepo) Count() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.tokens)), nil
}

type testEnv struct {
	app    *fiber.App
	secret string
	cache  *levelcache.Store
}

func newTestEnv(t *testing.T, rules validation.Rules, debug DebugConfig) *testEnv {
	t.Helper()

	plans := &memPlanRepo{}
	groups := &memGroupRepo{groups: make(map[string]*models.PlanGroup)}
	content := memContentRepo{}

	tokens := tokenstore.New(newMemTokenRepo())
	created, err := tokens.Create("test")
	if err != nil {
		t.Fatalf("creating test token: %v", err)
	}

	cacheStore := levelcache.New(levelcache.NewMemoryStore(), time.Minute)
	v := validation.New(rules, content, validation.NewMemoryCounter())
	m := matcher.New(plans, groups, content, cacheStore, v)
	server := NewAPIServer(v, m, cacheStore, debug)

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Get("/ping", server.GetPing)
	protected := api.Group("", middleware.BearerAuthMiddleware(tokens))
	protected.Post("/plans", server.PostPlan)
	protected.Post("/cache/invalidate", server.PostCacheInvalidate)

	return &testEnv{app: app, secret: created.Secret, cache: cacheStore}
}

func (e *testEnv) post(t *testing.T, path, body, bearer string) (*http.Response, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, bearer)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	var payload map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("response is not JSON: %v (%s)", err, raw)
		}
	}
	return resp, payload
}

func (e *testEnv) postPlan(t *testing.T, body string) (*http.Response, map[string]any) {
	return e.post(t, "/api/v1/plans", body, "Bearer "+e.secret)
}

func TestPing(t *testing.T) {
	env := newTestEnv(t, validation.DefaultRules(), DebugConfig{})

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/ping", nil)
	resp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPostPlanRequiresAuth(t *testing.T) {
	env := newTestEnv(t, validation.DefaultRules(), DebugConfig{})
	body := `{"name":"Gold - Monthly","billing_amount":29.99}`

	resp, payload := env.post(t, "/api/v1/plans", body, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing_authorization", payload["code"])

	resp, payload = env.post(t, "/api/v1/plans", body, "Token xyz")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_authorization_format", payload["code"])

	resp, payload = env.post(t, "/api/v1/plans", body, "Bearer wrong-secret")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "invalid_token", payload["code"])
}

func TestPostPlanNoTokensConfigured(t *testing.T) {
	plans := &memPlanRepo{}
	groups := &memGroupRepo{groups: make(map[string]*models.PlanGroup)}
	tokens := tokenstore.New(newMemTokenRepo())

	cacheStore := levelcache.New(levelcache.NewMemoryStore(), time.Minute)
	v := validation.New(validation.DefaultRules(), memContentRepo{}, validation.NewMemoryCounter())
	m := matcher.New(plans, groups, memContentRepo{}, cacheStore, v)
	server := NewAPIServer(v, m, cacheStore, DebugConfig{})

	app := fiber.New()
	app.Post("/api/v1/plans", middleware.BearerAuthMiddleware(tokens), server.PostPlan)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/plans", bytes.NewBufferString(`{}`))
	req.Header.Set(fiber.HeaderAuthorization, "Bearer something")
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	var payload map[string]any
	assert.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "no_tokens_configured", payload["code"])
}

func TestPostPlanCreatesThenFinds(t *testing.T) {
	env := newTestEnv(t, validation.DefaultRules(), DebugConfig{})
	body := `{"name":"Gold - Monthly","billing_amount":29.99,"cycle_number":1,"cycle_period":"Month"}`

	resp, payload := env.postPlan(t, body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, true, payload["level_created"])
	assert.Equal(t, false, payload["cached"])
	assert.Equal(t, "New level created", payload["message"])
	levelID := payload["level_id"]
	assert.NotNil(t, levelID)

	resp, payload = env.postPlan(t, body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, payload["level_created"])
	assert.Equal(t, true, payload["cached"])
	assert.Equal(t, "Existing level found", payload["message"])
	assert.Equal(t, levelID, payload["level_id"])
}

func TestPostPlanInvalidJSON(t *testing.T) {
	env := newTestEnv(t, validation.DefaultRules(), DebugConfig{})

	resp, payload := env.postPlan(t, `{"name": broken`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_json", payload["code"])
}

func TestPostPlanValidationErrors(t *testing.T) {
	env := newTestEnv(t, validation.DefaultRules(), DebugConfig{})

	resp, payload := env.postPlan(t, `{"name":"NoGroup","billing_amount":10}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "missing_group_separator", payload["code"])

	resp, payload = env.postPlan(t, `{"name":"Gold - Monthly","billing_amount":-5}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_price", payload["code"])

	resp, payload = env.postPlan(t, `{"billing_amount":10}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_required_field", payload["code"])
}

func TestPostPlanRateLimit(t *testing.T) {
	rules := validation.DefaultRules()
	rules.RateLimit = validation.RateLimitRules{Enabled: true, MaxRequests: 2, Window: 60 * time.Second}
	env := newTestEnv(t, rules, DebugConfig{})
	body := `{"name":"Gold - Monthly","billing_amount":29.99}`

	resp, _ := env.postPlan(t, body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = env.postPlan(t, body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, payload := env.postPlan(t, body)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limit_exceeded", payload["code"])

	retryAfter, ok := payload["retry_after"].(float64)
	assert.True(t, ok)
	assert.Greater(t, retryAfter, float64(0))
	assert.LessOrEqual(t, retryAfter, float64(60))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestPostCacheInvalidate(t *testing.T) {
	env := newTestEnv(t, validation.DefaultRules(), DebugConfig{})
	body := `{"name":"Gold - Monthly","billing_amount":29.99}`

	resp, first := env.postPlan(t, body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, payload := env.post(t, "/api/v1/cache/invalidate", `{}`, "Bearer "+env.secret)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["success"])

	// The plan still resolves, but from the database, not the cache.
	resp, second := env.postPlan(t, body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, second["level_created"])
	assert.Equal(t, false, second["cached"])
	assert.Equal(t, first["level_id"], second["level_id"])
}

func TestPostPlanDebugEcho(t *testing.T) {
	env := newTestEnv(t, validation.DefaultRules(), DebugConfig{EchoParams: true})

	resp, payload := env.postPlan(t, `{"name":"NoGroup","billing_amount":10,"card_number":"4111"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	debug, ok := payload["debug"].(map[string]any)
	assert.True(t, ok)
	received, ok := debug["received_params"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "NoGroup", received["name"])
	assert.Equal(t, "[REDACTED]", received["card_number"])
}

func TestPostPlanNoDebugEchoByDefault(t *testing.T) {
	env := newTestEnv(t, validation.DefaultRules(), DebugConfig{})

	_, payload := env.postPlan(t, `{"name":"NoGroup","billing_amount":10}`)
	_, present := payload["debug"]
	assert.False(t, present)
}
