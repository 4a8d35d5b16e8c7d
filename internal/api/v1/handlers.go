package apiv1

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlanFox/app/models"
	"github.com/ManuelReschke/PlanFox/internal/pkg/levelcache"
	"github.com/ManuelReschke/PlanFox/internal/pkg/matcher"
	"github.com/ManuelReschke/PlanFox/internal/pkg/middleware"
	"github.com/ManuelReschke/PlanFox/internal/pkg/redact"
	"github.com/ManuelReschke/PlanFox/internal/pkg/validation"
)

// DebugConfig controls diagnostic output for rejected requests. Everything is
// opt-in; by default nothing about a request body reaches logs or responses.
type DebugConfig struct {
	// EchoParams includes the redacted request parameters in failure responses.
	EchoParams bool
	// LogRejected writes a structured log line for every rejected request.
	LogRejected bool
	// LogParams includes redacted parameters in that log line (otherwise only
	// a payload fingerprint is logged).
	LogParams bool
	// LogMaxLength caps the log payload; 0 means the 10000 byte default.
	LogMaxLength int
}

const defaultLogMaxLength = 10000

// APIServer serves the plan resolution endpoint.
type APIServer struct {
	validator *validation.Validator
	matcher   *matcher.Matcher
	cache     *levelcache.Store
	debug     DebugConfig
}

// NewAPIServer creates a new API server instance
func NewAPIServer(v *validation.Validator, m *matcher.Matcher, cache *levelcache.Store, debug DebugConfig) *APIServer {
	return &APIServer{
		validator: v,
		matcher:   m,
		cache:     cache,
		debug:     debug,
	}
}

// Pong is the ping response payload.
type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// PostPlan resolves a plan description to a plan id, creating the plan when
// no exact match exists. Auth has already happened in the bearer middleware.
func (s *APIServer) PostPlan(c *fiber.Ctx) error {
	body := c.Body()

	var req models.PlanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Request body is not valid JSON",
			"code":    "invalid_json",
		})
	}

	identifier := middleware.TokenIDFromContext(c)
	if identifier == "" {
		identifier = c.IP()
	}

	verdict := s.validator.Validate(&req, identifier)
	if !verdict.Valid {
		s.logRejected(body, verdict.Code)

		status := fiber.StatusBadRequest
		resp := fiber.Map{
			"success": false,
			"error":   verdict.Message,
			"code":    verdict.Code,
		}
		if verdict.Code == "rate_limit_exceeded" {
			status = fiber.StatusTooManyRequests
			resp["retry_after"] = verdict.RetryAfter
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(verdict.RetryAfter))
		}
		s.attachDebugEcho(resp, body)
		return c.Status(status).JSON(resp)
	}

	result := s.matcher.FindOrCreate(&req)
	if !result.Success {
		s.logRejected(body, result.Code)

		resp := fiber.Map{
			"success": false,
			"error":   result.Error,
			"code":    result.Code,
		}
		s.attachDebugEcho(resp, body)
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}

	message := "Existing level found"
	if result.Created {
		message = "New level created"
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":       true,
		"level_id":      result.LevelID,
		"level_created": result.Created,
		"cached":        result.Cached,
		"message":       message,
	})
}

// PostCacheInvalidate clears every cached plan resolution. Call it after any
// out-of-band plan mutation (direct DB edits, imports) so the cache never
// serves an id for a plan that no longer matches.
func (s *APIServer) PostCacheInvalidate(c *fiber.Ctx) error {
	s.cache.InvalidateAll()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Plan cache invalidated",
	})
}

// attachDebugEcho adds the redacted request parameters to a failure response
// when explicitly enabled.
func (s *APIServer) attachDebugEcho(resp fiber.Map, body []byte) {
	if !s.debug.EchoParams {
		return
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return
	}
	resp["debug"] = fiber.Map{"received_params": redact.Params(raw)}
}

// logRejected writes an opt-in structured log line for a rejected request.
// Params only appear redacted and only when LogParams is on; the default is a
// content fingerprint, which is enough to correlate caller reports.
func (s *APIServer) logRejected(body []byte, code string) {
	if !s.debug.LogRejected {
		return
	}

	sum := sha256.Sum256(body)
	entry := map[string]any{
		"route":       "/api/v1/plans",
		"code":        code,
		"params_hash": hex.EncodeToString(sum[:]),
	}

	if s.debug.LogParams {
		var raw map[string]any
		if err := json.Unmarshal(body, &raw); err == nil {
			entry["params"] = redact.Params(raw)
		}
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	maxLen := s.debug.LogMaxLength
	if maxLen <= 0 {
		maxLen = defaultLogMaxLength
	}
	if len(payload) > maxLen {
		payload = append(payload[:maxLen], []byte("...")...)
	}
	log.Printf("planfox-debug: %s", payload)
}
