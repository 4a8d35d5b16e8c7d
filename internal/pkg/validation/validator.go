package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/ManuelReschke/PlanFox/app/models"
	"github.com/ManuelReschke/PlanFox/app/repository"
)

const (
	rateKeyPrefix  = "planfox:rate:"
	dailyKeyPrefix = "planfox:daily:"
)

// Verdict is the structured accept/reject result of a validation run.
// RetryAfter is only set for rate-limit rejections.
type Verdict struct {
	Valid      bool
	Message    string
	Code       string
	RetryAfter int
}

func ok() Verdict {
	return Verdict{Valid: true}
}

func reject(message, code string) Verdict {
	return Verdict{Valid: false, Message: message, Code: code}
}

// Validator applies the policy rule set to incoming plan requests. Checks run
// sequentially and short-circuit on the first failure so error reporting
// stays deterministic.
type Validator struct {
	rules   Rules
	content repository.ContentRepository
	counter Counter
}

// New creates a Validator with the given policy, content-existence collaborator
// and counter backend.
func New(rules Rules, content repository.ContentRepository, counter Counter) *Validator {
	return &Validator{
		rules:   rules,
		content: content,
		counter: counter,
	}
}

// Rules exposes the active policy, mainly for handlers that need thresholds
// in error output.
func (v *Validator) Rules() Rules {
	return v.rules
}

// Validate runs the full check sequence. The identifier is the caller's token
// id, falling back to the client IP, and scopes the rate counter.
func (v *Validator) Validate(req *models.PlanRequest, identifier string) Verdict {
	if verdict := v.validateName(req); !verdict.Valid {
		return verdict
	}
	if verdict := v.validatePrices(req); !verdict.Valid {
		return verdict
	}
	if verdict := v.validateCycle(req); !verdict.Valid {
		return verdict
	}
	if verdict := v.validateContent(req); !verdict.Valid {
		return verdict
	}
	if verdict := v.checkRateLimit(identifier); !verdict.Valid {
		return verdict
	}
	if verdict := v.checkDailyLimit(); !verdict.Valid {
		return verdict
	}
	return ok()
}

func (v *Validator) validateName(req *models.PlanRequest) Verdict {
	if req.Name == "" {
		return reject("Name is required", "missing_required_field")
	}
	if req.BillingAmount == nil {
		return reject("Billing amount is required", "missing_required_field")
	}

	if !strings.Contains(req.Name, models.GroupSeparator) {
		return reject(
			fmt.Sprintf("Name must contain the group separator %q", models.GroupSeparator),
			"missing_group_separator",
		)
	}

	nameLength := len(req.Name)
	if nameLength < v.rules.MinNameLength {
		return reject(
			fmt.Sprintf("Name must be at least %d characters", v.rules.MinNameLength),
			"name_too_short",
		)
	}
	if nameLength > v.rules.MaxNameLength {
		return reject(
			fmt.Sprintf("Name must be less than %d characters", v.rules.MaxNameLength),
			"name_too_long",
		)
	}

	if v.rules.NamePattern != nil && !v.rules.NamePattern.MatchString(req.Name) {
		return reject("Name contains invalid characters", "invalid_name_pattern")
	}

	lowered := strings.ToLower(req.Name)
	for _, blacklisted := range v.rules.NameBlacklist {
		if blacklisted == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(blacklisted)) {
			return reject("Name contains blacklisted word", "blacklisted_name")
		}
	}

	return ok()
}

func (v *Validator) validatePrices(req *models.PlanRequest) Verdict {
	if !req.BillingAmount.Valid {
		return reject("Billing amount is not a valid price", "invalid_price")
	}
	billingAmount := req.BillingAmount.Value
	if billingAmount < 0 {
		return reject("Billing amount cannot be negative", "invalid_price")
	}
	if billingAmount == 0 && !v.rules.AllowFreeLevels {
		return reject("Free levels are not allowed", "free_levels_disabled")
	}
	if verdict := v.checkPriceBounds(billingAmount); !verdict.Valid {
		return verdict
	}

	if req.InitialPayment != nil {
		if !req.InitialPayment.Valid {
			return reject("Initial payment is not a valid price", "invalid_price")
		}
		initialPayment := req.InitialPayment.Value
		if v.rules.RequireInitialPayment && initialPayment == 0 {
			return reject("Initial payment is required", "initial_payment_required")
		}
		if initialPayment < 0 {
			return reject("Initial payment cannot be negative", "invalid_price")
		}
		if verdict := v.checkPriceBounds(initialPayment); !verdict.Valid {
			return verdict
		}
	}

	if req.TrialAmount != nil {
		if !req.TrialAmount.Valid || req.TrialAmount.Value < 0 {
			return reject("Trial amount is not a valid price", "invalid_price")
		}
	}

	return ok()
}

func (v *Validator) checkPriceBounds(amount float64) Verdict {
	if v.rules.MinPrice != nil && amount < *v.rules.MinPrice {
		return reject(
			fmt.Sprintf("Price must be at least %.2f", *v.rules.MinPrice),
			"price_below_minimum",
		)
	}
	if v.rules.MaxPrice != nil && amount > *v.rules.MaxPrice {
		return reject(
			fmt.Sprintf("Price cannot exceed %.2f", *v.rules.MaxPrice),
			"price_above_maximum",
		)
	}
	if v.rules.PriceIncrement != nil && *v.rules.PriceIncrement > 0 {
		// Compare in cents so float noise cannot fail exact multiples.
		if math.Mod(math.Round(amount*100), math.Round(*v.rules.PriceIncrement*100)) != 0 {
			return reject(
				fmt.Sprintf("Price must be a multiple of %.2f", *v.rules.PriceIncrement),
				"invalid_price_increment",
			)
		}
	}
	return ok()
}

func (v *Validator) validateCycle(req *models.PlanRequest) Verdict {
	if req.CyclePeriod != nil && *req.CyclePeriod != "" {
		if !containsString(v.rules.AllowedPeriods, *req.CyclePeriod) {
			return reject("Invalid cycle period", "invalid_cycle_period")
		}
	}

	if req.CycleNumber != nil && *req.CycleNumber != 0 {
		if !containsInt(v.rules.AllowedCycleNumbers, *req.CycleNumber) {
			return reject("Invalid cycle number", "invalid_cycle_number")
		}
	}

	if req.BillingLimit != nil {
		if *req.BillingLimit < 0 {
			return reject("Billing limit cannot be negative", "invalid_billing_limit")
		}
		if *req.BillingLimit > v.rules.MaxBillingLimit {
			return reject(
				fmt.Sprintf("Billing limit cannot exceed %d", v.rules.MaxBillingLimit),
				"billing_limit_exceeded",
			)
		}
	}

	return ok()
}

func (v *Validator) validateContent(req *models.PlanRequest) Verdict {
	checks := []struct {
		ids          []int
		resourceType string
		notFoundCode string
	}{
		{req.ProtectedCategories, models.ResourceTypeCategory, "category_not_found"},
		{req.ProtectedPages, models.ResourceTypePage, "page_not_found"},
		{req.ProtectedPosts, models.ResourceTypePost, "post_not_found"},
	}

	for _, check := range checks {
		for _, id := range check.ids {
			if id <= 0 {
				return reject(
					fmt.Sprintf("Protected %s ids must be positive integers", check.resourceType),
					"invalid_resource_id",
				)
			}
			exists, err := v.content.ResourceExists(uint(id), check.resourceType)
			if err != nil {
				return reject("Content lookup failed", "content_lookup_failed")
			}
			if !exists {
				return reject(
					fmt.Sprintf("Protected %s %d does not exist", check.resourceType, id),
					check.notFoundCode,
				)
			}
		}
	}

	return ok()
}

func (v *Validator) checkRateLimit(identifier string) Verdict {
	if !v.rules.RateLimit.Enabled {
		return ok()
	}

	count, err := v.counter.Increment(rateKey(identifier), v.rules.RateLimit.Window)
	if err != nil {
		// Counter backend outage should not take the endpoint down.
		log.Printf("validation: rate counter unavailable: %v", err)
		return ok()
	}

	if count > int64(v.rules.RateLimit.MaxRequests) {
		remaining, err := v.counter.Remaining(rateKey(identifier))
		if err != nil || remaining <= 0 {
			remaining = v.rules.RateLimit.Window
		}
		retryAfter := int(math.Ceil(remaining.Seconds()))
		return Verdict{
			Valid:      false,
			Message:    fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter),
			Code:       "rate_limit_exceeded",
			RetryAfter: retryAfter,
		}
	}

	return ok()
}

func (v *Validator) checkDailyLimit() Verdict {
	count, err := v.counter.Current(dailyKey(time.Now()))
	if err != nil {
		log.Printf("validation: daily counter unavailable: %v", err)
		return ok()
	}
	if count >= int64(v.rules.MaxLevelsPerDay) {
		return reject("Daily level creation limit exceeded", "daily_limit_exceeded")
	}
	return ok()
}

// IncrementDailyCounter bumps the calendar-day creation counter. The matcher
// calls this after each successful plan creation, not on every request.
func (v *Validator) IncrementDailyCounter() {
	if _, err := v.counter.Increment(dailyKey(time.Now()), 24*time.Hour); err != nil {
		log.Printf("validation: daily counter increment failed: %v", err)
	}
}

func rateKey(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return rateKeyPrefix + hex.EncodeToString(sum[:16])
}

func dailyKey(now time.Time) string {
	return dailyKeyPrefix + now.Format("2006-01-02")
}

func containsString(list []string, needle string) bool {
	for _, item := range list {
		if item == needle {
			return true
		}
	}
	return false
}

func containsInt(list []int, needle int) bool {
	for _, item := range list {
		if item == needle {
			return true
		}
	}
	return false
}
