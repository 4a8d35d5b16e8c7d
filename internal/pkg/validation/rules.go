package validation

import (
	"regexp"
	"time"
)

// RateLimitRules configures the per-identifier sliding request counter. The
// check can be switched off entirely for trusted internal callers.
type RateLimitRules struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
}

// Rules holds every validation tunable. The host wires overrides from
// configuration; zero-config callers use DefaultRules. The price policy
// fields (bounds and increment) are optional extension points (nil =
// disabled) since the default behavior rejects negative amounts only.
type Rules struct {
	MinNameLength         int
	MaxNameLength         int
	NamePattern           *regexp.Regexp
	NameBlacklist         []string
	AllowedPeriods        []string
	AllowedCycleNumbers   []int
	MaxBillingLimit       int
	AllowFreeLevels       bool
	RequireInitialPayment bool
	MinPrice              *float64
	MaxPrice              *float64
	PriceIncrement        *float64
	RateLimit             RateLimitRules
	MaxLevelsPerDay       int
}

// DefaultRules returns the standard policy.
func DefaultRules() Rules {
	return Rules{
		MinNameLength:       1,
		MaxNameLength:       255,
		NameBlacklist:       []string{},
		AllowedPeriods:      []string{"Day", "Week", "Month", "Year"},
		AllowedCycleNumbers: []int{1, 2, 3, 6, 12},
		MaxBillingLimit:     999,
		AllowFreeLevels:     true,
		RateLimit: RateLimitRules{
			Enabled:     true,
			MaxRequests: 100,
			Window:      time.Hour,
		},
		MaxLevelsPerDay: 1000,
	}
}
