package models

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Plan is a billable membership tier. The combination of the ten matching-key
// columns identifies a plan for find-or-create purposes; the unique index over
// them turns the concurrent double-insert race into a duplicate-key error that
// the matcher resolves by re-reading.
type Plan struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"type:varchar(191);not null;index:ux_plans_matching_key,unique,priority:1" json:"name"`
	Description      string    `gorm:"type:text" json:"description"`
	Confirmation     string    `gorm:"type:text" json:"confirmation"`
	AccountMessage   string    `gorm:"type:text" json:"account_message"`
	BillingAmount    float64   `gorm:"type:decimal(10,2);not null;default:0;index:ux_plans_matching_key,unique,priority:2" json:"billing_amount"`
	CycleNumber      int       `gorm:"not null;default:0;index:ux_plans_matching_key,unique,priority:3" json:"cycle_number"`
	CyclePeriod      string    `gorm:"type:varchar(10);not null;default:'';index:ux_plans_matching_key,unique,priority:4" json:"cycle_period"`
	InitialPayment   float64   `gorm:"type:decimal(10,2);not null;default:0;index:ux_plans_matching_key,unique,priority:5" json:"initial_payment"`
	TrialAmount      float64   `gorm:"type:decimal(10,2);not null;default:0;index:ux_plans_matching_key,unique,priority:6" json:"trial_amount"`
	TrialLimit       int       `gorm:"not null;default:0;index:ux_plans_matching_key,unique,priority:7" json:"trial_limit"`
	BillingLimit     int       `gorm:"not null;default:0;index:ux_plans_matching_key,unique,priority:8" json:"billing_limit"`
	ExpirationNumber int       `gorm:"not null;default:0;index:ux_plans_matching_key,unique,priority:9" json:"expiration_number"`
	ExpirationPeriod string    `gorm:"type:varchar(10);not null;default:'';index:ux_plans_matching_key,unique,priority:10" json:"expiration_period"`
	AllowSignups     bool      `gorm:"not null;default:true" json:"allow_signups"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PlanParams is the normalized ten-field matching key. Absent optional fields
// are coerced to their zero value here so that fingerprinting and database
// matching always see identical tuples.
type PlanParams struct {
	Name             string
	BillingAmount    float64
	CycleNumber      int
	CyclePeriod      string
	InitialPayment   float64
	TrialAmount      float64
	TrialLimit       int
	BillingLimit     int
	ExpirationNumber int
	ExpirationPeriod string
}

// Amount is a price field that accepts either a JSON number or a currency
// formatted string ("$1,299.99"). Formatting characters are stripped before
// parsing; a value that still fails to parse is kept as invalid so the
// validator can reject it with a stable error code.
type Amount struct {
	Value float64
	Valid bool
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		a.Value = num
		a.Valid = true
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		a.Valid = false
		return nil
	}

	val, err := ParseAmount(str)
	if err != nil {
		a.Valid = false
		return nil
	}
	a.Value = val
	a.Valid = true
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

var errUnparsableAmount = errors.New("amount is not numeric")

// ParseAmount strips currency symbols and thousands separators and parses the
// remainder as a decimal number. "1.234,56" style separators are not handled;
// the API contract is dot-decimal.
func ParseAmount(s string) (float64, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, errUnparsableAmount
	}
	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, errUnparsableAmount
	}
	return val, nil
}

// PlanRequest is the inbound request body for the plan endpoint. Optional
// fields are pointers so that "absent" and "zero" stay distinguishable until
// normalization.
type PlanRequest struct {
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	Confirmation        string  `json:"confirmation"`
	AccountMessage      string  `json:"account_message"`
	BillingAmount       *Amount `json:"billing_amount"`
	InitialPayment      *Amount `json:"initial_payment"`
	TrialAmount         *Amount `json:"trial_amount"`
	CycleNumber         *int    `json:"cycle_number"`
	CyclePeriod         *string `json:"cycle_period"`
	BillingLimit        *int    `json:"billing_limit"`
	TrialLimit          *int    `json:"trial_limit"`
	ExpirationNumber    *int    `json:"expiration_number"`
	ExpirationPeriod    *string `json:"expiration_period"`
	AllowSignups        *int    `json:"allow_signups"`
	ProtectedCategories []int   `json:"protected_categories"`
	ProtectedPages      []int   `json:"protected_pages"`
	ProtectedPosts      []int   `json:"protected_posts"`
}

func amountValue(a *Amount) float64 {
	if a == nil || !a.Valid {
		return 0
	}
	return a.Value
}

func intValue(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Params applies the defaulting rules once, centrally. The cache fingerprint
// and the database match both run through this, otherwise cache keys would
// diverge from actual matches.
func (r *PlanRequest) Params() PlanParams {
	return PlanParams{
		Name:             r.Name,
		BillingAmount:    amountValue(r.BillingAmount),
		CycleNumber:      intValue(r.CycleNumber),
		CyclePeriod:      stringValue(r.CyclePeriod),
		InitialPayment:   amountValue(r.InitialPayment),
		TrialAmount:      amountValue(r.TrialAmount),
		TrialLimit:       intValue(r.TrialLimit),
		BillingLimit:     intValue(r.BillingLimit),
		ExpirationNumber: intValue(r.ExpirationNumber),
		ExpirationPeriod: stringValue(r.ExpirationPeriod),
	}
}

// NewPlan builds a Plan row from the request using the same defaulting rules
// as Params. Signups are allowed unless the request explicitly sends 0.
func (r *PlanRequest) NewPlan() *Plan {
	p := r.Params()
	allowSignups := true
	if r.AllowSignups != nil && *r.AllowSignups == 0 {
		allowSignups = false
	}
	return &Plan{
		Name:             p.Name,
		Description:      r.Description,
		Confirmation:     r.Confirmation,
		AccountMessage:   r.AccountMessage,
		BillingAmount:    p.BillingAmount,
		CycleNumber:      p.CycleNumber,
		CyclePeriod:      p.CyclePeriod,
		InitialPayment:   p.InitialPayment,
		TrialAmount:      p.TrialAmount,
		TrialLimit:       p.TrialLimit,
		BillingLimit:     p.BillingLimit,
		ExpirationNumber: p.ExpirationNumber,
		ExpirationPeriod: p.ExpirationPeriod,
		AllowSignups:     allowSignups,
	}
}
