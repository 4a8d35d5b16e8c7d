package levelcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/ManuelReschke/PlanFox/app/models"
)

// KeyPrefix namespaces plan cache entries so invalidation can target them
// without flushing unrelated keys.
const KeyPrefix = "planfox:level:"

// Fingerprint derives the deterministic cache key for a matching-key tuple.
// The serialization is fixed-order over exactly the ten matching fields, so
// two requests that agree on those fields always hash identically regardless
// of any extra request content. Each field is length-prefixed before hashing;
// the encoding is self-delimiting, so free-text fields cannot spoof a
// different tuple by embedding serialization markers.
func Fingerprint(params models.PlanParams) string {
	fields := []string{
		params.Name,
		formatAmount(params.BillingAmount),
		strconv.Itoa(params.CycleNumber),
		params.CyclePeriod,
		formatAmount(params.InitialPayment),
		formatAmount(params.TrialAmount),
		strconv.Itoa(params.TrialLimit),
		strconv.Itoa(params.BillingLimit),
		strconv.Itoa(params.ExpirationNumber),
		params.ExpirationPeriod,
	}

	h := sha256.New()
	for _, field := range fields {
		fmt.Fprintf(h, "%d:%s;", len(field), field)
	}
	return KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// formatAmount renders amounts with two decimals, matching how the store
// persists decimal(10,2) columns.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
