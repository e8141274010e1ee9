package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BucketKey identifies an investment bucket. The set is closed; new buckets
// must be added to bucketRegistry.
type BucketKey string

const (
	BucketEquity        BucketKey = "EQUITY"
	BucketDebt          BucketKey = "DEBT"
	BucketGold          BucketKey = "GOLD"
	BucketRealEstate    BucketKey = "REAL_ESTATE"
	BucketCrypto        BucketKey = "CRYPTO"
	BucketCash          BucketKey = "CASH"
	BucketInternational BucketKey = "INTERNATIONAL"
	BucketOther         BucketKey = "OTHER"
)

var bucketRegistry = map[BucketKey]string{
	BucketEquity:        "Equity",
	BucketDebt:          "Debt",
	BucketGold:          "Gold",
	BucketRealEstate:    "Real Estate",
	BucketCrypto:        "Crypto",
	BucketCash:          "Cash",
	BucketInternational: "International",
	BucketOther:         "Other",
}

// ParseBucketKey normalizes and validates a bucket identifier
func ParseBucketKey(s string) (BucketKey, error) {
	key := BucketKey(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := bucketRegistry[key]; !ok {
		return "", fmt.Errorf("%w: unknown bucket %q", ErrInvalidInput, s)
	}
	return key, nil
}

// Label returns the display name of the bucket
func (k BucketKey) Label() string {
	if label, ok := bucketRegistry[k]; ok {
		return label
	}
	return string(k)
}

// AllocationType says whether a bucket takes a share of the pool or a fixed sum
type AllocationType string

const (
	AllocationPercentage AllocationType = "PERCENTAGE"
	AllocationAmount     AllocationType = "AMOUNT"
)

// AllocationBucket is one configured slice of the investment pool
type AllocationBucket struct {
	Key         BucketKey        `json:"key"`
	Type        AllocationType   `json:"type"`
	Percent     *decimal.Decimal `json:"percent,omitempty"`
	FixedAmount *decimal.Decimal `json:"fixedAmount,omitempty"`
}

// AllocationLine is a bucket's computed share for one month
type AllocationLine struct {
	Key    BucketKey       `json:"key"`
	Label  string          `json:"label"`
	Type   AllocationType  `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// BucketAvailability is what is left in a bucket for one-time purchases or
// new SIPs after the SIPs already committed to it this month
type BucketAvailability struct {
	Key           BucketKey       `json:"key"`
	Label         string          `json:"label"`
	Allocated     decimal.Decimal `json:"allocated"`
	SIPCommitment decimal.Decimal `json:"sipCommitment"`
	Available     decimal.Decimal `json:"available"`
}
