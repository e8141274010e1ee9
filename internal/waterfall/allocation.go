package waterfall

import (
	"sort"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/frequency"
	"github.com/shopspring/decimal"
)

// Allocate splits the investment pool across buckets. Percentage buckets take
// a share of the pool (a negative pool counts as zero), amount buckets take
// their fixed sum. Shares need not add up to the pool: the difference is
// returned as unallocated and may be negative when buckets over-commit.
func Allocate(pool decimal.Decimal, buckets []domain.AllocationBucket) ([]domain.AllocationLine, decimal.Decimal) {
	base := decimal.Max(pool, decimal.Zero)

	lines := make([]domain.AllocationLine, 0, len(buckets))
	allocated := decimal.Zero
	for _, b := range buckets {
		amount := decimal.Zero
		switch b.Type {
		case domain.AllocationPercentage:
			if b.Percent != nil {
				amount = base.Mul(*b.Percent).Div(hundred).Round(2)
			}
		case domain.AllocationAmount:
			if b.FixedAmount != nil {
				amount = *b.FixedAmount
			}
		}
		allocated = allocated.Add(amount)
		lines = append(lines, domain.AllocationLine{
			Key:    b.Key,
			Label:  b.Key.Label(),
			Type:   b.Type,
			Amount: amount,
		})
	}
	return lines, pool.Sub(allocated)
}

// BucketAvailability reports, per bucket, what is left of its allocation
// after the SIPs feeding it this month. Buckets that only have SIPs show a
// zero allocation and a negative availability.
func BucketAvailability(allocations []domain.AllocationLine, sips []domain.SIP, year, month int) []domain.BucketAvailability {
	committed := make(map[domain.BucketKey]decimal.Decimal)
	for _, sip := range sips {
		if !frequency.ActiveInMonth(sip.Commitment, sip.IsActive, year, month) {
			continue
		}
		amount := frequency.AmountIfOccursInMonth(sip.Commitment, year, month)
		committed[sip.BucketKey] = committed[sip.BucketKey].Add(amount)
	}

	seen := make(map[domain.BucketKey]bool, len(allocations))
	result := make([]domain.BucketAvailability, 0, len(allocations)+len(committed))
	for _, line := range allocations {
		seen[line.Key] = true
		sip := committed[line.Key]
		result = append(result, domain.BucketAvailability{
			Key:           line.Key,
			Label:         line.Key.Label(),
			Allocated:     line.Amount,
			SIPCommitment: sip,
			Available:     line.Amount.Sub(sip),
		})
	}

	extra := make([]domain.BucketKey, 0)
	for key := range committed {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, key := range extra {
		sip := committed[key]
		result = append(result, domain.BucketAvailability{
			Key:           key,
			Label:         key.Label(),
			Allocated:     decimal.Zero,
			SIPCommitment: sip,
			Available:     sip.Neg(),
		})
	}
	return result
}
