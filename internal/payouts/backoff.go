package payouts

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Backoff is the exponential retry schedule for transient failures.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns min(Max, Base * 2^(attempt-1)) for a 1-based attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := b.Base
	for i := 1; i < attempt; i++ {
		if b.Max > 0 && delay >= b.Max {
			break
		}
		delay *= 2
	}
	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}

// splitFee divides fee across amounts in proportion, assigning the leftover
// cents by largest remainder so the shares always sum to fee.
func splitFee(fee int64, amounts []int64) []int64 {
	shares := make([]int64, len(amounts))
	if len(amounts) == 0 {
		return shares
	}
	var total int64
	for _, amount := range amounts {
		total += amount
	}
	if total == 0 {
		shares[0] = fee
		return shares
	}

	type remainder struct {
		index int
		value int64
	}
	totalDec := decimal.NewFromInt(total)
	remainders := make([]remainder, len(amounts))
	var assigned int64
	for i, amount := range amounts {
		q, r := decimal.NewFromInt(fee).Mul(decimal.NewFromInt(amount)).QuoRem(totalDec, 0)
		shares[i] = q.IntPart()
		assigned += shares[i]
		remainders[i] = remainder{index: i, value: r.IntPart()}
	}
	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].value > remainders[j].value
	})
	for i := int64(0); i < fee-assigned; i++ {
		shares[remainders[i].index]++
	}
	return shares
}
