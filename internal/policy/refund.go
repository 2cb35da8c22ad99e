package policy

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RefundStep grants Fraction of the price when cancelling at least MinHoursBefore check-in
type RefundStep struct {
	MinHoursBefore int
	Fraction       decimal.Decimal
}

// CancellationPolicy decides refunds. Without a schedule the two-tier rule applies:
// full refund at or beyond NoticeHours before check-in, nothing inside it.
type CancellationPolicy struct {
	NoticeHours int
	Schedule    []RefundStep // sorted by MinHoursBefore descending
}

var one = decimal.NewFromInt(1)

// RefundFraction returns the share of the price refunded when cancelling at cancelledAt
func RefundFraction(checkIn, cancelledAt time.Time, p CancellationPolicy) decimal.Decimal {
	lead := checkIn.Sub(cancelledAt)

	if len(p.Schedule) == 0 {
		if lead >= time.Duration(p.NoticeHours)*time.Hour {
			return one
		}
		return decimal.Zero
	}

	for _, step := range p.Schedule {
		if lead >= time.Duration(step.MinHoursBefore)*time.Hour {
			return step.Fraction
		}
	}
	return decimal.Zero
}

// RefundAmount applies the fraction to the total, rounded to cents
func RefundAmount(total, fraction decimal.Decimal) decimal.Decimal {
	return total.Mul(fraction).Round(2)
}

// ParseRefundSchedule parses "hours:fraction" pairs such as "168:1,72:0.5,24:0.25".
// Fractions must lie in [0, 1] and must not increase as the lead time shrinks.
// An empty string means no schedule.
func ParseRefundSchedule(raw string) ([]RefundStep, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var steps []RefundStep
	seen := map[int]bool{}
	for _, part := range strings.Split(raw, ",") {
		hoursStr, fractionStr, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("step %q is not hours:fraction", part)
		}
		hours, err := strconv.Atoi(strings.TrimSpace(hoursStr))
		if err != nil || hours < 0 {
			return nil, fmt.Errorf("step %q has invalid hours", part)
		}
		fraction, err := decimal.NewFromString(strings.TrimSpace(fractionStr))
		if err != nil || fraction.IsNegative() || fraction.GreaterThan(one) {
			return nil, fmt.Errorf("step %q has a fraction outside [0, 1]", part)
		}
		if seen[hours] {
			return nil, fmt.Errorf("duplicate step for %d hours", hours)
		}
		seen[hours] = true
		steps = append(steps, RefundStep{MinHoursBefore: hours, Fraction: fraction})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].MinHoursBefore > steps[j].MinHoursBefore })
	for i := 1; i < len(steps); i++ {
		if steps[i].Fraction.GreaterThan(steps[i-1].Fraction) {
			return nil, errors.New("refund fraction must not grow as check-in approaches")
		}
	}
	return steps, nil
}
