package sweeper

import (
	"time"

	"github.com/angelmondragon/packfinderz-settlement/internal/settlement"
)

// CountdownView is the dashboard projection of an entry's holding window.
type CountdownView struct {
	DaysSinceSale        int       `json:"daysSinceSale"`
	DaysRemaining        int       `json:"daysRemaining"`
	ProgressPercentage   int       `json:"progressPercentage"`
	EstimatedPaymentDate time.Time `json:"estimatedPaymentDate"`
}

// Countdown derives the holding window progress from the immutable sale date
// and hold days. Sales dated in the future count as day zero.
func Countdown(saleDate time.Time, holdDays int, now time.Time) CountdownView {
	if holdDays < 0 {
		holdDays = 0
	}
	days := int(now.Sub(saleDate) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}

	remaining := holdDays - days
	if remaining < 0 {
		remaining = 0
	}

	return CountdownView{
		DaysSinceSale:        days,
		DaysRemaining:        remaining,
		ProgressPercentage:   progress(days, holdDays),
		EstimatedPaymentDate: settlement.EligibleAt(saleDate, holdDays),
	}
}

// progress is round(min(100, days/hold*100)) in integer arithmetic, half up.
func progress(days, hold int) int {
	if hold == 0 {
		return 100
	}
	if days >= hold {
		return 100
	}
	return (200*days + hold) / (2 * hold)
}
