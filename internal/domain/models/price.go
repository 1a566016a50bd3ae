package models

import (
	"fmt"
	"strings"
	"time"
)

// PriceBar is one daily OHLCV session.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ValidateBars checks that dates are strictly increasing and closes are positive.
func ValidateBars(bars []PriceBar) error {
	for i, b := range bars {
		if b.Close <= 0 {
			return fmt.Errorf("bar %d (%s): non-positive close %v", i, b.Date.Format(time.DateOnly), b.Close)
		}
		if i > 0 && !b.Date.After(bars[i-1].Date) {
			return fmt.Errorf("bar %d (%s): date not after %s", i, b.Date.Format(time.DateOnly), bars[i-1].Date.Format(time.DateOnly))
		}
	}
	return nil
}

// NormalizeTicker upper-cases and validates a ticker: 1 to 10 ASCII letters.
func NormalizeTicker(s string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	if t == "" || len(t) > 10 {
		return "", fmt.Errorf("%w: %q must be 1-10 alphabetic characters", ErrInvalidTicker, s)
	}
	for _, r := range t {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q must be 1-10 alphabetic characters", ErrInvalidTicker, s)
		}
	}
	return t, nil
}
