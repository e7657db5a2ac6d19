package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxAmount caps any single monetary input.
var MaxAmount = decimal.NewFromInt(10_000_000)

// ParseAmount parses a monetary input such as "25", "25.50" or "25,50".
// Negative, non-numeric and absurdly large values are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	// accept the Brazilian decimal comma
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d.Round(2), nil
}

// ValidateAmount checks an already-parsed amount (non-negative, below MaxAmount).
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("amount must not be negative, got %s", d)
	}
	if d.GreaterThanOrEqual(MaxAmount) {
		return fmt.Errorf("amount too large, got %s", d)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date into UTC midnight.
func ParseDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %w", err)
	}
	return t, nil
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseKickOff parses "HH:MM"; an empty value yields def.
func ParseKickOff(s, def string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", fmt.Errorf("invalid time %q", s)
	}
	return t.Format("15:04"), nil
}

// ParseYear parses a reference year in [2000, 2100].
func ParseYear(s string) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return y, ValidateYear(y)
}

// ValidateYear checks a reference year is within [2000, 2100].
func ValidateYear(y int) error {
	if y < 2000 || y > 2100 {
		return fmt.Errorf("year out of range, got %d", y)
	}
	return nil
}

// ParseCount parses a non-negative integer such as a goal count.
func ParseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("number must not be negative, got %d", n)
	}
	return n, nil
}

// ValidateLabel checks a required free-text field (not blank, at most max runes).
func ValidateLabel(label string, max int) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("value is empty")
	}
	if utf8.RuneCountInString(label) > max {
		return fmt.Errorf("value too long, max %d characters", max)
	}
	return nil
}
