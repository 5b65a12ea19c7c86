package utils

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// ParseUint safely parses a string to uint
func ParseUint(s string) uint {
	i, _ := strconv.ParseUint(s, 10, 32)
	return uint(i)
}

// Pointer returns a pointer to the given value
func Pointer[T any](v T) *T {
	return &v
}

// StartOfDayUTC returns midnight UTC of t's day. Daily quota windows are
// counted against the UTC calendar day regardless of tenant locale.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Jitter returns a random duration in [min, max), used to stagger dispatch
// so outreach across tenants never bursts at the same instant.
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// SplitName splits a combined display name into first/last when the
// provider returns no granular fields.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// PersonalizeMessage substitutes prospect fields into a message template.
func PersonalizeMessage(template, firstName, lastName, company string) string {
	r := strings.NewReplacer(
		"{{first_name}}", firstName,
		"{{last_name}}", lastName,
		"{{company}}", company,
	)
	return r.Replace(template)
}
