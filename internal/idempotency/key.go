package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"example.com/golocalevents/internal/domain"
)

// DeriveKey returns a stable content key for an event occurrence.
// Title and host are compared case- and space-insensitively; date and time as given.
// We return a hex-encoded SHA-256 to guarantee fixed length.
func DeriveKey(title, date, clock, host string) string {
	composite := strings.Join([]string{
		normalize(title),
		strings.TrimSpace(date),
		strings.TrimSpace(clock),
		normalize(host),
	}, "|")
	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:])
}

func KeyForDraft(d *domain.Draft) string {
	return DeriveKey(d.Title, d.Date, d.Time, d.Host)
}

func KeyForEvent(ev *domain.Event) string {
	return DeriveKey(ev.Title, ev.Date, ev.Time, ev.Host)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
