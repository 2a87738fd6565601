// Package availability decides whether a code may still be scanned.
package availability

import (
	"time"

	"qrtrack/entity"
)

type Status int

const (
	Allowed Status = iota
	Expired
	LimitReached
)

func (s Status) String() string {
	switch s {
	case Expired:
		return "expired"
	case LimitReached:
		return "limit"
	default:
		return "allowed"
	}
}

// Reason is the query value of the unavailable page
func (s Status) Reason() string {
	return s.String()
}

// Check has no side effects; it runs before anything is recorded.
// Expiration wins over the scan limit when both apply.
func Check(qr *entity.QRCode, now time.Time) Status {
	if qr.ExpirationDate != nil && now.After(*qr.ExpirationDate) {
		return Expired
	}
	if qr.HasLimit() && qr.ScanCount >= *qr.ScanLimit {
		return LimitReached
	}
	return Allowed
}
