package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"qrtrack/entity"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrInt(v int64) *int64          { return &v }

func TestCheck(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		qr   entity.QRCode
		want Status
	}{
		{
			name: "unlimited",
			qr:   entity.QRCode{ScanCount: 1000},
			want: Allowed,
		},
		{
			name: "expired in the past",
			qr:   entity.QRCode{ExpirationDate: ptrTime(now.Add(-time.Second))},
			want: Expired,
		},
		{
			name: "expires exactly now is still allowed",
			qr:   entity.QRCode{ExpirationDate: ptrTime(now)},
			want: Allowed,
		},
		{
			name: "expires in the future",
			qr:   entity.QRCode{ExpirationDate: ptrTime(now.Add(time.Hour))},
			want: Allowed,
		},
		{
			name: "limit reached",
			qr:   entity.QRCode{ScanLimit: ptrInt(5), ScanCount: 5},
			want: LimitReached,
		},
		{
			name: "limit exceeded",
			qr:   entity.QRCode{ScanLimit: ptrInt(5), ScanCount: 7},
			want: LimitReached,
		},
		{
			name: "below limit",
			qr:   entity.QRCode{ScanLimit: ptrInt(5), ScanCount: 4},
			want: Allowed,
		},
		{
			name: "expired takes precedence over limit",
			qr: entity.QRCode{
				ExpirationDate: ptrTime(now.Add(-time.Hour)),
				ScanLimit:      ptrInt(1),
				ScanCount:      1,
			},
			want: Expired,
		},
		{
			name: "zero limit means unlimited",
			qr:   entity.QRCode{ScanLimit: ptrInt(0), ScanCount: 3},
			want: Allowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(&tt.qr, now))
		})
	}
}

func TestCheck_ExpiredRegardlessOfCounters(t *testing.T) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	for count := int64(0); count < 5; count++ {
		qr := entity.QRCode{ExpirationDate: &past, ScanLimit: ptrInt(3), ScanCount: count}
		assert.Equal(t, Expired, Check(&qr, now), "count %d", count)
	}
}

func TestStatusReason(t *testing.T) {
	assert.Equal(t, "expired", Expired.Reason())
	assert.Equal(t, "limit", LimitReached.Reason())
}
