// Package analytics reduces scan records into grouped counts.
//
// Records with an empty grouping key are left out of that dimension rather than
// counted under a placeholder; MongoDB-side grouping applies the same rule.
package analytics

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"qrtrack/entity"
	"qrtrack/lib/clock"
)

const DefaultTopLimit = 10

type Options struct {
	// Since bounds scansByDate only; zero keeps every date
	Since    time.Time
	TopLimit int
	// Names resolves code ids for topQRCodes
	Names map[primitive.ObjectID]string
}

func Reduce(scans []*entity.Scan, opts Options) *entity.Analytics {
	result := entity.NewAnalytics()
	counts := make(map[primitive.ObjectID]int64)

	for _, scan := range scans {
		if scan == nil {
			continue
		}
		result.TotalScans++
		add(result.Browsers, scan.Browser.Name)
		add(result.OS, scan.OS.Name)
		add(result.Devices, scan.Device.Type)
		add(result.Countries, scan.Location.Country)
		if opts.Since.IsZero() || !scan.CreatedAt.Before(opts.Since) {
			add(result.ScansByDate, clock.DateKey(scan.CreatedAt))
		}
		if scan.QRCode != nil {
			counts[*scan.QRCode]++
		}
	}

	result.TopQRCodes = Top(counts, opts.Names, opts.TopLimit)
	return result
}

// Top orders codes by scan count, ties broken by id for stable output
func Top(counts map[primitive.ObjectID]int64, names map[primitive.ObjectID]string, limit int) []entity.TopQRCode {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	top := make([]entity.TopQRCode, 0, len(counts))
	for id, count := range counts {
		top = append(top, entity.TopQRCode{
			QRCodeId: id,
			Name:     names[id],
			Count:    count,
		})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].QRCodeId.Hex() < top[j].QRCodeId.Hex()
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top
}

func add(m map[string]int64, key string) {
	if key == "" {
		return
	}
	m[key]++
}
