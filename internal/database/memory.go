package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"qrtrack/entity"
	"qrtrack/internal/analytics"
	"qrtrack/lib/validate"
)

// MemoryStore is a process-local repository used when MongoDB is disabled
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[primitive.ObjectID]*entity.User
	qrcodes map[primitive.ObjectID]*entity.QRCode
	scans   []*entity.Scan
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[primitive.ObjectID]*entity.User),
		qrcodes: make(map[primitive.ObjectID]*entity.QRCode),
		scans:   make([]*entity.Scan, 0),
	}
}

func (s *MemoryStore) PutUser(user *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.Id.IsZero() {
		user.Id = primitive.NewObjectID()
	}
	u := *user
	s.users[u.Id] = &u
}

func (s *MemoryStore) PutQRCode(qr *entity.QRCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if qr.Id.IsZero() {
		qr.Id = primitive.NewObjectID()
	}
	c := *qr
	s.qrcodes[c.Id] = &c
}

func (s *MemoryStore) GetQRCode(_ context.Context, id primitive.ObjectID) (*entity.QRCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qr, ok := s.qrcodes[id]
	if !ok {
		return nil, nil
	}
	c := *qr
	return &c, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id primitive.ObjectID) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	u := *user
	return &u, nil
}

func (s *MemoryStore) UserQRCodes(_ context.Context, userId primitive.ObjectID) ([]*entity.QRCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]*entity.QRCode, 0)
	for _, qr := range s.qrcodes {
		if qr.OwnedBy(userId) {
			c := *qr
			codes = append(codes, &c)
		}
	}
	sort.Slice(codes, func(i, j int) bool {
		return codes[i].CreatedAt.After(codes[j].CreatedAt)
	})
	return codes, nil
}

func (s *MemoryStore) RecordScan(_ context.Context, scan *entity.Scan) (int64, error) {
	if err := validate.Struct(scan); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if scan.QRCode == nil {
		return 0, entity.ErrLimitReached
	}
	qr, ok := s.qrcodes[*scan.QRCode]
	if !ok {
		return 0, entity.ErrLimitReached
	}
	if qr.HasLimit() && qr.ScanCount >= *qr.ScanLimit {
		return 0, entity.ErrLimitReached
	}
	qr.ScanCount++
	qr.UpdatedAt = time.Now().UTC()
	s.appendScan(scan)
	return qr.ScanCount, nil
}

func (s *MemoryStore) SaveScan(_ context.Context, scan *entity.Scan) error {
	if err := validate.Struct(scan); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendScan(scan)
	return nil
}

func (s *MemoryStore) appendScan(scan *entity.Scan) {
	if scan.Id.IsZero() {
		scan.Id = primitive.NewObjectID()
	}
	c := *scan
	s.scans = append(s.scans, &c)
}

func (s *MemoryStore) QRCodeScans(_ context.Context, id primitive.ObjectID) ([]*entity.Scan, error) {
	return s.filterScans(func(scan *entity.Scan) bool {
		return scan.QRCode != nil && *scan.QRCode == id
	}), nil
}

func (s *MemoryStore) ScansByQRCodes(_ context.Context, ids []primitive.ObjectID) ([]*entity.Scan, error) {
	set := idSet(ids)
	return s.filterScans(func(scan *entity.Scan) bool {
		return scan.QRCode != nil && set[*scan.QRCode]
	}), nil
}

func (s *MemoryStore) RecentScans(ctx context.Context, ids []primitive.ObjectID, limit int64) ([]*entity.ScanView, error) {
	scans, _ := s.ScansByQRCodes(ctx, ids)
	if limit > 0 && int64(len(scans)) > limit {
		scans = scans[:limit]
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	views := make([]*entity.ScanView, 0, len(scans))
	for _, scan := range scans {
		view := &entity.ScanView{Scan: *scan}
		if qr, ok := s.qrcodes[*scan.QRCode]; ok {
			view.QRInfo = &entity.ScanSummary{
				Id:      qr.Id,
				Name:    qr.Name,
				Type:    qr.Type,
				Content: qr.Content,
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *MemoryStore) AggregateScans(ctx context.Context, ids []primitive.ObjectID, since time.Time, topLimit int) (*entity.Analytics, error) {
	scans, _ := s.ScansByQRCodes(ctx, ids)
	s.mu.RLock()
	names := make(map[primitive.ObjectID]string, len(ids))
	for _, id := range ids {
		if qr, ok := s.qrcodes[id]; ok {
			names[id] = qr.Name
		}
	}
	s.mu.RUnlock()
	return analytics.Reduce(scans, analytics.Options{
		Since:    since,
		TopLimit: topLimit,
		Names:    names,
	}), nil
}

// filterScans returns copies, newest first
func (s *MemoryStore) filterScans(match func(*entity.Scan) bool) []*entity.Scan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*entity.Scan, 0)
	for _, scan := range s.scans {
		if match(scan) {
			c := *scan
			result = append(result, &c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
