package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"qrtrack/entity"
	"qrtrack/internal/analytics"
	"qrtrack/internal/availability"
	"qrtrack/internal/clientmeta"
	"qrtrack/internal/resolver"
	"qrtrack/lib/clock"
	"qrtrack/lib/sl"
)

const (
	StrategyDatabase = "database"
	StrategyMemory   = "memory"

	defaultWindowDays  = 30
	defaultRecentLimit = 100
)

type Repository interface {
	GetQRCode(ctx context.Context, id primitive.ObjectID) (*entity.QRCode, error)
	UserQRCodes(ctx context.Context, userId primitive.ObjectID) ([]*entity.QRCode, error)
	RecordScan(ctx context.Context, scan *entity.Scan) (int64, error)
	SaveScan(ctx context.Context, scan *entity.Scan) error
	QRCodeScans(ctx context.Context, id primitive.ObjectID) ([]*entity.Scan, error)
	ScansByQRCodes(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Scan, error)
	RecentScans(ctx context.Context, ids []primitive.ObjectID, limit int64) ([]*entity.ScanView, error)
	AggregateScans(ctx context.Context, ids []primitive.ObjectID, since time.Time, topLimit int) (*entity.Analytics, error)
}

type AuthService interface {
	UserByToken(ctx context.Context, token string) (*entity.User, error)
}

type MetaExtractor interface {
	Extract(ctx context.Context, req clientmeta.Request) *entity.ClientMeta
}

type Options struct {
	Strategy    string
	WindowDays  int
	TopLimit    int
	RecentLimit int
}

// ScanOutcome is either a blocked status or the action to serve
type ScanOutcome struct {
	Status availability.Status
	Action resolver.Action
}

type Core struct {
	repo Repository
	meta MetaExtractor
	auth AuthService
	opts Options
	now  func() time.Time
	log  *slog.Logger
}

func New(repo Repository, meta MetaExtractor, opts Options, log *slog.Logger) *Core {
	if repo == nil {
		panic("repository is nil")
	}
	if meta == nil {
		meta = clientmeta.New(nil, 0)
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyDatabase
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = defaultWindowDays
	}
	if opts.TopLimit <= 0 {
		opts.TopLimit = analytics.DefaultTopLimit
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = defaultRecentLimit
	}
	return &Core{
		repo: repo,
		meta: meta,
		opts: opts,
		now:  time.Now,
		log:  log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) AuthenticateByToken(ctx context.Context, token string) (*entity.User, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	user, err := c.auth.UserByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", ErrUnauthorized)
	}
	if user.Blocked {
		return nil, ErrForbidden
	}
	return user, nil
}

// ScanQRCode looks the code up, checks availability, resolves its content and records the scan.
// Failing to record is logged and does not block the content.
func (c *Core) ScanQRCode(ctx context.Context, id string, req clientmeta.Request) (*ScanOutcome, error) {
	log := c.log.With(slog.String("qr_code", id))

	objectId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	qr, err := c.repo.GetQRCode(ctx, objectId)
	if err != nil {
		return nil, fmt.Errorf("get qr code: %w", err)
	}
	if qr == nil {
		return nil, ErrNotFound
	}

	now := c.now()
	if status := availability.Check(qr, now); status != availability.Allowed {
		log.Debug("scan blocked", slog.String("reason", status.Reason()))
		return &ScanOutcome{Status: status}, nil
	}

	action, err := resolver.Resolve(qr)
	if err != nil {
		return nil, fmt.Errorf("resolve content: %w", err)
	}
	if !entity.IsValidType(qr.Type) {
		log.Warn("unknown qr type, redirecting to content", slog.String("type", string(qr.Type)))
	}

	meta := c.meta.Extract(ctx, req)
	scan := entity.NewScan(&qr.Id, meta, now)
	count, err := c.repo.RecordScan(ctx, scan)
	switch {
	case errors.Is(err, entity.ErrLimitReached):
		log.Debug("scan limit reached on record")
		return &ScanOutcome{Status: availability.LimitReached}, nil
	case err != nil:
		log.With(
			sl.IP(meta.IP),
			slog.String("device", meta.Device.Type),
		).Error("record scan", sl.Err(err))
	default:
		log.With(
			slog.Int64("scan_count", count),
			slog.String("device", meta.Device.Type),
			slog.String("country", meta.Location.CountryCode),
		).Debug("scan recorded")
	}

	return &ScanOutcome{Status: availability.Allowed, Action: action}, nil
}

// AdHocRedirect validates the target and records a scan without code reference
func (c *Core) AdHocRedirect(ctx context.Context, redirect *entity.AdHocRedirect, req clientmeta.Request) error {
	if err := redirect.Bind(nil); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	scan := entity.NewScan(nil, c.meta.Extract(ctx, req), c.now())
	scan.Target = redirect.Target
	if err := c.repo.SaveScan(ctx, scan); err != nil {
		c.log.With(slog.String("target", redirect.Target)).Error("record ad-hoc scan", sl.Err(err))
	}
	return nil
}

func (c *Core) accessibleQRCode(ctx context.Context, user *entity.User, id string) (*entity.QRCode, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	objectId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	qr, err := c.repo.GetQRCode(ctx, objectId)
	if err != nil {
		return nil, fmt.Errorf("get qr code: %w", err)
	}
	if qr == nil {
		return nil, ErrNotFound
	}
	if !user.CanAccess(qr) {
		return nil, ErrNotOwner
	}
	return qr, nil
}

// QRCodeScans newest first
func (c *Core) QRCodeScans(ctx context.Context, user *entity.User, id string) ([]*entity.Scan, error) {
	qr, err := c.accessibleQRCode(ctx, user, id)
	if err != nil {
		return nil, err
	}
	scans, err := c.repo.QRCodeScans(ctx, qr.Id)
	if err != nil {
		return nil, fmt.Errorf("qr code scans: %w", err)
	}
	return scans, nil
}

func (c *Core) QRCodeAnalytics(ctx context.Context, user *entity.User, id string) (*entity.Analytics, error) {
	qr, err := c.accessibleQRCode(ctx, user, id)
	if err != nil {
		return nil, err
	}
	scans, err := c.repo.QRCodeScans(ctx, qr.Id)
	if err != nil {
		return nil, fmt.Errorf("qr code scans: %w", err)
	}
	return analytics.Reduce(scans, analytics.Options{
		Since:    clock.DaysAgo(c.now(), c.opts.WindowDays),
		TopLimit: c.opts.TopLimit,
		Names:    map[primitive.ObjectID]string{qr.Id: qr.Name},
	}), nil
}

func (c *Core) userCodes(ctx context.Context, user *entity.User) ([]primitive.ObjectID, map[primitive.ObjectID]string, error) {
	if user == nil {
		return nil, nil, ErrUnauthorized
	}
	codes, err := c.repo.UserQRCodes(ctx, user.Id)
	if err != nil {
		return nil, nil, fmt.Errorf("user qr codes: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(codes))
	names := make(map[primitive.ObjectID]string, len(codes))
	for _, qr := range codes {
		ids = append(ids, qr.Id)
		names[qr.Id] = qr.Name
	}
	return ids, names, nil
}

// UserScans latest scans across the user's codes with code summary attached
func (c *Core) UserScans(ctx context.Context, user *entity.User) ([]*entity.ScanView, error) {
	ids, _, err := c.userCodes(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return make([]*entity.ScanView, 0), nil
	}
	scans, err := c.repo.RecentScans(ctx, ids, int64(c.opts.RecentLimit))
	if err != nil {
		return nil, fmt.Errorf("recent scans: %w", err)
	}
	return scans, nil
}

func (c *Core) UserAnalytics(ctx context.Context, user *entity.User) (*entity.Analytics, error) {
	ids, names, err := c.userCodes(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return entity.NewAnalytics(), nil
	}
	since := clock.DaysAgo(c.now(), c.opts.WindowDays)

	if c.opts.Strategy == StrategyMemory {
		scans, err := c.repo.ScansByQRCodes(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("user scans: %w", err)
		}
		return analytics.Reduce(scans, analytics.Options{
			Since:    since,
			TopLimit: c.opts.TopLimit,
			Names:    names,
		}), nil
	}

	result, err := c.repo.AggregateScans(ctx, ids, since, c.opts.TopLimit)
	if err != nil {
		return nil, fmt.Errorf("aggregate scans: %w", err)
	}
	return result, nil
}
