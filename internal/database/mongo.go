package database

import (
	"context"
	"errors"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"qrtrack/entity"
	"qrtrack/internal/config"
	"qrtrack/lib/validate"
	"time"
)

const (
	collectionUsers   = "users"
	collectionQRCodes = "qrcodes"
	collectionScans   = "scans"
)

// MongoDB keeps one client for the process; every call takes the request context
type MongoDB struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

func NewMongoClient(ctx context.Context, conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	connection, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err = connection.Ping(ctx, nil); err != nil {
		_ = connection.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}
	return NewFromDatabase(connection.Database(conf.Mongo.Database), conf.Mongo.Transactions), nil
}

func NewFromDatabase(db *mongo.Database, transactions bool) *MongoDB {
	return &MongoDB{
		client:       db.Client(),
		db:           db,
		transactions: transactions,
	}
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

// EnsureIndexes creates the indexes the scan and analytics queries rely on
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.db.Collection(collectionScans).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{"qrCode", 1}, {"createdAt", -1}}},
		{Keys: bson.D{{"createdAt", -1}}},
	})
	if err != nil {
		return fmt.Errorf("scan indexes: %w", err)
	}
	_, err = m.db.Collection(collectionQRCodes).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{"user", 1}, {"createdAt", -1}},
	})
	if err != nil {
		return fmt.Errorf("qrcode indexes: %w", err)
	}
	return nil
}

func (m *MongoDB) GetQRCode(ctx context.Context, id primitive.ObjectID) (*entity.QRCode, error) {
	collection := m.db.Collection(collectionQRCodes)
	var qr entity.QRCode
	err := collection.FindOne(ctx, bson.D{{"_id", id}}).Decode(&qr)
	if err != nil {
		return nil, m.findError(err)
	}
	return &qr, nil
}

func (m *MongoDB) GetUser(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	collection := m.db.Collection(collectionUsers)
	var user entity.User
	err := collection.FindOne(ctx, bson.D{{"_id", id}}).Decode(&user)
	if err != nil {
		return nil, m.findError(err)
	}
	return &user, nil
}

// UserQRCodes returns the owner's codes without template and styling payloads
func (m *MongoDB) UserQRCodes(ctx context.Context, userId primitive.ObjectID) ([]*entity.QRCode, error) {
	collection := m.db.Collection(collectionQRCodes)
	opts := options.Find().
		SetProjection(bson.D{{"template", 0}, {"styling", 0}}).
		SetSort(bson.D{{"createdAt", -1}})
	cursor, err := collection.Find(ctx, bson.D{{"user", userId}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	codes := make([]*entity.QRCode, 0)
	if err = cursor.All(ctx, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// RecordScan increments the counter and stores the scan. The increment only matches while
// the code has room under its limit, so concurrent scans can not push it past the limit;
// no match is reported as entity.ErrLimitReached.
func (m *MongoDB) RecordScan(ctx context.Context, scan *entity.Scan) (int64, error) {
	if scan.QRCode == nil {
		return 0, fmt.Errorf("scan without qr code")
	}
	if err := validate.Struct(scan); err != nil {
		return 0, fmt.Errorf("invalid scan: %w", err)
	}
	if !m.transactions {
		count, err := m.incrementScanCount(ctx, *scan.QRCode)
		if err != nil {
			return 0, err
		}
		return count, m.insertScan(ctx, scan)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return 0, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		count, err := m.incrementScanCount(sc, *scan.QRCode)
		if err != nil {
			return nil, err
		}
		if err = m.insertScan(sc, scan); err != nil {
			return nil, err
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (m *MongoDB) incrementScanCount(ctx context.Context, id primitive.ObjectID) (int64, error) {
	collection := m.db.Collection(collectionQRCodes)
	filter := bson.D{
		{"_id", id},
		{"$or", bson.A{
			bson.D{{"scanLimit", nil}},
			bson.D{{"scanLimit", bson.D{{"$lte", 0}}}},
			bson.D{{"$expr", bson.D{{"$lt", bson.A{"$scanCount", "$scanLimit"}}}}},
		}},
	}
	update := bson.D{
		{"$inc", bson.D{{"scanCount", 1}}},
		{"$set", bson.D{{"updatedAt", time.Now().UTC()}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{"scanCount", 1}})

	var updated struct {
		ScanCount int64 `bson:"scanCount"`
	}
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, entity.ErrLimitReached
	}
	if err != nil {
		return 0, fmt.Errorf("increment scan count: %w", err)
	}
	return updated.ScanCount, nil
}

func (m *MongoDB) insertScan(ctx context.Context, scan *entity.Scan) error {
	collection := m.db.Collection(collectionScans)
	res, err := collection.InsertOne(ctx, scan)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		scan.Id = id
	}
	return nil
}

// SaveScan stores a scan that is not tied to a code counter
func (m *MongoDB) SaveScan(ctx context.Context, scan *entity.Scan) error {
	if err := validate.Struct(scan); err != nil {
		return fmt.Errorf("invalid scan: %w", err)
	}
	return m.insertScan(ctx, scan)
}

func (m *MongoDB) QRCodeScans(ctx context.Context, id primitive.ObjectID) ([]*entity.Scan, error) {
	return m.findScans(ctx, bson.D{{"qrCode", id}}, 0)
}

func (m *MongoDB) ScansByQRCodes(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Scan, error) {
	return m.findScans(ctx, bson.D{{"qrCode", bson.D{{"$in", ids}}}}, 0)
}

func (m *MongoDB) findScans(ctx context.Context, filter bson.D, limit int64) ([]*entity.Scan, error) {
	collection := m.db.Collection(collectionScans)
	opts := options.Find().SetSort(bson.D{{"createdAt", -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	scans := make([]*entity.Scan, 0)
	if err = cursor.All(ctx, &scans); err != nil {
		return nil, err
	}
	return scans, nil
}

// RecentScans newest scans of the given codes with name, type and content attached
func (m *MongoDB) RecentScans(ctx context.Context, ids []primitive.ObjectID, limit int64) ([]*entity.ScanView, error) {
	collection := m.db.Collection(collectionScans)
	pipeline := mongo.Pipeline{
		{{"$match", bson.D{{"qrCode", bson.D{{"$in", ids}}}}}},
		{{"$sort", bson.D{{"createdAt", -1}}}},
		{{"$limit", limit}},
		{{"$lookup", bson.D{
			{"from", collectionQRCodes},
			{"localField", "qrCode"},
			{"foreignField", "_id"},
			{"pipeline", bson.A{bson.D{{"$project", bson.D{{"name", 1}, {"type", 1}, {"content", 1}}}}}},
			{"as", "qrCodeInfo"},
		}}},
		{{"$unwind", bson.D{{"path", "$qrCodeInfo"}, {"preserveNullAndEmptyArrays", true}}}},
	}
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("recent scans: %w", err)
	}
	defer cursor.Close(ctx)

	scans := make([]*entity.ScanView, 0)
	if err = cursor.All(ctx, &scans); err != nil {
		return nil, err
	}
	return scans, nil
}
