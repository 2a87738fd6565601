//go:build integration

package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"qrtrack/entity"
)

func setupMongo(t testing.TB, transactions bool) *MongoDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7", tcmongo.WithReplicaSet("rs0"))
	if err != nil {
		t.Fatalf("failed to start mongodb container: %v", err)
	}
	testcontainers.CleanupContainer(t, container)

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get mongodb connection string: %v", err)
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect mongodb: %v", err)
	}

	db := NewFromDatabase(client.Database("qrtrack_test"), transactions)
	t.Cleanup(func() {
		_ = db.Close(context.Background())
	})
	require.NoError(t, db.EnsureIndexes(ctx))
	return db
}

func insertQRCode(t testing.TB, db *MongoDB, qr *entity.QRCode) {
	t.Helper()
	qr.Id = primitive.NewObjectID()
	qr.CreatedAt = time.Now().UTC()
	_, err := db.db.Collection(collectionQRCodes).InsertOne(context.Background(), qr)
	require.NoError(t, err)
}

func TestIntegration_RecordScanConcurrent(t *testing.T) {
	for _, transactions := range []bool{false, true} {
		db := setupMongo(t, transactions)
		limit := int64(20)
		qr := &entity.QRCode{Type: entity.TypeURL, Content: "https://example.com", ScanLimit: &limit}
		insertQRCode(t, db, qr)

		var wg sync.WaitGroup
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = db.RecordScan(context.Background(), newScan(qr.Id, time.Now()))
			}()
		}
		wg.Wait()

		stored, err := db.GetQRCode(context.Background(), qr.Id)
		require.NoError(t, err)
		assert.Equal(t, limit, stored.ScanCount)

		scans, err := db.QRCodeScans(context.Background(), qr.Id)
		require.NoError(t, err)
		assert.Len(t, scans, int(limit))
	}
}

func TestIntegration_AggregateScans(t *testing.T) {
	db := setupMongo(t, false)
	owner := primitive.NewObjectID()
	qr := &entity.QRCode{User: owner, Name: "menu", Type: entity.TypeURL, Content: "https://example.com"}
	insertQRCode(t, db, qr)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		_, err := db.RecordScan(context.Background(), newScan(qr.Id, now))
		require.NoError(t, err)
	}
	bare := newScan(qr.Id, now.AddDate(0, 0, -90))
	bare.Browser = entity.Browser{}
	bare.Location = entity.Location{}
	_, err := db.RecordScan(context.Background(), bare)
	require.NoError(t, err)

	result, err := db.AggregateScans(context.Background(), []primitive.ObjectID{qr.Id}, now.AddDate(0, 0, -30), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.TotalScans)
	assert.Equal(t, map[string]int64{"Chrome": 3}, result.Browsers)
	assert.Equal(t, map[string]int64{"Germany": 3}, result.Countries)
	assert.Equal(t, int64(4), result.Devices[entity.DeviceMobile])
	assert.Len(t, result.ScansByDate, 1)
	require.Len(t, result.TopQRCodes, 1)
	assert.Equal(t, "menu", result.TopQRCodes[0].Name)
	assert.Equal(t, int64(4), result.TopQRCodes[0].Count)

	views, err := db.RecentScans(context.Background(), []primitive.ObjectID{qr.Id}, 2)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "menu", views[0].QRInfo.Name)
}
