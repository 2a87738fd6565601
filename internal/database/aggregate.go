package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"qrtrack/entity"
)

type bucket struct {
	Key   *string `bson:"_id"`
	Count int64   `bson:"count"`
}

type facetResult struct {
	Total     []struct{ Count int64 `bson:"count"` } `bson:"total"`
	Browsers  []bucket                                `bson:"browsers"`
	OS        []bucket                                `bson:"os"`
	Devices   []bucket                                `bson:"devices"`
	Countries []bucket                                `bson:"countries"`
	ByDate    []bucket                                `bson:"byDate"`
	Top       []entity.TopQRCode                      `bson:"top"`
}

// groupBy counts documents per non-empty field value
func groupBy(field string) bson.A {
	return bson.A{
		bson.D{{"$match", bson.D{{field, bson.D{{"$nin", bson.A{nil, ""}}}}}}},
		bson.D{{"$group", bson.D{{"_id", "$" + field}, {"count", bson.D{{"$sum", 1}}}}}},
	}
}

// AggregateScans groups scans of the given codes in a single round trip.
// The date buckets only cover scans created at or after since; zero since keeps every date.
func (m *MongoDB) AggregateScans(ctx context.Context, ids []primitive.ObjectID, since time.Time, topLimit int) (*entity.Analytics, error) {
	result := entity.NewAnalytics()
	if len(ids) == 0 {
		return result, nil
	}

	byDate := bson.A{}
	if !since.IsZero() {
		byDate = append(byDate, bson.D{{"$match", bson.D{{"createdAt", bson.D{{"$gte", since.UTC()}}}}}})
	}
	byDate = append(byDate,
		bson.D{{"$group", bson.D{
			{"_id", bson.D{{"$dateToString", bson.D{{"format", "%Y-%m-%d"}, {"date", "$createdAt"}}}}},
			{"count", bson.D{{"$sum", 1}}},
		}}},
	)

	top := bson.A{
		bson.D{{"$group", bson.D{{"_id", "$qrCode"}, {"count", bson.D{{"$sum", 1}}}}}},
		bson.D{{"$sort", bson.D{{"count", -1}, {"_id", 1}}}},
		bson.D{{"$limit", topLimit}},
		bson.D{{"$lookup", bson.D{
			{"from", collectionQRCodes},
			{"localField", "_id"},
			{"foreignField", "_id"},
			{"as", "qr"},
		}}},
		bson.D{{"$project", bson.D{
			{"_id", 0},
			{"qrCodeId", "$_id"},
			{"count", 1},
			{"name", bson.D{{"$ifNull", bson.A{bson.D{{"$first", "$qr.name"}}, ""}}}},
		}}},
	}

	pipeline := mongo.Pipeline{
		{{"$match", bson.D{{"qrCode", bson.D{{"$in", ids}}}}}},
		{{"$facet", bson.D{
			{"total", bson.A{bson.D{{"$count", "count"}}}},
			{"browsers", groupBy("browser.name")},
			{"os", groupBy("os.name")},
			{"devices", groupBy("device.type")},
			{"countries", groupBy("location.country")},
			{"byDate", byDate},
			{"top", top},
		}}},
	}

	cursor, err := m.db.Collection(collectionScans).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate scans: %w", err)
	}
	defer cursor.Close(ctx)

	var facets []facetResult
	if err = cursor.All(ctx, &facets); err != nil {
		return nil, fmt.Errorf("decode analytics: %w", err)
	}
	if len(facets) == 0 {
		return result, nil
	}
	facet := facets[0]

	if len(facet.Total) > 0 {
		result.TotalScans = facet.Total[0].Count
	}
	fill(result.Browsers, facet.Browsers)
	fill(result.OS, facet.OS)
	fill(result.Devices, facet.Devices)
	fill(result.Countries, facet.Countries)
	fill(result.ScansByDate, facet.ByDate)
	if facet.Top != nil {
		result.TopQRCodes = facet.Top
	}
	return result, nil
}

func fill(m map[string]int64, buckets []bucket) {
	for _, b := range buckets {
		if b.Key == nil || *b.Key == "" {
			continue
		}
		m[*b.Key] += b.Count
	}
}
