package crypto

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/Aidin1998/cryptoapi/pkg/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

var mongoFields = map[SortField]string{
	SortByName:       "name",
	SortByPrice:      "price",
	SortByMarketCap:  "marketCap",
	SortByLaunchDate: "created_at",
}

type cryptoDocument struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty"`
	Name       string               `bson:"name"`
	Price      primitive.Decimal128 `bson:"price"`
	MarketCap  primitive.Decimal128 `bson:"marketCap"`
	LaunchedAt time.Time            `bson:"created_at"`
	CreatedAt  time.Time            `bson:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt"`
}

// MongoRepository implements Repository on a MongoDB collection
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoRepository creates a repository over database/collection
func NewMongoRepository(client *mongo.Client, database, collection string, logger *zap.Logger) *MongoRepository {
	return &MongoRepository{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger,
	}
}

// Migrate ensures the indexes used by listing and search exist
func (r *MongoRepository) Migrate(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "marketCap", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func mongoFilter(f Filter) (bson.M, error) {
	filter := bson.M{}
	if f.MinPrice != nil || f.MaxPrice != nil {
		bounds := bson.M{}
		if f.MinPrice != nil {
			d, err := toDecimal128(*f.MinPrice)
			if err != nil {
				return nil, err
			}
			bounds["$gte"] = d
		}
		if f.MaxPrice != nil {
			d, err := toDecimal128(*f.MaxPrice)
			if err != nil {
				return nil, err
			}
			bounds["$lte"] = d
		}
		filter["price"] = bounds
	}
	if f.Name != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Name), Options: "i"}
	}
	return filter, nil
}

// List returns records matching opts
func (r *MongoRepository) List(ctx context.Context, opts ListOptions) ([]models.Crypto, error) {
	filter, err := mongoFilter(opts.Filter)
	if err != nil {
		return nil, err
	}

	sort := bson.D{}
	if opts.Sort != nil {
		field, ok := mongoFields[opts.Sort.Field]
		if !ok {
			return nil, fmt.Errorf("unsupported sort field %q", opts.Sort.Field)
		}
		dir := 1
		if opts.Sort.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: field, Value: dir})
	}
	sort = append(sort, bson.E{Key: "_id", Value: 1})

	findOpts := options.Find().SetSort(sort)
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cur, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list cryptos: %w", err)
	}
	var docs []cryptoDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode cryptos: %w", err)
	}

	records := make([]models.Crypto, 0, len(docs))
	for _, doc := range docs {
		c, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		records = append(records, *c)
	}
	return records, nil
}

// Count returns the number of records matching filter
func (r *MongoRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	f, err := mongoFilter(filter)
	if err != nil {
		return 0, err
	}
	n, err := r.collection.CountDocuments(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("failed to count cryptos: %w", err)
	}
	return n, nil
}

// Get retrieves a record by its hex ObjectID
func (r *MongoRepository) Get(ctx context.Context, id string) (*models.Crypto, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc cryptoDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get crypto: %w", err)
	}
	return doc.toModel()
}

// Create inserts c, filling in its ID and timestamps
func (r *MongoRepository) Create(ctx context.Context, c *models.Crypto) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	doc, err := fromModel(c)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to create crypto", zap.Error(err), zap.String("name", c.Name))
		return fmt.Errorf("failed to create crypto: %w", err)
	}
	c.ID = doc.ID.Hex()
	return nil
}

// Replace overwrites every user-supplied field of the record with the given ID
func (r *MongoRepository) Replace(ctx context.Context, id string, c *models.Crypto) (*models.Crypto, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	price, err := toDecimal128(c.Price)
	if err != nil {
		return nil, err
	}
	marketCap, err := toDecimal128(c.MarketCap)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{
		"name":       c.Name,
		"price":      price,
		"marketCap":  marketCap,
		"created_at": c.LaunchedAt,
		"updatedAt":  time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc cryptoDocument
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update crypto: %w", err)
	}
	return doc.toModel()
}

// Delete removes the record with the given ID and returns it
func (r *MongoRepository) Delete(ctx context.Context, id string) (*models.Crypto, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc cryptoDocument
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete crypto: %w", err)
	}
	return doc.toModel()
}

// DeleteAll removes every record
func (r *MongoRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to delete cryptos: %w", err)
	}
	return res.DeletedCount, nil
}

// InsertMany inserts records in slice order
func (r *MongoRepository) InsertMany(ctx context.Context, records []models.Crypto) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(records))
	for i := range records {
		records[i].CreatedAt, records[i].UpdatedAt = now, now
		doc, err := fromModel(&records[i])
		if err != nil {
			return err
		}
		doc.ID = primitive.NewObjectID()
		records[i].ID = doc.ID.Hex()
		docs = append(docs, doc)
	}

	if _, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to insert cryptos: %w", err)
	}
	return nil
}

// Ping checks that the primary is reachable
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func fromModel(c *models.Crypto) (*cryptoDocument, error) {
	price, err := toDecimal128(c.Price)
	if err != nil {
		return nil, err
	}
	marketCap, err := toDecimal128(c.MarketCap)
	if err != nil {
		return nil, err
	}
	return &cryptoDocument{
		Name:       c.Name,
		Price:      price,
		MarketCap:  marketCap,
		LaunchedAt: c.LaunchedAt,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}, nil
}

func (d *cryptoDocument) toModel() (*models.Crypto, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return nil, fmt.Errorf("invalid stored price %q: %w", d.Price.String(), err)
	}
	marketCap, err := decimal.NewFromString(d.MarketCap.String())
	if err != nil {
		return nil, fmt.Errorf("invalid stored market cap %q: %w", d.MarketCap.String(), err)
	}
	return &models.Crypto{
		ID:         d.ID.Hex(),
		Name:       d.Name,
		Price:      price,
		MarketCap:  marketCap,
		LaunchedAt: d.LaunchedAt.UTC(),
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("value %s out of decimal128 range: %w", d.String(), err)
	}
	return v, nil
}
