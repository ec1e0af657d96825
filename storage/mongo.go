package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"gazo/downloader"
	"gazo/parser"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionName = "processed_images"
	connectTimeout = 10 * time.Second
)

// ImageRecord is the document stored for every processed image
type ImageRecord struct {
	SourceURL      string    `bson:"source_url"`
	Query          string    `bson:"query"`
	FileName       string    `bson:"file_name"`
	Format         string    `bson:"format"`
	Width          int       `bson:"width"`
	Height         int       `bson:"height"`
	OriginalWidth  int       `bson:"original_width"`
	OriginalHeight int       `bson:"original_height"`
	Bytes          int       `bson:"bytes"`
	ProcessedAt    time.Time `bson:"processed_at"`
}

// Store records processed images in MongoDB. A Store created without a URI
// accepts every call and does nothing.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ downloader.Recorder = (*Store)(nil)

// New connects to uri. An empty uri returns a no-op store.
func New(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return &Store{}, nil
	}
	if database == "" {
		database = "gazo"
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach MongoDB: %w", err)
	}

	collection := client.Database(database).Collection(collectionName)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "source_url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Printf("[Storage] Could not create source_url index: %v", err)
	}

	log.Printf("[Storage] Recording processed images in %s.%s", database, collectionName)
	return &Store{client: client, collection: collection}, nil
}

// Enabled reports whether the store is connected
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// NewRecord builds the document for a processed image
func NewRecord(query string, img *parser.ProcessedImage) ImageRecord {
	rec := ImageRecord{
		SourceURL:      img.SourceURL,
		Query:          query,
		FileName:       img.FileName(),
		Format:         string(img.Format),
		OriginalWidth:  img.OriginalWidth,
		OriginalHeight: img.OriginalHeight,
		Bytes:          len(img.JPEG),
		ProcessedAt:    time.Now().UTC(),
	}
	if img.Image != nil {
		b := img.Image.Bounds()
		rec.Width = b.Dx()
		rec.Height = b.Dy()
	}
	return rec
}

// RecordProcessed upserts the image by source URL
func (s *Store) RecordProcessed(ctx context.Context, query string, img *parser.ProcessedImage) error {
	if !s.Enabled() || img == nil {
		return nil
	}

	rec := NewRecord(query, img)
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"source_url": rec.SourceURL},
		bson.M{
			"$set":         rec,
			"$setOnInsert": bson.M{"first_seen": rec.ProcessedAt},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", rec.SourceURL, err)
	}
	return nil
}

// Recent returns the most recently processed images
func (s *Store) Recent(ctx context.Context, limit int64) ([]ImageRecord, error) {
	if !s.Enabled() {
		return nil, nil
	}

	cursor, err := s.collection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "processed_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []ImageRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close disconnects from MongoDB
func (s *Store) Close(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Disconnect(ctx)
}
