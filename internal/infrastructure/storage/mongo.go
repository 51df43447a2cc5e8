package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"NewsScanner/internal/domain"
	"NewsScanner/internal/ports"
)

const (
	newsCollection     = "newsData"
	rejectedCollection = "unacceptedNews"
	visitedCollection  = "visitedUrls"
)

// MongoStore writes accepted articles to newsData with an incrementing id_event,
// rejected URLs to unacceptedNews and the fetch history to visitedUrls.
type MongoStore struct {
	db     *mongo.Database
	logger *slog.Logger

	// serializes the read-max-then-insert of id_event within this process
	eventMu sync.Mutex
}

var (
	_ ports.ArticleStore   = (*MongoStore)(nil)
	_ ports.HistoryStore   = (*MongoStore)(nil)
	_ ports.AcceptedLister = (*MongoStore)(nil)
)

// ConnectMongo opens a client and pings it.
func ConnectMongo(ctx context.Context, uri, database string, timeout time.Duration) (*mongo.Client, *mongo.Database, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(database), nil
}

// NewMongoStore wraps an open database handle.
func NewMongoStore(db *mongo.Database, logger *slog.Logger) *MongoStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoStore{db: db, logger: logger}
}

// EnsureIndexes creates the unique url indexes the duplicate handling relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for _, name := range []string{newsCollection, rejectedCollection, visitedCollection} {
		_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("index %s.url: %w", name, err)
		}
	}
	return nil
}

// SaveArticle inserts accepted articles and upserts rejected URLs.
func (s *MongoStore) SaveArticle(ctx context.Context, article domain.Article) error {
	if !article.Accepted() {
		_, err := s.db.Collection(rejectedCollection).UpdateOne(ctx,
			bson.D{{Key: "url", Value: article.URL}},
			bson.D{{Key: "$set", Value: seenRecord{URL: article.URL, Newspaper: article.Newspaper}}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("upsert rejected %s: %w", article.URL, err)
		}
		return nil
	}

	s.eventMu.Lock()
	defer s.eventMu.Unlock()

	next, err := s.nextEventID(ctx)
	if err != nil {
		return err
	}
	article.EventID = next

	if _, err := s.db.Collection(newsCollection).InsertOne(ctx, toRecord(article)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			s.logger.Info("article already stored", "url", article.URL)
			return fmt.Errorf("%w: %s", domain.ErrDuplicate, article.URL)
		}
		return fmt.Errorf("insert article %s: %w", article.URL, err)
	}
	return nil
}

func (s *MongoStore) nextEventID(ctx context.Context) (int64, error) {
	var last struct {
		IDEvent int64 `bson:"id_event"`
	}
	err := s.db.Collection(newsCollection).FindOne(ctx, bson.D{},
		options.FindOne().
			SetSort(bson.D{{Key: "id_event", Value: -1}}).
			SetProjection(bson.D{{Key: "id_event", Value: 1}}),
	).Decode(&last)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return 1, nil
	case err != nil:
		return 0, fmt.Errorf("read last id_event: %w", err)
	}
	return last.IDEvent + 1, nil
}

// RecordSeenURL upserts {url, newspaper} into visitedUrls.
func (s *MongoStore) RecordSeenURL(ctx context.Context, url, source string) error {
	_, err := s.db.Collection(visitedCollection).UpdateOne(ctx,
		bson.D{{Key: "url", Value: url}},
		bson.D{{Key: "$set", Value: seenRecord{URL: url, Newspaper: source}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("record visited %s: %w", url, err)
	}
	return nil
}

// SeenURLs lists the visited URLs recorded for source.
func (s *MongoStore) SeenURLs(ctx context.Context, source string) ([]string, error) {
	return s.urls(ctx, visitedCollection, source)
}

// AcceptedURLs lists the newsData URLs of source.
func (s *MongoStore) AcceptedURLs(ctx context.Context, source string) ([]string, error) {
	return s.urls(ctx, newsCollection, source)
}

func (s *MongoStore) urls(ctx context.Context, collection, source string) ([]string, error) {
	cur, err := s.db.Collection(collection).Find(ctx,
		bson.D{{Key: "newspaper", Value: source}},
		options.Find().SetProjection(bson.D{{Key: "url", Value: 1}, {Key: "newspaper", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}

	var records []seenRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}

	urls := make([]string, 0, len(records))
	for _, rec := range records {
		urls = append(urls, rec.URL)
	}
	return urls, nil
}
