package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"estatehub/server/internal/models"
)

var ErrDocumentNotFound = errors.New("document not found")

// MongoStore keeps each listing document as one MongoDB document addressed by its
// ObjectID. The body has the same shape as the JSONBin record.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *logrus.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, database, collection string, logger *logrus.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = defaultLogger()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
		logger: logger,
	}, nil
}

func (s *MongoStore) Create(ctx context.Context, doc models.Document) (string, error) {
	body, err := encodeDocument(doc)
	if err != nil {
		return "", err
	}

	oid := primitive.NewObjectID()
	body["_id"] = oid
	if _, err := s.coll.InsertOne(ctx, body); err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	s.logger.WithField("document_id", oid.Hex()).Info("Created new Mongo document")
	return oid.Hex(), nil
}

func (s *MongoStore) Read(ctx context.Context, id string) (*models.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %q: %w", id, err)
	}

	var body bson.M
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&body)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	record, err := recordFromBSON(body)
	if err != nil {
		return nil, err
	}
	doc, err := decodeDocument(record, s.logger)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	return doc, nil
}

func (s *MongoStore) Replace(ctx context.Context, id string, doc models.Document) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", id, err)
	}

	body, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": oid}, body)
	if err != nil {
		return fmt.Errorf("failed to replace document %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// encodeDocument converts doc through its JSON form so both remote stores persist
// identical field names and value shapes.
func encodeDocument(doc models.Document) (bson.M, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var body bson.M
	if err := bson.UnmarshalExtJSON(data, false, &body); err != nil {
		return nil, fmt.Errorf("failed to convert document to bson: %w", err)
	}
	return body, nil
}

func recordFromBSON(body bson.M) (json.RawMessage, error) {
	delete(body, "_id")
	data, err := bson.MarshalExtJSON(body, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to convert document to json: %w", err)
	}
	return data, nil
}
