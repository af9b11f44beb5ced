package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const transactionsCollection = "transactions"

type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func ConnectMongo(ctx context.Context, uri, credential, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(uri)
	if credential != "" && opts.Auth != nil {
		opts.Auth.Password = credential
		opts.Auth.PasswordSet = true
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Ping the database
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	store := NewMongoStore(client.Database(dbName))
	store.client = client
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	log.Println("🗄️ Connected to MongoDB!")
	return store, nil
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		client: db.Client(),
		coll:   db.Collection(transactionsCollection),
	}
}

// EnsureIndexes makes stripe_session_id unique among rows that have one.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "stripe_session_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, tx *models.Transaction) error {
	_, err := s.coll.InsertOne(ctx, tx)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateSession
	}
	return err
}

func (s *MongoStore) Get(ctx context.Context, id string) (*models.Transaction, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetBySessionID(ctx context.Context, sessionID string) (*models.Transaction, error) {
	return s.findOne(ctx, bson.M{"stripe_session_id": sessionID})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.coll.FindOne(ctx, filter).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (s *MongoStore) AttachSession(ctx context.Context, id, sessionID string) error {
	filter := bson.M{
		"_id":               id,
		"status":            models.TransactionStatusPending,
		"stripe_session_id": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"stripe_session_id": sessionID, "updated_at": time.Now()}}
	return s.updateOne(ctx, id, filter, update)
}

func (s *MongoStore) ClaimForProcessing(ctx context.Context, id string) (*models.Transaction, error) {
	filter := bson.M{"_id": id, "status": models.TransactionStatusPending}
	update := bson.M{"$set": bson.M{"status": models.TransactionStatusProcessing, "updated_at": time.Now()}}

	var tx models.Transaction
	err := s.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.missOrConflict(ctx, id)
		}
		return nil, err
	}
	return &tx, nil
}

func (s *MongoStore) SetDeliveryMode(ctx context.Context, id string, mode models.DeliveryMode) error {
	filter := bson.M{"_id": id, "status": models.TransactionStatusProcessing}
	update := bson.M{"$set": bson.M{"delivery_mode": mode, "updated_at": time.Now()}}
	return s.updateOne(ctx, id, filter, update)
}

func (s *MongoStore) MarkCompleted(ctx context.Context, id, txHash string) error {
	now := time.Now()
	filter := bson.M{"_id": id, "status": models.TransactionStatusProcessing}
	update := bson.M{"$set": bson.M{
		"status":             models.TransactionStatusCompleted,
		"blockchain_tx_hash": txHash,
		"completed_at":       now,
		"updated_at":         now,
	}}
	return s.updateOne(ctx, id, filter, update)
}

func (s *MongoStore) MarkFailed(ctx context.Context, id, message string) error {
	filter := bson.M{"_id": id, "status": models.TransactionStatusProcessing}
	update := bson.M{"$set": bson.M{
		"status":        models.TransactionStatusFailed,
		"error_message": message,
		"updated_at":    time.Now(),
	}}
	return s.updateOne(ctx, id, filter, update)
}

func (s *MongoStore) updateOne(ctx context.Context, id string, filter, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSession
		}
		return err
	}
	if res.MatchedCount == 0 {
		return s.missOrConflict(ctx, id)
	}
	return nil
}

func (s *MongoStore) missOrConflict(ctx context.Context, id string) error {
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusConflict
}

func (s *MongoStore) List(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(clampLimit(limit)))

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	txs := []models.Transaction{}
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
