// Package mongodb provides a MongoDB-backed implementation of the
// storage.Storage interface using the official Go driver.
//
// Each unique field gets its own named unique index. When an insert trips
// one of them the server answers with an E11000 write error whose message
// contains the index name, e.g.
//
//	E11000 duplicate key error collection: db.registrations index: uniq_email dup key: { email: "a@b.c" }
//
// and that name is how we tell which field was duplicated.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aanand-mishra/registration-api/internal/config"
	"github.com/aanand-mishra/registration-api/internal/storage"
	"github.com/aanand-mishra/registration-api/internal/types"
)

const (
	collectionName = "registrations"
	duplicateCode  = 11000
	indexPrefix    = "uniq_"
)

// MongoDB is the concrete implementation of storage.Storage.
type MongoDB struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// New connects to cfg.MongoDB.URI, pings the server, and makes sure the
// unique indexes exist.
func New(ctx context.Context, cfg *config.Config) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb.New: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb.New: ping: %w", err)
	}

	m := &MongoDB{
		client: client,
		coll:   client.Database(cfg.MongoDB.Database).Collection(collectionName),
		now:    time.Now,
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return m, nil
}

// ensureIndexes creates the unique indexes and the createdAt sort index.
// CreateMany is a no-op for indexes that already exist with the same spec.
//
// phone and aadharNumber are optional, so their indexes are partial: only
// non-empty strings take part in the uniqueness check.
func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	nonEmpty := func(field string) bson.M {
		return bson.M{field: bson.M{"$gt": ""}}
	}

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: storage.FieldEmail, Value: 1}},
			Options: options.Index().SetName(indexPrefix + storage.FieldEmail).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: storage.FieldPhone, Value: 1}},
			Options: options.Index().SetName(indexPrefix + storage.FieldPhone).SetUnique(true).
				SetPartialFilterExpression(nonEmpty(storage.FieldPhone)),
		},
		{
			Keys: bson.D{{Key: storage.FieldAadharNumber, Value: 1}},
			Options: options.Index().SetName(indexPrefix + storage.FieldAadharNumber).SetUnique(true).
				SetPartialFilterExpression(nonEmpty(storage.FieldAadharNumber)),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	}

	if _, err := m.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongodb.ensureIndexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) CreateRegistration(ctx context.Context, in types.RegistrationInput) (types.Registration, error) {
	rec, err := storage.BuildRecord(in, m.now())
	if err != nil {
		return types.Registration{}, err
	}

	// Mongo keeps milliseconds only; truncate so the returned record
	// matches what a later Find reads back.
	rec.CreatedAt = rec.CreatedAt.Truncate(time.Millisecond)

	if _, err := m.coll.InsertOne(ctx, rec); err != nil {
		if dup := duplicateKey(err); dup != nil {
			return types.Registration{}, dup
		}
		return types.Registration{}, fmt.Errorf("CreateRegistration: insert: %w", err)
	}

	return rec, nil
}

func (m *MongoDB) GetRegistrations(ctx context.Context) ([]types.Registration, error) {
	// createdAt has millisecond precision here. _id is a version 7 UUID,
	// so it orders same-millisecond records by insertion.
	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})

	cur, err := m.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("GetRegistrations: find: %w", err)
	}

	registrations := make([]types.Registration, 0)
	if err := cur.All(ctx, &registrations); err != nil {
		return nil, fmt.Errorf("GetRegistrations: decode: %w", err)
	}

	for i := range registrations {
		registrations[i].CreatedAt = registrations[i].CreatedAt.UTC()
	}

	return registrations, nil
}

// duplicateKey extracts the offending field from an E11000 error.
// It returns nil for any other error.
func duplicateKey(err error) *storage.DuplicateKeyError {
	var we mongo.WriteException
	if !errors.As(err, &we) {
		if mongo.IsDuplicateKeyError(err) {
			return &storage.DuplicateKeyError{}
		}
		return nil
	}

	for _, e := range we.WriteErrors {
		if e.Code != duplicateCode {
			continue
		}
		return &storage.DuplicateKeyError{Field: fieldFromMessage(e.Message)}
	}

	return nil
}

// fieldFromMessage finds "index: uniq_<field> " in a duplicate key message.
func fieldFromMessage(msg string) string {
	for _, field := range []string{storage.FieldAadharNumber, storage.FieldEmail, storage.FieldPhone} {
		if strings.Contains(msg, "index: "+indexPrefix+field+" ") {
			return field
		}
	}
	return ""
}
