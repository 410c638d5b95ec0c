package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/shillmonger/TrustLoanETH/internal/wallet"
)

const usersCollection = "users"

// MongoClientSource hands out the shared client, connecting on first use.
type MongoClientSource interface {
	Client(ctx context.Context) (*mongo.Client, error)
}

type userDocument struct {
	ID             bson.ObjectID   `bson:"_id,omitempty"`
	Address        string          `bson:"address"`
	WalletProvider wallet.Provider `bson:"walletProvider,omitempty"`
	Email          string          `bson:"email,omitempty"`
	CreatedAt      time.Time       `bson:"createdAt"`
	LastLogin      time.Time       `bson:"lastLogin"`
	UpdatedAt      time.Time       `bson:"updatedAt"`
}

func (d userDocument) toIdentity() Identity {
	return Identity{
		ID:             d.ID.Hex(),
		Address:        d.Address,
		WalletProvider: d.WalletProvider,
		Email:          d.Email,
		CreatedAt:      d.CreatedAt.UTC(),
		LastLogin:      d.LastLogin.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

// MongoRepository implements Repository on the users collection.
type MongoRepository struct {
	source   MongoClientSource
	database string
}

// NewMongoRepository builds a Mongo-backed identity repository.
func NewMongoRepository(source MongoClientSource, database string) *MongoRepository {
	return &MongoRepository{source: source, database: database}
}

func (r *MongoRepository) collection(ctx context.Context) (*mongo.Collection, error) {
	client, err := r.source.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(r.database).Collection(usersCollection), nil
}

// EnsureIndexes creates the unique address index and the sparse unique email
// index under the server's default names (address_1, email_1) so existing
// deployments keep their indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "address", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// FindByAddressOrEmail returns the first record matching the address or, when given, the email.
func (r *MongoRepository) FindByAddressOrEmail(ctx context.Context, address, email string) (Identity, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return Identity{}, err
	}
	clauses := bson.A{bson.D{{Key: "address", Value: strings.ToLower(address)}}}
	if email = normalizeEmail(email); email != "" {
		clauses = append(clauses, bson.D{{Key: "email", Value: email}})
	}
	var doc userDocument
	err = coll.FindOne(ctx, bson.D{{Key: "$or", Value: clauses}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("find user by address or email: %w", err)
	}
	return doc.toIdentity(), nil
}

// Create inserts a new record. Unique index violations surface as *ConflictError.
func (r *MongoRepository) Create(ctx context.Context, identity Identity) (Identity, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return Identity{}, err
	}
	doc := userDocument{
		ID:             bson.NewObjectID(),
		Address:        strings.ToLower(identity.Address),
		WalletProvider: identity.WalletProvider,
		Email:          normalizeEmail(identity.Email),
		CreatedAt:      identity.CreatedAt.UTC(),
		LastLogin:      identity.LastLogin.UTC(),
		UpdatedAt:      identity.UpdatedAt.UTC(),
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if conflict := duplicateKeyConflict(err); conflict != nil {
			return Identity{}, conflict
		}
		return Identity{}, fmt.Errorf("insert user: %w", err)
	}
	return doc.toIdentity(), nil
}

// UpsertByAddress creates a minimal record or refreshes lastLogin on the existing one.
func (r *MongoRepository) UpsertByAddress(ctx context.Context, address string, now time.Time) (Identity, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return Identity{}, err
	}
	now = now.UTC()
	address = strings.ToLower(address)
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "address", Value: address},
			{Key: "lastLogin", Value: now},
			{Key: "updatedAt", Value: now},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "walletProvider", Value: wallet.DefaultProvider},
			{Key: "createdAt", Value: now},
		}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc userDocument
	err = coll.FindOneAndUpdate(ctx, bson.D{{Key: "address", Value: address}}, update, opts).Decode(&doc)
	if err != nil {
		// Two concurrent first upserts can race on the unique index; the loser retries as an update.
		if mongo.IsDuplicateKeyError(err) {
			err = coll.FindOneAndUpdate(ctx, bson.D{{Key: "address", Value: address}}, update, opts).Decode(&doc)
		}
		if err != nil {
			return Identity{}, fmt.Errorf("upsert user: %w", err)
		}
	}
	return doc.toIdentity(), nil
}

// Find resolves a single record by email or id.
func (r *MongoRepository) Find(ctx context.Context, key LookupKey) (Identity, error) {
	filter, ok := lookupFilter(key)
	if !ok {
		return Identity{}, ErrNotFound
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return Identity{}, err
	}
	var doc userDocument
	err = coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("find user by %s: %w", key.Kind(), err)
	}
	return doc.toIdentity(), nil
}

// UpdateWallet rebinds the address (and provider when non-empty) in one atomic update.
func (r *MongoRepository) UpdateWallet(ctx context.Context, key LookupKey, address string, provider wallet.Provider, now time.Time) (Identity, error) {
	filter, ok := lookupFilter(key)
	if !ok {
		return Identity{}, ErrNotFound
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return Identity{}, err
	}
	now = now.UTC()
	set := bson.D{
		{Key: "address", Value: strings.ToLower(address)},
		{Key: "lastLogin", Value: now},
		{Key: "updatedAt", Value: now},
	}
	if provider != "" {
		set = append(set, bson.E{Key: "walletProvider", Value: provider})
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err = coll.FindOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: set}}, opts).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return Identity{}, ErrNotFound
	case err != nil:
		if conflict := duplicateKeyConflict(err); conflict != nil {
			return Identity{}, conflict
		}
		return Identity{}, fmt.Errorf("update user wallet: %w", err)
	}
	return doc.toIdentity(), nil
}

// Touch refreshes lastLogin and updatedAt and returns the updated record.
func (r *MongoRepository) Touch(ctx context.Context, key LookupKey, now time.Time) (Identity, error) {
	filter, ok := lookupFilter(key)
	if !ok {
		return Identity{}, ErrNotFound
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return Identity{}, err
	}
	now = now.UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err = coll.FindOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: bson.D{
		{Key: "lastLogin", Value: now},
		{Key: "updatedAt", Value: now},
	}}}, opts).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return Identity{}, ErrNotFound
	case err != nil:
		return Identity{}, fmt.Errorf("touch user: %w", err)
	}
	return doc.toIdentity(), nil
}

// BackfillProvider persists provider on records where walletProvider is missing or empty.
func (r *MongoRepository) BackfillProvider(ctx context.Context, provider wallet.Provider, now time.Time) (int64, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return 0, err
	}
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "walletProvider", Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: "walletProvider", Value: nil}},
		bson.D{{Key: "walletProvider", Value: ""}},
	}}}
	res, err := coll.UpdateMany(ctx, filter, bson.D{{Key: "$set", Value: bson.D{
		{Key: "walletProvider", Value: provider},
		{Key: "updatedAt", Value: now.UTC()},
	}}})
	if err != nil {
		return 0, fmt.Errorf("backfill wallet provider: %w", err)
	}
	return res.ModifiedCount, nil
}

func lookupFilter(key LookupKey) (bson.D, bool) {
	if !key.Valid() {
		return nil, false
	}
	switch key.Kind() {
	case LookupByEmail:
		return bson.D{{Key: "email", Value: key.Value()}}, true
	case LookupByID:
		oid, err := bson.ObjectIDFromHex(key.Value())
		if err != nil {
			return nil, false
		}
		return bson.D{{Key: "_id", Value: oid}}, true
	}
	return nil, false
}

func duplicateKeyConflict(err error) *ConflictError {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if duplicateOnEmail(e.Raw, e.Message) {
				return &ConflictError{Field: FieldEmail}
			}
		}
		return &ConflictError{Field: FieldAddress}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if duplicateOnEmail(ce.Raw, ce.Message) {
			return &ConflictError{Field: FieldEmail}
		}
		return &ConflictError{Field: FieldAddress}
	}
	if duplicateOnEmail(nil, err.Error()) {
		return &ConflictError{Field: FieldEmail}
	}
	return &ConflictError{Field: FieldAddress}
}

// duplicateOnEmail reads the key pattern when the server reports one and
// falls back to the E11000 message, which names the index and the key.
func duplicateOnEmail(raw bson.Raw, message string) bool {
	if len(raw) > 0 {
		if _, err := raw.LookupErr("keyPattern", "email"); err == nil {
			return true
		}
		if _, err := raw.LookupErr("keyPattern", "address"); err == nil {
			return false
		}
	}
	return strings.Contains(message, "index: email_") || strings.Contains(message, "dup key: { email:")
}
