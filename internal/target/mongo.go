package target

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// Target collection names.
const (
	rolesCollection = "roles"
	viewsCollection = "views"
)

// MongoStore implements Store over a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	roles  *mongo.Collection
	views  *mongo.Collection
}

// Compile-time interface check.
var _ Store = (*MongoStore)(nil)

// OpenMongoStore connects to the target database. The URI is opaque to the
// core; credentials and options travel inside it.
func OpenMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to target store: %w: %w", types.ErrTargetWrite, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging target store: %w: %w", types.ErrTargetWrite, err)
	}

	db := client.Database(database)
	return &MongoStore{
		client: client,
		roles:  db.Collection(rolesCollection),
		views:  db.Collection(viewsCollection),
	}, nil
}

// FindRoleByCode returns the role document with the given code.
func (s *MongoStore) FindRoleByCode(ctx context.Context, code string) (*types.Role, error) {
	var role types.Role
	err := s.roles.FindOne(ctx, bson.M{"code": code}).Decode(&role)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding role %q: %w: %w", code, types.ErrTargetWrite, err)
	}
	normalizeRole(&role)
	return &role, nil
}

// FindViewByCode returns the view document with the given code.
func (s *MongoStore) FindViewByCode(ctx context.Context, code string) (*types.View, error) {
	var view types.View
	err := s.views.FindOne(ctx, bson.M{"code": code}).Decode(&view)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding view %q: %w: %w", code, types.ErrTargetWrite, err)
	}
	normalizeView(&view)
	return &view, nil
}

// UpsertRole replaces the document keyed by code, inserting if absent.
func (s *MongoStore) UpsertRole(ctx context.Context, role *types.Role) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.roles.ReplaceOne(ctx, bson.M{"code": role.Code}, role, opts); err != nil {
		return fmt.Errorf("upserting role %q: %w: %w", role.Code, types.ErrTargetWrite, err)
	}
	return nil
}

// UpsertView replaces the document keyed by code, inserting if absent.
func (s *MongoStore) UpsertView(ctx context.Context, view *types.View) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.views.ReplaceOne(ctx, bson.M{"code": view.Code}, view, opts); err != nil {
		return fmt.Errorf("upserting view %q: %w: %w", view.Code, types.ErrTargetWrite, err)
	}
	return nil
}

// CountRoles returns the role document count.
func (s *MongoStore) CountRoles(ctx context.Context) (int64, error) {
	n, err := s.roles.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("counting roles: %w: %w", types.ErrTargetWrite, err)
	}
	return n, nil
}

// CountViews returns the view document count.
func (s *MongoStore) CountViews(ctx context.Context) (int64, error) {
	n, err := s.views.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("counting views: %w: %w", types.ErrTargetWrite, err)
	}
	return n, nil
}

// AllRoles returns every role document, ordered by code.
func (s *MongoStore) AllRoles(ctx context.Context) ([]*types.Role, error) {
	cursor, err := s.roles.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w: %w", types.ErrTargetWrite, err)
	}
	var roles []*types.Role
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, fmt.Errorf("decoding roles: %w: %w", types.ErrTargetWrite, err)
	}
	for _, r := range roles {
		normalizeRole(r)
	}
	return roles, nil
}

// AllViews returns every view document, ordered by code.
func (s *MongoStore) AllViews(ctx context.Context) ([]*types.View, error) {
	cursor, err := s.views.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing views: %w: %w", types.ErrTargetWrite, err)
	}
	var views []*types.View
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("decoding views: %w: %w", types.ErrTargetWrite, err)
	}
	for _, v := range views {
		normalizeView(v)
	}
	return views, nil
}

// EnsureIndexes creates the unique code indexes and the secondary lookup
// indexes on both collections. Idempotent: existing indexes are left alone.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	viewIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "parent", Value: 1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}}},
		{Keys: bson.D{{Key: "order", Value: 1}}},
		{Keys: bson.D{{Key: "roles", Value: 1}}},
		{Keys: bson.D{{Key: "parent", Value: 1}, {Key: "order", Value: 1}}},
	}
	if _, err := s.views.Indexes().CreateMany(ctx, viewIndexes); err != nil {
		return fmt.Errorf("creating view indexes: %w: %w", types.ErrTargetWrite, err)
	}

	roleIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "isActive", Value: 1}}},
		{Keys: bson.D{{Key: "views", Value: 1}}},
	}
	if _, err := s.roles.Indexes().CreateMany(ctx, roleIndexes); err != nil {
		return fmt.Errorf("creating role indexes: %w: %w", types.ErrTargetWrite, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// normalizeRole restores empty collection fields after a bson round-trip,
// which decodes empty arrays as nil slices.
func normalizeRole(r *types.Role) {
	if r.Views == nil {
		r.Views = []string{}
	}
}

// normalizeView restores empty collection fields after a bson round-trip.
func normalizeView(v *types.View) {
	if v.Children == nil {
		v.Children = []string{}
	}
	if v.Roles == nil {
		v.Roles = []string{}
	}
	if v.Metadata == nil {
		v.Metadata = map[string]any{}
	}
}
