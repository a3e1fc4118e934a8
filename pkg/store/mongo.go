// pkg/store/mongo.go
package store

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/geodir/ingress/pkg/model"
)

const (
	collectionElements     = "elements"
	collectionOptions      = "options"
	collectionImports      = "imports"
	collectionInteractions = "interactions"
)

// MongoStore is the MongoDB implementation of Store. Saves are staged in
// memory and written with one bulk upsert per collection on Flush, bounding
// the write amplification of large batches.
type MongoStore struct {
	db     *mongo.Database
	logger *zap.Logger

	mu             sync.Mutex
	stagedElements map[string]*model.Element
	stagedOptions  map[string]*model.Option
	stagedImports  map[string]*model.Import
}

// Connect opens a client, pings the server and returns a store bound to the
// named database.
func Connect(ctx context.Context, uri, database string, logger *zap.Logger) (*MongoStore, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to document store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping document store: %w", err)
	}

	logger.Info("Connected to document store",
		zap.String("database", database))

	return NewMongoStore(client.Database(database), logger), client.Disconnect, nil
}

// NewMongoStore wraps an existing database handle.
func NewMongoStore(db *mongo.Database, logger *zap.Logger) *MongoStore {
	return &MongoStore{
		db:             db,
		logger:         logger,
		stagedElements: make(map[string]*model.Element),
		stagedOptions:  make(map[string]*model.Option),
		stagedImports:  make(map[string]*model.Import),
	}
}

func (s *MongoStore) Elements() ElementRepository         { return (*mongoElements)(s) }
func (s *MongoStore) Options() OptionRepository           { return (*mongoOptions)(s) }
func (s *MongoStore) Imports() ImportRepository           { return (*mongoImports)(s) }
func (s *MongoStore) Interactions() InteractionRepository { return (*mongoInteractions)(s) }

// Flush bulk-upserts every staged document.
func (s *MongoStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	elements := s.stagedElements
	opts := s.stagedOptions
	imports := s.stagedImports
	s.clearLocked()
	s.mu.Unlock()

	if err := s.bulkUpsert(ctx, collectionElements, elementWrites(elements)); err != nil {
		return err
	}
	if err := s.bulkUpsert(ctx, collectionOptions, optionWrites(opts)); err != nil {
		return err
	}
	if err := s.bulkUpsert(ctx, collectionImports, importWrites(imports)); err != nil {
		return err
	}
	return nil
}

// Clear drops staged writes without applying them.
func (s *MongoStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *MongoStore) clearLocked() {
	s.stagedElements = make(map[string]*model.Element)
	s.stagedOptions = make(map[string]*model.Option)
	s.stagedImports = make(map[string]*model.Import)
}

func elementWrites(staged map[string]*model.Element) []mongo.WriteModel {
	writes := make([]mongo.WriteModel, 0, len(staged))
	for id, el := range staged {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(el).
			SetUpsert(true))
	}
	return writes
}

func optionWrites(staged map[string]*model.Option) []mongo.WriteModel {
	writes := make([]mongo.WriteModel, 0, len(staged))
	for id, opt := range staged {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(opt).
			SetUpsert(true))
	}
	return writes
}

func importWrites(staged map[string]*model.Import) []mongo.WriteModel {
	writes := make([]mongo.WriteModel, 0, len(staged))
	for id, imp := range staged {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(imp).
			SetUpsert(true))
	}
	return writes
}

func (s *MongoStore) bulkUpsert(ctx context.Context, collection string, writes []mongo.WriteModel) error {
	if len(writes) == 0 {
		return nil
	}
	_, err := s.db.Collection(collection).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("failed to flush %s: %w", collection, err)
	}
	s.logger.Debug("Flushed staged documents",
		zap.String("collection", collection),
		zap.Int("count", len(writes)))
	return nil
}

type mongoElements MongoStore

func (r *mongoElements) collection() *mongo.Collection {
	return r.db.Collection(collectionElements)
}

// findSingle runs the filter expecting at most one match.
func (r *mongoElements) findSingle(ctx context.Context, filter bson.M) (*model.Element, error) {
	cursor, err := r.collection().Find(ctx, filter, options.Find().SetLimit(2))
	if err != nil {
		return nil, fmt.Errorf("element lookup failed: %w", err)
	}
	var matches []model.Element
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, fmt.Errorf("element lookup decode failed: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, ErrAmbiguousMatch
	}
}

func (r *mongoElements) FindBySourceAndOldID(ctx context.Context, sourceID, oldID string) (*model.Element, error) {
	return r.findSingle(ctx, bson.M{"sourceId": sourceID, "oldId": oldID})
}

func (r *mongoElements) FindBySourceNameGeo(ctx context.Context, sourceID, name string, lat, lng float64) (*model.Element, error) {
	return r.findSingle(ctx, bson.M{
		"sourceId":      sourceID,
		"name":          name,
		"geo.latitude":  math.Round(lat*1e5) / 1e5,
		"geo.longitude": math.Round(lng*1e5) / 1e5,
	})
}

func (r *mongoElements) Save(el *model.Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if el.ID == "" {
		el.ID = uuid.New().String()
	}
	r.stagedElements[el.ID] = el.Clone()
}

func (r *mongoElements) CountBySource(ctx context.Context, sourceID string) (int64, error) {
	return r.collection().CountDocuments(ctx, bson.M{"sourceId": sourceID})
}

func (r *mongoElements) CountBySourceAndModeration(ctx context.Context, sourceID string, state model.ModerationState) (int64, error) {
	return r.collection().CountDocuments(ctx, bson.M{"sourceId": sourceID, "moderationState": state})
}

func (r *mongoElements) UpdateStatusBySourceAbove(ctx context.Context, sourceID string, above, to model.ElementStatus) (int64, error) {
	res, err := r.collection().UpdateMany(ctx,
		bson.M{"sourceId": sourceID, "status": bson.M{"$gt": above}},
		bson.M{"$set": bson.M{"status": to}})
	if err != nil {
		return 0, fmt.Errorf("bulk status update failed: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *mongoElements) UpdateStatusBySourceAndOldIDs(ctx context.Context, sourceID string, oldIDs []string, from, to model.ElementStatus) (int64, error) {
	if len(oldIDs) == 0 {
		return 0, nil
	}
	res, err := r.collection().UpdateMany(ctx,
		bson.M{"sourceId": sourceID, "oldId": bson.M{"$in": oldIDs}, "status": from},
		bson.M{"$set": bson.M{"status": to}})
	if err != nil {
		return 0, fmt.Errorf("bulk status restore failed: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *mongoElements) IDsBySourceAndStatus(ctx context.Context, sourceID string, status model.ElementStatus) ([]string, error) {
	cursor, err := r.collection().Find(ctx,
		bson.M{"sourceId": sourceID, "status": status},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("element id listing failed: %w", err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("element id decode failed: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

func (r *mongoElements) DeleteBySourceAndStatus(ctx context.Context, sourceID string, status model.ElementStatus) (int64, error) {
	res, err := r.collection().DeleteMany(ctx, bson.M{"sourceId": sourceID, "status": status})
	if err != nil {
		return 0, fmt.Errorf("bulk element delete failed: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *mongoElements) DeleteBySource(ctx context.Context, sourceID string) (int64, error) {
	res, err := r.collection().DeleteMany(ctx, bson.M{"sourceId": sourceID})
	if err != nil {
		return 0, fmt.Errorf("source wipe failed: %w", err)
	}
	return res.DeletedCount, nil
}

type mongoOptions MongoStore

func (r *mongoOptions) All(ctx context.Context) ([]model.Option, error) {
	cursor, err := r.db.Collection(collectionOptions).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("option listing failed: %w", err)
	}
	var opts []model.Option
	if err := cursor.All(ctx, &opts); err != nil {
		return nil, fmt.Errorf("option decode failed: %w", err)
	}
	return opts, nil
}

func (r *mongoOptions) Save(opt *model.Option) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if opt.ID == "" {
		opt.ID = uuid.New().String()
	}
	cp := *opt
	r.stagedOptions[opt.ID] = &cp
}

type mongoImports MongoStore

func (r *mongoImports) Find(ctx context.Context, id string) (*model.Import, error) {
	var imp model.Import
	err := r.db.Collection(collectionImports).FindOne(ctx, bson.M{"_id": id}).Decode(&imp)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("import lookup failed: %w", err)
	}
	return &imp, nil
}

func (r *mongoImports) FindDue(ctx context.Context, now time.Time) ([]*model.Import, error) {
	cursor, err := r.db.Collection(collectionImports).Find(ctx, bson.M{
		"isDynamicImport": true,
		"nextRefreshDate": bson.M{"$gt": time.Time{}, "$lte": now},
	})
	if err != nil {
		return nil, fmt.Errorf("due import lookup failed: %w", err)
	}
	defer cursor.Close(ctx)

	var due []*model.Import
	for cursor.Next(ctx) {
		var imp model.Import
		if err := cursor.Decode(&imp); err != nil {
			return nil, fmt.Errorf("failed to decode import: %w", err)
		}
		due = append(due, &imp)
	}
	return due, cursor.Err()
}

func (r *mongoImports) Save(imp *model.Import) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if imp.ID == "" {
		imp.ID = uuid.New().String()
	}
	r.stagedImports[imp.ID] = imp.Clone()
}

type mongoInteractions MongoStore

func (r *mongoInteractions) DeleteByElementIDs(ctx context.Context, elementIDs []string) (int64, error) {
	if len(elementIDs) == 0 {
		return 0, nil
	}
	res, err := r.db.Collection(collectionInteractions).DeleteMany(ctx,
		bson.M{"elementId": bson.M{"$in": elementIDs}})
	if err != nil {
		return 0, fmt.Errorf("interaction cleanup failed: %w", err)
	}
	return res.DeletedCount, nil
}
