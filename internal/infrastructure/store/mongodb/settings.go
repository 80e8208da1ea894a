package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

const settingsDocID = "current"

type MongoSettingsRepo struct {
	col *mongo.Collection
}

func NewMongoSettingsRepo(db *mongo.Database) repository.SettingsRepository {
	return &MongoSettingsRepo{col: db.Collection("settings")}
}

func (r *MongoSettingsRepo) Get(ctx context.Context) (entity.Settings, error) {
	metrics.IncStoreOp("mongo", "get")

	var settings entity.Settings
	err := r.col.FindOne(ctx, bson.M{"_id": settingsDocID}).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.Settings{}, nil
		}
		metrics.IncError("mongo_settings_repo", "get_error")
		return entity.Settings{}, err
	}
	return settings, nil
}

// Apply sets only the patched fields, so concurrent patches touching different
// keys never clobber each other.
func (r *MongoSettingsRepo) Apply(ctx context.Context, patch entity.SettingsPatch) (entity.Settings, error) {
	fields := patch.Fields()
	if len(fields) == 0 {
		return r.Get(ctx)
	}

	metrics.IncStoreOp("mongo", "put")

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var settings entity.Settings
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": settingsDocID}, bson.M{"$set": set}, opts).Decode(&settings)
	if err != nil {
		metrics.IncError("mongo_settings_repo", "apply_error")
		return entity.Settings{}, err
	}
	return settings, nil
}
