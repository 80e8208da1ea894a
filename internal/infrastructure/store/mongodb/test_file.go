package mongodb

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

type MongoTestFileRepo struct {
	col *mongo.Collection
}

func NewMongoTestFileRepo(db *mongo.Database) repository.TestFileRepository {
	col := db.Collection("test_files")

	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{bson.E{Key: "job_id", Value: 1}},
	})

	return &MongoTestFileRepo{col: col}
}

// SaveFiles replaces whatever was stored for the job.
func (r *MongoTestFileRepo) SaveFiles(ctx context.Context, jobID string, files []*entity.TestFile) error {
	if err := r.DeleteByJobID(ctx, jobID); err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	metrics.IncStoreOp("mongo", "put")

	docs := make([]interface{}, len(files))
	for i, f := range files {
		v := *f
		v.JobID = jobID
		docs[i] = v
	}

	if _, err := r.col.InsertMany(ctx, docs); err != nil {
		metrics.IncError("mongo_test_file_repo", "save_error")
		return err
	}
	return nil
}

func (r *MongoTestFileRepo) GetFilesByJobID(ctx context.Context, jobID string) ([]*entity.TestFile, error) {
	metrics.IncStoreOp("mongo", "get")

	cur, err := r.col.Find(ctx, bson.M{"job_id": jobID})
	if err != nil {
		metrics.IncError("mongo_test_file_repo", "get_error")
		return nil, err
	}
	defer func() {
		if err := cur.Close(ctx); err != nil {
			log.Printf("close cursor err: %s", err)
		}
	}()

	result := []*entity.TestFile{}
	for cur.Next(ctx) {
		var doc entity.TestFile
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, &doc)
	}
	return result, cur.Err()
}

func (r *MongoTestFileRepo) DeleteByJobID(ctx context.Context, jobID string) error {
	metrics.IncStoreOp("mongo", "delete")

	if _, err := r.col.DeleteMany(ctx, bson.M{"job_id": jobID}); err != nil {
		metrics.IncError("mongo_test_file_repo", "delete_error")
		return err
	}
	return nil
}
