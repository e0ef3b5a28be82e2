package mongodb

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"project/database"
)

const DEFAULT_RESULT_COLLECTION = "sssp"

// Sink replaces the SSSP rows of one partition in a collection, inserting
// them in batches of database.MAXIMUM_ITEMS_PER_BATCH.
type Sink struct {
	ctx         context.Context
	client      *mongo.Client
	collection  *mongo.Collection
	partitionId int
	pending     []interface{}
	written     int
}

func OpenSink(ctx context.Context, uri string, partitionId int) (*Sink, error) {
	client, collection, err := Connect(ctx, uri, DEFAULT_RESULT_COLLECTION)
	if err != nil {
		return nil, err
	}
	if _, err := collection.DeleteMany(ctx, bson.M{"Partition": partitionId}); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return &Sink{ctx: ctx, client: client, collection: collection, partitionId: partitionId}, nil
}

func (s *Sink) WriteDistance(row database.DistanceRow) error {
	s.pending = append(s.pending, bson.D{
		{Key: "Partition", Value: s.partitionId},
		{Key: "Vertex", Value: row.Vertex},
		{Key: "Distance", Value: row.Distance},
	})
	if len(s.pending) == database.MAXIMUM_ITEMS_PER_BATCH {
		return s.flush(s.ctx)
	}
	return nil
}

func (s *Sink) WritePair(row database.PairRow) error {
	return database.PairsUnsupported(database.MONGODB)
}

func (s *Sink) flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	if _, err := s.collection.InsertMany(ctx, s.pending); err != nil {
		log.Printf("flush: failed to insert %v rows: %v\n", len(s.pending), err)
		return err
	}
	s.written += len(s.pending)
	s.pending = nil
	return nil
}

func (s *Sink) Close(ctx context.Context) error {
	err := s.flush(ctx)
	if derr := s.client.Disconnect(ctx); err == nil {
		err = derr
	}
	log.Printf("Close: %v rows of partition %v added to %v\n", s.written, s.partitionId, s.collection.Name())
	return err
}
