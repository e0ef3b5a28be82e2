package mongodb

import (
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"project/graph"
)

// VertexFinder is satisfied by *mongo.Collection.
type VertexFinder interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

func GetVertexById(ctx context.Context, collection VertexFinder, vertexId string) (VertexDocument, error) {
	var doc VertexDocument
	if err := collection.FindOne(ctx, bson.M{"ID": vertexId}).Decode(&doc); err != nil {
		log.Printf("GetVertexById: error decoding vertex %v: %v\n", vertexId, err)
		return VertexDocument{}, err
	}
	return doc, nil
}

// HasVertex reports whether AddGraph stored a document for vertexId.
func HasVertex(ctx context.Context, collection VertexFinder, vertexId string) (bool, error) {
	_, err := GetVertexById(ctx, collection, vertexId)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return err == nil, err
}

// EdgeSource reads a graph uploaded by AddGraph.
type EdgeSource struct {
	Collection *mongo.Collection
}

func (s *EdgeSource) Edges(ctx context.Context) ([]graph.RawEdge, error) {
	cursor, err := s.Collection.Find(ctx, bson.M{})
	if err != nil {
		log.Printf("Edges: error fetching vertices: %v\n", err)
		return nil, err
	}
	var docs []VertexDocument
	if err := cursor.All(ctx, &docs); err != nil {
		log.Printf("Edges: error reading vertices: %v\n", err)
		return nil, err
	}
	return fromDocuments(docs), nil
}

func fromDocuments(docs []VertexDocument) []graph.RawEdge {
	var edges []graph.RawEdge
	for _, doc := range docs {
		if len(doc.Edges) == 0 {
			edges = append(edges, graph.RawEdge{Src: doc.ID, VertexOnly: true})
			continue
		}
		for i, dst := range doc.Edges {
			weight := 1.0
			if i < len(doc.Weights) {
				weight = doc.Weights[i]
			}
			edges = append(edges, graph.RawEdge{Src: doc.ID, Dst: dst, Weight: weight})
		}
	}
	return edges
}
