package mongodb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"project/graph"
)

func TestParseURI(t *testing.T) {
	clean, db, collection, err := ParseURI("mongodb://localhost:27017/graphs?collection=web&retryWrites=true")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017/graphs?retryWrites=true", clean)
	assert.Equal(t, "graphs", db)
	assert.Equal(t, "web", collection)

	_, db, collection, err = ParseURI("mongodb://localhost:27017")
	require.NoError(t, err)
	assert.Equal(t, DEFAULT_DATABASE, db)
	assert.Equal(t, "", collection)
}

func TestDocumentsRoundTrip(t *testing.T) {
	edges := []graph.RawEdge{
		{Src: "b", Dst: "c", Weight: 2},
		{Src: "a", Dst: "b", Weight: 1},
		{Src: "a", Dst: "c", Weight: 4},
		{Src: "z", VertexOnly: true},
	}
	docs := toDocuments(edges)
	require.Len(t, docs, 4)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, []string{"b", "c"}, docs[0].Edges)
	assert.Equal(t, []float64{1, 4}, docs[0].Weights)
	assert.Empty(t, docs[2].Edges)
	assert.NotEmpty(t, docs[2].Hash)

	back := fromDocuments(docs)
	assert.ElementsMatch(t, []graph.RawEdge{
		{Src: "a", Dst: "b", Weight: 1},
		{Src: "a", Dst: "c", Weight: 4},
		{Src: "b", Dst: "c", Weight: 2},
		{Src: "c", VertexOnly: true},
		{Src: "z", VertexOnly: true},
	}, back)
}

func TestFromDocumentsDefaultsWeight(t *testing.T) {
	edges := fromDocuments([]VertexDocument{{ID: "1", Edges: []string{"2", "3"}}})
	assert.Equal(t, []graph.RawEdge{
		{Src: "1", Dst: "2", Weight: 1},
		{Src: "1", Dst: "3", Weight: 1},
	}, edges)
}

func TestCreateBatches(t *testing.T) {
	docs := make([]VertexDocument, 51)
	batches := createBatches(docs)
	require.Len(t, batches, 3)
	assert.Len(t, batches[2], 1)
	assert.IsType(t, VertexDocument{}, batches[0][0])
}

// fakeVertices answers FindOne from an in-memory set of documents.
type fakeVertices struct {
	docs map[string]VertexDocument
	err  error
}

func (f fakeVertices) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	if f.err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, f.err, nil)
	}
	id := filter.(bson.M)["ID"].(string)
	doc, ok := f.docs[id]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(doc, nil, nil)
}

func TestHasVertex(t *testing.T) {
	ctx := context.Background()
	docs := toDocuments([]graph.RawEdge{{Src: "a", Dst: "b", Weight: 2}})
	vertices := fakeVertices{docs: map[string]VertexDocument{}}
	for _, doc := range docs {
		vertices.docs[doc.ID] = doc
	}

	doc, err := GetVertexById(ctx, vertices, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, doc.Edges)

	found, err := HasVertex(ctx, vertices, "b")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = HasVertex(ctx, vertices, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	down := errors.New("server selection timeout")
	found, err = HasVertex(ctx, fakeVertices{err: down}, "a")
	assert.ErrorIs(t, err, down)
	assert.False(t, found)
}
