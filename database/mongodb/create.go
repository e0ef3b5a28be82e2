package mongodb

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"project/database"
	"project/graph"
	"project/util"
)

const (
	DEFAULT_DATABASE   = "bagel"
	DEFAULT_COLLECTION = "graph"
)

// VertexDocument stores a vertex with its out-edges.
type VertexDocument struct {
	ID      string    `bson:"ID"`
	Edges   []string  `bson:"Edges"`
	Weights []float64 `bson:"Weights,omitempty"`
	Hash    string    `bson:"Hash"`
}

// ParseURI splits the bagel specific "collection" query parameter off uri
// and reads the database from its path.
func ParseURI(uri string) (clean string, database string, collection string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid mongodb uri: %w", err)
	}
	query := u.Query()
	collection = query.Get("collection")
	query.Del("collection")
	u.RawQuery = query.Encode()

	database = strings.Trim(u.Path, "/")
	if database == "" {
		database = DEFAULT_DATABASE
	}
	return u.String(), database, collection, nil
}

// GetDatabaseClient connects to uri, or to BAGEL_MONGO_URI when uri is
// empty.
func GetDatabaseClient(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		uri = util.GetEnv("MONGO_URI", "")
	}
	if uri == "" {
		return nil, fmt.Errorf("no mongodb uri configured")
	}

	clientOptions := options.Client().ApplyURI(uri)
	if strings.HasPrefix(uri, "mongodb+srv://") {
		clientOptions.SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Printf("GetDatabaseClient: could not connect: %v\n", err)
		return nil, err
	}
	return client, nil
}

// Connect opens the collection named by uri, falling back to
// defaultCollection.
func Connect(ctx context.Context, uri string, defaultCollection string) (*mongo.Client, *mongo.Collection, error) {
	clean, db, name, err := ParseURI(uri)
	if err != nil {
		return nil, nil, err
	}
	if name == "" {
		name = defaultCollection
	}
	client, err := GetDatabaseClient(ctx, clean)
	if err != nil {
		return nil, nil, err
	}
	return client, GetCollection(client, db, name), nil
}

func GetCollection(client *mongo.Client, db string, tableName string) *mongo.Collection {
	return client.Database(db).Collection(tableName)
}

// toDocuments groups edges by source. Destinations without out-edges get a
// document of their own so isolated vertices survive the round trip.
func toDocuments(edges []graph.RawEdge) []VertexDocument {
	byId := make(map[string]*VertexDocument)
	get := func(id string) *VertexDocument {
		doc, ok := byId[id]
		if !ok {
			doc = &VertexDocument{
				ID:    id,
				Edges: []string{},
				Hash:  strconv.FormatUint(util.HashString(id), 10),
			}
			byId[id] = doc
		}
		return doc
	}
	for _, e := range edges {
		doc := get(e.Src)
		if e.VertexOnly {
			continue
		}
		doc.Edges = append(doc.Edges, e.Dst)
		doc.Weights = append(doc.Weights, e.Weight)
		get(e.Dst)
	}

	ids := make([]string, 0, len(byId))
	for id := range byId {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([]VertexDocument, len(ids))
	for i, id := range ids {
		docs[i] = *byId[id]
	}
	return docs
}

func createBatches(docs []VertexDocument) [][]interface{} {
	var batches [][]interface{}
	for _, batch := range database.Batches(docs, database.MAXIMUM_ITEMS_PER_BATCH) {
		b := make([]interface{}, len(batch))
		for i := range batch {
			b[i] = batch[i]
		}
		batches = append(batches, b)
	}
	return batches
}

func BatchInsertVertices(
	ctx context.Context,
	collection *mongo.Collection,
	batches [][]interface{},
) error {
	numBatches := len(batches)
	for b := 0; b < numBatches; b++ {
		if _, err := collection.InsertMany(ctx, batches[b]); err != nil {
			log.Printf("BatchInsertVertices: failed to upload batch %v: %v\n", b, err)
			return err
		}
		log.Printf("BatchInsertVertices: uploaded batch %v/%v\n", b+1, numBatches)
	}
	log.Printf("BatchInsertVertices: %v batches added to %v", numBatches, collection.Name())
	return nil
}

// AddGraph uploads the edge list of src as vertex documents.
func AddGraph(ctx context.Context, collection *mongo.Collection, src graph.Source) error {
	edges, err := src.Edges(ctx)
	if err != nil {
		return err
	}
	docs := toDocuments(edges)
	log.Printf("AddGraph: %v vertices from %v edges\n", len(docs), len(edges))
	return BatchInsertVertices(ctx, collection, createBatches(docs))
}
