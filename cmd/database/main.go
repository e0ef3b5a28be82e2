package main

import (
	"context"
	"io"
	"log"
	"os"

	"project/database"
	"project/database/mongodb"
	"project/graph"
	"project/util"
)

func main() {
	logFile, err := os.OpenFile("bagel.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		log.Fatal(err)
	}
	defer logFile.Close()
	mw := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(mw)
	log.SetPrefix("Database" + ": ")

	if len(os.Args) != 3 {
		log.Printf("Usage: ./bin/database [$1 DESTINATION] [$2<PATH_TO_GRAPH.csv>]")
		log.Printf("Example: ./bin/database 'mongodb://localhost:27017/bagel?collection=graph' graph.csv")
		log.Printf("Example: ./bin/database sqlite:graph.db graph.csv")
		return
	}

	util.LoadEnv()
	ctx := context.Background()
	src := graph.NewCSVSource(os.Args[2])

	kind, dest := database.Kind(os.Args[1])
	switch kind {
	case database.MONGODB:
		client, collection, err := mongodb.Connect(ctx, dest, mongodb.DEFAULT_COLLECTION)
		util.CheckErr(err, "Error connecting to mongodb: %v\n", err)
		defer client.Disconnect(ctx)
		err = mongodb.AddGraph(ctx, collection, src)
		util.CheckErr(err, "Error uploading graph: %v\n", err)
	case database.MYSQL, database.SQLSERVER, database.SQLITE:
		table := util.GetEnv("EDGE_TABLE", database.DEFAULT_EDGE_TABLE)
		err := database.UploadEdges(ctx, kind, dest, table, src)
		util.CheckErr(err, "Error uploading graph: %v\n", err)
	default:
		log.Printf("Unsupported destination %v\n", os.Args[1])
	}
}
