package main

import (
	"context"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"project/bagel"
	"project/util"
)

func main() {
	// read config
	var config bagel.ClientConfig
	err := util.ReadConfig("config/client.json", &config)
	util.CheckErr(err, "Error reading client config: %v\n", err)

	// create a log file and log to both console and terminal
	logFile, err := os.OpenFile(
		"bagel.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644,
	)
	if err != nil {
		log.Fatal(err)
	}
	defer logFile.Close()
	mw := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(mw)
	// logs all start with ClientId from config
	log.SetPrefix(config.ClientId + ": ")

	log.Printf("Client: main.go: args: %v\n", os.Args)

	if len(os.Args) != 2 {
		log.Println("Usage: ./bin/client [partitions]")
		log.Println("Example: ./bin/client 3")
		return
	}
	partitions, err := strconv.Atoi(os.Args[1])
	if err != nil || partitions <= 0 {
		log.Println("Provided partition count must be a positive integer")
		return
	}

	client := bagel.NewClient()
	err = client.Start(config.ClientId, config.CoordAddr)
	util.CheckErr(err, "Error connecting to coord: %v\n", err)
	defer client.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), util.GetEnvDuration("CLIENT_TIMEOUT", time.Hour))
	defer cancel()

	err = client.WaitDone(ctx, partitions, time.Second, func(progress map[int]bagel.Progress) {
		ids := make([]int, 0, len(progress))
		for id := range progress {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			p := progress[id]
			log.Printf(
				"Client: partition %d %s epoch %d frontier %d active %d done %v\n",
				id, p.Algorithm, p.Epoch, p.Frontier, p.Active, p.Done,
			)
		}
	})
	util.CheckErr(err, "Error waiting for the run: %v\n", err)
	log.Printf("Client: all %d partitions done\n", partitions)
}
