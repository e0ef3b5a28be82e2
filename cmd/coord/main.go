package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"project/bagel"
	"project/util"
)

func main() {
	var config bagel.CoordConfig
	err := util.ReadConfig("config/coord.json", &config)
	util.CheckErr(err, "Error reading coord config: %v\n", err)
	config.CoordAddr = util.GetEnv("STATUS_ADDR", config.CoordAddr)

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
	log.SetPrefix("Coord: ")

	coord := bagel.NewCoord()
	err = coord.Start(config.CoordAddr)
	util.CheckErr(err, "Error starting coord: %v\n", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Printf("Coord: main.go: shutting down\n")
	if err := coord.Close(); err != nil {
		log.Printf("Coord: main.go: error closing: %v\n", err)
	}
}
