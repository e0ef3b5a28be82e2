package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"project/util"
	"project/worker"
)

func main() {
	configPath := flag.String("config", "config/worker0.json", "worker config, .json or .yaml")
	local := flag.Int("local", -1, "run this many partitions in-process (overrides the config)")
	algorithm := flag.String("algorithm", "", "sssp or apsp (overrides the config)")
	envFile := flag.String("env", ".env", "dotenv file with credentials")
	flag.Parse()

	util.LoadEnv(*envFile)
	config, err := worker.ReadConfig(*configPath)
	util.CheckErr(err, "Error reading worker config: %v\n", err)
	if *local >= 0 {
		config.Local = *local
	}
	if *algorithm != "" {
		config.Algorithm = *algorithm
	}

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
	if config.Local > 0 {
		log.SetPrefix(fmt.Sprintf("Worker[local x%d]: ", config.Local))
	} else {
		log.SetPrefix(fmt.Sprintf("Worker%d: ", config.PartitionId))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Worker: main.go: running %v on %v\n", config.Algorithm, config.Input)
	err = worker.Run(ctx, config)
	util.CheckErr(err, "Worker failed: %v\n", err)
	log.Printf("Worker: main.go: results written to %v\n", config.Output)
}
