package main

import (
	"log"

	"rental_service/startup"
	"rental_service/startup/config"
)

func main() {
	cfg := config.NewConfig()
	logger, err := startup.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal(err)
	}
	server := startup.NewServer(cfg, logger)
	server.Start()
}
