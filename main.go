// @title Exam Administration API
// @version 1.0
// @description Backend service for exam application lifecycle and live proctoring.

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"

	"prova_backend/internal/app"
	"prova_backend/internal/config"
	"prova_backend/pkg/configwatcher"
	"prova_backend/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// penalty rules may be tuned while applications are running
	go configwatcher.WatchConfig(*configDir, application.ReloadConfig)

	application.Run()
}
