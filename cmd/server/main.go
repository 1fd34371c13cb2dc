package main

import (
	"log"
	"time"

	"github.com/damienbose/line-draw/internal/api"
	"github.com/damienbose/line-draw/internal/config"
	"github.com/damienbose/line-draw/internal/handler"
	"github.com/damienbose/line-draw/internal/metrics"
	"github.com/damienbose/line-draw/internal/service"
)

func main() {
	cfg := config.Load()

	collector := metrics.NewCollector()

	opts := service.DefaultOptions()
	opts.CanvasSize = cfg.CanvasSize
	opts.Metrics = collector
	manager := service.NewManager(opts)

	jobs := handler.NewJobHandler(manager, cfg)
	ws := handler.NewWSHandler(manager, time.Second)

	router := api.SetupRouter(cfg, jobs, ws, collector)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
