package main

import (
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/app"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/handlers"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	apiHandler := handlers.NewAPIHandler(service)

	http.HandleFunc("GET /api/v1/data", apiHandler.HandleData)
	http.HandleFunc("POST /api/v1/data", apiHandler.HandleData)
	http.HandleFunc("PATCH /api/v1/data", apiHandler.HandleData)
	http.HandleFunc("DELETE /api/v1/data", apiHandler.HandleData)

	http.HandleFunc("POST /api/v1/evaluations/{id}/submit", apiHandler.HandleSubmit)
	http.HandleFunc("POST /api/v1/evaluations/{id}/lock", apiHandler.HandleLock)
	http.HandleFunc("GET /api/v1/evaluations/{id}/summary", apiHandler.HandleSummary)

	http.Handle("/metrics", promhttp.Handler())

	logger.Info.Printf("Starting grader server on %s", service.Config.Server.Port)
	if !service.Config.Server.EnableAuth {
		logger.Debug.Println("Auth disabled, actors come from X-Actor-* headers")
	}
	if err := http.ListenAndServe(service.Config.Server.Port, nil); err != nil {
		logger.Error.Fatalf("Grader server failed: %v", err)
	}
}
