package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"marketflow/pkg/api/config"
	"marketflow/pkg/api/review"
	apivaluation "marketflow/pkg/api/valuation"
	"marketflow/pkg/core/agent"
	"marketflow/pkg/core/marketdata"
	corereview "marketflow/pkg/core/review"
	"marketflow/pkg/core/workflow"
)

func main() {
	// Load environment variables
	godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Initialize manager from config
	agentCfg, err := agent.LoadConfig("config/models.yaml")
	if err != nil {
		log.Warn().Err(err).Msg("failed to load model config, using defaults")
	}
	agentMgr := agent.NewManager(agentCfg)

	market := marketdata.NewFMPClient()

	// Config endpoints
	configHandler := config.NewHandler(agentMgr)
	http.HandleFunc("/api/config", configHandler.HandleConfig)
	http.HandleFunc("/api/config/switch", configHandler.HandleSwitch)

	// Valuation model endpoints
	valuationHandler := apivaluation.NewHandler(market)
	http.HandleFunc("/api/valuation/dcf", valuationHandler.HandleDCF)
	http.HandleFunc("/api/valuation/cbcv", valuationHandler.HandleCBCV)
	http.HandleFunc("/api/valuation/parameters", valuationHandler.HandleParameters)

	// Review workflow endpoint. The analyst produces, the boss reviews; no
	// Drive uploads in API mode.
	producer := agent.NewAnalyst(agentMgr.RoleProvider("financial_modeling"), market, nil)
	reviewer := corereview.NewBossReviewer(agentMgr.RoleProvider("boss"), nil)
	orchestrator := workflow.NewOrchestrator(workflow.Deps{
		Market:   market,
		Producer: producer,
		Reviewer: reviewer,
	}, workflow.WithLogger(log))
	reviewHandler := review.NewHandler(orchestrator)
	http.HandleFunc("/api/review/run", reviewHandler.HandleRun)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	log.Info().Str("addr", addr).Msg("API server starting")
	fmt.Println("  - GET  /api/config")
	fmt.Println("  - POST /api/config/switch")
	fmt.Println("  - POST /api/valuation/dcf")
	fmt.Println("  - POST /api/valuation/cbcv")
	fmt.Println("  - POST /api/valuation/parameters")
	fmt.Println("  - POST /api/review/run")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}
