// skyrecover server - hosts the airline disruption deliberation engine
// behind an HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/skyrecover/pkg/agent"
	"github.com/codeready-toolchain/skyrecover/pkg/api"
	"github.com/codeready-toolchain/skyrecover/pkg/arbitration"
	"github.com/codeready-toolchain/skyrecover/pkg/config"
	"github.com/codeready-toolchain/skyrecover/pkg/datastore"
	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
	"github.com/codeready-toolchain/skyrecover/pkg/masking"
	"github.com/codeready-toolchain/skyrecover/pkg/orchestration"
	"github.com/codeready-toolchain/skyrecover/pkg/orchestrator"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./configs"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	log.Printf("Starting skyrecover")
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	// Datastore: PostgreSQL when DB_PASSWORD is set, in-memory otherwise
	// (local development with mock agents needs no database).
	var store datastore.Store
	if os.Getenv("DB_PASSWORD") != "" {
		dbConfig, err := datastore.LoadConfigFromEnv()
		if err != nil {
			log.Fatalf("Failed to load datastore config: %v", err)
		}
		pgStore, err := datastore.NewPostgresStore(ctx, dbConfig)
		if err != nil {
			log.Fatalf("Failed to connect to datastore: %v", err)
		}
		store = pgStore
		log.Println("✓ Connected to PostgreSQL datastore")
	} else {
		store = datastore.NewMemoryStore()
		log.Println("✓ Using in-memory datastore (DB_PASSWORD not set)")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing datastore: %v", err)
		}
	}()

	registry, err := buildRegistry(cfg)
	if err != nil {
		log.Fatalf("Failed to build agent registry: %v", err)
	}
	log.Println("✓ Agent registry initialized")

	timeouts := orchestration.Timeouts{
		Phase1Safety:   cfg.Timeouts.Phase1Safety,
		Phase1Business: cfg.Timeouts.Phase1Business,
		RevisionExtra:  cfg.Timeouts.RevisionExtra,
		Arbitrator:     cfg.Timeouts.Arbitrator,
	}
	weights := arbitration.Weights{
		Safety:    cfg.Arbitrator.SafetyWeight,
		Cost:      cfg.Arbitrator.CostWeight,
		Passenger: cfg.Arbitrator.PassengerWeight,
		Network:   cfg.Arbitrator.NetworkWeight,
	}

	runner := orchestration.NewPhaseRunner(registry, timeouts)
	arb := arbitration.NewArbitrator(weights, cfg.Arbitrator.MaxSolutions, cfg.Arbitrator.DegradedArbitration, nil)
	masker := masking.NewService(cfg.Masking.Enabled, cfg.Masking.Patterns)
	o := orchestrator.New(runner, arb, timeouts, masker)

	server := api.NewServer(o, store, masker)
	log.Printf("HTTP server listening on :%s", httpPort)
	log.Printf("Submit disruptions at: http://localhost:%s/api/v1/disruptions", httpPort)
	if err := server.Run(":" + httpPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildRegistry turns the validated agent endpoint configuration into the
// fixed seven-client registry.
func buildRegistry(cfg *config.Config) (*agent.Registry, error) {
	clients := make(map[disruption.AgentName]agent.Client, len(cfg.Agents))
	for name, ac := range cfg.Agents {
		agentName := disruption.AgentName(name)
		switch ac.Mode {
		case config.AgentModeHTTP:
			clients[agentName] = agent.NewHTTPClient(agentName, ac.URL)
		case config.AgentModeMock:
			clients[agentName] = agent.NewMockClient(agentName,
				fmt.Sprintf("mock %s assessment: proceed with standard recovery", name), 0.75)
		default:
			return nil, fmt.Errorf("agent %s: unsupported mode %q", name, ac.Mode)
		}
	}
	return agent.NewRegistry(clients)
}
