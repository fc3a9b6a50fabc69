package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string

	// Decision pipeline
	ClassifierURL string // empty means the built-in keyword classifier is used
	JWTSecret     string

	// Enforcement engine
	PollInterval    time.Duration // cadence of the pending-action poll
	PollBackoff     time.Duration // delay after a poll-loop error
	MonitorInterval time.Duration // cadence of the endpoint liveness poll
	MonitorBackoff  time.Duration // delay after a monitor-loop error
	ExecTimeout     time.Duration // upper bound for one remote-execution run
	ClaimBatchSize  int           // max pending actions claimed per poll
	StaleClaimAge   time.Duration // EXECUTING claims older than this are re-queued
	SweepInterval   time.Duration // cadence of the stale-claim recovery sweep

	// Remote automation
	AnsiblePath   string // directory holding playbooks/
	AnsibleBinary string

	// Ledger backend: "memory" or "fabric"
	LedgerMode      string
	FabricContainer string
	FabricOrderer   string
	FabricChannel   string
	FabricChaincode string

	// Operator notifications (shoutrrr service URLs) and log output
	NotifyURLs []string
	LogDir     string
}

// Load reads env vars and falls back to defaults so the engine can boot with
// zero configuration. A .env file in the working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:  getEnv("AEGIS_ENV", "development"),
		HTTPPort:     getEnv("AEGIS_HTTP_PORT", "8080"),
		DatabasePath: getEnv("AEGIS_DB_PATH", filepath.Join("data", "aegis.db")),

		ClassifierURL: getEnv("AEGIS_CLASSIFIER_URL", ""),
		JWTSecret:     getEnv("AEGIS_JWT_SECRET", ""),

		PollInterval:    getDuration("AEGIS_POLL_INTERVAL", 10*time.Second),
		PollBackoff:     getDuration("AEGIS_POLL_BACKOFF", 30*time.Second),
		MonitorInterval: getDuration("AEGIS_MONITOR_INTERVAL", 60*time.Second),
		MonitorBackoff:  getDuration("AEGIS_MONITOR_BACKOFF", 300*time.Second),
		ExecTimeout:     getDuration("AEGIS_EXEC_TIMEOUT", 5*time.Minute),
		ClaimBatchSize:  getInt("AEGIS_CLAIM_BATCH", 10),
		StaleClaimAge:   getDuration("AEGIS_STALE_CLAIM_AGE", 15*time.Minute),
		SweepInterval:   getDuration("AEGIS_SWEEP_INTERVAL", 5*time.Minute),

		AnsiblePath:   getEnv("AEGIS_ANSIBLE_PATH", "/ansible"),
		AnsibleBinary: getEnv("AEGIS_ANSIBLE_BINARY", "ansible-playbook"),

		LedgerMode:      getEnv("AEGIS_LEDGER", "memory"),
		FabricContainer: getEnv("AEGIS_FABRIC_CONTAINER", "cli"),
		FabricOrderer:   getEnv("AEGIS_FABRIC_ORDERER", "orderer.example.com:7050"),
		FabricChannel:   getEnv("AEGIS_FABRIC_CHANNEL", "compliancechannel"),
		FabricChaincode: getEnv("AEGIS_FABRIC_CHAINCODE", "compliance"),

		NotifyURLs: getList("AEGIS_NOTIFY_URLS"),
		LogDir:     getEnv("AEGIS_LOG_DIR", "logs"),
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}

	return fallback
}

func getList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}
