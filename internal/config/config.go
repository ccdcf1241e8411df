package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendMySQL = "mysql"
	BackendBolt  = "bolt"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for counts.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	StoreBackend string // which table backend to use: "mysql" or "bolt"
	DBUser       string // database username (mysql backend)
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	BoltPath     string // path of the BoltDB file (bolt backend)
	JWTSecret    string // secret used to verify requester tokens
	MaxPending   int    // cap on unreported claims per requester; 0 = unlimited
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message. Database variables
// are only required for the backend actually selected.
func Load() Config {
	cfg := Config{
		Env:          must("APP_ENV"),                        // environment (dev/test/prod)
		Port:         must("APP_PORT"),                       // port to bind the HTTP server
		StoreBackend: getenv("STORE_BACKEND", BackendMySQL),  // table backend selector
		JWTSecret:    must("JWT_SECRET"),                     // secret for requester tokens
		MaxPending:   envInt("MAX_PENDING_PER_REQUESTER", 0), // pending claim cap (0 = unlimited)
	}
	switch cfg.StoreBackend {
	case BackendMySQL:
		cfg.DBUser = must("DB_USER")      // database user
		cfg.DBPass = os.Getenv("DB_PASS") // database password (empty allowed)
		cfg.DBHost = must("DB_HOST")      // database host
		cfg.DBPort = must("DB_PORT")      // database port
		cfg.DBName = must("DB_NAME")      // database name
	case BackendBolt:
		cfg.BoltPath = getenv("BOLT_PATH", "allocator.db") // embedded database file
	default:
		log.Fatalf("unknown STORE_BACKEND: %q", cfg.StoreBackend)
	}
	if cfg.MaxPending < 0 {
		log.Fatalf("MAX_PENDING_PER_REQUESTER must not be negative")
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// envInt reads an integer environment variable, returning the default when
// unset and exiting when the value does not parse.
func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
