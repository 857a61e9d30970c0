package config

import (
	"log"
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// Database drivers understood by storage.Open.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

// Search backends understood by search.New.
const (
	BackendElasticsearch = "elasticsearch"
	BackendBleve         = "bleve"
)

// Policies for a numeric column that has no parseable value at all.
const (
	EmptyNumericZero  = "zero"
	EmptyNumericLeave = "leave"
	EmptyNumericFail  = "fail"
)

// Config holds all application configuration loaded from environment variables.
// A single instance is built at startup and handed to every pipeline stage.
type Config struct {
	DBDriver         string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	SQLitePath       string

	DBConnectAttempts int
	DBConnectDelayMs  int

	TableName     string
	SourceCSVPath string
	CleanCSVPath  string

	SearchBackend         string
	ElasticsearchURL      string
	ElasticsearchUsername string
	ElasticsearchPassword string
	BleveDir              string
	IndexName             string

	EmptyNumericPolicy string

	Schedule string
	Timezone string

	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DBDriver:         getEnv("DB_DRIVER", DriverPostgres),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "airflow"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "airflow"),
		PostgresDB:       getEnv("POSTGRES_DB", "airflow"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/trips.db"),

		DBConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 1),
		DBConnectDelayMs:  getEnvInt("DB_CONNECT_DELAY_MS", 2000),

		TableName:     getEnv("TRIPS_TABLE", "table_m3"),
		SourceCSVPath: getEnv("SOURCE_CSV_PATH", "./data/uber_data_raw.csv"),
		CleanCSVPath:  getEnv("CLEAN_CSV_PATH", "./data/uber_data_clean.csv"),

		SearchBackend:         getEnv("SEARCH_BACKEND", BackendElasticsearch),
		ElasticsearchURL:      getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
		ElasticsearchUsername: getEnv("ELASTICSEARCH_USERNAME", ""),
		ElasticsearchPassword: getEnv("ELASTICSEARCH_PASSWORD", ""),
		BleveDir:              getEnv("BLEVE_DIR", "./data/index"),
		IndexName:             getEnv("INDEX_NAME", "uber_ride_analytics_clean"),

		EmptyNumericPolicy: getEnv("EMPTY_NUMERIC_POLICY", EmptyNumericZero),

		Schedule: getEnv("PIPELINE_SCHEDULE", "10,20,30 9 * * 6"),
		Timezone: getEnv("PIPELINE_TIMEZONE", "Asia/Jakarta"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks that the configuration is usable before any stage runs.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DBDriver, validation.Required, validation.In(DriverPostgres, DriverPgx, DriverSQLite)),
		validation.Field(&c.PostgresHost, validation.When(c.usesPostgres(), validation.Required)),
		validation.Field(&c.PostgresDB, validation.When(c.usesPostgres(), validation.Required)),
		validation.Field(&c.SQLitePath, validation.When(c.DBDriver == DriverSQLite, validation.Required)),
		validation.Field(&c.DBConnectAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.TableName, validation.Required),
		validation.Field(&c.SourceCSVPath, validation.Required),
		validation.Field(&c.CleanCSVPath, validation.Required),
		validation.Field(&c.SearchBackend, validation.Required, validation.In(BackendElasticsearch, BackendBleve)),
		validation.Field(&c.ElasticsearchURL, validation.When(c.SearchBackend == BackendElasticsearch, validation.Required)),
		validation.Field(&c.BleveDir, validation.When(c.SearchBackend == BackendBleve, validation.Required)),
		validation.Field(&c.IndexName, validation.Required),
		validation.Field(&c.EmptyNumericPolicy, validation.In(EmptyNumericZero, EmptyNumericLeave, EmptyNumericFail)),
	)
}

func (c *Config) usesPostgres() bool {
	return c.DBDriver == DriverPostgres || c.DBDriver == DriverPgx
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return c.SQLitePath
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
