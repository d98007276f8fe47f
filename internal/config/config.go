package config

import (
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all the configuration for the application.
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"production"`
	HTTPServer `yaml:"http_server"`
	Database   `yaml:"database"`
	ShortCode  `yaml:"short_code"`
	Auth       `yaml:"auth"`
	Analytics  `yaml:"analytics"`
	Transfer   `yaml:"transfer"`
	GeoHeaders `yaml:"geo_headers"`
}

// HTTPServer holds HTTP server specific configuration.
type HTTPServer struct {
	Port         int    `yaml:"port" env:"HTTP_SERVER_PORT" env-default:"8080"`
	BaseURL      string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	ReadTimeout  string `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout string `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout  string `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Database holds relational store configuration. DSN, when set, wins over
// the individual fields; sqlite:// DSNs are accepted for local runs.
type Database struct {
	DSN             string `yaml:"dsn" env:"DATABASE_DSN"`
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string `yaml:"user" env:"DB_USER" env-default:"shortlink"`
	Password        string `yaml:"password" env:"DB_PASSWORD"`
	DBName          string `yaml:"dbname" env:"DB_NAME" env-default:"shortlink"`
	SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	Timezone        string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"50"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
	SeedAdmin       bool   `yaml:"seed_admin" env:"DB_SEED_ADMIN" env-default:"true"`
}

// ShortCode holds code generation parameters.
type ShortCode struct {
	Length         int `yaml:"length" env:"SHORT_CODE_LENGTH" env-default:"6"`
	MaxAttempts    int `yaml:"max_attempts" env:"SHORT_CODE_MAX_ATTEMPTS" env-default:"10"`
	FallbackLength int `yaml:"fallback_length" env:"SHORT_CODE_FALLBACK_LENGTH" env-default:"8"`
}

// Auth holds session token configuration. JWTSecret is required in
// production; development falls back to a fixed local secret.
type Auth struct {
	JWTSecret       string `yaml:"jwt_secret" env:"JWT_SECRET"`
	SessionTTL      string `yaml:"session_ttl" env:"SESSION_TTL" env-default:"24h"`
	CookieName      string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"admin_session"`
	DefaultUsername string `yaml:"default_username" env:"ADMIN_USERNAME" env-default:"admin"`
	DefaultPassword string `yaml:"default_password" env:"ADMIN_PASSWORD" env-default:"admin123"`
}

// Analytics holds click accounting configuration. RefAggLevel selects the
// referrer aggregation granularity: domain, domain_path1 or domain_path2.
type Analytics struct {
	RefAggLevel     string `yaml:"ref_agg_level" env:"REF_AGG_LEVEL" env-default:"domain"`
	WorkerCount     int    `yaml:"worker_count" env:"ANALYTICS_WORKERS" env-default:"3"`
	BufferSize      int    `yaml:"buffer_size" env:"ANALYTICS_BUFFER_SIZE" env-default:"1000"`
	RetryAttempts   int    `yaml:"retry_attempts" env:"ANALYTICS_RETRY_ATTEMPTS" env-default:"3"`
	RetryDelay      string `yaml:"retry_delay" env:"ANALYTICS_RETRY_DELAY" env-default:"1s"`
	ShutdownTimeout string `yaml:"shutdown_timeout" env:"ANALYTICS_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// Transfer holds bulk import parameters.
type Transfer struct {
	ChunkSize int `yaml:"chunk_size" env:"IMPORT_CHUNK_SIZE" env-default:"1000"`
}

// GeoHeaders names the request headers the geo resolver and client IP
// extraction read. Geography arrives pre-resolved in headers (for example
// from Cloudflare); this service never does its own lookups.
type GeoHeaders struct {
	IPHeader           string `yaml:"ip_header" env:"IP_HEADER" env-default:"cf-connecting-ip"`
	IPFallbackHeaders  string `yaml:"ip_fallback_headers" env:"IP_FALLBACK_HEADERS" env-default:"x-forwarded-for,x-real-ip,x-client-ip,fastly-client-ip"`
	CountryHeader      string `yaml:"country_header" env:"COUNTRY_HEADER" env-default:"cf-ipcountry"`
	CityHeader         string `yaml:"city_header" env:"CITY_HEADER"`
	CountryNameHeader  string `yaml:"country_name_header" env:"COUNTRY_NAME_HEADER" env-default:"country_name"`
	CountryIDHeader    string `yaml:"country_id_header" env:"COUNTRY_ID_HEADER" env-default:"country_id"`
	ProvinceNameHeader string `yaml:"province_name_header" env:"PROVINCE_NAME_HEADER" env-default:"province_name"`
	ProvinceIDHeader   string `yaml:"province_id_header" env:"PROVINCE_ID_HEADER" env-default:"province_id"`
	CityNameHeader     string `yaml:"city_name_header" env:"CITY_NAME_HEADER" env-default:"city_name"`
	CityIDHeader       string `yaml:"city_id_header" env:"CITY_ID_HEADER" env-default:"city_id"`
}

// MustLoad loads the application configuration.
func MustLoad() *Config {
	// Try to load .env file (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yml"
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			log.Fatalf("cannot read config: %s", err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read config from environment: %s", err)
		}
	}

	return &cfg
}
