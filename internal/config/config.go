package config // package config loads application configuration from environment variables

import (
	"fmt"     // fmt formats configuration errors
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings normalizes enum-like settings
	"time"    // time parses durations and locations
)

// Storage backends accepted by STORAGE.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Image stores accepted by IMAGE_STORE.
const (
	ImageStoreLocal = "local"
	ImageStoreS3    = "s3"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; optional ones have defaults applied by Parse.
type Config struct {
	Env      string // application environment (dev, test, prod)
	Port     string // HTTP port to listen on
	LogLevel string // debug, info, warn or error

	Storage string // mysql or memory
	DBUser  string // database username
	DBPass  string // database password (optional)
	DBHost  string // database host address
	DBPort  string // database port number
	DBName  string // database name

	JWTSecret   string // secret used to sign session tokens
	TokenTTLMin int    // session token lifetime in minutes, 0 means tokens never expire
	BcryptCost  int    // bcrypt cost for password hashing

	Timezone string // IANA zone used to bucket todos by calendar day

	ImageStore    string // local or s3
	UploadDir     string // directory for the local image store
	MaxImageBytes int64  // upper bound for uploaded images

	S3Bucket    string // bucket for the s3 image store
	S3Region    string // region passed to the AWS SDK
	S3Endpoint  string // base endpoint, e.g. a MinIO URL (optional)
	S3AccessKey string // static access key (optional, default chain otherwise)
	S3SecretKey string // static secret key
	S3PublicURL string // public URL prefix for stored objects (optional)

	AIBaseURL string        // OpenAI-compatible API root
	AIAPIKey  string        // bearer key for the completions API
	AIModel   string        // model name sent with every request
	AITimeout time.Duration // upper bound for a single AI call

	RabbitURL string // AMQP URL for the summary job queue (empty disables it)
}

// Load reads configuration values from the process environment. Missing
// required variables cause the program to exit with a fatal log message.
func Load() Config {
	cfg, err := Parse(os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Parse builds a Config from the given lookup function. It is split out of
// Load so tests can feed a map instead of the real environment.
func Parse(lookup func(string) (string, bool)) (Config, error) {
	p := parser{lookup: lookup}
	cfg := Config{
		Env:      p.must("APP_ENV"),
		Port:     p.must("APP_PORT"),
		LogLevel: p.str("LOG_LEVEL", "info"),

		Storage: strings.ToLower(p.str("STORAGE", StorageMySQL)),

		JWTSecret:   p.must("JWT_SECRET"),
		TokenTTLMin: p.int("TOKEN_TTL_MIN", 0),
		BcryptCost:  p.int("BCRYPT_COST", 10),

		Timezone: p.str("APP_TIMEZONE", "UTC"),

		ImageStore:    strings.ToLower(p.str("IMAGE_STORE", ImageStoreLocal)),
		UploadDir:     p.str("UPLOAD_DIR", "uploads"),
		MaxImageBytes: int64(p.int("MAX_IMAGE_BYTES", 5<<20)),

		S3Bucket:    p.str("S3_BUCKET", ""),
		S3Region:    p.str("S3_REGION", "us-east-1"),
		S3Endpoint:  p.str("S3_ENDPOINT", ""),
		S3AccessKey: p.str("S3_ACCESS_KEY", ""),
		S3SecretKey: p.str("S3_SECRET_KEY", ""),
		S3PublicURL: p.str("S3_PUBLIC_URL", ""),

		AIBaseURL: p.str("AI_BASE_URL", "https://api.openai.com/v1"),
		AIAPIKey:  p.str("AI_API_KEY", ""),
		AIModel:   p.str("AI_MODEL", "gpt-4o-mini"),
		AITimeout: p.dur("AI_TIMEOUT", 30*time.Second),

		RabbitURL: p.str("RABBITMQ_URL", ""),
	}

	switch cfg.Storage {
	case StorageMySQL:
		cfg.DBUser = p.must("DB_USER")
		cfg.DBPass = p.str("DB_PASS", "") // empty allowed
		cfg.DBHost = p.must("DB_HOST")
		cfg.DBPort = p.must("DB_PORT")
		cfg.DBName = p.must("DB_NAME")
	case StorageMemory:
	default:
		p.fail("invalid STORAGE %q", cfg.Storage)
	}

	switch cfg.ImageStore {
	case ImageStoreLocal:
	case ImageStoreS3:
		if cfg.S3Bucket == "" {
			p.fail("S3_BUCKET is required when IMAGE_STORE=s3")
		}
	default:
		p.fail("invalid IMAGE_STORE %q", cfg.ImageStore)
	}

	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		p.fail("BCRYPT_COST out of range: %d", cfg.BcryptCost)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		p.fail("invalid APP_TIMEZONE %q", cfg.Timezone)
	}

	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, nil
}

// Location returns the time zone used for calendar-day comparisons.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TokenTTL converts TokenTTLMin into a duration. Zero disables expiry.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMin) * time.Minute
}

// parser records the first error it meets so Parse can report it once.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

// must retrieves the value of a required variable.
func (p *parser) must(key string) string {
	v, ok := p.lookup(key)
	if !ok || v == "" {
		p.fail("missing required env var: %s", key)
	}
	return v
}

func (p *parser) str(key, def string) string {
	if v, ok := p.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail("invalid int for %s: %q", key, v)
	}
	return n
}

func (p *parser) dur(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail("invalid duration for %s: %q", key, v)
	}
	return d
}
