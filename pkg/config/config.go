package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Cookie        CookieConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Queue         QueueConfig
	Cron          CronConfig
	Events        EventsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	RabbitMQ      RabbitMQConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Events.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"CARLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARLINE_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated list of dashboard origins.
	CORSOrigins []string `envconfig:"CARLINE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"CARLINE_SERVICE_KIND" default:"api"`
	// MetricsAddr exposes /metrics from the background workers, e.g. ":9102".
	MetricsAddr string `envconfig:"CARLINE_WORKER_METRICS_ADDR"`
}

type DBConfig struct {
	DSN string `envconfig:"CARLINE_DB_DSN"`
	// Driver is postgres, or sqlite for a single-node local setup.
	Driver string `envconfig:"CARLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"CARLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARLINE_DB_USER"`
	LegacyPassword string `envconfig:"CARLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"CARLINE_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CARLINE_REDIS_URL"`
	Address      string        `envconfig:"CARLINE_REDIS_ADDR"`
	Password     string        `envconfig:"CARLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CARLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CARLINE_JWT_ISSUER" default:"carline"`
	ExpirationMinutes int    `envconfig:"CARLINE_JWT_EXPIRATION_MINUTES" default:"480"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type CookieConfig struct {
	Name   string `envconfig:"CARLINE_COOKIE_NAME" default:"auth-token"`
	Domain string `envconfig:"CARLINE_COOKIE_DOMAIN"`
	Secure bool   `envconfig:"CARLINE_COOKIE_SECURE" default:"false"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CARLINE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CARLINE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CARLINE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CARLINE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CARLINE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"CARLINE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"CARLINE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"CARLINE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARLINE_AUTO_MIGRATE" default:"false"`
}

type QueueConfig struct {
	// AllowDuplicateStudents permits a student to sit in more than one open queue entry.
	AllowDuplicateStudents bool `envconfig:"CARLINE_QUEUE_ALLOW_DUPLICATE_STUDENTS" default:"false"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"CARLINE_CRON_INTERVAL" default:"1h"`
	Timezone string        `envconfig:"CARLINE_CRON_TIMEZONE" default:"UTC"`
}

// Location resolves the configured school timezone, falling back to UTC.
func (c CronConfig) Location() *time.Location {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type EventsConfig struct {
	Sink          string `envconfig:"CARLINE_EVENTS_SINK" default:"none"`
	ChannelPrefix string `envconfig:"CARLINE_EVENTS_CHANNEL_PREFIX" default:"carline:queue"`
}

func (e EventsConfig) validate() error {
	switch e.NormalizedSink() {
	case EventSinkNone, EventSinkRedis, EventSinkPubSub, EventSinkRabbitMQ:
		return nil
	}
	return fmt.Errorf("unsupported %s %q", EnvEventsSink, e.Sink)
}

// NormalizedSink returns the lower-cased sink name.
func (e EventsConfig) NormalizedSink() string {
	sink := strings.ToLower(strings.TrimSpace(e.Sink))
	if sink == "" {
		return EventSinkNone
	}
	return sink
}

type GCPConfig struct {
	ProjectID string `envconfig:"CARLINE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	QueueTopic        string `envconfig:"CARLINE_PUBSUB_QUEUE_TOPIC" default:"carline-queue-events"`
	QueueSubscription string `envconfig:"CARLINE_PUBSUB_QUEUE_SUBSCRIPTION"`
	// OrderedDelivery keys messages by queue entry so a dashboard never sees
	// a dismissal before the ready event for the same car.
	OrderedDelivery bool `envconfig:"CARLINE_PUBSUB_ORDERED_DELIVERY" default:"true"`
}

type RabbitMQConfig struct {
	URL   string `envconfig:"CARLINE_RABBITMQ_URL"`
	Queue string `envconfig:"CARLINE_RABBITMQ_QUEUE" default:"carline.queue.events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CARLINE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CARLINE_OUTBOX_PUBLISH_POLL_MS" default:"1000"`
	MaxAttempts    int `envconfig:"CARLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"CARLINE_OUTBOX_RETENTION_DAYS" default:"30"`
	// DLQRetentionDays keeps dead letters around longer for manual replay.
	DLQRetentionDays int `envconfig:"CARLINE_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

func (db *DBConfig) ensureDSN() error {
	switch strings.ToLower(db.Driver) {
	case "", DBDriverPostgres:
	case DBDriverSQLite:
		if db.DSN == "" {
			return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", db.Driver)
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
