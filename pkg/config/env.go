package config

// EnvPrefix is the envconfig prefix; every field declares its full variable name.
const EnvPrefix = "CARLINE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EventSinkNone     = "none"
	EventSinkRedis    = "redis"
	EventSinkPubSub   = "pubsub"
	EventSinkRabbitMQ = "rabbitmq"
)

const (
	EnvAppEnv      = "CARLINE_APP_ENV"
	EnvPort        = "CARLINE_APP_PORT"
	EnvLogLevel    = "CARLINE_LOG_LEVEL"
	EnvDBDSN       = "CARLINE_DB_DSN"
	EnvDBHost      = "CARLINE_DB_HOST"
	EnvDBUser      = "CARLINE_DB_USER"
	EnvDBName      = "CARLINE_DB_NAME"
	EnvDBPassword  = "CARLINE_DB_PASSWORD"
	EnvRedisURL    = "CARLINE_REDIS_URL"
	EnvJWTSecret   = "CARLINE_JWT_SECRET"
	EnvJWTIssuer   = "CARLINE_JWT_ISSUER"
	EnvJWTExpMins  = "CARLINE_JWT_EXPIRATION_MINUTES"
	EnvCookieName  = "CARLINE_COOKIE_NAME"
	EnvQueueDupes  = "CARLINE_QUEUE_ALLOW_DUPLICATE_STUDENTS"
	EnvEventsSink  = "CARLINE_EVENTS_SINK"
	EnvCronTZ      = "CARLINE_CRON_TIMEZONE"
	EnvAutoMigrate = "CARLINE_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
