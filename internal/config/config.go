package config // package config loads application configuration from a file and environment variables

import (
    "fmt"  // fmt wraps configuration errors
    "os"   // os provides access to environment variables and the config file
    "time" // time holds durations and the business timezone

    "gopkg.in/yaml.v3" // yaml parses the optional configuration file
)

// DefaultTimezone is the business timezone used to decide which calendar
// day a ticket belongs to.
const DefaultTimezone = "America/Argentina/Buenos_Aires"

// Config holds all runtime configuration values.  It is resolved once at
// process start and passed by reference to the components that need it.
// Every field can be set from the YAML file named by QUEUE_CONFIG_PATH and
// overridden by the matching environment variable.
type Config struct {
    Env     string `yaml:"env"`  // application environment (e.g. "dev", "prod")
    Port    string `yaml:"port"` // HTTP port to listen on
    Verbose bool   `yaml:"verbose"`
    LogFile string `yaml:"log_file"` // optional file receiving a copy of the logs

    KeyPrefix string         `yaml:"key_prefix"` // namespace for every store key
    Timezone  string         `yaml:"timezone"`   // IANA name of the business timezone
    Location  *time.Location `yaml:"-"`

    AdminSecret      string `yaml:"admin_secret"` // shared secret exchanged for an admin token
    JWTSecret        string `yaml:"jwt_secret"`   // secret used to sign admin tokens
    AdminTokenTTLMin int    `yaml:"admin_token_ttl_min"`
    BcryptCost       int    `yaml:"bcrypt_cost"`
    CronSecret       string `yaml:"cron_secret"` // value expected in X-Cron-Secret

    StoreTimeout     time.Duration `yaml:"store_timeout"`   // per-attempt bound on store calls
    RetryAttempts    int           `yaml:"retry_attempts"`  // attempts for mutating operations
    RetryBaseDelay   time.Duration `yaml:"retry_base_delay"` // first backoff delay
    RolloverInterval time.Duration `yaml:"rollover_interval"`
    ArchiveProbeDays int           `yaml:"archive_probe_days"`
    ArchiveLimit     int           `yaml:"archive_limit"`

    DBUser string `yaml:"db_user"` // archive mirror database; empty host disables it
    DBPass string `yaml:"db_pass"`
    DBHost string `yaml:"db_host"`
    DBPort string `yaml:"db_port"`
    DBName string `yaml:"db_name"`

    RabbitURL   string `yaml:"rabbitmq_url"`  // empty disables event publishing
    EventLogDir string `yaml:"event_log_dir"` // directory of the event consumer's queue.log
}

// Load builds a Config from defaults, the optional YAML file and the
// environment, in that order of precedence (environment wins).
func Load() (Config, error) {
    cfg := Config{
        Env:              "dev",
        Port:             "8080",
        KeyPrefix:        "ticketq",
        Timezone:         DefaultTimezone,
        AdminTokenTTLMin: 720,
        BcryptCost:       10,
        StoreTimeout:     3 * time.Second,
        RetryAttempts:    2,
        RetryBaseDelay:   500 * time.Millisecond,
        RolloverInterval: time.Minute,
        ArchiveProbeDays: 60,
        ArchiveLimit:     60,
        DBPort:           "3306",
        EventLogDir:      "logs",
    }

    if path := os.Getenv("QUEUE_CONFIG_PATH"); path != "" {
        if err := loadFromFile(path, &cfg); err != nil {
            return Config{}, err
        }
    }

    cfg.Env = envStr("APP_ENV", cfg.Env)
    cfg.Port = envStr("APP_PORT", cfg.Port)
    cfg.Verbose = envBool("LOG_VERBOSE", cfg.Verbose)
    cfg.LogFile = envStr("LOG_FILE", cfg.LogFile)
    cfg.KeyPrefix = envStr("KEY_PREFIX", cfg.KeyPrefix)
    cfg.Timezone = envStr("BUSINESS_TZ", cfg.Timezone)
    cfg.AdminSecret = envStr("ADMIN_SECRET", cfg.AdminSecret)
    cfg.JWTSecret = envStr("JWT_SECRET", cfg.JWTSecret)
    cfg.AdminTokenTTLMin = envInt("ADMIN_TOKEN_TTL_MIN", cfg.AdminTokenTTLMin)
    cfg.BcryptCost = envInt("BCRYPT_COST", cfg.BcryptCost)
    cfg.CronSecret = envStr("CRON_SECRET", cfg.CronSecret)
    cfg.StoreTimeout = envDur("STORE_TIMEOUT", cfg.StoreTimeout)
    cfg.RetryAttempts = envInt("RETRY_ATTEMPTS", cfg.RetryAttempts)
    cfg.RetryBaseDelay = envDur("RETRY_BASE_DELAY", cfg.RetryBaseDelay)
    cfg.RolloverInterval = envDur("ROLLOVER_CHECK_INTERVAL", cfg.RolloverInterval)
    cfg.ArchiveProbeDays = envInt("ARCHIVE_PROBE_DAYS", cfg.ArchiveProbeDays)
    cfg.ArchiveLimit = envInt("ARCHIVE_LIMIT", cfg.ArchiveLimit)
    cfg.DBUser = envStr("DB_USER", cfg.DBUser)
    cfg.DBPass = envStr("DB_PASS", cfg.DBPass)
    cfg.DBHost = envStr("DB_HOST", cfg.DBHost)
    cfg.DBPort = envStr("DB_PORT", cfg.DBPort)
    cfg.DBName = envStr("DB_NAME", cfg.DBName)
    cfg.RabbitURL = envStr("RABBITMQ_URL", envStr("AMQP_URL", cfg.RabbitURL))
    cfg.EventLogDir = envStr("EVENT_LOG_DIR", cfg.EventLogDir)

    if cfg.AdminSecret == "" {
        return Config{}, fmt.Errorf("missing required setting: ADMIN_SECRET")
    }
    if cfg.JWTSecret == "" {
        return Config{}, fmt.Errorf("missing required setting: JWT_SECRET")
    }
    if cfg.RetryAttempts < 1 {
        cfg.RetryAttempts = 1
    }
    if cfg.StoreTimeout <= 0 {
        cfg.StoreTimeout = 3 * time.Second
    }
    if cfg.ArchiveLimit < 1 {
        cfg.ArchiveLimit = 60
    }

    loc, err := LoadLocation(cfg.Timezone)
    if err != nil {
        return Config{}, err
    }
    cfg.Location = loc
    return cfg, nil
}

// MirrorEnabled reports whether an archive mirror database is configured.
func (c Config) MirrorEnabled() bool { return c.DBHost != "" && c.DBName != "" }

// LoadLocation resolves an IANA timezone name.
func LoadLocation(name string) (*time.Location, error) {
    loc, err := time.LoadLocation(name)
    if err != nil {
        return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
    }
    return loc, nil
}

func loadFromFile(path string, cfg *Config) error {
    data, err := os.ReadFile(path)
    if err != nil {
        return fmt.Errorf("read config file: %w", err)
    }
    if err := yaml.Unmarshal(data, cfg); err != nil {
        return fmt.Errorf("parse config file: %w", err)
    }
    return nil
}
