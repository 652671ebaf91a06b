package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort   string `yaml:"appPort"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	// StoreDriver selects the sheet store: "mysql" or "sqlite".
	StoreDriver string `yaml:"storeDriver"`
	MySQLHost   string `yaml:"mysqlHost"`
	MySQLPort   string `yaml:"mysqlPort"`
	MySQLDB     string `yaml:"mysqlDB"`
	MySQLUser   string `yaml:"mysqlUser"`
	MySQLPass   string `yaml:"mysqlPass"`
	SQLitePath  string `yaml:"sqlitePath"`

	RedisAddr string `yaml:"redisAddr"`
	RedisDB   int    `yaml:"redisDB"`

	IdempTTLSecs int `yaml:"idempotencyTTLSeconds"`

	// LockBackend is "local" for a single instance or "redis" when several share the store.
	LockBackend     string `yaml:"lockBackend"`
	LockTTLSecs     int    `yaml:"lockTTLSeconds"`
	LockMaxWaitSecs int    `yaml:"lockMaxWaitSeconds"`

	RecordsSheet     string   `yaml:"recordsSheet"`
	PermissionsSheet string   `yaml:"permissionsSheet"`
	OptionsSheet     string   `yaml:"optionsSheet"`
	OptionHeaders    []string `yaml:"optionHeaders"`
	AssetsSheet      string   `yaml:"assetsSheet"`

	RecordPrefix string `yaml:"recordPrefix"`
	TimeZone     string `yaml:"timeZone"`
	ReviewURL    string `yaml:"reviewURL"`

	// PermissionCache is "memory" or "redis".
	PermissionCache   string `yaml:"permissionCache"`
	PermissionTTLSecs int    `yaml:"permissionTTLSeconds"`

	DocLabel       string `yaml:"docLabel"`
	DocTemplateID  string `yaml:"docTemplateID"`
	DocDestination string `yaml:"docDestination"`
	// DocRenderer is "file" or "minio".
	DocRenderer     string `yaml:"docRenderer"`
	TemplatesDir    string `yaml:"templatesDir"`
	OutputDir       string `yaml:"outputDir"`
	DocBaseURL      string `yaml:"docBaseURL"`
	LinkExpiryHours int    `yaml:"linkExpiryHours"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	// Notifier is "log" or "outbox".
	Notifier     string `yaml:"notifier"`
	OutboxStream string `yaml:"outboxStream"`
	OutboxMaxLen int64  `yaml:"outboxMaxLen"`
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func defaults() *Config {
	return &Config{
		AppPort:   "8080",
		LogLevel:  "info",
		LogFormat: "json",

		StoreDriver: "mysql",
		MySQLHost:   "mysql",
		MySQLPort:   "3306",
		MySQLDB:     "change_approval",
		MySQLUser:   "change_approval",
		MySQLPass:   "change_approval",
		SQLitePath:  "change-approval.db",

		RedisAddr:    "redis:6379",
		IdempTTLSecs: 300,

		LockBackend:     "local",
		LockTTLSecs:     30,
		LockMaxWaitSecs: 10,

		RecordsSheet:     "Applications",
		PermissionsSheet: "Permissions",
		OptionsSheet:     "Options",
		OptionHeaders:    []string{"Category", "Impact Scope", "Risk Handling"},
		AssetsSheet:      "Assets",

		RecordPrefix: "IS-R-032",
		TimeZone:     "Asia/Taipei",

		PermissionCache:   "memory",
		PermissionTTLSecs: 300,

		DocLabel:        "Change Request Form",
		DocTemplateID:   "change-request.txt",
		DocDestination:  "approved",
		DocRenderer:     "file",
		TemplatesDir:    "templates",
		OutputDir:       "documents",
		DocBaseURL:      "http://localhost:8080/documents",
		LinkExpiryHours: 1,

		MinioBucket: "change-documents",

		Notifier:     "log",
		OutboxStream: "mail:outbox",
		OutboxMaxLen: 10000,
	}
}

// Load builds the config from defaults, then the YAML file named by
// CONFIG_FILE (if set), then environment variables.
func Load() (*Config, error) {
	c := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	c.AppPort = getenv("APP_PORT", c.AppPort)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenv("LOG_FORMAT", c.LogFormat)

	c.StoreDriver = getenv("STORE_DRIVER", c.StoreDriver)
	c.MySQLHost = getenv("MYSQL_HOST", c.MySQLHost)
	c.MySQLPort = getenv("MYSQL_PORT", c.MySQLPort)
	c.MySQLDB = getenv("MYSQL_DB", c.MySQLDB)
	c.MySQLUser = getenv("MYSQL_USER", c.MySQLUser)
	c.MySQLPass = getenv("MYSQL_PASS", c.MySQLPass)
	c.SQLitePath = getenv("SQLITE_PATH", c.SQLitePath)

	c.RedisAddr = getenv("REDIS_ADDR", c.RedisAddr)
	c.RedisDB = getenvInt("REDIS_DB", c.RedisDB)
	c.IdempTTLSecs = getenvInt("IDEMPOTENCY_TTL_SECONDS", c.IdempTTLSecs)

	c.LockBackend = getenv("LOCK_BACKEND", c.LockBackend)
	c.LockTTLSecs = getenvInt("LOCK_TTL_SECONDS", c.LockTTLSecs)
	c.LockMaxWaitSecs = getenvInt("LOCK_MAX_WAIT_SECONDS", c.LockMaxWaitSecs)

	c.RecordsSheet = getenv("RECORDS_SHEET", c.RecordsSheet)
	c.PermissionsSheet = getenv("PERMISSIONS_SHEET", c.PermissionsSheet)
	c.OptionsSheet = getenv("OPTIONS_SHEET", c.OptionsSheet)
	if v := os.Getenv("OPTION_HEADERS"); v != "" {
		c.OptionHeaders = splitCSV(v)
	}
	c.AssetsSheet = getenv("ASSETS_SHEET", c.AssetsSheet)

	c.RecordPrefix = getenv("RECORD_PREFIX", c.RecordPrefix)
	c.TimeZone = getenv("TIME_ZONE", c.TimeZone)
	c.ReviewURL = getenv("REVIEW_URL", c.ReviewURL)

	c.PermissionCache = getenv("PERMISSION_CACHE", c.PermissionCache)
	c.PermissionTTLSecs = getenvInt("PERMISSION_TTL_SECONDS", c.PermissionTTLSecs)

	c.DocLabel = getenv("DOC_LABEL", c.DocLabel)
	c.DocTemplateID = getenv("DOC_TEMPLATE_ID", c.DocTemplateID)
	c.DocDestination = getenv("DOC_DESTINATION", c.DocDestination)
	c.DocRenderer = getenv("DOC_RENDERER", c.DocRenderer)
	c.TemplatesDir = getenv("TEMPLATES_DIR", c.TemplatesDir)
	c.OutputDir = getenv("OUTPUT_DIR", c.OutputDir)
	c.DocBaseURL = getenv("DOC_BASE_URL", c.DocBaseURL)
	c.LinkExpiryHours = getenvInt("LINK_EXPIRY_HOURS", c.LinkExpiryHours)

	c.MinioEndpoint = getenv("MINIO_ENDPOINT", c.MinioEndpoint)
	c.MinioAccessKey = getenv("MINIO_ACCESS_KEY", c.MinioAccessKey)
	c.MinioSecretKey = getenv("MINIO_SECRET_KEY", c.MinioSecretKey)
	c.MinioBucket = getenv("MINIO_BUCKET", c.MinioBucket)
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		c.MinioUseSSL = v == "true"
	}

	c.Notifier = getenv("NOTIFIER", c.Notifier)
	c.OutboxStream = getenv("OUTBOX_STREAM", c.OutboxStream)
	if v := os.Getenv("OUTBOX_MAX_LEN"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.OutboxMaxLen = n
		}
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.StoreDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.RecordsSheet == "" || c.PermissionsSheet == "" {
		return errors.New("missing RECORDS_SHEET/PERMISSIONS_SHEET")
	}
	if strings.TrimSpace(c.RecordPrefix) == "" {
		return errors.New("missing RECORD_PREFIX")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if err := oneOf("LOCK_BACKEND", c.LockBackend, "local", "redis"); err != nil {
		return err
	}
	if err := oneOf("PERMISSION_CACHE", c.PermissionCache, "memory", "redis"); err != nil {
		return err
	}
	if err := oneOf("NOTIFIER", c.Notifier, "log", "outbox"); err != nil {
		return err
	}
	switch c.DocRenderer {
	case "file":
		if c.TemplatesDir == "" || c.OutputDir == "" {
			return errors.New("missing TEMPLATES_DIR/OUTPUT_DIR")
		}
	case "minio":
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" || c.MinioBucket == "" {
			return errors.New("missing MinIO config (MINIO_ENDPOINT/ACCESS_KEY/SECRET_KEY/BUCKET)")
		}
	default:
		return fmt.Errorf("unknown DOC_RENDERER %q", c.DocRenderer)
	}
	return nil
}

func oneOf(name, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (want one of %s)", name, v, strings.Join(allowed, ", "))
}

// Location resolves TimeZone; record numbers and dates use this zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// UsesRedis reports whether any component needs the Redis client.
// Idempotency is switched off by a non-positive TTL.
func (c *Config) UsesRedis() bool {
	return c.IdempTTLSecs > 0 || c.LockBackend == "redis" || c.PermissionCache == "redis" || c.Notifier == "outbox"
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
