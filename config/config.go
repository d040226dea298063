package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config/config.json or the environment.
type AppConfig struct {
	AppPort            string
	SecretKey          string
	SiteTitle          string
	RateLimitPerMinute int
	SessionTTLHours    int
	CookieSecure       bool
	// Accounts registered with one of these emails get the admin role.
	AdminEmails []string
	// Database: either a full URI (postgres:// or a MySQL DSN) or discrete MySQL fields
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Outbound mail
	MailProvider     string
	ResendAPIKey     string
	ContactRecipient string
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	SMTPFromName     string
	SMTPTLS          bool
	SMTPTimeoutSec   int
	// Redis backs the session revocation list; empty host keeps it in memory
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// SessionTTL is the lifetime of a login session.
func (c AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// MailTimeout bounds a single outbound mail delivery.
func (c AppConfig) MailTimeout() time.Duration {
	return time.Duration(c.SMTPTimeoutSec) * time.Second
}

// Warnings lists settings that let the server start but leave a feature unusable.
func (c AppConfig) Warnings() []string {
	var out []string
	if len(c.AdminEmails) == 0 {
		out = append(out, "ADMIN_EMAILS is empty: no account can become an admin, so nobody can manage posts")
	}
	return out
}

var errMissingSecret = errors.New("SECRET_KEY (or FLASK_KEY) must be set")

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}
	c, err := build(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatal(err)
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// build applies the precedence config file -> defaults -> environment overrides.
func build(path string) (AppConfig, error) {
	c := AppConfig{SMTPTLS: true}
	if err := loadJSONConfig(path, &c); err != nil {
		return AppConfig{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return AppConfig{}, err
	}
	if c.SMTPFrom == "" {
		c.SMTPFrom = c.SMTPUsername
	}
	if c.ContactRecipient == "" {
		c.ContactRecipient = c.SMTPFrom
	}
	if c.SecretKey == "" {
		return AppConfig{}, errMissingSecret
	}
	return c, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads the grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if f, ok := m[key].(float64); ok {
			return int(f)
		}
		return 0
	}
	getBool := func(m map[string]any, key string, dst *bool) {
		if b, ok := m[key].(bool); ok {
			*dst = b
		}
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.SecretKey = getString(app, "SecretKey")
		out.SiteTitle = getString(app, "SiteTitle")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.SessionTTLHours = getInt(app, "SessionTTLHours")
		getBool(app, "CookieSecure", &out.CookieSecure)
	}

	if adm, ok := raw["admin"].(map[string]any); ok {
		if list := getStringSlice(adm, "Emails"); len(list) > 0 {
			out.AdminEmails = list
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if sm, ok := raw["smtp"].(map[string]any); ok {
		out.SMTPHost = getString(sm, "SMTPHost")
		out.SMTPPort = getInt(sm, "SMTPPort")
		out.SMTPUsername = getString(sm, "SMTPUsername")
		out.SMTPPassword = getString(sm, "SMTPPassword")
		out.SMTPFrom = getString(sm, "SMTPFrom")
		out.SMTPFromName = getString(sm, "SMTPFromName")
		out.SMTPTimeoutSec = getInt(sm, "SMTPTimeoutSec")
		getBool(sm, "SMTPTLS", &out.SMTPTLS)
	}

	if ml, ok := raw["mail"].(map[string]any); ok {
		out.MailProvider = getString(ml, "Provider")
		out.ResendAPIKey = getString(ml, "ResendAPIKey")
		out.ContactRecipient = getString(ml, "ContactRecipient")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.GinMode = getString(lg, "GinMode")
		out.GinPath = getString(lg, "GinPath")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		getBool(lg, "Compress", &out.LogCompress)
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "5002"
	}
	if c.SiteTitle == "" {
		c.SiteTitle = "BlogHub"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 72
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "bloghub"
	}
	if c.MailProvider == "" {
		c.MailProvider = "smtp"
	}
	if c.SMTPHost == "" {
		c.SMTPHost = "smtp.gmail.com"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.SMTPTimeoutSec == 0 {
		c.SMTPTimeoutSec = 15
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
// EMAIL, PASS and FLASK_KEY are accepted for deployments carried over from the first release.
func applyEnvOverrides(c *AppConfig) error {
	var err error
	setInt := func(key string, dst *int) {
		if v := getEnv(key, ""); v != "" && err == nil {
			var n int
			if n, err = strconv.Atoi(v); err != nil {
				err = fmt.Errorf("invalid integer value for %s: %q", key, v)
				return
			}
			*dst = n
		}
	}
	setString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := getEnv(key, ""); v != "" {
				*dst = v
				return
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := getEnv(key, ""); v != "" {
			*dst = v == "true"
		}
	}

	setString(&c.AppPort, "APP_PORT")
	setString(&c.SecretKey, "SECRET_KEY", "FLASK_KEY")
	setString(&c.SiteTitle, "SITE_TITLE")
	setInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	setInt("SESSION_TTL_HOURS", &c.SessionTTLHours)
	setBool("COOKIE_SECURE", &c.CookieSecure)
	c.AdminEmails = readListEnv("ADMIN_EMAILS", c.AdminEmails)

	setString(&c.GinMode, "GIN_MODE")
	setString(&c.GinPath, "GIN_PATH")

	setString(&c.DatabaseURI, "DATABASE_URI")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBPort, "DB_PORT")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBName, "DB_NAME")

	setString(&c.MailProvider, "MAIL_PROVIDER")
	setString(&c.ResendAPIKey, "RESEND_API_KEY")
	setString(&c.ContactRecipient, "CONTACT_RECIPIENT")
	setString(&c.SMTPHost, "SMTP_HOST")
	setInt("SMTP_PORT", &c.SMTPPort)
	setString(&c.SMTPUsername, "SMTP_USERNAME", "EMAIL")
	setString(&c.SMTPPassword, "SMTP_PASSWORD", "PASS")
	setString(&c.SMTPFrom, "SMTP_FROM")
	setString(&c.SMTPFromName, "SMTP_FROM_NAME")
	setBool("SMTP_TLS", &c.SMTPTLS)
	setInt("SMTP_TIMEOUT_SEC", &c.SMTPTimeoutSec)

	setString(&c.RedisHost, "REDIS_HOST")
	setInt("REDIS_PORT", &c.RedisPort)
	setInt("REDIS_DB", &c.RedisDB)
	setString(&c.RedisPassword, "REDIS_PASSWORD")

	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogPath, "LOG_PATH")
	setInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	setInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	setInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	setBool("LOG_COMPRESS", &c.LogCompress)

	return err
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
