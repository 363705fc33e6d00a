package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/simp-lee/allobricolage/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Redis       RedisConfig       `koanf:"redis"`
	Log         LogConfig         `koanf:"log"`
	Auth        AuthConfig        `koanf:"auth"`
	Storage     StorageConfig     `koanf:"storage"`
	Marketplace MarketplaceConfig `koanf:"marketplace"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string          `koanf:"host"`
	Port      int             `koanf:"port"`
	Mode      string          `koanf:"mode"`
	Timeout   string          `koanf:"timeout"`
	CORS      CORSConfig      `koanf:"cors"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Cache     CacheConfig     `koanf:"cache"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowMethods     []string `koanf:"allow_methods"`
	AllowHeaders     []string `koanf:"allow_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// CacheConfig holds read-cache settings for categories and technician listings.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Driver  string `koanf:"driver"`
	TTL     string `koanf:"ttl"`
	MaxSize int    `koanf:"max_size"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver      string         `koanf:"driver"`
	AutoMigrate bool           `koanf:"auto_migrate"`
	SQLite      SQLiteConfig   `koanf:"sqlite"`
	Postgres    PostgresConfig `koanf:"postgres"`
	Pool        PoolConfig     `koanf:"pool"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// RedisConfig holds the Redis connection used by the redis cache driver.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// AuthConfig holds token, cookie and password-reset settings.
type AuthConfig struct {
	JWTSecret        string        `koanf:"jwt_secret"`
	Issuer           string        `koanf:"issuer"`
	AccessTTL        string        `koanf:"access_ttl"`
	RefreshTTL       string        `koanf:"refresh_ttl"`
	RefreshCookie    CookieConfig  `koanf:"refresh_cookie"`
	CSRFSecret       string        `koanf:"csrf_secret"`
	PasswordResetTTL string        `koanf:"password_reset_ttl"`
	BcryptCost       int           `koanf:"bcrypt_cost"`
	Admin            BootstrapUser `koanf:"admin"`
}

// CookieConfig describes the httpOnly refresh-token cookie.
type CookieConfig struct {
	Name     string `koanf:"name"`
	Path     string `koanf:"path"`
	Domain   string `koanf:"domain"`
	Secure   bool   `koanf:"secure"`
	SameSite string `koanf:"same_site"`
}

// BootstrapUser is the admin account seeded at startup when Email is set.
type BootstrapUser struct {
	Email     string `koanf:"email"`
	Password  string `koanf:"password"`
	FirstName string `koanf:"first_name"`
	LastName  string `koanf:"last_name"`
}

// StorageConfig holds local upload storage settings.
type StorageConfig struct {
	UploadDir    string   `koanf:"upload_dir"`
	PublicPrefix string   `koanf:"public_prefix"`
	MaxUploadMB  int      `koanf:"max_upload_mb"`
	AllowedTypes []string `koanf:"allowed_types"`
}

// MarketplaceConfig holds business settings: currency, plan catalog and
// background job schedules.
type MarketplaceConfig struct {
	Currency string       `koanf:"currency"`
	Plans    []PlanConfig `koanf:"plans"`
	Jobs     JobsConfig   `koanf:"jobs"`
}

// PlanConfig is one subscription plan as written in the config file.
type PlanConfig struct {
	Code         string `koanf:"code"`
	Name         string `koanf:"name"`
	Price        string `koanf:"price"`
	DurationDays int    `koanf:"duration_days"`
	Premium      bool   `koanf:"premium"`
}

// JobsConfig holds cron schedules (standard five-field syntax or descriptors
// such as "@hourly"). An empty schedule disables the job.
type JobsConfig struct {
	SubscriptionSweep string `koanf:"subscription_sweep"`
	TokenPurge        string `koanf:"token_purge"`
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__SERVER__PORT=9090 overrides server.port and
// APP__AUTH__JWT_SECRET overrides auth.jwt_secret.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate normalizes values and checks cross-field constraints.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateRedis,
		c.validateLog,
		c.validateAuth,
		c.validateStorage,
		c.validateMarketplace,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	var err error
	if c.Server.Timeout, err = optionalDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}
	if c.Server.CORS.MaxAge, err = optionalDuration("server.cors.max_age", c.Server.CORS.MaxAge); err != nil {
		return err
	}

	for idx, origin := range c.Server.CORS.AllowOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" && c.Server.CORS.AllowCredentials {
			return fmt.Errorf("server.cors.allow_origins[%d] cannot be %q when allow_credentials is true", idx, "*")
		}
		c.Server.CORS.AllowOrigins[idx] = origin
	}

	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("invalid server.rate_limit.rps %v: must be positive when rate limiting is enabled", c.Server.RateLimit.RPS)
		}
		if c.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("invalid server.rate_limit.burst %d: must be positive when rate limiting is enabled", c.Server.RateLimit.Burst)
		}
	}

	if c.Server.Cache.Enabled {
		driver := strings.ToLower(strings.TrimSpace(c.Server.Cache.Driver))
		if driver == "" {
			driver = "memory"
		}
		switch driver {
		case "memory", "redis":
			c.Server.Cache.Driver = driver
		default:
			return fmt.Errorf("invalid server.cache.driver %q: must be one of %q, %q", c.Server.Cache.Driver, "memory", "redis")
		}
		if c.Server.Cache.TTL, err = requiredDuration("server.cache.ttl", c.Server.Cache.TTL); err != nil {
			return err
		}
		if driver == "memory" && c.Server.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid server.cache.max_size %d: must be positive for the memory driver", c.Server.Cache.MaxSize)
		}
	}

	if c.Server.Metrics.Enabled {
		path := strings.TrimSpace(c.Server.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("invalid server.metrics.path %q: must start with '/'", c.Server.Metrics.Path)
		}
		c.Server.Metrics.Path = path
	}

	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite":
		sqlitePath := strings.TrimSpace(c.Database.SQLite.Path)
		if sqlitePath == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
		c.Database.SQLite.Path = sqlitePath
	case "postgres":
		if err := c.validatePostgres(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", c.Database.Driver, "sqlite", "postgres")
	}

	var err error
	c.Database.Pool.ConnMaxLifetime, err = optionalDuration("database.pool.conn_max_lifetime", c.Database.Pool.ConnMaxLifetime)
	return err
}

func (c *Config) validatePostgres() error {
	pg := &c.Database.Postgres

	pg.Host = strings.TrimSpace(pg.Host)
	if pg.Host == "" {
		return fmt.Errorf("database.postgres.host is required when driver is postgres")
	}
	if pg.Port < 1 || pg.Port > 65535 {
		return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", pg.Port)
	}
	pg.User = strings.TrimSpace(pg.User)
	if pg.User == "" {
		return fmt.Errorf("database.postgres.user is required when driver is postgres")
	}
	pg.DBName = strings.TrimSpace(pg.DBName)
	if pg.DBName == "" {
		return fmt.Errorf("database.postgres.dbname is required when driver is postgres")
	}

	sslMode := strings.TrimSpace(pg.SSLMode)
	switch sslMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("invalid database.postgres.sslmode %q: must be one of %q, %q, %q, %q, %q, %q", pg.SSLMode, "disable", "allow", "prefer", "require", "verify-ca", "verify-full")
	}
	if c.Server.Mode == gin.ReleaseMode {
		switch sslMode {
		case "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %q, %q, %q", pg.SSLMode, gin.ReleaseMode, "require", "verify-ca", "verify-full")
		}
	}
	pg.SSLMode = sslMode

	return nil
}

func (c *Config) validateRedis() error {
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
	if c.Server.Cache.Enabled && c.Server.Cache.Driver == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when server.cache.driver is redis")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d: must not be negative", c.Redis.DB)
	}
	return nil
}

func (c *Config) validateLog() error {
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}

	return nil
}

func (c *Config) validateAuth() error {
	a := &c.Auth

	a.JWTSecret = strings.TrimSpace(a.JWTSecret)
	if a.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(a.JWTSecret) < 32 {
		return fmt.Errorf("invalid auth.jwt_secret: must be at least 32 characters")
	}
	if c.Server.Mode == gin.ReleaseMode && CountSecretClasses(a.JWTSecret) < 3 {
		return fmt.Errorf("auth.jwt_secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
	}

	a.CSRFSecret = strings.TrimSpace(a.CSRFSecret)
	if a.CSRFSecret == "" {
		return fmt.Errorf("auth.csrf_secret is required")
	}
	if a.CSRFSecret == a.JWTSecret {
		return fmt.Errorf("auth.csrf_secret must differ from auth.jwt_secret")
	}

	a.Issuer = strings.TrimSpace(a.Issuer)
	if a.Issuer == "" {
		a.Issuer = "allobricolage"
	}

	var err error
	if a.AccessTTL, err = requiredDuration("auth.access_ttl", a.AccessTTL); err != nil {
		return err
	}
	if a.RefreshTTL, err = requiredDuration("auth.refresh_ttl", a.RefreshTTL); err != nil {
		return err
	}
	if a.PasswordResetTTL, err = requiredDuration("auth.password_reset_ttl", a.PasswordResetTTL); err != nil {
		return err
	}
	if a.AccessTTLDuration() >= a.RefreshTTLDuration() {
		return fmt.Errorf("auth.access_ttl %q must be shorter than auth.refresh_ttl %q", a.AccessTTL, a.RefreshTTL)
	}

	if a.BcryptCost != 0 && (a.BcryptCost < 4 || a.BcryptCost > 31) {
		return fmt.Errorf("invalid auth.bcrypt_cost %d: must be between 4 and 31", a.BcryptCost)
	}

	cookie := &a.RefreshCookie
	cookie.Name = strings.TrimSpace(cookie.Name)
	if cookie.Name == "" {
		cookie.Name = "refresh_token"
	}
	cookie.Path = strings.TrimSpace(cookie.Path)
	if cookie.Path == "" {
		cookie.Path = "/api/v1/auth"
	}
	sameSite := strings.ToLower(strings.TrimSpace(cookie.SameSite))
	switch sameSite {
	case "":
		sameSite = "lax"
	case "lax", "strict":
	case "none":
		if !cookie.Secure {
			return fmt.Errorf("auth.refresh_cookie.same_site %q requires auth.refresh_cookie.secure", "none")
		}
	default:
		return fmt.Errorf("invalid auth.refresh_cookie.same_site %q: must be one of %q, %q, %q", cookie.SameSite, "lax", "strict", "none")
	}
	cookie.SameSite = sameSite
	if c.Server.Mode == gin.ReleaseMode && !cookie.Secure {
		return fmt.Errorf("auth.refresh_cookie.secure must be true in release mode")
	}

	admin := &a.Admin
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	if admin.Email != "" {
		if len(admin.Password) < 8 {
			return fmt.Errorf("auth.admin.password must be at least 8 characters when auth.admin.email is set")
		}
		if strings.TrimSpace(admin.FirstName) == "" {
			admin.FirstName = "Admin"
		}
	}

	return nil
}

func (c *Config) validateStorage() error {
	s := &c.Storage

	s.UploadDir = strings.TrimSpace(s.UploadDir)
	if s.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required")
	}
	s.PublicPrefix = "/" + strings.Trim(strings.TrimSpace(s.PublicPrefix), "/")
	if s.PublicPrefix == "/" {
		s.PublicPrefix = "/uploads"
	}
	if s.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid storage.max_upload_mb %d: must be positive", s.MaxUploadMB)
	}

	types := make([]string, 0, len(s.AllowedTypes))
	for idx, t := range s.AllowedTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if !strings.Contains(t, "/") {
			return fmt.Errorf("invalid storage.allowed_types[%d] %q: must be a MIME type", idx, s.AllowedTypes[idx])
		}
		types = append(types, t)
	}
	if len(types) == 0 {
		return fmt.Errorf("storage.allowed_types is required")
	}
	s.AllowedTypes = types

	return nil
}

func (c *Config) validateMarketplace() error {
	m := &c.Marketplace

	m.Currency = strings.ToUpper(strings.TrimSpace(m.Currency))
	if m.Currency == "" {
		m.Currency = "MAD"
	}

	if len(m.Plans) == 0 {
		return fmt.Errorf("marketplace.plans requires at least one plan")
	}
	if _, err := m.Catalog(); err != nil {
		return err
	}

	schedules := []struct {
		name  string
		value *string
	}{
		{"marketplace.jobs.subscription_sweep", &m.Jobs.SubscriptionSweep},
		{"marketplace.jobs.token_purge", &m.Jobs.TokenPurge},
	}
	for _, s := range schedules {
		v := strings.TrimSpace(*s.value)
		if v != "" {
			if _, err := cron.ParseStandard(v); err != nil {
				return fmt.Errorf("invalid %s %q: %w", s.name, *s.value, err)
			}
		}
		*s.value = v
	}

	return nil
}

// Catalog converts the configured plans into domain plans, validating
// codes, prices and durations.
func (m MarketplaceConfig) Catalog() ([]domain.Plan, error) {
	plans := make([]domain.Plan, 0, len(m.Plans))
	seen := make(map[string]struct{}, len(m.Plans))

	for idx, p := range m.Plans {
		code := strings.ToUpper(strings.TrimSpace(p.Code))
		if code == "" {
			return nil, fmt.Errorf("marketplace.plans[%d].code is required", idx)
		}
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("marketplace.plans[%d].code %q is duplicated", idx, code)
		}
		seen[code] = struct{}{}

		price, err := decimal.NewFromString(strings.TrimSpace(p.Price))
		if err != nil {
			return nil, fmt.Errorf("invalid marketplace.plans[%d].price %q: %w", idx, p.Price, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("invalid marketplace.plans[%d].price %q: must be positive", idx, p.Price)
		}
		if p.DurationDays <= 0 {
			return nil, fmt.Errorf("invalid marketplace.plans[%d].duration_days %d: must be positive", idx, p.DurationDays)
		}

		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = code
		}
		plans = append(plans, domain.Plan{
			Code:         code,
			Name:         name,
			Price:        domain.Money(price),
			Currency:     m.Currency,
			DurationDays: p.DurationDays,
			Premium:      p.Premium,
		})
	}

	return plans, nil
}

// AccessTTLDuration returns the parsed access token lifetime.
func (a AuthConfig) AccessTTLDuration() time.Duration { return mustDuration(a.AccessTTL) }

// RefreshTTLDuration returns the parsed refresh token lifetime.
func (a AuthConfig) RefreshTTLDuration() time.Duration { return mustDuration(a.RefreshTTL) }

// PasswordResetTTLDuration returns the parsed reset token lifetime.
func (a AuthConfig) PasswordResetTTLDuration() time.Duration {
	return mustDuration(a.PasswordResetTTL)
}

// SameSiteMode maps the configured same_site value to http.SameSite.
func (c CookieConfig) SameSiteMode() http.SameSite {
	switch c.SameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// TTLDuration returns the parsed cache TTL.
func (c CacheConfig) TTLDuration() time.Duration { return mustDuration(c.TTL) }

// TimeoutDuration returns the parsed server timeout, or def when unset.
func (s ServerConfig) TimeoutDuration(def time.Duration) time.Duration {
	if s.Timeout == "" {
		return def
	}
	return mustDuration(s.Timeout)
}

// MaxUploadBytes returns the upload size limit in bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// mustDuration parses a duration already checked by Validate. Invalid input
// yields zero.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// optionalDuration trims value and, when set, requires a positive Go duration.
func optionalDuration(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", nil
	}
	return requiredDuration(field, v)
}

// requiredDuration trims value and requires a positive Go duration.
func requiredDuration(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return "", fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return "", fmt.Errorf("invalid %s %q: must be greater than 0", field, value)
	}
	return v, nil
}

// CountSecretClasses counts how many character classes (lowercase, uppercase,
// digit, symbol) are present in the given secret string.
func CountSecretClasses(secret string) int {
	var lower, upper, digit, symbol int
	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			lower = 1
		case unicode.IsUpper(r):
			upper = 1
		case unicode.IsDigit(r):
			digit = 1
		default:
			symbol = 1
		}
	}
	return lower + upper + digit + symbol
}
