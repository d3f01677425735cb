package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/schemadmin/internal/schema"
	"github.com/joho/godotenv"
	"github.com/shockerli/cvt"
)

// LookupFunc resolves one variable by name, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFile reads configuration from a dotenv file layered over the process
// environment. Values in the file win.
func LoadFile(path string) (*Config, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	return LoadFrom(func(key string) (string, bool) {
		if v, ok := vars[key]; ok {
			return v, true
		}
		return os.LookupEnv(key)
	})
}

// LoadFrom builds a Config from lookup, applies struct tag defaults and
// validates the result. Every bad or missing variable is reported at once.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	var errs []error
	for _, b := range collectBindings(reflect.ValueOf(cfg).Elem(), nil) {
		if err := b.apply(lookup); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// binding ties one tagged struct field to its variable.
type binding struct {
	name     string
	alt      string
	fallback string
	required bool
	dst      reflect.Value
}

func collectBindings(v reflect.Value, out []binding) []binding {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f, dst := t.Field(i), v.Field(i)
		if !dst.CanSet() {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			out = collectBindings(dst, out)
			continue
		}
		name := f.Tag.Get("env")
		if name == "" {
			continue
		}
		out = append(out, binding{
			name:     name,
			alt:      f.Tag.Get("envAlt"),
			fallback: f.Tag.Get("default"),
			required: f.Tag.Get("required") == "true",
			dst:      dst,
		})
	}
	return out
}

// lookup returns the first non-empty value of the primary or alternate name.
func (b binding) lookup(lookup LookupFunc) string {
	for _, key := range []string{b.name, b.alt} {
		if key == "" {
			continue
		}
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
	}
	return ""
}

func (b binding) apply(lookup LookupFunc) error {
	raw := b.lookup(lookup)
	if raw == "" {
		if b.required {
			return fmt.Errorf("required environment variable %s is not set", b.name)
		}
		raw = b.fallback
	}
	if raw == "" {
		return nil
	}
	if err := decode(b.dst, raw); err != nil {
		return fmt.Errorf("invalid value for %s=%q: %w", b.name, raw, err)
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func decode(dst reflect.Value, raw string) error {
	if dst.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		dst.SetInt(int64(d))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		dst.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetInt(n)
	case reflect.Bool:
		// Accepts on/off and 1/0 besides true/false.
		on, err := cvt.BoolE(raw)
		if err != nil {
			return err
		}
		dst.SetBool(on)
	case reflect.Slice:
		if dst.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", dst.Type().Elem().Kind())
		}
		dst.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("unsupported field type %s", dst.Kind())
	}
	return nil
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MaxTablePrefixLength is the longest SCHEMA_TABLE_PREFIX for which every
// prefixed table name still fits in a Postgres identifier.
const MaxTablePrefixLength = schema.MaxNameLength - schema.MaxIdentifierLength

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var problems []string
	problems = append(problems, c.Database.problems()...)
	problems = append(problems, c.Server.problems()...)
	problems = append(problems, c.Upload.problems(c.Server)...)
	problems = append(problems, c.Rate.problems()...)
	problems = append(problems, c.Security.problems()...)
	problems = append(problems, c.Schema.problems()...)
	problems = append(problems, c.Logging.problems()...)

	if len(problems) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func (c DatabaseConfig) problems() []string {
	var p []string
	if c.URL == "" {
		p = append(p, "DATABASE_URL is required")
	}
	if c.MaxConns <= 0 {
		p = append(p, "DB_MAX_CONNS must be positive")
	}
	if c.MinConns < 0 {
		p = append(p, "DB_MIN_CONNS must be non-negative")
	}
	if c.MaxConns < c.MinConns {
		p = append(p, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.MaxConns, c.MinConns))
	}
	return p
}

func (c ServerConfig) problems() []string {
	var p []string
	if c.Port <= 0 || c.Port > 65535 {
		p = append(p, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Port))
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.RequestTimeout < 0 {
		p = append(p, "SERVER_READ_TIMEOUT, SERVER_WRITE_TIMEOUT and SERVER_REQUEST_TIMEOUT must be non-negative")
	}
	if c.ShutdownTimeout <= 0 {
		p = append(p, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	return p
}

// Uploads run under their own deadline instead of SERVER_REQUEST_TIMEOUT,
// but the connection write deadline still applies to them.
func (c UploadConfig) problems(srv ServerConfig) []string {
	var p []string
	if c.MaxFileSize <= 0 {
		p = append(p, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Timeout <= 0 {
		p = append(p, "UPLOAD_TIMEOUT must be positive")
	}
	if srv.WriteTimeout > 0 && srv.WriteTimeout < c.Timeout {
		p = append(p, fmt.Sprintf("SERVER_WRITE_TIMEOUT (%s) must be 0 or at least UPLOAD_TIMEOUT (%s)", srv.WriteTimeout, c.Timeout))
	}
	return p
}

func (c RateLimitConfig) problems() []string {
	if !c.Enabled {
		return nil
	}
	var p []string
	if c.RequestsPerMinute <= 0 {
		p = append(p, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.UploadLimit <= 0 {
		p = append(p, "RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}
	return p
}

func (c SecurityConfig) problems() []string {
	if c.RequireAPIKey && len(c.APIKeys) == 0 {
		return []string{"REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth"}
	}
	return nil
}

func (c SchemaConfig) problems() []string {
	prefix := c.TablePrefix
	if prefix == "" {
		return nil
	}
	var p []string
	if !schema.ValidIdentifier(prefix) {
		p = append(p, fmt.Sprintf("SCHEMA_TABLE_PREFIX (%q) must contain only letters, digits and underscores", prefix))
	}
	if len(prefix) > MaxTablePrefixLength {
		p = append(p, fmt.Sprintf("SCHEMA_TABLE_PREFIX (%q) must be at most %d bytes so table names fit in %d",
			prefix, MaxTablePrefixLength, schema.MaxNameLength))
	}
	return p
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

func (c LoggingConfig) problems() []string {
	var p []string
	if !oneOf(c.Level, logLevels) {
		p = append(p, fmt.Sprintf("LOG_LEVEL (%q) must be one of: %s", c.Level, strings.Join(logLevels, ", ")))
	}
	if !oneOf(c.Format, logFormats) {
		p = append(p, fmt.Sprintf("LOG_FORMAT (%q) must be one of: %s", c.Format, strings.Join(logFormats, ", ")))
	}
	return p
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: {Addr: %q, RequestTimeout: %s}, "+
		"Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, "+
		"Upload: {MaxFileSize: %d, Timeout: %s}, "+
		"Rate: {Enabled: %v, RequestsPerMinute: %d, UploadLimit: %d}, "+
		"Security: {RequireAPIKey: %v, APIKeys: %d}, "+
		"Schema: {TablePrefix: %q, BootstrapFile: %q}, "+
		"Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Server.RequestTimeout,
		c.Database.MaxConns, c.Database.MinConns,
		c.Upload.MaxFileSize, c.Upload.Timeout,
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.UploadLimit,
		c.Security.RequireAPIKey, len(c.Security.APIKeys),
		c.Schema.TablePrefix, c.Schema.BootstrapFile,
		c.Logging.Level, c.Logging.Format,
	)
}
