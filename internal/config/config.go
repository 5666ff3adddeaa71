package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings"

	"github.com/joho/godotenv" // godotenv reads .env files into the process environment
)

// Identity provider modes accepted by IDENTITY_PROVIDER.
const (
	ProviderLocal    = "local"    // built-in email/password provider issuing HS256 identity tokens
	ProviderFirebase = "firebase" // Firebase Auth ID tokens verified with the Admin SDK
	ProviderNone     = "none"     // no provider; every request resolves to an anonymous session
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database and identity settings are optional: when
// they are absent the portal starts in demo mode and every write reports that
// the backing service is not configured.
type Config struct {
	Env               string // application environment (e.g. "dev", "prod")
	Port              string // HTTP port to listen on
	LogFormat         string // "json" or "text"
	DBDriver          string // "mysql" or "sqlite"; empty when no database is configured
	DBUser            string // database username
	DBPass            string // database password (optional)
	DBHost            string // database host address
	DBPort            string // database port number
	DBName            string // database name
	SQLitePath        string // file path used by the sqlite driver
	IdentityProvider  string // one of ProviderLocal, ProviderFirebase, ProviderNone
	FirebaseProjectID string // Firebase project used to verify ID tokens
	JWTSecret         string // secret used to sign local identity tokens
	AccessTTLMin      int    // identity token time-to-live in minutes
	RefreshTTLDays    int    // refresh token time-to-live in days
	BcryptCost        int    // bcrypt cost for password hashing
	LoginPath         string // page clients are redirected to when a session is missing
}

// Load reads .env (when present) and then environment variables, returning a
// Config.  APP_ENV and APP_PORT are required; everything else has a default
// or degrades to demo mode.
func Load() Config {
	// A missing .env file is normal in containers; only the environment matters then.
	_ = godotenv.Load()

	cfg := Config{
		Env:               must("APP_ENV"),  // environment (dev/test/prod)
		Port:              must("APP_PORT"), // port to bind the HTTP server
		LogFormat:         envStr("LOG_FORMAT", "text"),
		DBDriver:          strings.ToLower(envStr("DB_DRIVER", "mysql")),
		DBUser:            os.Getenv("DB_USER"),
		DBPass:            os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            envStr("DB_PORT", "3306"),
		DBName:            os.Getenv("DB_NAME"),
		SQLitePath:        envStr("SQLITE_PATH", "portal.db"),
		IdentityProvider:  strings.ToLower(envStr("IDENTITY_PROVIDER", defaultProvider())),
		FirebaseProjectID: os.Getenv("FIREBASE_PROJECT_ID"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AccessTTLMin:      envInt("ACCESS_TOKEN_TTL_MIN", 60),
		RefreshTTLDays:    envInt("REFRESH_TOKEN_TTL_DAYS", 30),
		BcryptCost:        envInt("BCRYPT_COST", 12),
		LoginPath:         envStr("LOGIN_PATH", "/login"),
	}
	if cfg.DBDriver == "mysql" && (cfg.DBHost == "" || cfg.DBName == "") {
		cfg.DBDriver = "" // demo mode
	}
	switch cfg.IdentityProvider {
	case ProviderLocal:
		cfg.JWTSecret = must("JWT_SECRET")
	case ProviderFirebase:
		cfg.FirebaseProjectID = must("FIREBASE_PROJECT_ID")
	case ProviderNone:
	default:
		log.Fatalf("unknown IDENTITY_PROVIDER: %q", cfg.IdentityProvider)
	}
	return cfg
}

// DatabaseConfigured reports whether a database driver is available.
func (c Config) DatabaseConfigured() bool { return c.DBDriver != "" }

// IsProd reports whether the service runs in production.
func (c Config) IsProd() bool { return strings.EqualFold(c.Env, "prod") }

// defaultProvider picks the provider whose credentials are present, so an
// unconfigured deployment starts without identity instead of failing.
func defaultProvider() string {
	switch {
	case os.Getenv("FIREBASE_PROJECT_ID") != "":
		return ProviderFirebase
	case os.Getenv("JWT_SECRET") != "":
		return ProviderLocal
	}
	return ProviderNone
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
