// config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port            string
	MongoURI        string
	MongoDBName     string
	AuthURL         string
	AuthTimeout     time.Duration
	RabbitURL       string
	ShutdownTimeout time.Duration

	Shopify           ShopifyConfig
	Sync              SyncConfig
	ConsolidationGate string
	AllowedOrigins    []string
	Ship24            Ship24Config
	RateLimit         RateLimitConfig
	Log               LogConfig
}

type ShopifyConfig struct {
	StoreURL    string
	AccessToken string
	APIVersion  string
	Timeout     time.Duration
	MaxRetries  int
	// Locations es la tabla location_id -> nombre
	Locations map[int64]string
}

type SyncConfig struct {
	Cron     string
	Lookback time.Duration
	// Timeout acota cada corrida programada
	Timeout time.Duration
}

type Ship24Config struct {
	APIKey  string
	APIURL  string
	Timeout time.Duration
}

type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://host.docker.internal:27017")
	v.SetDefault("MONGO_DB_NAME", "order_tracking_db")
	v.SetDefault("AUTH_URL", "")
	v.SetDefault("AUTH_TIMEOUT", "5s")
	v.SetDefault("RABBIT_URL", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("SHOPIFY_STORE_URL", "")
	v.SetDefault("SHOPIFY_ACCESS_TOKEN", "")
	v.SetDefault("SHOPIFY_API_VERSION", "2023-01")
	v.SetDefault("SHOPIFY_TIMEOUT", "30s")
	v.SetDefault("SHOPIFY_MAX_RETRIES", 3)
	v.SetDefault("SHOPIFY_LOCATIONS", "")

	v.SetDefault("SYNC_CRON", "*/10 * * * *")
	v.SetDefault("SYNC_LOOKBACK", "720h")
	v.SetDefault("SYNC_TIMEOUT", "9m")
	v.SetDefault("CONSOLIDATION_GATE", "ever")

	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	v.SetDefault("SHIP24_API_KEY", "")
	v.SetDefault("SHIP24_API_URL", "https://api.ship24.com/public/v1")
	v.SetDefault("SHIP24_TIMEOUT", "10s")

	v.SetDefault("RATE_LIMIT_MAX", 1800)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load lee el .env (si existe) y después el entorno. Las variables ya definidas
// en el entorno tienen prioridad sobre el archivo.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("leyendo %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	locations, err := parseLocations(v.GetString("SHOPIFY_LOCATIONS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            v.GetString("PORT"),
		MongoURI:        v.GetString("MONGO_URI"),
		MongoDBName:     v.GetString("MONGO_DB_NAME"),
		AuthURL:         v.GetString("AUTH_URL"),
		AuthTimeout:     v.GetDuration("AUTH_TIMEOUT"),
		RabbitURL:       v.GetString("RABBIT_URL"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		Shopify: ShopifyConfig{
			StoreURL:    v.GetString("SHOPIFY_STORE_URL"),
			AccessToken: v.GetString("SHOPIFY_ACCESS_TOKEN"),
			APIVersion:  v.GetString("SHOPIFY_API_VERSION"),
			Timeout:     v.GetDuration("SHOPIFY_TIMEOUT"),
			MaxRetries:  v.GetInt("SHOPIFY_MAX_RETRIES"),
			Locations:   locations,
		},
		Sync: SyncConfig{
			Cron:     v.GetString("SYNC_CRON"),
			Lookback: v.GetDuration("SYNC_LOOKBACK"),
			Timeout:  v.GetDuration("SYNC_TIMEOUT"),
		},
		ConsolidationGate: strings.ToLower(v.GetString("CONSOLIDATION_GATE")),
		AllowedOrigins:    splitList(v.GetString("ALLOWED_ORIGINS")),
		Ship24: Ship24Config{
			APIKey:  v.GetString("SHIP24_API_KEY"),
			APIURL:  v.GetString("SHIP24_API_URL"),
			Timeout: v.GetDuration("SHIP24_TIMEOUT"),
		},
		RateLimit: RateLimitConfig{
			Max:    v.GetInt("RATE_LIMIT_MAX"),
			Window: v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("config: PORT vacío")
	}
	if c.MongoURI == "" || c.MongoDBName == "" {
		return errors.New("config: MONGO_URI y MONGO_DB_NAME son obligatorios")
	}
	switch c.ConsolidationGate {
	case "ever", "current":
	default:
		return fmt.Errorf("config: CONSOLIDATION_GATE inválido %q (ever|current)", c.ConsolidationGate)
	}
	if c.Sync.Lookback <= 0 {
		return fmt.Errorf("config: SYNC_LOOKBACK inválido")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_MAX y RATE_LIMIT_WINDOW deben ser positivos")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseLocations lee "77=San José,88=Heredia".
func parseLocations(raw string) (map[int64]string, error) {
	out := map[int64]string{}
	for _, pair := range splitList(raw) {
		id, name, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("config: SHOPIFY_LOCATIONS mal formado en %q", pair)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: location_id inválido %q: %w", id, err)
		}
		out[n] = strings.TrimSpace(name)
	}
	return out, nil
}
