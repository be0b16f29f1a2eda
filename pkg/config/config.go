package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// maxQuantityScale decimales de las columnas NUMERIC(20,4).
const maxQuantityScale = 4

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	Log       LogConfig
	DB        DBConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Store     StoreConfig
	Lock      LockConfig
	Inventory InventoryConfig
	Worker    WorkerConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// LogConfig nivel de log (trace, debug, info, warn, error).
type LogConfig struct {
	Level string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig conexión a Redis (bloqueo distribuido y cola de tareas).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StoreConfig selecciona el backend de persistencia: "postgres" o "memory".
type StoreConfig struct {
	Driver string
}

// LockConfig bloqueo por variante: "memory" (un solo proceso) o "redis" (varios procesos).
type LockConfig struct {
	Driver  string
	Timeout time.Duration // espera máxima para adquirir el bloqueo
	TTL     time.Duration // vida del bloqueo en Redis si el proceso muere
}

// InventoryConfig parámetros del motor de lotes y costeo.
type InventoryConfig struct {
	CostingMethod   string // fifo | weighted_average
	QuantityScale   int32  // decimales permitidos en cantidades
	HistoryMaxLimit int
}

// WorkerConfig expresiones cron de las tareas de mantenimiento.
type WorkerConfig struct {
	DriftScanCron         string
	IncomingRecomputeCron string
	Concurrency           int
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, LOCK_TIMEOUT, COSTING_METHOD, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "inventario-ledger"),
		},
		Log: LogConfig{
			Level: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "inventario_ledger"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 25),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "inventario-ledger"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", "127.0.0.1:6379"),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		Store: StoreConfig{
			Driver: getString(v, "STORE_DRIVER", "postgres"),
		},
		Lock: LockConfig{
			Driver:  getString(v, "LOCK_DRIVER", "memory"),
			Timeout: getDuration(v, "LOCK_TIMEOUT", 3*time.Second),
			TTL:     getDuration(v, "LOCK_TTL", 30*time.Second),
		},
		Inventory: InventoryConfig{
			CostingMethod:   getString(v, "COSTING_METHOD", "fifo"),
			QuantityScale:   int32(getInt(v, "QUANTITY_SCALE", 4)),
			HistoryMaxLimit: getInt(v, "HISTORY_MAX_LIMIT", 200),
		},
		Worker: WorkerConfig{
			DriftScanCron:         getString(v, "DRIFT_SCAN_CRON", "0 3 * * *"),
			IncomingRecomputeCron: getString(v, "INCOMING_RECOMPUTE_CRON", "30 3 * * *"),
			Concurrency:           getInt(v, "WORKER_CONCURRENCY", 2),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: STORE_DRIVER inválido %q", c.Store.Driver)
	}
	switch c.Lock.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: LOCK_DRIVER inválido %q", c.Lock.Driver)
	}
	switch c.Inventory.CostingMethod {
	case "fifo", "weighted_average":
	default:
		return fmt.Errorf("config: COSTING_METHOD inválido %q", c.Inventory.CostingMethod)
	}
	if c.Lock.Timeout <= 0 {
		return fmt.Errorf("config: LOCK_TIMEOUT debe ser positivo")
	}
	if c.Inventory.QuantityScale < 0 || c.Inventory.QuantityScale > maxQuantityScale {
		return fmt.Errorf("config: QUANTITY_SCALE debe estar entre 0 y %d", maxQuantityScale)
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

// getDuration acepta "3s", "500ms" o un entero en milisegundos.
func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	raw := strings.TrimSpace(v.GetString(key))
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
