package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Env struct {
	AppAddr string `envconfig:"APP_ADDR" default:":8080"`
	GinMode string `envconfig:"GIN_MODE"`

	DBUser          string `envconfig:"DB_USER" default:"root"`
	DBPassword      string `envconfig:"DB_PASSWORD"`
	DBHost          string `envconfig:"DB_HOST" default:"127.0.0.1:3306"`
	DBName          string `envconfig:"DB_NAME" default:"fleetops"`
	DBMaxOpenConns  int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	SchemaBootstrap bool   `envconfig:"SCHEMA_BOOTSTRAP" default:"true"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	UploadDir       string `envconfig:"UPLOAD_DIR" default:"uploads"`
	UploadURLPrefix string `envconfig:"UPLOAD_URL_PREFIX" default:"/uploads"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	RedisAddr          string `envconfig:"REDIS_ADDR"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"fleetops.events"`
}

// LoadEnv reads .env when present, then the process environment.
func LoadEnv() Env {
	if err := godotenv.Load(); err == nil {
		log.Println("konfigurasi .env dimuat")
	}

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		log.Fatalf("Gagal membaca konfigurasi: %v", err)
	}
	if env.JWTSecret == "" {
		if env.GinMode == "release" {
			log.Fatal("JWT_SECRET wajib diisi pada mode release")
		}
		env.JWTSecret = "dev-secret-change-me"
		log.Println("warning: JWT_SECRET kosong, memakai secret development")
	}
	return env
}
