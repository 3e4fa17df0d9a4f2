package config

import (
	"time"

	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	CRDBDSN       string
	MongoURI      string
	RedisAddr     string
	RabbitURL     string
	HTTPAddr      string
	OfferGuardTTL time.Duration
	OTLPEndpoint  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	guardTTL, _ := time.ParseDuration(os.Getenv("OFFER_GUARD_TTL"))
	if guardTTL == 0 {
		guardTTL = 30 * time.Second
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	return &Config{
		CRDBDSN:       os.Getenv("CRDB_DSN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RabbitURL:     os.Getenv("RABBIT_URL"),
		HTTPAddr:      httpAddr,
		OfferGuardTTL: guardTTL,
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
