package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func loadEnvString(key string, result *string) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	*result = s
}

func loadEnvUint(key string, result *uint) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return
	}
	*result = uint(n)
}

func loadEnvFloat(key string, result *float64) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return
	}
	*result = f
}

/* Configuration */

/* Listen Configuration */

type listenConfig struct {
	Host string `json:"host"`
	Port uint   `json:"port"`
}

func (l listenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

func defaultListenConfig() listenConfig {
	return listenConfig{
		Host: "127.0.0.1",
		Port: 8080,
	}
}

func (l *listenConfig) loadFromEnv() {
	loadEnvString("LISTEN_HOST", &l.Host)
	loadEnvUint("LISTEN_PORT", &l.Port)
}

/* Redis Configuration */

type redisConfig struct {
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r redisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (r *redisConfig) loadFromEnv() {
	loadEnvString("REDIS_HOST", &r.Host)
	loadEnvUint("REDIS_PORT", &r.Port)
	loadEnvString("REDIS_PASSWORD", &r.Password)

	// Load DB number with a default of 0
	if dbStr := getEnv("REDIS_DB", "0"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
}

func defaultRedisConfig() redisConfig {
	return redisConfig{
		Host:     "localhost",
		Port:     6379,
		Password: "",
		DB:       0,
	}
}

/* NATS Configuration */

type natsConfig struct {
	Host     string
	Port     uint
	Username string
	Password string
	Enabled  bool
}

func (c *natsConfig) loadFromEnv() {
	c.Host = getEnv("NATS_HOST", "localhost")

	// Load port with default 4222
	if portStr := getEnv("NATS_PORT", "4222"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			c.Port = uint(port)
		} else {
			c.Port = 4222
		}
	} else {
		c.Port = 4222
	}

	c.Username = getEnv("NATS_USER", "")
	c.Password = getEnv("NATS_PASSWORD", "")
	c.Enabled = getEnv("NATS_ENABLED", "false") == "true"
}

func (c *natsConfig) URL() string {
	return fmt.Sprintf("nats://%s:%d", c.Host, c.Port)
}

func defaultNatsConfig() natsConfig {
	return natsConfig{
		Host:     "localhost",
		Port:     4222,
		Username: "",
		Password: "",
		Enabled:  false,
	}
}

/* Security Configuration */

type securityConfig struct {
	BackendApiKey string
}

func (s *securityConfig) loadFromEnv() {
	s.BackendApiKey = getEnv("BACKEND_API_KEY", "")
}

func defaultSecurityConfig() securityConfig {
	return securityConfig{
		BackendApiKey: "",
	}
}

/* Frontier Configuration */

type frontierConfig struct {
	PolitenessDelaySeconds float64 `json:"politeness_delay_seconds"`
	MaxDepth               int     `json:"max_depth"`
	MaxRetries             int     `json:"max_retries"`
}

func (f frontierConfig) PolitenessDelay() time.Duration {
	return time.Duration(f.PolitenessDelaySeconds * float64(time.Second))
}

func (f *frontierConfig) loadFromEnv() {
	loadEnvFloat("FRONTIER_POLITENESS_DELAY", &f.PolitenessDelaySeconds)

	if depthStr := getEnv("FRONTIER_MAX_DEPTH", ""); depthStr != "" {
		if depth, err := strconv.Atoi(depthStr); err == nil {
			f.MaxDepth = depth
		}
	}

	if retriesStr := getEnv("FRONTIER_MAX_RETRIES", ""); retriesStr != "" {
		if retries, err := strconv.Atoi(retriesStr); err == nil {
			f.MaxRetries = retries
		}
	}
}

func defaultFrontierConfig() frontierConfig {
	return frontierConfig{
		PolitenessDelaySeconds: 1.0,
		MaxDepth:               3,
		MaxRetries:             3,
	}
}

type Config struct {
	Listen   listenConfig
	Redis    redisConfig
	Nats     natsConfig
	Security securityConfig
	Frontier frontierConfig
}

func (c *Config) LoadFromEnv() {
	c.Listen.loadFromEnv()
	c.Redis.loadFromEnv()
	c.Nats.loadFromEnv()
	c.Security.loadFromEnv()
	c.Frontier.loadFromEnv()
}

func DefaultConfig() Config {
	return Config{
		Listen:   defaultListenConfig(),
		Redis:    defaultRedisConfig(),
		Nats:     defaultNatsConfig(),
		Security: defaultSecurityConfig(),
		Frontier: defaultFrontierConfig(),
	}
}
