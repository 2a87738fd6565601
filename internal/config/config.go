package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"PORT" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
	Database string `yaml:"database" env-default:"qrtrack"`
	// Transactions needs a replica set; without it counter and scan are written as two atomic ops
	Transactions bool `yaml:"transactions" env-default:"false"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-default:""`
}

type GeoIPConfig struct {
	DatabasePath string `yaml:"database_path" env-default:""`
	TimeoutMs    int    `yaml:"timeout_ms" env-default:"50"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Address  string `yaml:"address" env-default:"127.0.0.1:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
}

type RateLimitConfig struct {
	Enabled   bool `yaml:"enabled" env-default:"false"`
	Requests  int  `yaml:"requests" env-default:"60"`
	WindowSec int  `yaml:"window_sec" env-default:"60"`

	// TrustedProxies is the number of reverse proxies appending to X-Forwarded-For
	TrustedProxies int `yaml:"trusted_proxies" env-default:"0"`
}

type TelegramConfig struct {
	Enabled  bool    `yaml:"enabled" env-default:"false"`
	ApiKey   string  `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	ChatIds  []int64 `yaml:"chat_ids"`
	MinLevel int     `yaml:"min_level" env-default:"8"`
}

type AnalyticsConfig struct {
	// Strategy "database" groups inside MongoDB, "memory" reduces fetched scans
	Strategy    string `yaml:"strategy" env-default:"database"`
	WindowDays  int    `yaml:"window_days" env-default:"30"`
	TopLimit    int    `yaml:"top_limit" env-default:"10"`
	RecentLimit int    `yaml:"recent_limit" env-default:"100"`
}

type Config struct {
	Env             string          `yaml:"env" env-default:"local"`
	Listen          Listen          `yaml:"listen"`
	Mongo           MongoConfig     `yaml:"mongo"`
	Auth            AuthConfig      `yaml:"auth"`
	GeoIP           GeoIPConfig     `yaml:"geoip"`
	Redis           RedisConfig     `yaml:"redis"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	Telegram        TelegramConfig  `yaml:"telegram"`
	Analytics       AnalyticsConfig `yaml:"analytics"`
	UnavailablePath string          `yaml:"unavailable_path" env-default:"/qr/unavailable"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
