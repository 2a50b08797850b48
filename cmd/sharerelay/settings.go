package main

import (
	"strings"
	"time"
)

type Settings struct {
	Host           string `env:"HOST,default=0.0.0.0"`
	Port           int    `env:"PORT,default=22001"`
	RelayPort      int    `env:"RELAY_PORT,default=22002"`
	BasePath       string `env:"BASE_PATH,default=/"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	LogEncoding string `env:"LOG_ENCODING,default=console"`
	LogFile     string `env:"LOG_FILE"`

	RelaySendTimeoutMs int     `env:"RELAY_SEND_TIMEOUT_MS,default=5000"`
	RelayReadLimit     int     `env:"RELAY_READ_LIMIT,default=4096"`
	RelayFanout        int     `env:"RELAY_FANOUT,default=32"`
	RelayShareRate     float64 `env:"RELAY_SHARE_RATE,default=0"`
	RelayShareBurst    int     `env:"RELAY_SHARE_BURST,default=5"`

	StoreDriver       string `env:"STORE_DRIVER,default=memory"`
	RecentSharesLimit int    `env:"RECENT_SHARES_LIMIT,default=20"`
	MongoURI          string `env:"MONGODB_URI,default=mongodb://localhost:27017"`
	MongoDatabase     string `env:"MONGODB_DATABASE,default=sharerelay"`
	RedisAddr         string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB,default=0"`
	RedisKeyPrefix    string `env:"REDIS_KEY_PREFIX,default=sharerelay:"`
}

func (s Settings) RelaySendTimeout() time.Duration {
	return time.Duration(s.RelaySendTimeoutMs) * time.Millisecond
}

func (s Settings) AllowedOriginList() []string {
	var origins []string
	for _, origin := range strings.Split(s.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	return origins
}
