package app

import (
	"github.com/yungbote/clipforge-backend/internal/platform/envutil"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	LogMode     string
	ServiceName string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:        envutil.GetEnv("PORT", "8080", log),
		LogMode:     envutil.GetEnv("LOG_MODE", "development", log),
		ServiceName: envutil.GetEnv("SERVICE_NAME", "clipforge-backend", log),
	}
}
