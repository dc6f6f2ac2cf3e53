package global

import (
	"os"
	"strconv"

	"AgoraNotify/logger"
	"AgoraNotify/tools/ids"
)

// AppConfig carries the process-level settings. Everything is optional except
// Port; empty Redis/Mongo/NATS settings leave those components disabled.
type AppConfig struct {
	NodeID int64
	Port   int

	JwtSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI      string
	MongoDatabase string

	NatsURL string
}

var Global = AppConfig{
	NodeID:        1,
	Port:          8080,
	JwtSecret:     "dev-secret-change-me",
	MongoDatabase: "agoranotify",
}

// Load fills Global from the environment. Called once from main.
func Load() {
	if v := os.Getenv("NOTIFY_NODE_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			Global.NodeID = n
		}
	}
	if v := os.Getenv("NOTIFY_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			Global.Port = n
		}
	}
	if v := os.Getenv("NOTIFY_JWT_SECRET"); v != "" {
		Global.JwtSecret = v
	}
	Global.RedisAddr = os.Getenv("NOTIFY_REDIS_ADDR")
	Global.RedisPassword = os.Getenv("NOTIFY_REDIS_PASSWORD")
	if v := os.Getenv("NOTIFY_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			Global.RedisDB = n
		}
	}
	Global.MongoURI = os.Getenv("NOTIFY_MONGO_URI")
	if v := os.Getenv("NOTIFY_MONGO_DB"); v != "" {
		Global.MongoDatabase = v
	}
	Global.NatsURL = os.Getenv("NOTIFY_NATS_URL")
}

func GetJwtSecret() []byte {
	return []byte(Global.JwtSecret)
}

func ConfigIds() {
	logger.Infof("configuring id generator node=%d", Global.NodeID)
	ids.SetNodeID(Global.NodeID)
}
