package config

import (
	"os"
	"path/filepath"
)

// Client is the engine-side configuration.
type Client struct {
	ServerURL string
	WSURL     string
	TokenPath string
	Username  string
	Password  string
}

func LoadClient() Client {
	home, _ := os.UserHomeDir()
	return Client{
		ServerURL: getenv("LEARNHOME_SERVER_URL", "http://127.0.0.1:8080"),
		WSURL:     getenv("LEARNHOME_WS_URL", "ws://127.0.0.1:8080/ws"),
		TokenPath: getenv("LEARNHOME_TOKEN_PATH", filepath.Join(home, ".learnhome", "token")),
		Username:  os.Getenv("LEARNHOME_USERNAME"),
		Password:  os.Getenv("LEARNHOME_PASSWORD"),
	}
}

// Server is the devserver configuration.
type Server struct {
	HTTPAddr      string
	DatabasePath  string
	JWTSecret     string
	JWTIssuer     string
	RedisAddr     string
	RedisPassword string
}

func LoadServer() Server {
	return Server{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		DatabasePath:  getenv("DATABASE_PATH", "learnhome.db"),
		JWTSecret:     getenv("JWT_SECRET", "dev-secret"),
		JWTIssuer:     getenv("JWT_ISSUER", "learnhome-devserver"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
