package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Server holds the chat server settings
type Server struct {
	Port         string
	DatabaseURL  string
	RedisURL     string
	JWTSecret    string
	TokenTTL     time.Duration
	ClientOrigin string
	UploadDir    string
	LogLevel     string
}

// Client holds the terminal client settings
type Client struct {
	ServerURL      string
	Email          string
	Password       string
	LogLevel       string
	RequestTimeout time.Duration
}

// Load reads a .env file if present. It reports whether one was found.
func Load(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// LoadServer builds the server configuration from the environment
func LoadServer() *Server {
	ttlHours, err := strconv.Atoi(getEnv("TOKEN_TTL_HOURS", "168"))
	if err != nil || ttlHours <= 0 {
		ttlHours = 168
	}

	return &Server{
		Port:         getEnv("PORT", "5000"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:     time.Duration(ttlHours) * time.Hour,
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

// LoadClient builds the client configuration from the environment
func LoadClient() *Client {
	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "10s"))
	if err != nil {
		timeout = 10 * time.Second
	}

	return &Client{
		ServerURL:      getEnv("CHAT_SERVER_URL", "http://localhost:5000"),
		Email:          os.Getenv("CHAT_EMAIL"),
		Password:       os.Getenv("CHAT_PASSWORD"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RequestTimeout: timeout,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
