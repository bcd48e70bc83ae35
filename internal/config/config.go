package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings for the terminal chat client.
type Config struct {
	APIBaseURL     string
	Token          string
	UserID         string
	UserName       string
	ConversationID string
}

// Load reads .env when present and builds the config from the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	return Config{
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8083"),
		Token:          getEnv("CHAT_TOKEN", ""),
		UserID:         getEnv("CHAT_USER_ID", ""),
		UserName:       getEnv("CHAT_USER_NAME", ""),
		ConversationID: getEnv("CHAT_CONVERSATION_ID", ""),
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
