package llm

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used whenever a request doesn't name one.
const DefaultModel = openai.GPT4oMini

// NewClientFromEnv builds the shared OpenAI client. Returns nil when no API
// key is configured so callers can degrade instead of crashing at startup.
func NewClientFromEnv() *openai.Client {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" || apiKey == "your_openai_api_key_here" {
		log.Println("⚠️  OpenAI API key not properly configured — generation and scoring disabled")
		log.Println("   Set OPENAI_API_KEY in your .env file")
		return nil
	}

	timeout := 300 * time.Second
	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}

	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = &http.Client{Timeout: timeout}

	log.Println("✅ OpenAI API key configured successfully")
	return openai.NewClientWithConfig(config)
}
