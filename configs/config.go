package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Port        string
	Environment string

	// LLMProvider selects the completion backend: "openai", "azure" or "gemini".
	LLMProvider    string
	LLMTemperature float32
	LLMMaxTokens   int
	LLMTimeoutSec  int
	LLMProxyURL    string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	AzureOpenAIEndpoint       string
	AzureOpenAIAPIKey         string
	AzureOpenAIAPIVersion     string
	AzureOpenAIDeploymentName string

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	DatasetPath      string
	DefaultCountry   string
	SystemPromptPath string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	APIKey             string
	AdminUsername      string
	AdminPassword      string
	MonitoringTimezone string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMTemperature: float32(getEnvFloat("LLM_TEMPERATURE", 0.7)),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 800),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SECONDS", 60),
		LLMProxyURL:    getEnv("LLM_PROXY_URL", ""),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		AzureOpenAIEndpoint:       getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIAPIKey:         getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIAPIVersion:     getEnv("AZURE_OPENAI_API_VERSION", "2024-06-01"),
		AzureOpenAIDeploymentName: getEnv("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-4o-mini"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		DatasetPath:      getEnv("DATASET_PATH", "Dataset/food_waste.csv"),
		DefaultCountry:   getEnv("DEFAULT_COUNTRY", "Colombia"),
		SystemPromptPath: getEnv("SYSTEM_PROMPT_PATH", ""),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", true),

		APIKey:             getEnv("API_KEY", ""),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		MonitoringTimezone: getEnv("MONITORING_TIMEZONE", "America/Bogota"),
	}
}

// Validate checks that the credential for the selected provider is present.
// It is called at startup so that a missing key fails the process instead of
// the first request.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set")
		}
	case "azure":
		if c.AzureOpenAIAPIKey == "" || c.AzureOpenAIEndpoint == "" {
			return fmt.Errorf("AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT are required")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is not set")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %q", c.LLMProvider)
	}
	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLMMaxTokens)
	}
	if strings.HasPrefix(c.DatasetPath, "s3://") && c.MinioEndpoint == "" {
		return fmt.Errorf("DATASET_PATH %s requires MINIO_ENDPOINT", c.DatasetPath)
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}
