package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// ProjectPath is the root file opened when no path is given on the command line.
	ProjectPath      string
	SourceLanguage   string
	TargetLanguage   string
	Engines          []string
	Overwrite        bool
	GeminiAPIKey     string
	TranslationModel string
	// DatabaseURL enables the shared translation memory when set.
	DatabaseURL     string
	BreakerFailures int
	BreakerTimeout  time.Duration
}

// Load reads an optional .env file and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		ProjectPath:      getEnv("TRANSURAETU_PROJECT", ""),
		SourceLanguage:   getEnv("SOURCE_LANGUAGE", "ja"),
		TargetLanguage:   getEnv("TARGET_LANGUAGE", "en"),
		Engines:          getEnvList("ENGINES"),
		Overwrite:        getEnvBool("OVERWRITE", false),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		TranslationModel: getEnv("TRANSLATION_MODEL", "gemini-2.5-flash"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		BreakerFailures:  getEnvInt("BREAKER_FAILURES", 5),
		BreakerTimeout:   getEnvDuration("BREAKER_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
