// Copyright 2025 The tgvault Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads environment-driven configuration.
//
// A .env file is read when present but never overrides variables already
// set in the real environment. Each command validates only the keys it
// needs; Validate reports every missing key at once rather than the first.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvDatabaseURL         = "DATABASE_URL"
	EnvTelegramBotToken    = "TELEGRAM_BOT_TOKEN"
	EnvOpenAIAPIKey        = "OPENAI_API_KEY"
	EnvOpenAIBaseURL       = "OPENAI_BASE_URL"
	EnvEmbeddingModel      = "EMBEDDING_MODEL"
	EnvEmbeddingDimensions = "EMBEDDING_DIMENSIONS"
	EnvAddr                = "ADDR"
)

const (
	// DefaultEmbeddingModel matches the ai package default.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultEmbeddingDimensions matches the pgvector column width.
	DefaultEmbeddingDimensions = 1536
)

// Config holds every setting the commands read from the environment.
type Config struct {
	DatabaseURL         string
	TelegramBotToken    string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	EmbeddingModel      string
	EmbeddingDimensions int
	Addr                string
}

// MissingError reports every required key absent from the environment.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

// Load reads configuration from the environment, consulting .env first.
func Load() (*Config, error) {
	// Best effort; a missing .env file is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:         os.Getenv(EnvDatabaseURL),
		TelegramBotToken:    os.Getenv(EnvTelegramBotToken),
		OpenAIAPIKey:        os.Getenv(EnvOpenAIAPIKey),
		OpenAIBaseURL:       os.Getenv(EnvOpenAIBaseURL),
		EmbeddingModel:      os.Getenv(EnvEmbeddingModel),
		EmbeddingDimensions: DefaultEmbeddingDimensions,
		Addr:                os.Getenv(EnvAddr),
	}

	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}

	if raw := os.Getenv(EnvEmbeddingDimensions); raw != "" {
		dims, err := strconv.Atoi(raw)
		if err != nil || dims <= 0 {
			return nil, fmt.Errorf("invalid %s value: %q", EnvEmbeddingDimensions, raw)
		}
		cfg.EmbeddingDimensions = dims
	}

	return cfg, nil
}

// Validate checks that every named key has a value, reporting all missing
// keys together.
func (c *Config) Validate(required ...string) error {
	var missing []string
	for _, key := range required {
		if strings.TrimSpace(c.value(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	return nil
}

func (c *Config) value(key string) string {
	switch key {
	case EnvDatabaseURL:
		return c.DatabaseURL
	case EnvTelegramBotToken:
		return c.TelegramBotToken
	case EnvOpenAIAPIKey:
		return c.OpenAIAPIKey
	case EnvOpenAIBaseURL:
		return c.OpenAIBaseURL
	case EnvEmbeddingModel:
		return c.EmbeddingModel
	case EnvAddr:
		return c.Addr
	}
	return ""
}
