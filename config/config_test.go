package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultEmbeddingModel, cfg.EmbeddingModel)
		assert.Equal(t, DefaultEmbeddingDimensions, cfg.EmbeddingDimensions)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv(EnvDatabaseURL, "postgres://localhost/tgvault")
		t.Setenv(EnvEmbeddingModel, "custom-model")
		t.Setenv(EnvEmbeddingDimensions, "768")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "postgres://localhost/tgvault", cfg.DatabaseURL)
		assert.Equal(t, "custom-model", cfg.EmbeddingModel)
		assert.Equal(t, 768, cfg.EmbeddingDimensions)
	})

	t.Run("invalid dimensions", func(t *testing.T) {
		t.Setenv(EnvEmbeddingDimensions, "lots")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("non-positive dimensions", func(t *testing.T) {
		t.Setenv(EnvEmbeddingDimensions, "0")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("all present", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "postgres://localhost/tgvault", TelegramBotToken: "123:abc"}
		assert.NoError(t, cfg.Validate(EnvDatabaseURL, EnvTelegramBotToken))
	})

	t.Run("reports every missing key", func(t *testing.T) {
		cfg := &Config{}
		err := cfg.Validate(EnvDatabaseURL, EnvTelegramBotToken, EnvOpenAIAPIKey)

		var missing *MissingError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []string{EnvDatabaseURL, EnvTelegramBotToken, EnvOpenAIAPIKey}, missing.Keys)
		assert.Contains(t, err.Error(), EnvDatabaseURL)
	})

	t.Run("whitespace counts as missing", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "   "}
		err := cfg.Validate(EnvDatabaseURL)
		assert.Error(t, err)
	})

	t.Run("no required keys", func(t *testing.T) {
		cfg := &Config{}
		assert.NoError(t, cfg.Validate())
	})
}
