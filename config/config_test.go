package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "eventhub", cfg.Mongo.Database)
	assert.Equal(t, 24, cfg.JWT.TTLHours)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxImageBytes)
	assert.Equal(t, "document", cfg.Storage.Backend)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_DB", "events_test")
	t.Setenv("JWT_SECRET", "super-secret")
	t.Setenv("STORAGE_BACKEND", "minio")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, "events_test", cfg.Mongo.Database)
	assert.Equal(t, "super-secret", cfg.JWT.Secret)
	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.True(t, cfg.Storage.Minio.UseSSL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: "1", want: true},
		{value: "true", want: true},
		{value: "YES", want: true},
		{value: "0", want: false},
		{value: "false", want: false},
		{value: "garbage", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, getEnvBool("TEST_BOOL", false))
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Run("empty entries are dropped", func(t *testing.T) {
		t.Setenv("TEST_LIST", "a,, b ,")
		assert.Equal(t, []string{"a", "b"}, getEnvList("TEST_LIST", nil))
	})

	t.Run("all-empty falls back to default", func(t *testing.T) {
		t.Setenv("TEST_LIST", " , ")
		assert.Equal(t, []string{"x"}, getEnvList("TEST_LIST", []string{"x"}))
	})
}
