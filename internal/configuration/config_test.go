package configuration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(10<<30), cfg.DefaultStorageLimit)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("MINIO_BUCKET", "drive-prod")
	t.Setenv("DEFAULT_STORAGE_LIMIT", "1073741824")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := Load()
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "drive-prod", cfg.MinIO.BucketName)
	assert.Equal(t, int64(1<<30), cfg.DefaultStorageLimit)
	assert.True(t, cfg.MinIO.UseSSL)
}

func TestConnectionString(t *testing.T) {
	c := DatabaseConfig{
		Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.ConnectionString())
}
