package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
database:
  postgres:
    host: localhost
    database: loan_advisor
    user: advisor
apis:
  genai:
    base_url: http://genai.local
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "loan-advisor", cfg.App.Name)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, ProviderGateway, cfg.APIs.GenAI.Provider)
	assert.Equal(t, "agent_events", cfg.Audit.Table)
	assert.Equal(t, "error.log", cfg.Diagnostics.Path)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Minute, GetDuration(cfg.Cache.RiskTTL))
	assert.False(t, cfg.Audit.Strict)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("LOAN_TEST_PG_HOST", "pg.internal")
	body := `
database:
  postgres:
    host: ${LOAN_TEST_PG_HOST}
    database: loan_advisor
    user: advisor
apis:
  genai:
    base_url: http://genai.local
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "pg.internal", cfg.Database.Postgres.Host)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Database.Postgres = PostgresConfig{Host: "h", Database: "d", User: "u"}
		cfg.APIs.GenAI.BaseURL = "http://genai"
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"camunda enabled without broker", func(c *Config) { c.Camunda.Enabled = true }, "camunda.broker_address"},
		{"missing postgres host", func(c *Config) { c.Database.Postgres.Host = "" }, "database.postgres.host"},
		{"openai without key", func(c *Config) { c.APIs.GenAI.Provider = ProviderOpenAI }, "apis.openai.api_key"},
		{"unknown provider", func(c *Config) { c.APIs.GenAI.Provider = "gemini" }, "not supported"},
		{"cache without redis", func(c *Config) { c.Cache.Enabled = true }, "database.redis.address"},
		{"es audit without address", func(c *Config) { c.Audit.Elasticsearch.Enabled = true }, "elasticsearch"},
		{"sns without topic", func(c *Config) { c.Notifications.SNS.Enabled = true }, "topic_arn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_FallsBack(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"process-loan-application": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "process-loan-application"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "process-loan-application").MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
	assert.Equal(t, 5, GetWorkerConfig(cfg, "unknown").MaxJobsActive)
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "loans", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=loans sslmode=disable", p.GetDSN())
}
