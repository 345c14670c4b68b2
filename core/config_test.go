package core

import (
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "qa")
	t.Setenv("QA_DEBUG", "false")
	t.Setenv("QA_REPORT_MISSINGASZERO", "true")
	t.Setenv("QA_REPORT_CACHETTL", "30s")
	t.Setenv("QA_REPORT_CACHESIZE", "200")
	t.Setenv("QA_SERVER_ADDRESS", ":9000")
	t.Setenv("QA_DATABASE_DISABLETLS", "false")

	conf := NewConfig()
	assert.Equal(t, "QA", conf.Env)
	assert.False(t, conf.Debug)
	assert.False(t, conf.TestMode)
	assert.Equal(t, "Darasa", conf.AppName)
	assert.Equal(t, ":9000", conf.Server.Address)
	assert.Equal(t, 5*time.Second, conf.Server.ShutdownTimeout)
	assert.False(t, conf.Database.DisableTLS)
	assert.Equal(t, "localhost:5432", conf.Database.Address())
	assert.Equal(t, ReportConfig{MissingAsZero: true, CacheTTL: 30 * time.Second, CacheSize: 200, RefreshSpec: "@every 1m"}, conf.Report)
}

func TestNewConfig_testMode(t *testing.T) {
	t.Setenv("ENV", "TEST")
	assert.True(t, NewConfig().TestMode)
}

func TestConfig_DefaultFromEmail(t *testing.T) {
	tests := []struct {
		name string
		from string
		want mail.Address
	}{
		{name: "bare address", from: "noreply@darasa.cd", want: mail.Address{Name: "Darasa", Address: "noreply@darasa.cd"}},
		{name: "named", from: "Team <team@darasa.cd>", want: mail.Address{Name: "Team", Address: "team@darasa.cd"}},
		{name: "invalid", from: "lol", want: mail.Address{Name: "Darasa", Address: "noreply@localhost"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf := &Config{AppName: "Darasa", defaultFromEmail: tc.from}
			assert.Equal(t, tc.want, conf.DefaultFromEmail())
		})
	}
}
