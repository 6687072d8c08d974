package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
environment: DEV
dev_mode_bypass: true

webhooks:
  sources:
    notion:
      secret: notion-secret
      rate: 5
      burst: 10

notifications:
  retry:
    max_retries: 2
    initial_delay: 100ms
    max_delay: 2s
    backoff_multiplier: 2.0
  collaborators:
    gallery-team:
      url: http://gallery-team.internal
  targets:
    GalleryExhibit:
      scheduled: [gallery-team]

sync:
  blocking: true
  url: http://system-of-record.internal

workflows:
  - type: GalleryExhibit
    initial: proposed
    states: [proposed, reviewed, archived]
    terminal: [archived]
    transitions:
      - {from: proposed, to: reviewed, trigger: review, roles: [curator]}
      - {from: reviewed, to: archived, trigger: archive}
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "DEV", cfg.Environment)
	assert.True(t, cfg.DevModeBypass)

	// Defaults fill the omitted sections.
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Notifications.Timeout)
	assert.Equal(t, "external", cfg.Sync.Name)

	assert.Equal(t, 2, cfg.Notifications.Retry.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Notifications.Retry.InitialDelay)
	assert.True(t, cfg.Sync.Blocking)

	require.Len(t, cfg.Workflows, 1)
	assert.Equal(t, "GalleryExhibit", cfg.Workflows[0].Type)
	assert.Len(t, cfg.Workflows[0].Transitions, 2)
	assert.Equal(t, []string{"curator"}, cfg.Workflows[0].Transitions[0].Roles)
}

func TestConfig_SecretSource(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	secret, ok := cfg.Secret("notion")
	assert.True(t, ok)
	assert.Equal(t, "notion-secret", secret)

	_, ok = cfg.Secret("github")
	assert.False(t, ok)

	limits := cfg.SourceLimits()
	require.Contains(t, limits, "notion")
	assert.Equal(t, 5.0, limits["notion"].Rate)
	assert.Equal(t, 10, limits["notion"].Burst)
}

func TestConfig_NotificationTargets(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	targets := cfg.NotificationTargets()
	assert.Equal(t, []string{"gallery-team"}, targets.Resolve("GalleryExhibit", "scheduled"))
	assert.Empty(t, targets.Resolve("GalleryExhibit", "reviewed"))
}

func TestLoadConfig_RejectsBadRetryPolicy(t *testing.T) {
	bad := `
notifications:
  retry:
    max_retries: -1
    initial_delay: 100ms
    max_delay: 2s
    backoff_multiplier: 2.0
`
	_, err := LoadConfig(writeConfig(t, bad))
	assert.Error(t, err)
}
