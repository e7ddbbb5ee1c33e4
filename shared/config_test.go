package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("SIGNER_SERVICE_NAME", "")
		t.Setenv("ENCLAVE_MODE", "")
		t.Setenv("SIGNER_ATTESTATION_DRIVER", "")

		cfg, err := ConfigFromEnv("libsigner")
		require.NoError(t, err)
		assert.Equal(t, "libsigner", cfg.ServiceName)
		assert.Equal(t, DriverAuto, cfg.AttestationDriver)
		assert.False(t, cfg.StrictIntent)
		assert.False(t, cfg.UseNSM())
	})

	t.Run("Auto follows enclave mode", func(t *testing.T) {
		t.Setenv("ENCLAVE_MODE", "true")
		t.Setenv("SIGNER_ATTESTATION_DRIVER", "AUTO")

		cfg, err := ConfigFromEnv("libsigner")
		require.NoError(t, err)
		assert.True(t, cfg.UseNSM())
	})

	t.Run("Explicit driver wins", func(t *testing.T) {
		t.Setenv("ENCLAVE_MODE", "true")
		t.Setenv("SIGNER_ATTESTATION_DRIVER", "noop")

		cfg, err := ConfigFromEnv("libsigner")
		require.NoError(t, err)
		assert.False(t, cfg.UseNSM())
	})

	t.Run("Unknown driver", func(t *testing.T) {
		t.Setenv("SIGNER_ATTESTATION_DRIVER", "sev")

		_, err := ConfigFromEnv("libsigner")
		var ce *ConfigError
		assert.True(t, errors.As(err, &ce))
	})

	t.Run("Retries", func(t *testing.T) {
		t.Setenv("SIGNER_ATTESTATION_DRIVER", "")
		t.Setenv("SIGNER_ATTESTATION_RETRIES", "")
		cfg, err := ConfigFromEnv("libsigner")
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.AttestationRetries)

		t.Setenv("SIGNER_ATTESTATION_RETRIES", "0")
		_, err = ConfigFromEnv("libsigner")
		assert.Error(t, err)
	})

	t.Run("Malformed bool falls back", func(t *testing.T) {
		t.Setenv("SIGNER_STRICT_INTENT", "definitely")
		t.Setenv("SIGNER_ATTESTATION_DRIVER", "")

		cfg, err := ConfigFromEnv("libsigner")
		require.NoError(t, err)
		assert.False(t, cfg.StrictIntent)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("Env file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "signer.env")
		require.NoError(t, os.WriteFile(path, []byte("SIGNER_TEST_STRICT_SOURCE=file\n"), 0o600))
		t.Setenv("SIGNER_ATTESTATION_DRIVER", "nsm")
		t.Cleanup(func() { os.Unsetenv("SIGNER_TEST_STRICT_SOURCE") })

		cfg, err := LoadConfig("libsigner", path)
		require.NoError(t, err)
		assert.Equal(t, "file", os.Getenv("SIGNER_TEST_STRICT_SOURCE"))
		assert.True(t, cfg.UseNSM())
	})

	t.Run("Missing env file is ignored", func(t *testing.T) {
		t.Setenv("SIGNER_ATTESTATION_DRIVER", "")
		_, err := LoadConfig("libsigner", filepath.Join(t.TempDir(), "absent.env"))
		assert.NoError(t, err)
	})
}
