package nats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-tracker/pkg/logger"
)

func TestLoadTLSDisabledWithoutMaterial(t *testing.T) {
	cfg, err := loadTLS(Config{URL: "nats://localhost:4222"})
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestLoadTLSRequiresCertAndKeyTogether(t *testing.T) {
	_, err := loadTLS(Config{CertFile: "client.pem"})
	require.Error(t, err)

	_, err = loadTLS(Config{KeyFile: "client-key.pem"})
	require.Error(t, err)
}

func TestLoadTLSRejectsUnreadableOrEmptyCA(t *testing.T) {
	_, err := loadTLS(Config{CAFile: filepath.Join(t.TempDir(), "missing.pem")})
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.pem")
	require.NoError(t, os.WriteFile(empty, []byte("not a certificate"), 0o600))
	_, err = loadTLS(Config{CAFile: empty})
	require.ErrorContains(t, err, "no certificates found")
}

func TestConnectOptionsAddsTokenAndTLS(t *testing.T) {
	log := logger.NewNop()

	plain, err := connectOptions(Config{Name: "event-tracker"}, log)
	require.NoError(t, err)

	withToken, err := connectOptions(Config{Name: "event-tracker", Token: "s3cret"}, log)
	require.NoError(t, err)
	require.Len(t, withToken, len(plain)+1)

	_, err = connectOptions(Config{CertFile: "client.pem"}, log)
	require.Error(t, err)
}
