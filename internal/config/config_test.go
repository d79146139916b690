package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T, root string) {
	t.Helper()
	cert := filepath.Join(root, "server.pem")
	key := filepath.Join(root, "server-key.pem")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o644))
	require.NoError(t, os.WriteFile(key, []byte("key"), 0o644))

	t.Setenv("PUBLIC_ROOT_PATH", root)
	t.Setenv("ERRDOCS_PATH", root)
	t.Setenv("PARTIALS_PATH", root)
	t.Setenv("DATA_PATH", root)
	t.Setenv("TLS_SERVER_CERTIFICATE_PEM_FILENAME", cert)
	t.Setenv("TLS_SERVER_PRIVATE_KEY_PEM_FILENAME", key)
}

func TestLoadReadsBareEnvironmentKeys(t *testing.T) {
	root := t.TempDir()
	setRequiredEnv(t, root)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, root, cfg.PublicRootPath)
	require.Equal(t, root, cfg.ErrdocsPath)
	require.Equal(t, 4443, cfg.TLSListenPort)
	require.Equal(t, "ruby.sh", cfg.DefaultHostname)
}

func TestLoadIgnoresPrefixedKeys(t *testing.T) {
	root := t.TempDir()
	setRequiredEnv(t, root)
	t.Setenv("RUBYSHD_PUBLIC_ROOT_PATH", "/should/not/be/used")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, root, cfg.PublicRootPath, "bare PUBLIC_ROOT_PATH must win; RUBYSHD_-prefixed keys aren't part of the documented contract")
}

func TestLoadOverridesFromEnv(t *testing.T) {
	root := t.TempDir()
	setRequiredEnv(t, root)
	t.Setenv("TLS_LISTEN_PORT", "9443")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9443, cfg.TLSListenPort)
}

func TestLoadFailsOnMissingRequiredPath(t *testing.T) {
	root := t.TempDir()
	setRequiredEnv(t, root)
	t.Setenv("ERRDOCS_PATH", "")

	_, err := Load()
	require.Error(t, err)
}
