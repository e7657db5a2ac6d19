package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Defaults()
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.Equal(t, 50.0, c.Club.DefaultDues)
	assert.Equal(t, 10, c.Club.LockTimeoutSeconds)
	assert.Equal(t, "club", c.NATS.SubjectPrefix)
}

func TestRead_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  port: 9000\nclub:\n  default_venue: Mangueirão\n  default_dues: 45\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CLUB_JWT_SECRET", "from-env")

	c, err := read(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, c.Server.Port)
	assert.Equal(t, "Mangueirão", c.Club.DefaultVenue)
	assert.Equal(t, 45.0, c.Club.DefaultDues)
	assert.Equal(t, "from-env", c.JWT.Secret)
	assert.Equal(t, "info", c.Log.Level, "unset keys keep their defaults")
}

func TestRead_MissingFileUsesDefaults(t *testing.T) {
	c, err := read(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
}
