package migration

import (
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ migrate.Logger = (*zapMigrateLogger)(nil)

func TestZapMigrateLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &zapMigrateLogger{logger: zap.New(core)}

	l.Printf("Start buffering %d/u %s\n", 2, "create_auctions")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Start buffering 2/u create_auctions", logs.All()[0].Message)
	assert.False(t, l.Verbose())

	debugCore, _ := observer.New(zapcore.DebugLevel)
	assert.True(t, (&zapMigrateLogger{logger: zap.New(debugCore)}).Verbose())
}

func TestResolveOptions(t *testing.T) {
	o := resolve(nil)
	assert.NotNil(t, o.fs)
	assert.Empty(t, o.dir)

	src, url, err := resolve([]Option{WithDir("/srv/migrations")}).sourceDriver()
	require.NoError(t, err)
	assert.Nil(t, src)
	assert.Equal(t, "file:///srv/migrations", url)

	src, url, err = o.sourceDriver()
	require.NoError(t, err)
	assert.NotNil(t, src)
	assert.Empty(t, url)
	_ = src.Close()

	custom := fstest.MapFS{
		"000001_init.up.sql":   {Data: []byte("SELECT 1;")},
		"000001_init.down.sql": {Data: []byte("SELECT 1;")},
	}
	src, url, err = resolve([]Option{WithFS(custom)}).sourceDriver()
	require.NoError(t, err)
	assert.Empty(t, url)
	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
	_ = src.Close()
}
