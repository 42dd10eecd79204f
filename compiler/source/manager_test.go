package source

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

func TestManager_GetOrAddDeduplicates(t *testing.T) {
	manager := NewManager(nil)

	first, wasNew := manager.GetOrAdd("mem://localhost/project/a.wl")
	assert.True(t, wasNew)

	// An equivalent spelling maps to the same handle
	second, wasNew := manager.GetOrAdd("mem://localhost/project/sub/../a.wl")
	assert.False(t, wasNew)
	assert.Equal(t, first, second)

	third, wasNew := manager.GetOrAdd("mem://localhost/project/b.wl")
	assert.True(t, wasNew)
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, manager.Count())
}

func TestManager_Load(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	url := "mem://localhost/sources/load.wl"
	require.NoError(t, fs.Upload(ctx, url, os.FileMode(0644), strings.NewReader("module m() { }")))

	manager := NewManager(fs)
	handle, wasNew := manager.GetOrAdd(url)
	require.True(t, wasNew)
	require.NoError(t, manager.Load(ctx, handle))
	assert.Equal(t, "module m() { }", string(manager.Get(handle).Data))
}

func TestManager_LoadMissingFile(t *testing.T) {
	manager := NewManager(afs.New())
	handle, _ := manager.GetOrAdd("mem://localhost/sources/absent.wl")
	err := manager.Load(context.Background(), handle)
	assert.ErrorIs(t, err, ErrFailedToOpen)
}

func TestDirJoinPreserveScheme(t *testing.T) {
	assert.Equal(t, "mem://localhost/a/b", Dir("mem://localhost/a/b/c.wl"))
	assert.Equal(t, "mem://localhost/a/b/c.wl", Join("mem://localhost/a/b", "c.wl"))
	assert.Equal(t, "mem://localhost/a/x.wl", Join("mem://localhost/a/b", "..", "x.wl"))
}
