package cursor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashdb/stashdb/pkg/auth"
	"github.com/stashdb/stashdb/pkg/domain"
	"github.com/stashdb/stashdb/pkg/exec"
)

func sourceOf(names ...string) *exec.QueuedSource {
	docs := make([]domain.Document, 0, len(names))
	for _, name := range names {
		docs = append(docs, domain.Document{"name": name})
	}
	return exec.NewQueuedSource(docs)
}

func testParams(src *exec.QueuedSource, principals auth.PrincipalSet) Params {
	return Params{
		Source:          src,
		NS:              "testdb.users",
		Principals:      principals,
		ReadConcern:     domain.DefaultReadConcern(),
		OriginalRequest: domain.Document{"listIndexes": "users"},
	}
}

func TestRegistry_RegisterAndPin(t *testing.T) {
	reg := NewRegistry()
	src := sourceOf("a", "b")

	id, err := reg.Register(testParams(src, auth.PrincipalSet{"alice"}))
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, 1, reg.Len())

	pinned, err := reg.Pin(id, auth.PrincipalSet{"alice"})
	require.NoError(t, err)
	assert.Equal(t, id, pinned.ID())
	assert.Equal(t, "testdb.users", pinned.NS())
	assert.Equal(t, "local", pinned.ReadConcern().Level)
	assert.Equal(t, "users", pinned.OriginalRequest()["listIndexes"])

	// A pinned cursor cannot be pinned again
	_, err = reg.Pin(id, auth.PrincipalSet{"alice"})
	assert.True(t, errors.Is(err, domain.ErrCursorInUse))

	pinned.Release()
	pinned, err = reg.Pin(id, auth.PrincipalSet{"alice"})
	require.NoError(t, err)
	pinned.Destroy()
	assert.Equal(t, 0, reg.Len())

	_, err = reg.Pin(id, auth.PrincipalSet{"alice"})
	assert.True(t, errors.Is(err, domain.ErrCursorNotFound))
}

func TestRegistry_PinChecksPrincipals(t *testing.T) {
	reg := NewRegistry()
	id, err := reg.Register(testParams(sourceOf("a"), auth.PrincipalSet{"alice"}))
	require.NoError(t, err)

	_, err = reg.Pin(id, auth.PrincipalSet{"mallory"})
	assert.True(t, errors.Is(err, domain.ErrNotAuthorized))

	_, err = reg.Pin(id, nil)
	assert.True(t, errors.Is(err, domain.ErrNotAuthorized))

	// The original principal set still works
	pinned, err := reg.Pin(id, auth.PrincipalSet{"alice"})
	require.NoError(t, err)
	pinned.Release()
}

func TestRegistry_CapacityLimit(t *testing.T) {
	reg := NewRegistry(WithMaxOpenCursors(2))

	_, err := reg.Register(testParams(sourceOf("a"), nil))
	require.NoError(t, err)
	_, err = reg.Register(testParams(sourceOf("b"), nil))
	require.NoError(t, err)

	src := sourceOf("c")
	_, err = reg.Register(testParams(src, nil))
	assert.True(t, errors.Is(err, domain.ErrTooManyCursors))

	// Ownership stayed with the caller: the source is still usable
	assert.Equal(t, 1, src.Remaining())
}

func TestRegistry_Kill(t *testing.T) {
	reg := NewRegistry()
	id, err := reg.Register(testParams(sourceOf("a"), nil))
	require.NoError(t, err)

	assert.False(t, reg.Kill(id+1))
	assert.True(t, reg.Kill(id))
	assert.False(t, reg.Kill(id))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_KillRefusesPinned(t *testing.T) {
	reg := NewRegistry()
	id, err := reg.Register(testParams(sourceOf("a"), nil))
	require.NoError(t, err)

	pinned, err := reg.Pin(id, nil)
	require.NoError(t, err)

	assert.False(t, reg.Kill(id))
	pinned.Release()
	assert.True(t, reg.Kill(id))
}

func TestRegistry_ReapIdle(t *testing.T) {
	current := time.Unix(1000, 0)
	reg := NewRegistry(
		WithIdleTimeout(time.Minute),
		WithClock(func() time.Time { return current }),
	)

	staleID, err := reg.Register(testParams(sourceOf("a"), nil))
	require.NoError(t, err)

	// A pinned cursor is never reaped, no matter how idle
	pinnedID, err := reg.Register(testParams(sourceOf("b"), nil))
	require.NoError(t, err)
	pinned, err := reg.Pin(pinnedID, nil)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	freshID, err := reg.Register(testParams(sourceOf("c"), nil))
	require.NoError(t, err)

	assert.Equal(t, 1, reg.reapIdle())
	assert.Equal(t, 2, reg.Len())

	_, err = reg.Pin(staleID, nil)
	assert.True(t, errors.Is(err, domain.ErrCursorNotFound))

	pinned.Release()
	_, err = reg.Pin(freshID, nil)
	assert.NoError(t, err)
}

func TestRegistry_BackgroundReaperStartStop(t *testing.T) {
	reg := NewRegistry(WithReapInterval(10 * time.Millisecond))
	reg.StartBackgroundReaper()
	reg.StopBackgroundReaper()
}
