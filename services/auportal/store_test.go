package auportal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreCreateGet(t *testing.T) {
	store := NewStore()

	id := store.Create(
		map[string]string{"PHPSESSID": "abc"},
		map[string]string{"form_token": "tok"},
		"http://portal/home/audio.wav",
	)
	require.NotEmpty(t, id)

	session, ok := store.Get(id)
	require.True(t, ok)
	require.Equal(t, "abc", session.Cookies["PHPSESSID"])
	require.Equal(t, "tok", session.HiddenFields["form_token"])
	require.Equal(t, "http://portal/home/audio.wav", session.CaptchaAudioUrl)

	// ids never collide across creates
	other := store.Create(nil, nil, "")
	require.NotEqual(t, id, other)
}

func TestStoreUnknownId(t *testing.T) {
	store := NewStore()
	_, ok := store.Get("no-such-session")
	require.False(t, ok)
	_, ok = store.Consume("no-such-session")
	require.False(t, ok)
	// removing a missing entry is a no-op
	store.Remove("no-such-session")
}

func TestStoreConsumeIsSingleUse(t *testing.T) {
	store := NewStore()
	id := store.Create(nil, nil, "")

	_, ok := store.Consume(id)
	require.True(t, ok)
	_, ok = store.Consume(id)
	require.False(t, ok)
	_, ok = store.Get(id)
	require.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	store := NewStore()
	created := time.Now()
	store.now = func() time.Time { return created }

	id := store.Create(nil, nil, "")

	store.now = func() time.Time { return created.Add(sessionTtl - time.Second) }
	_, ok := store.Get(id)
	require.True(t, ok)

	store.now = func() time.Time { return created.Add(sessionTtl + time.Second) }
	_, ok = store.Get(id)
	require.False(t, ok)
	_, ok = store.Consume(id)
	require.False(t, ok)
}

func TestStoreRestoreKeepsCreationTime(t *testing.T) {
	store := NewStore()
	created := time.Now()
	store.now = func() time.Time { return created }

	id := store.Create(nil, nil, "")
	session, ok := store.Consume(id)
	require.True(t, ok)

	store.Restore(id, session)
	_, ok = store.Get(id)
	require.True(t, ok)

	// a restored session still expires relative to its original creation
	store.now = func() time.Time { return created.Add(sessionTtl + time.Second) }
	_, ok = store.Get(id)
	require.False(t, ok)
}
