package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageStore_DefaultAndSet(t *testing.T) {
	store := NewMemoryStore()
	langs := NewLanguageStore(store, "", newFakeClock())

	assert.Equal(t, "Hebrew", langs.Get(1))

	name, err := langs.Set(1, "  brazilian   PORTUGUESE ")
	require.NoError(t, err)
	assert.Equal(t, "Brazilian Portuguese", name)
	assert.Equal(t, "Brazilian Portuguese", langs.Get(1))
	assert.Equal(t, "Hebrew", langs.Get(2))
}

func TestLanguageStore_RejectsEmpty(t *testing.T) {
	store := NewMemoryStore()
	langs := NewLanguageStore(store, "Spanish", newFakeClock())

	_, err := langs.Set(3, "   ")
	require.ErrorIs(t, err, ErrEmptyLanguage)

	_, ok := store.Get(3)
	assert.False(t, ok, "rejected input must not create state")
	assert.Equal(t, "Spanish", langs.Get(3))
}

func TestLanguageStore_Normalize(t *testing.T) {
	langs := NewLanguageStore(NewMemoryStore(), "", nil)

	tests := map[string]string{
		"spanish":    "Spanish",
		"HEBREW":     "Hebrew",
		"":           "",
		"\tfrench\n": "French",
	}
	for in, want := range tests {
		assert.Equal(t, want, langs.Normalize(in), "input %q", in)
	}
}

func TestMemoryStore_ListOrdered(t *testing.T) {
	store := NewMemoryStore()
	for _, id := range []int64{5, 1, 3} {
		store.Update(id, func(r *Record) { r.UploadCount = int(id) })
	}

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, int64(1), list[0].UserID)
	assert.Equal(t, int64(5), list[2].UserID)
	assert.Equal(t, 3, store.Len())
}
