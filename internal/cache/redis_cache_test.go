package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duval1703/chatbot/internal/store"
)

func newTestCache(t *testing.T) (*RedisTranslationCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisTranslationCache(RedisConfig{Address: mr.Addr()}, "test:translation")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisTranslationCacheMissThenHit(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, err := c.GetTranslation(ctx, "pain", "english", "french")
	assert.ErrorIs(t, err, store.ErrCacheMiss)

	require.NoError(t, c.PutTranslation(ctx, &store.TranslationCacheEntry{
		SourceText: "pain", SourceLanguage: "english", TargetLanguage: "french",
		TranslatedText: "Douleur", TranslationService: "dictionary",
	}))

	entry, err := c.GetTranslation(ctx, "pain", "english", "french")
	require.NoError(t, err)
	assert.Equal(t, "Douleur", entry.TranslatedText)
	assert.Equal(t, "dictionary", entry.TranslationService)

	key := c.BuildKey("pain", "english", "french")
	assert.True(t, mr.Exists(key))
	assert.Zero(t, mr.TTL(key))
}

func TestRedisTranslationCacheFirstWriterWins(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	for _, text := range []string{"Fièvre", "Fever!"} {
		require.NoError(t, c.PutTranslation(ctx, &store.TranslationCacheEntry{
			SourceText: "fever", SourceLanguage: "english", TargetLanguage: "french",
			TranslatedText: text,
		}))
	}

	entry, err := c.GetTranslation(ctx, "fever", "english", "french")
	require.NoError(t, err)
	assert.Equal(t, "Fièvre", entry.TranslatedText)
}

func TestRedisTranslationCacheKeysTheWholeTriple(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	assert.NotEqual(t, c.BuildKey("hi", "a:b", "c"), c.BuildKey("hi", "a", "b:c"))
	assert.NotEqual(t, c.BuildKey("hi", "english", "french"), c.BuildKey("hi", "french", "english"))

	require.NoError(t, c.PutTranslation(ctx, &store.TranslationCacheEntry{
		SourceText: "hi", SourceLanguage: "a:b", TargetLanguage: "c",
		TranslatedText: "WRONG",
	}))

	_, err := c.GetTranslation(ctx, "hi", "a", "b:c")
	assert.ErrorIs(t, err, store.ErrCacheMiss)

	entry, err := c.GetTranslation(ctx, "hi", "a:b", "c")
	require.NoError(t, err)
	assert.Equal(t, "WRONG", entry.TranslatedText)
}

func TestRedisTranslationCacheRejectsMismatchedEntry(t *testing.T) {
	c, mr := newTestCache(t)

	data, err := json.Marshal(store.TranslationCacheEntry{
		SourceText: "pain", SourceLanguage: "french", TargetLanguage: "english",
		TranslatedText: "Pain",
	})
	require.NoError(t, err)
	require.NoError(t, mr.Set(c.BuildKey("pain", "english", "french"), string(data)))

	_, err = c.GetTranslation(context.Background(), "pain", "english", "french")
	assert.ErrorIs(t, err, store.ErrCacheMiss)
}

func TestNewRedisTranslationCacheFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisTranslationCache(RedisConfig{Address: addr}, "x")
	assert.Error(t, err)
}
