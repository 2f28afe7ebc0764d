package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Duval1703/chatbot/internal/store"
)

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// RedisTranslationCache keeps translation cache entries in Redis. Entries
// never expire and are written with SETNX, so the first writer wins.
type RedisTranslationCache struct {
	client *redis.Client
	prefix string
}

func NewRedisTranslationCache(cfg RedisConfig, prefix string) (*RedisTranslationCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisTranslationCache{
		client: client,
		prefix: prefix,
	}, nil
}

// BuildKey hashes the length-prefixed (text, source, target) triple, so
// distinct triples never share a key and arbitrary input stays bounded.
func (c *RedisTranslationCache) BuildKey(text, sourceLang, targetLang string) string {
	h := sha256.New()
	for _, part := range []string{text, sourceLang, targetLang} {
		fmt.Fprintf(h, "%d:%s", len(part), part)
	}
	return c.prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

func (c *RedisTranslationCache) GetTranslation(ctx context.Context, text, sourceLang, targetLang string) (*store.TranslationCacheEntry, error) {
	data, err := c.client.Get(ctx, c.BuildKey(text, sourceLang, targetLang)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var entry store.TranslationCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	// Guard against hash collisions.
	if entry.SourceText != text || entry.SourceLanguage != sourceLang || entry.TargetLanguage != targetLang {
		return nil, store.ErrCacheMiss
	}
	return &entry, nil
}

func (c *RedisTranslationCache) PutTranslation(ctx context.Context, entry *store.TranslationCacheEntry) error {
	entry.CreatedAt = time.Now().UTC()
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	key := c.BuildKey(entry.SourceText, entry.SourceLanguage, entry.TargetLanguage)
	if err := c.client.SetNX(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisTranslationCache) Close() error {
	return c.client.Close()
}
