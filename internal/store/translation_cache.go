package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetTranslation looks up a cached translation by exact key. It returns
// ErrCacheMiss when no entry exists.
func (s *SQLiteStore) GetTranslation(ctx context.Context, text, sourceLang, targetLang string) (*TranslationCacheEntry, error) {
	var (
		entry   TranslationCacheEntry
		service sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT source_text, source_language, target_language, translated_text, translation_service, created_at
        FROM translation_cache
        WHERE source_text = ? AND source_language = ? AND target_language = ?
    `, text, sourceLang, targetLang).Scan(&entry.SourceText, &entry.SourceLanguage, &entry.TargetLanguage,
		&entry.TranslatedText, &service, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to query translation cache: %w", err)
	}
	entry.TranslationService = service.String
	return &entry, nil
}

// PutTranslation stores entry unless the key is already present; the first
// writer wins and later writes are silently dropped.
func (s *SQLiteStore) PutTranslation(ctx context.Context, entry *TranslationCacheEntry) error {
	entry.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO translation_cache (source_text, source_language, target_language, translated_text, translation_service, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (source_text, source_language, target_language) DO NOTHING
    `, entry.SourceText, entry.SourceLanguage, entry.TargetLanguage, entry.TranslatedText, entry.TranslationService, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert translation cache entry: %w", err)
	}
	return nil
}
