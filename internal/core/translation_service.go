package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/Duval1703/chatbot/internal/logger"
	"github.com/Duval1703/chatbot/internal/store"
)

const defaultTranslationTimeout = 10 * time.Second

const (
	ServiceMyMemory         = "mymemory"
	ServiceDictionary       = "dictionary"
	ServiceLocalPlaceholder = "local_placeholder"
	ServicePassthrough      = "passthrough"
)

// TranslationCache is keyed by the exact (text, source, target) triple.
// GetTranslation returns store.ErrCacheMiss when the key is absent.
type TranslationCache interface {
	GetTranslation(ctx context.Context, text, sourceLang, targetLang string) (*store.TranslationCacheEntry, error)
	PutTranslation(ctx context.Context, entry *store.TranslationCacheEntry) error
}

type TranslationResult struct {
	TranslatedText string `json:"translated_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Cached         bool   `json:"cached"`
	Service        string `json:"-"`
}

type TranslationService struct {
	cache  TranslationCache
	client *http.Client
	apiURL string
	sf     singleflight.Group
}

func NewTranslationService(cache TranslationCache, client *http.Client, apiURL string) *TranslationService {
	if client == nil {
		client = &http.Client{Timeout: defaultTranslationTimeout}
	}
	return &TranslationService{
		cache:  cache,
		client: client,
		apiURL: apiURL,
	}
}

// Translate returns the cached translation for the exact key, or produces
// and caches one. Upstream failures degrade to the dictionary; only cache
// failures are returned.
func (s *TranslationService) Translate(ctx context.Context, text, sourceLang, targetLang string) (*TranslationResult, error) {
	entry, err := s.cache.GetTranslation(ctx, text, sourceLang, targetLang)
	if err == nil {
		return &TranslationResult{
			TranslatedText: entry.TranslatedText,
			SourceLanguage: sourceLang,
			TargetLanguage: targetLang,
			Cached:         true,
			Service:        entry.TranslationService,
		}, nil
	}
	if !errors.Is(err, store.ErrCacheMiss) {
		return nil, fmt.Errorf("translation cache lookup: %w: %w", ErrPersistence, err)
	}

	// Collapse concurrent misses on the same key into one upstream call.
	// The shared work must outlive the caller that started it; the HTTP
	// client timeout bounds it instead.
	key := sourceLang + "\x00" + targetLang + "\x00" + text
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		translated, service := s.translate(ctx, text, sourceLang, targetLang)

		entry := &store.TranslationCacheEntry{
			SourceText:         text,
			SourceLanguage:     sourceLang,
			TargetLanguage:     targetLang,
			TranslatedText:     translated,
			TranslationService: service,
		}
		if err := s.cache.PutTranslation(ctx, entry); err != nil {
			return nil, fmt.Errorf("translation cache write: %w: %w", ErrPersistence, err)
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	stored := v.(*store.TranslationCacheEntry)
	return &TranslationResult{
		TranslatedText: stored.TranslatedText,
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
		Cached:         false,
		Service:        stored.TranslationService,
	}, nil
}

func (s *TranslationService) translate(ctx context.Context, text, sourceLang, targetLang string) (string, string) {
	src, srcOK := ParseLanguage(sourceLang)
	tgt, tgtOK := ParseLanguage(targetLang)

	if (srcOK && src.IsLocal()) || (tgtOK && tgt.IsLocal()) {
		return s.translateLocal(text, src, srcOK, tgt, tgtOK)
	}

	if srcOK && tgtOK && ((src == English && tgt == French) || (src == French && tgt == English)) {
		translated, err := s.callTranslationAPI(ctx, text, src, tgt)
		if err != nil {
			l := logger.Ctx(ctx)
			l.Warn().Err(err).Str("source", sourceLang).Str("target", targetLang).
				Msg("translation API failed, using dictionary fallback")
			return dictionaryTranslate(text, src, tgt), ServiceDictionary
		}
		return translated, ServiceMyMemory
	}

	return text, ServicePassthrough
}

// translateLocal stands in for a real local-language model.
func (s *TranslationService) translateLocal(text string, src Language, srcOK bool, tgt Language, tgtOK bool) (string, string) {
	if tgtOK {
		if greeting, ok := tgt.localGreeting(); ok {
			return fmt.Sprintf("%s. [Translation to %s not yet fully implemented]", greeting, tgt.Code()), ServiceLocalPlaceholder
		}
	}
	if srcOK && tgtOK {
		return dictionaryTranslate(text, src, tgt), ServiceDictionary
	}
	return text, ServicePassthrough
}

type translationAPIResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus apiStatus `json:"responseStatus"`
}

// apiStatus accepts the status as either a JSON number or a string.
type apiStatus int

func (a *apiStatus) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid responseStatus %s: %w", b, err)
	}
	*a = apiStatus(n)
	return nil
}

func (s *TranslationService) callTranslationAPI(ctx context.Context, text string, src, tgt Language) (string, error) {
	srcCode, _ := src.isoCode()
	tgtCode, _ := tgt.isoCode()

	u, err := url.Parse(s.apiURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid translation API URL: %w", ErrUpstream, err)
	}
	q := u.Query()
	q.Set("q", text)
	q.Set("langpair", srcCode+"|"+tgtCode)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: HTTP error: %d", ErrUpstream, resp.StatusCode)
	}

	var payload translationAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: malformed payload: %w", ErrUpstream, err)
	}
	if payload.ResponseStatus != http.StatusOK {
		return "", fmt.Errorf("%w: translation service error: status %d", ErrUpstream, payload.ResponseStatus)
	}
	return payload.ResponseData.TranslatedText, nil
}

type dictionaryEntry struct {
	from, to string
}

var (
	englishToFrench = []dictionaryEntry{
		{"hello", "bonjour"},
		{"pain", "douleur"},
		{"fever", "fièvre"},
		{"headache", "mal de tête"},
		{"doctor", "docteur"},
		{"medicine", "médicament"},
		{"hospital", "hôpital"},
		{"help", "aide"},
		{"thank you", "merci"},
		{"symptoms", "symptômes"},
	}
	frenchToEnglish = []dictionaryEntry{
		{"bonjour", "hello"},
		{"douleur", "pain"},
		{"fièvre", "fever"},
		{"mal de tête", "headache"},
		{"docteur", "doctor"},
		{"médicament", "medicine"},
		{"hôpital", "hospital"},
		{"aide", "help"},
		{"merci", "thank you"},
		{"symptômes", "symptoms"},
	}
)

// dictionaryTranslate substitutes a few medical terms case-insensitively.
// The input is returned untouched when nothing matched.
func dictionaryTranslate(text string, src, tgt Language) string {
	var entries []dictionaryEntry
	switch {
	case src == English && tgt == French:
		entries = englishToFrench
	case src == French && tgt == English:
		entries = frenchToEnglish
	}

	lowered := strings.ToLower(text)
	result := lowered
	for _, e := range entries {
		result = strings.ReplaceAll(result, e.from, e.to)
	}
	if result == lowered {
		return text
	}
	return capitalize(result)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
