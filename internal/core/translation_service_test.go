package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duval1703/chatbot/internal/store"
)

type fakeTranslationAPI struct {
	*httptest.Server
	hits atomic.Int32
}

func newFakeTranslationAPI(t *testing.T, handler http.HandlerFunc) *fakeTranslationAPI {
	t.Helper()
	api := &fakeTranslationAPI{}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(api.Close)
	return api
}

func newTestTranslationService(t *testing.T, apiURL string) *TranslationService {
	t.Helper()
	return NewTranslationService(newTestStore(t), &http.Client{Timeout: 2 * time.Second}, apiURL)
}

func TestTranslateUsesAPIAndCaches(t *testing.T) {
	api := newFakeTranslationAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "good morning", r.URL.Query().Get("q"))
		assert.Equal(t, "en|fr", r.URL.Query().Get("langpair"))
		fmt.Fprint(w, `{"responseData":{"translatedText":"Bonjour"},"responseStatus":200}`)
	})
	svc := newTestTranslationService(t, api.URL)
	ctx := context.Background()

	first, err := svc.Translate(ctx, "good morning", "english", "french")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", first.TranslatedText)
	assert.False(t, first.Cached)
	assert.Equal(t, ServiceMyMemory, first.Service)

	second, err := svc.Translate(ctx, "good morning", "english", "french")
	require.NoError(t, err)
	assert.Equal(t, first.TranslatedText, second.TranslatedText)
	assert.True(t, second.Cached)
	assert.Equal(t, int32(1), api.hits.Load())
}

func TestTranslateAcceptsStringStatus(t *testing.T) {
	api := newFakeTranslationAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fr|en", r.URL.Query().Get("langpair"))
		fmt.Fprint(w, `{"responseData":{"translatedText":"Good evening"},"responseStatus":"200"}`)
	})
	svc := newTestTranslationService(t, api.URL)

	res, err := svc.Translate(context.Background(), "bonsoir", "french", "english")
	require.NoError(t, err)
	assert.Equal(t, "Good evening", res.TranslatedText)
}

func TestTranslateUnreachableAPIUsesDictionary(t *testing.T) {
	api := httptest.NewServer(http.NotFoundHandler())
	url := api.URL
	api.Close()

	svc := newTestTranslationService(t, url)

	res, err := svc.Translate(context.Background(), "hello", "english", "french")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", res.TranslatedText)
	assert.False(t, res.Cached)
	assert.Equal(t, ServiceDictionary, res.Service)
}

func TestTranslateFallsBackOnUpstreamErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		"service status": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"responseData":{"translatedText":"QUOTA EXCEEDED"},"responseStatus":403}`)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			api := newFakeTranslationAPI(t, handler)
			svc := newTestTranslationService(t, api.URL)

			res, err := svc.Translate(context.Background(), "I have a fever", "english", "french")
			require.NoError(t, err)
			assert.Equal(t, "I have a fièvre", res.TranslatedText)
			assert.Equal(t, ServiceDictionary, res.Service)
		})
	}
}

func TestTranslateDictionaryWithoutMatchReturnsInput(t *testing.T) {
	api := newFakeTranslationAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	svc := newTestTranslationService(t, api.URL)

	res, err := svc.Translate(context.Background(), "Où est la gare?", "french", "english")
	require.NoError(t, err)
	assert.Equal(t, "Où est la gare?", res.TranslatedText)
}

func TestTranslateSameLanguageSkipsAPI(t *testing.T) {
	api := newFakeTranslationAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call: %s", r.URL)
	})
	svc := newTestTranslationService(t, api.URL)
	ctx := context.Background()

	first, err := svc.Translate(ctx, "Hello", "english", "english")
	require.NoError(t, err)
	assert.Equal(t, "Hello", first.TranslatedText)
	assert.False(t, first.Cached)
	assert.Equal(t, ServicePassthrough, first.Service)

	second, err := svc.Translate(ctx, "Hello", "english", "english")
	require.NoError(t, err)
	assert.Equal(t, "Hello", second.TranslatedText)
	assert.True(t, second.Cached)
	assert.Zero(t, api.hits.Load())
}

func TestTranslateToLocalLanguageUsesPlaceholder(t *testing.T) {
	api := newFakeTranslationAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call: %s", r.URL)
	})
	svc := newTestTranslationService(t, api.URL)

	res, err := svc.Translate(context.Background(), "hello", "english", "ewondo")
	require.NoError(t, err)
	greeting, ok := Ewondo.localGreeting()
	require.True(t, ok)
	assert.Equal(t, greeting+". [Translation to ewondo not yet fully implemented]", res.TranslatedText)
	assert.Equal(t, ServiceLocalPlaceholder, res.Service)
}

func TestTranslateFromLocalLanguagePassesThrough(t *testing.T) {
	svc := newTestTranslationService(t, "http://127.0.0.1:0")

	res, err := svc.Translate(context.Background(), "Mbolo", "ewondo", "english")
	require.NoError(t, err)
	assert.Equal(t, "Mbolo", res.TranslatedText)
}

func TestTranslateUnknownLanguagesPassThrough(t *testing.T) {
	svc := newTestTranslationService(t, "http://127.0.0.1:0")

	res, err := svc.Translate(context.Background(), "hola", "spanish", "german")
	require.NoError(t, err)
	assert.Equal(t, "hola", res.TranslatedText)
	assert.Equal(t, ServicePassthrough, res.Service)
}

func TestTranslateSharedMissSurvivesCancelledFirstCaller(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }
	defer unblock()

	api := newFakeTranslationAPI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		fmt.Fprint(w, `{"responseData":{"translatedText":"Bonjour"},"responseStatus":200}`)
	})
	svc := newTestTranslationService(t, api.URL)

	type outcome struct {
		res *TranslationResult
		err error
	}
	translate := func(ctx context.Context) <-chan outcome {
		ch := make(chan outcome, 1)
		go func() {
			res, err := svc.Translate(ctx, "good morning", "english", "french")
			ch <- outcome{res, err}
		}()
		return ch
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := translate(firstCtx)
	<-started

	second := translate(context.Background())
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	time.Sleep(20 * time.Millisecond)
	unblock()

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "Bonjour", got.res.TranslatedText)
	assert.Equal(t, ServiceMyMemory, got.res.Service)

	got = <-first
	require.NoError(t, got.err)
	assert.Equal(t, "Bonjour", got.res.TranslatedText)
	assert.Equal(t, int32(1), api.hits.Load())

	cached, err := svc.Translate(context.Background(), "good morning", "english", "french")
	require.NoError(t, err)
	assert.True(t, cached.Cached)
}

type brokenCache struct{}

func (brokenCache) GetTranslation(context.Context, string, string, string) (*store.TranslationCacheEntry, error) {
	return nil, errors.New("connection reset")
}

func (brokenCache) PutTranslation(context.Context, *store.TranslationCacheEntry) error {
	return errors.New("connection reset")
}

func TestTranslateCacheFailureIsPersistenceError(t *testing.T) {
	svc := NewTranslationService(brokenCache{}, nil, "http://127.0.0.1:0")

	_, err := svc.Translate(context.Background(), "hello", "english", "french")
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestDictionaryTranslate(t *testing.T) {
	assert.Equal(t, "Merci docteur", dictionaryTranslate("Thank you doctor", English, French))
	assert.Equal(t, "Headache and fever", dictionaryTranslate("Mal de tête and fièvre", French, English))
	assert.Equal(t, "Nothing here", dictionaryTranslate("Nothing here", English, French))
}
