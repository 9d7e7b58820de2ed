package internal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgellow/ortho-diary/internal/config"
	"github.com/dgellow/ortho-diary/internal/idp"
	"github.com/dgellow/ortho-diary/internal/storage"
)

func newKakaoUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			_, _ = io.WriteString(w, `{"access_token":"at","token_type":"bearer"}`)
		case "/me":
			_, _ = io.WriteString(w, `{"id":314,"properties":{"nickname":"하린"},"kakao_account":{"email":"harin@example.com","is_email_valid":true,"is_email_verified":true}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)
	return upstream
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Addr:              "127.0.0.1:0",
			DefaultOrigin:     "http://localhost:5173",
			AllowedOrigins:    []string{"http://localhost:5173"},
			SessionSigningKey: config.Secret("0123456789abcdef0123456789abcdef"),
			SessionTTL:        time.Hour,
			RateLimit:         &config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
		},
		Providers: config.ProvidersConfig{
			Kakao: &config.ProviderConfig{ClientID: "rest-key"},
		},
		Storage: config.StorageConfig{
			Kind: config.StorageMemory,
		},
		Admin: &config.AdminConfig{Enabled: true, AdminEmails: []string{"harin@example.com"}},
	}
}

func request(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Origin", "http://localhost:5173")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestLoginThenJournal(t *testing.T) {
	upstream := newKakaoUpstream(t)
	app, err := NewOrthoDiary(context.Background(), testConfig(),
		WithProviderOptions(idp.WithEndpoints("", upstream.URL+"/token", upstream.URL+"/me")))
	require.NoError(t, err)
	h := app.Handler()

	health := request(t, h, "GET", "/health", "", "")
	require.Equal(t, http.StatusOK, health.Code)
	assert.Contains(t, health.Body.String(), `"kakao":true`)
	assert.Contains(t, health.Body.String(), `"naver":false`)
	assert.Contains(t, health.Body.String(), `"firestore":"disconnected"`)

	preflight := request(t, h, "OPTIONS", "/api/photos", "", "")
	assert.Equal(t, http.StatusOK, preflight.Code)
	assert.Equal(t, "http://localhost:5173", preflight.Header().Get("Access-Control-Allow-Origin"))

	login := request(t, h, "POST", "/auth/kakao", "", `{"code":"one-time"}`)
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())
	var exchanged struct {
		User  idp.NormalizedUser `json:"user"`
		Token string             `json:"token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &exchanged))
	assert.Equal(t, "kakao_314", exchanged.User.UID)
	require.NotEmpty(t, exchanged.Token)

	naver := request(t, h, "POST", "/auth/naver", "", `{"code":"x","state":"s"}`)
	assert.Equal(t, http.StatusInternalServerError, naver.Code)

	assert.Equal(t, http.StatusUnauthorized, request(t, h, "GET", "/api/photos", "", "").Code)

	created := request(t, h, "POST", "/api/photos", exchanged.Token, `{"data":"/9j/4AAQ","memo":"교정 1일차"}`)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())

	var list struct {
		Photos []storage.Photo `json:"photos"`
	}
	listed := request(t, h, "GET", "/api/photos", exchanged.Token, "")
	require.Equal(t, http.StatusOK, listed.Code)
	require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &list))
	require.Len(t, list.Photos, 1)
	assert.Equal(t, "kakao_314", list.Photos[0].UserID)
	assert.Equal(t, "data:image/jpeg;base64,/9j/4AAQ", list.Photos[0].Data)

	admin := request(t, h, "GET", "/admin/verifications", exchanged.Token, "")
	assert.Equal(t, http.StatusOK, admin.Code)
}

func TestAdminRoutesDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Admin = nil
	app, err := NewOrthoDiary(context.Background(), cfg)
	require.NoError(t, err)

	rr := request(t, app.Handler(), "GET", "/admin/verifications", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	app, err := NewOrthoDiary(context.Background(), testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type purgeCountingStore struct {
	*storage.MemoryStorage
	purges atomic.Int32
}

func (s *purgeCountingStore) PurgeDeletedPhotos(ctx context.Context, cutoff time.Time) (int, error) {
	s.purges.Add(1)
	return s.MemoryStorage.PurgeDeletedPhotos(ctx, cutoff)
}

func TestRunKeepsSoftDeletedPhotosByDefault(t *testing.T) {
	ctx := context.Background()
	store := &purgeCountingStore{MemoryStorage: storage.NewMemoryStorage()}
	id, err := store.CreatePhoto(ctx, &storage.Photo{UserID: "u"})
	require.NoError(t, err)
	require.NoError(t, store.SoftDeletePhoto(ctx, id, time.Now().AddDate(0, -2, 0)))

	app, err := NewOrthoDiary(ctx, testConfig(), WithStorage(store))
	require.NoError(t, err)
	assert.Nil(t, app.purge)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- app.Run(runCtx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Zero(t, store.purges.Load())

	n, err := store.MemoryStorage.PurgeDeletedPhotos(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "soft-deleted record was still in the store")
}

func TestPurgeEnabledByRetention(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.DeletedRetention = 24 * time.Hour
	app, err := NewOrthoDiary(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, app.purge)
}
