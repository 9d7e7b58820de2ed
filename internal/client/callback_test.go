package client

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgellow/ortho-diary/internal/crypto"
	"github.com/dgellow/ortho-diary/internal/session"
)

type fakeExchanger struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeExchanger) Exchange(_ context.Context, provider, code, state string) (*session.ProxyIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &session.ProxyIdentity{
		UID:         provider + "_" + code,
		ID:          code,
		Email:       "user@example.com",
		DisplayName: "User",
		Provider:    provider,
		HasEmail:    true,
	}, nil
}

type fakeSessions struct {
	logins []session.Identity
}

func (f *fakeSessions) Login(id session.Identity) error {
	f.logins = append(f.logins, id)
	return nil
}

func TestCallbackFiresOnce(t *testing.T) {
	ex := &fakeExchanger{}
	sessions := &fakeSessions{}
	cb := NewCallback("kakao", ex, sessions, nil)

	query := url.Values{"code": {"abc"}}
	identity, err := cb.Handle(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, "kakao_abc", identity.UID)

	_, err = cb.Handle(context.Background(), query)
	assert.ErrorIs(t, err, ErrDuplicateCallback)

	assert.Equal(t, 1, ex.calls)
	assert.Len(t, sessions.logins, 1)
}

func TestCallbackConcurrentFiresOnce(t *testing.T) {
	ex := &fakeExchanger{}
	cb := NewCallback("kakao", ex, &fakeSessions{}, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	duplicates := 0
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cb.Handle(context.Background(), url.Values{"code": {"abc"}})
			if errors.Is(err, ErrDuplicateCallback) {
				mu.Lock()
				duplicates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, 4, duplicates)
}

func TestCallbackErrors(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	csrf := crypto.NewCSRFProtection(key, time.Minute)
	validState, err := csrf.Generate()
	require.NoError(t, err)

	tests := []struct {
		name      string
		state     StateValidator
		query     url.Values
		exErr     error
		wantErr   error
		wantCalls int
	}{
		{
			name:    "provider error",
			query:   url.Values{"error": {"access_denied"}, "error_description": {"user cancelled"}},
			wantErr: &ProviderError{},
		},
		{
			name:    "missing code",
			query:   url.Values{},
			wantErr: ErrMissingCode,
		},
		{
			name:    "bad state",
			state:   &csrf,
			query:   url.Values{"code": {"abc"}, "state": {"forged"}},
			wantErr: ErrInvalidState,
		},
		{
			name:      "valid state",
			state:     &csrf,
			query:     url.Values{"code": {"abc"}, "state": {validState}},
			wantCalls: 1,
		},
		{
			name:      "exchange failure",
			query:     url.Values{"code": {"abc"}},
			exErr:     &APIError{Status: 500, Message: "Naver authentication failed"},
			wantErr:   &APIError{},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExchanger{err: tt.exErr}
			sessions := &fakeSessions{}
			cb := NewCallback("naver", ex, sessions, tt.state)

			_, err := cb.Handle(context.Background(), tt.query)
			switch want := tt.wantErr.(type) {
			case nil:
				require.NoError(t, err)
				assert.Len(t, sessions.logins, 1)
			case *ProviderError:
				var pe *ProviderError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, "access_denied", pe.Code)
			case *APIError:
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Empty(t, sessions.logins)
			default:
				assert.ErrorIs(t, err, want)
			}
			assert.Equal(t, tt.wantCalls, ex.calls)
		})
	}
}

func TestCallbackLogsIntoManager(t *testing.T) {
	store := session.NewMemoryStore()
	manager := session.NewManager(store, nil, nil)
	cb := NewCallback("kakao", &fakeExchanger{}, manager, nil)

	_, err := cb.Handle(context.Background(), url.Values{"code": {"42"}})
	require.NoError(t, err)

	current := manager.Current()
	require.NotNil(t, current)
	assert.Equal(t, "kakao_42", current.ID)
	assert.Equal(t, session.OriginKakao, current.Origin)
}
