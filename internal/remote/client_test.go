package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, MaxRetries: 2}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		baseURL string
		errMsg  string
		opts    []Option
		wantErr bool
	}{
		"valid base URL": {
			baseURL: "https://api.example.test",
		},
		"empty base URL": {
			baseURL: " ",
			wantErr: true,
			errMsg:  "base URL is required",
		},
		"nil HTTP client": {
			baseURL: "https://api.example.test",
			opts:    []Option{WithHTTPClient(nil)},
			wantErr: true,
			errMsg:  "HTTP client cannot be nil",
		},
		"zero timeout": {
			baseURL: "https://api.example.test",
			opts:    []Option{WithTimeout(0)},
			wantErr: true,
			errMsg:  "timeout must be positive",
		},
		"zero rate limit": {
			baseURL: "https://api.example.test",
			opts:    []Option{WithRateLimit(0, 1)},
			wantErr: true,
			errMsg:  "rate limit must be positive",
		},
		"empty header key": {
			baseURL: "https://api.example.test",
			opts:    []Option{WithHeader("", "v")},
			wantErr: true,
			errMsg:  "header key cannot be empty",
		},
		"invalid retry": {
			baseURL: "https://api.example.test",
			opts:    []Option{WithRetry(RetryConfig{})},
			wantErr: true,
			errMsg:  "retry base delay must be positive",
		},
		"incomplete credentials": {
			baseURL: "https://api.example.test",
			opts:    []Option{WithClientCredentials(Credentials{ClientID: "id"})},
			wantErr: true,
			errMsg:  "client secret is required",
		},
		"all options": {
			baseURL: "https://api.example.test",
			opts: []Option{
				WithHeader("X-Api-Key", "k"),
				WithRateLimit(10, 5),
				WithRetry(fastRetry()),
				WithTimeout(5 * time.Second),
				WithClientCredentials(Credentials{ClientID: "id", ClientSecret: "s", TokenURL: "https://t"}),
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			client, err := NewClient(tc.baseURL, tc.opts...)

			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
				require.Nil(t, client)
			} else {
				require.NoError(t, err)
				require.NotNil(t, client)
				require.Equal(t, tc.baseURL, client.BaseURL())
			}
		})
	}
}

func TestClientDo(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name string `json:"name"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/things", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var in payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload{Name: in.Name + "-saved"})
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/v1/", WithHeader("X-Api-Key", "secret"))
	require.NoError(t, err)

	var out payload
	err = client.Do(context.Background(), http.MethodPost, "/things", payload{Name: "a"}, &out)

	require.NoError(t, err)
	require.Equal(t, "a-saved", out.Name)
}

func TestClientDoReturnsStatusError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, WithRetry(fastRetry()))
	require.NoError(t, err)

	err = client.Do(context.Background(), http.MethodGet, "things", nil, nil)

	require.Error(t, err)
	code, ok := StatusCode(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, `{"error":"bad"}`, ResponseBody(err))
	require.Equal(t, int32(1), calls.Load(), "non-transient failures are not retried")
}

func TestClientDoRetriesTransient(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		failures  int32
		wantCalls int32
		wantCode  int
		wantErr   bool
	}{
		"recovers after one failure": {
			failures:  1,
			wantCalls: 2,
		},
		"gives up after retries are exhausted": {
			failures:  10,
			wantCalls: 3,
			wantErr:   true,
			wantCode:  http.StatusServiceUnavailable,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if calls.Add(1) <= tc.failures {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			client, err := NewClient(server.URL, WithRetry(fastRetry()))
			require.NoError(t, err)

			err = client.Do(context.Background(), http.MethodPut, "x", map[string]string{"a": "b"}, nil)

			require.Equal(t, tc.wantCalls, calls.Load())
			if tc.wantErr {
				code, ok := StatusCode(err)
				require.True(t, ok)
				require.Equal(t, tc.wantCode, code)
				require.Equal(t, ClassTransient, Classifier{}.Classify(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestClientDoFollowsAbsoluteURL(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/page2", r.URL.Path)
		_, _ = w.Write([]byte(`{"n":2}`))
	}))
	defer server.Close()

	client, err := NewClient("https://unused.example.test")
	require.NoError(t, err)

	var out struct {
		N int `json:"n"`
	}
	require.NoError(t, client.Do(context.Background(), http.MethodGet, server.URL+"/page2", nil, &out))
	require.Equal(t, 2, out.N)
}

func TestClientDoEmptyBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "x", nil, &out))
	require.Nil(t, out)
}

func TestClientDoWithClientCredentials(t *testing.T) {
	t.Parallel()

	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.FormValue("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewClient(server.URL+"/api", WithClientCredentials(Credentials{
		ClientID:     "id",
		ClientSecret: "secret",
		Scopes:       []string{"prn.write"},
		TokenURL:     server.URL + "/token",
	}))
	require.NoError(t, err)

	require.NoError(t, client.Do(context.Background(), http.MethodGet, "ping", nil, nil))
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "ping", nil, nil))
	require.Equal(t, int32(1), tokenCalls.Load(), "token is cached between calls")
}

func TestClientDoTokenEndpointFailureIsTransient(t *testing.T) {
	t.Parallel()

	var apiCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	})
	mux.HandleFunc("/api/ping", func(w http.ResponseWriter, _ *http.Request) {
		apiCalls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewClient(server.URL+"/api",
		WithRetry(fastRetry()),
		WithClientCredentials(Credentials{
			ClientID:     "id",
			ClientSecret: "secret",
			TokenURL:     server.URL + "/token",
		}),
	)
	require.NoError(t, err)

	err = client.Do(context.Background(), http.MethodGet, "ping", nil, nil)
	require.Error(t, err)
	require.Equal(t, ClassTransient, Classifier{Skip: []int{401, 403, 404}}.Classify(err))
	require.True(t, IsServerFailure(err))

	code, ok := StatusCode(err)
	require.True(t, ok)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Zero(t, apiCalls.Load())
}
