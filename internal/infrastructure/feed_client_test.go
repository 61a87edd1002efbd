package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/suno-sync-go/internal/domain"
)

func TestFetchPage_WrappedPayload(t *testing.T) {
	var gotAuth, gotPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPage = r.URL.Query().Get("page")
		w.Write([]byte(`{"clips":[{"id":"c1","title":"Song","audio_url":"http://x/c1.mp3"}]}`))
	}))
	defer srv.Close()

	client := NewHTTPFeedClient(srv.URL, "tok123", 5*time.Second)
	clips, err := client.FetchPage(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, "3", gotPage)
	require.Len(t, clips, 1)
	assert.Equal(t, "c1", clips[0].ID)
}

func TestFetchPage_ArrayPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"c1","title":"A","audio_url":"u"},{"id":"c2","title":"B","audio_url":"u"}]`))
	}))
	defer srv.Close()

	client := NewHTTPFeedClient(srv.URL, "tok", 5*time.Second)
	clips, err := client.FetchPage(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, clips, 2)
}

func TestFetchPage_EmptyBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"clips":[]}`))
	}))
	defer srv.Close()

	client := NewHTTPFeedClient(srv.URL, "tok", 5*time.Second)
	clips, err := client.FetchPage(context.Background(), 9)
	require.NoError(t, err)
	assert.NotNil(t, clips)
	assert.Empty(t, clips)
}

func TestFetchPage_StatusTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantAuth  bool
		transient bool
	}{
		{"unauthorized", http.StatusUnauthorized, true, false},
		{"forbidden", http.StatusForbidden, true, false},
		{"rate limited", http.StatusTooManyRequests, false, true},
		{"server error", http.StatusBadGateway, false, true},
		{"not found", http.StatusNotFound, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewHTTPFeedClient(srv.URL, "tok", 5*time.Second)
			_, err := client.FetchPage(context.Background(), 0)
			require.Error(t, err)
			assert.Equal(t, tt.wantAuth, domain.IsAuthError(err))
			assert.Equal(t, tt.transient, domain.IsTransient(err))
		})
	}
}

func TestStream(t *testing.T) {
	payload := []byte("audio-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewHTTPFeedClient("http://unused", "tok", 5*time.Second)
	body, size, err := client.Stream(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, int64(len(payload)), size)
}

func TestStream_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewHTTPFeedClient("http://unused", "tok", 5*time.Second)
	_, _, err := client.Stream(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, domain.IsAuthError(err))
}
