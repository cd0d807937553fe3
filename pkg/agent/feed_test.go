package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func feedServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestFetchFeed(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "valid",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"version":"2.0.0","url":"http://example.com/pkg","length":42,"signature":"sig"}`))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantErr: "unexpected status",
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>not a feed</html>"))
			},
			wantErr: "parse feed",
		},
		{
			name: "missing version",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"url":"http://example.com/pkg"}`))
			},
			wantErr: "missing version",
		},
		{
			name: "missing url",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"version":"2.0.0"}`))
			},
			wantErr: "missing url",
		},
		{
			name: "oversized response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Length", "1048576")
				w.Write(make([]byte, 1048576))
			},
			wantErr: "too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := feedServer(t, tt.handler)
			item, err := fetchFeed(context.Background(), http.DefaultClient, url)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("fetchFeed() error = %v", err)
				}
				if item.Version != "2.0.0" || item.URL != "http://example.com/pkg" {
					t.Errorf("fetchFeed() = %+v", item)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("fetchFeed() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFetchFeed_ContextCancelled(t *testing.T) {
	url := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fetchFeed(ctx, http.DefaultClient, url); err == nil {
		t.Error("fetchFeed() succeeded with cancelled context")
	}
}
