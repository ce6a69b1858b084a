package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", "test-token", WithRetries(0, time.Millisecond))
}

func TestGateway(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gateway/index" {
			t.Errorf("path = %q, want /gateway/index", r.URL.Path)
		}
		if got := r.URL.Query().Get("compress"); got != "1" {
			t.Errorf("compress = %q, want 1", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bot test-token" {
			t.Errorf("Authorization = %q, want Bot test-token", got)
		}
		w.Write([]byte(`{"code":0,"message":"","data":{"url":"wss://ws.example.com/gateway?token=abc"}}`))
	})

	url, err := client.Gateway(context.Background(), true)
	if err != nil {
		t.Fatalf("Gateway failed: %v", err)
	}
	if url != "wss://ws.example.com/gateway?token=abc" {
		t.Errorf("url = %q", url)
	}
}

func TestMe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/me" {
			t.Errorf("path = %q, want /user/me", r.URL.Path)
		}
		w.Write([]byte(`{"code":0,"message":"","data":{"id":"42","username":"bridge-bot","bot":true}}`))
	})

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if user.ID != "42" || user.Username != "bridge-bot" || !user.Bot {
		t.Errorf("user = %+v", user)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"not found", http.StatusNotFound, ErrUnsupported},
		{"method not allowed", http.StatusMethodNotAllowed, ErrUnsupported},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.Gateway(context.Background(), false)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.want)
			}
		})
	}
}

func TestEnvelopeCodeFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":40101,"message":"invalid token","data":{}}`))
	})

	_, err := client.Me(context.Background())
	if err == nil {
		t.Fatal("expected error for non-zero envelope code")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Code != 40101 {
		t.Errorf("Code = %d, want 40101", apiErr.Code)
	}
}

func TestRetryOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"code":0,"message":"","data":{"url":"wss://ok"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "t", WithRetries(3, time.Millisecond))

	url, err := client.Gateway(context.Background(), false)
	if err != nil {
		t.Fatalf("Gateway failed after retries: %v", err)
	}
	if url != "wss://ok" {
		t.Errorf("url = %q", url)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestCallPostBody(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"code":0,"message":"","data":{"msg_id":"m1"}}`))
	})

	data, err := client.Call(context.Background(), http.MethodPost, "message/create", map[string]any{
		"target_id": "g1",
		"content":   "hi",
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if gotBody["target_id"] != "g1" || gotBody["content"] != "hi" {
		t.Errorf("body = %v", gotBody)
	}
	if !strings.Contains(string(data), "m1") {
		t.Errorf("data = %s", data)
	}
}

func TestCallWithFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if header.Filename != "a.png" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.Write([]byte(`{"code":0,"message":"","data":{"url":"https://img.example.com/a.png"}}`))
	})

	data, err := client.CallWithFile(context.Background(), "asset/create", "file", "a.png", strings.NewReader("fake-bytes"))
	if err != nil {
		t.Fatalf("CallWithFile failed: %v", err)
	}
	if !strings.Contains(string(data), "img.example.com") {
		t.Errorf("data = %s", data)
	}
}
