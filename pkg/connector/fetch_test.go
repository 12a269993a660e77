package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientGet(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	client := NewClient(100)
	body, err := client.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if body != "hello" {
		t.Errorf("Get() body = %q, want hello", body)
	}
	if gotUA != defaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, defaultUserAgent)
	}
}

func TestClientGetNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(100)
	if _, err := client.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("Get() error = nil, want error for HTTP 503")
	} else if !strings.Contains(err.Error(), "HTTP 503") {
		t.Errorf("Get() error = %v, want status code in message", err)
	}
}

func TestClientGetCustomUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	client := NewClient(100, WithUserAgent("custom/1.0"))
	if _, err := client.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotUA != "custom/1.0" {
		t.Errorf("User-Agent = %q, want custom/1.0", gotUA)
	}
}

func TestAsciiRatio(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"pure ascii", "trek", 1.0},
		{"empty", "", 0},
		{"half ascii", "ab世界", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := asciiRatio(tt.text); got != tt.want {
				t.Errorf("asciiRatio(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abcd" {
		t.Errorf("truncate() = %q, want abcd", got)
	}
	if got := truncate("ab", 4); got != "ab" {
		t.Errorf("truncate() = %q, want ab", got)
	}
}
