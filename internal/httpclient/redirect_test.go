package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/models"
)

func newTestFollower(maxHops int) *Follower {
	client := NewNoRedirectClient(5*time.Second, "test-agent")
	return NewFollower(client, maxHops, 0, common.GetLogger())
}

func TestFollowChain(t *testing.T) {
	var requests atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "first", Value: "1"})
		w.Header().Set("Location", "/middle")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		// Cookies from earlier hops must be replayed.
		if c, err := r.Cookie("first"); err != nil || c.Value != "1" {
			t.Errorf("middle hop missing cookie from first hop")
		}
		http.SetCookie(w, &http.Cookie{Name: "second", Value: "2", Path: "/"})
		w.Header().Set("Location", "/end")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("done"))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	result, err := newTestFollower(10).Follow(context.Background(), srv.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	if result.StatusCode != http.StatusOK {
		t.Errorf("final status = %d, want 200", result.StatusCode)
	}
	if string(result.Body) != "done" {
		t.Errorf("final body = %q, want %q", result.Body, "done")
	}
	if result.Hops != 3 {
		t.Errorf("hops = %d, want 3", result.Hops)
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
	if result.Cookies != "first=1; second=2" {
		t.Errorf("cookies = %q, want %q", result.Cookies, "first=1; second=2")
	}
	if !strings.HasSuffix(result.FinalURL, "/end") {
		t.Errorf("final url = %q, want /end suffix", result.FinalURL)
	}
	if len(result.Chain) != 3 {
		t.Errorf("chain = %v, want 3 entries", result.Chain)
	}
}

func TestFollowHopCeiling(t *testing.T) {
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Location", "/loop")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	const maxHops = 3
	_, err := newTestFollower(maxHops).Follow(context.Background(), srv.URL+"/loop", "", nil)
	if !errors.Is(err, models.ErrTooManyRedirects) {
		t.Fatalf("Follow() error = %v, want ErrTooManyRedirects", err)
	}
	// Exactly the ceiling, never one more.
	if got := requests.Load(); got != maxHops {
		t.Errorf("requests = %d, want %d", got, maxHops)
	}
}

func TestFollowServerErrorStopsChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A Location header on a 5xx must not be followed.
		w.Header().Set("Location", "/next")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream broken"))
	}))
	defer srv.Close()

	result, err := newTestFollower(10).Follow(context.Background(), srv.URL, "", nil)
	if err != nil {
		t.Fatalf("Follow() error = %v, want nil (5xx is inspectable, not an error)", err)
	}
	if result.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", result.StatusCode)
	}
	if string(result.Body) != "upstream broken" {
		t.Errorf("body = %q, want inspectable 5xx body", result.Body)
	}
	if result.Hops != 1 {
		t.Errorf("hops = %d, want 1", result.Hops)
	}
}

func TestFollowRelativeLocation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a/start", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "next") // relative to /a/
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/a/next", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("resolved"))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	result, err := newTestFollower(10).Follow(context.Background(), srv.URL+"/a/start", "", nil)
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if string(result.Body) != "resolved" {
		t.Errorf("body = %q, relative Location not resolved", result.Body)
	}
}

func TestFollowSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Language") != "en-US" {
			t.Errorf("custom header not sent")
		}
		if r.Header.Get("Cookie") != "seed=1" {
			t.Errorf("initial cookies not sent, got %q", r.Header.Get("Cookie"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := newTestFollower(10).Follow(context.Background(), srv.URL, "seed=1", map[string]string{"Accept-Language": "en-US"})
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
}
