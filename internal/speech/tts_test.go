package speech

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestSynthesizer(url string) *Synthesizer {
	return NewSynthesizer(Config{Endpoint: url, Language: "es", Timeout: 2 * time.Second})
}

func TestSynthesizeAllVariantsTooSmall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write(bytes.Repeat([]byte{0x1}, MinAudioBytes))
	}))
	defer srv.Close()

	audio, err := newTestSynthesizer(srv.URL).Synthesize(context.Background(), "Bitcoin está en $102,000.")
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
	if audio != nil {
		t.Errorf("expected nil audio, got %d bytes", len(audio))
	}
	if got := atomic.LoadInt32(&calls); got != int32(len(DefaultVariants)) {
		t.Errorf("expected %d attempts, got %d", len(DefaultVariants), got)
	}
}

func TestSynthesizeFirstValidVariantWins(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		q := r.URL.Query()
		if q.Get("tl") != "es" || q.Get("ie") != "UTF-8" || q.Get("q") == "" {
			t.Errorf("missing base params: %v", q)
		}
		if r.Header.Get("User-Agent") != browserUserAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		switch n {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			if q.Get("client") != "gtx" {
				t.Errorf("expected second variant, got %v", q)
			}
			w.Write(bytes.Repeat([]byte{0xff}, 2048))
		}
	}))
	defer srv.Close()

	audio, err := newTestSynthesizer(srv.URL).Synthesize(context.Background(), "*Hola* mundo")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(audio) != 2048 {
		t.Errorf("expected 2048 bytes, got %d", len(audio))
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("third variant must not be tried, got %d calls", got)
	}
}

func TestSynthesizeEmptyTextSkipsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	}))
	defer srv.Close()

	if _, err := newTestSynthesizer(srv.URL).Synthesize(context.Background(), " ** __ "); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}
