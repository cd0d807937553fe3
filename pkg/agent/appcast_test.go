package agent

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventSink collects callback invocations for assertions. Progress
// ticks are tracked separately because their cadence depends on chunk
// sizes.
type eventSink struct {
	mu        sync.Mutex
	events    []string
	progress  []int
	errorMsgs []string
	version   string
	shutdown  int
	closeable bool
}

func (s *eventSink) callbacks() Callbacks {
	return Callbacks{
		CheckStarted:  func() { s.record("check-started") },
		UpdateFound:   func() { s.record("update-found") },
		NoUpdateFound: func() { s.record("no-update") },
		Cancelled:     func() { s.record("cancelled") },
		DownloadProgress: func(pct int) {
			s.mu.Lock()
			s.progress = append(s.progress, pct)
			s.mu.Unlock()
		},
		DownloadComplete: func(version string) {
			s.mu.Lock()
			s.version = version
			s.mu.Unlock()
			s.record("downloaded")
		},
		Error: func(msg string) {
			s.mu.Lock()
			s.errorMsgs = append(s.errorMsgs, msg)
			s.mu.Unlock()
			s.record("error")
		},
		CanShutdown: func() bool {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.closeable
		},
		ShutdownRequested: func() {
			s.mu.Lock()
			s.shutdown++
			s.mu.Unlock()
		},
	}
}

func (s *eventSink) record(ev string) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *eventSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

func (s *eventSink) setCloseable(v bool) {
	s.mu.Lock()
	s.closeable = v
	s.mu.Unlock()
}

// waitFor polls until the sink has recorded ev, failing on timeout.
func (s *eventSink) waitFor(t *testing.T, ev string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, got := range s.snapshot() {
			if got == ev {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q, saw %v", ev, s.snapshot())
}

// testFeed stands up a feed + package server signed with a fresh key.
// Returns the feed URL, the matching public key, and an unrelated
// public key for negative verification tests.
func testFeed(t *testing.T, version string, pkg []byte) (url, pubKey, wrongKey string) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	sig := base64.StdEncoding.EncodeToString(ed25519.Sign(priv, pkg))

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/package", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pkg)
	})
	mux.HandleFunc("/appcast.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(FeedItem{
			Version:   version,
			URL:       srv.URL + "/package",
			Length:    int64(len(pkg)),
			Signature: sig,
		})
	})

	return srv.URL + "/appcast.json",
		base64.StdEncoding.EncodeToString(pub),
		base64.StdEncoding.EncodeToString(otherPub)
}

func newTestAppcast(t *testing.T, feedURL, pubKey, currentVersion string) (*Appcast, *eventSink) {
	t.Helper()
	a := NewAppcast(Config{
		FeedURL:        feedURL,
		PublicKey:      pubKey,
		CurrentVersion: currentVersion,
		DownloadDir:    t.TempDir(),
	})
	sink := &eventSink{closeable: true}
	if err := a.Start(sink.callbacks()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(a.Stop)
	return a, sink
}

func TestAppcast_ChecksAndStagesUpdate(t *testing.T) {
	pkg := []byte("new build payload")
	url, pub, _ := testFeed(t, "2.0.0", pkg)
	a, sink := newTestAppcast(t, url, pub, "1.0.0")

	a.CheckNow()
	sink.waitFor(t, "downloaded")

	want := []string{"check-started", "update-found", "downloaded"}
	got := sink.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}

	sink.mu.Lock()
	progress := append([]int(nil), sink.progress...)
	version := sink.version
	sink.mu.Unlock()
	if len(progress) == 0 || progress[len(progress)-1] != 100 {
		t.Errorf("progress = %v, want ascending to 100", progress)
	}
	if version != "2.0.0" {
		t.Errorf("downloaded version = %q, want 2.0.0", version)
	}
	if got := a.StagedVersion(); got != "2.0.0" {
		t.Errorf("StagedVersion() = %q, want 2.0.0", got)
	}

	staged := filepath.Join(a.cfg.DownloadDir, "update-2.0.0.pkg")
	data, err := os.ReadFile(staged)
	if err != nil {
		t.Fatalf("read staged package: %v", err)
	}
	if string(data) != string(pkg) {
		t.Error("staged package content differs from served package")
	}
}

func TestAppcast_NoUpdateWhenCurrent(t *testing.T) {
	url, pub, _ := testFeed(t, "1.0.0", []byte("payload"))
	a, sink := newTestAppcast(t, url, pub, "1.0.0")

	a.CheckNow()
	sink.waitFor(t, "no-update")

	if got := a.StagedVersion(); got != "" {
		t.Errorf("StagedVersion() = %q, want empty", got)
	}
}

func TestAppcast_UnparsableVersionTreatedAsOld(t *testing.T) {
	// Dev builds carry versions like "dev"; every feed release must
	// look newer than them.
	url, pub, _ := testFeed(t, "0.1.0", []byte("payload"))
	a, sink := newTestAppcast(t, url, pub, "dev")

	a.CheckNow()
	sink.waitFor(t, "downloaded")

	if got := a.StagedVersion(); got != "0.1.0" {
		t.Errorf("StagedVersion() = %q, want 0.1.0", got)
	}
}

func TestAppcast_FeedFailureReportsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	a, sink := newTestAppcast(t, srv.URL, base64.StdEncoding.EncodeToString(pub), "1.0.0")

	a.CheckNow()
	sink.waitFor(t, "error")

	sink.mu.Lock()
	msgs := sink.errorMsgs
	sink.mu.Unlock()
	if len(msgs) == 0 {
		t.Fatal("no error message recorded")
	}
}

func TestAppcast_BadSignatureReportsError(t *testing.T) {
	url, _, wrongPub := testFeed(t, "2.0.0", []byte("payload"))
	a, sink := newTestAppcast(t, url, wrongPub, "1.0.0")

	a.CheckNow()
	sink.waitFor(t, "error")

	// The package downloaded fine; verification against the wrong key
	// is what failed, and nothing may be staged.
	if got := a.StagedVersion(); got != "" {
		t.Errorf("StagedVersion() = %q after failed verification, want empty", got)
	}
}

func TestAppcast_StartTwice(t *testing.T) {
	url, pub, _ := testFeed(t, "1.0.0", []byte("payload"))
	a, sink := newTestAppcast(t, url, pub, "1.0.0")

	if err := a.Start(sink.callbacks()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestAppcast_CheckNowBeforeStart(t *testing.T) {
	a := NewAppcast(Config{
		FeedURL:        "http://example.invalid/feed",
		PublicKey:      "key",
		CurrentVersion: "1.0.0",
		DownloadDir:    t.TempDir(),
	})

	// Must not panic or block.
	a.CheckNow()
	a.Stop()
}

func TestAppcast_InstallHandshake(t *testing.T) {
	pkg := []byte("payload")
	url, pub, _ := testFeed(t, "2.0.0", pkg)
	a, sink := newTestAppcast(t, url, pub, "1.0.0")

	if err := a.Install(); !errors.Is(err, ErrNoStagedUpdate) {
		t.Fatalf("Install() before staging error = %v, want ErrNoStagedUpdate", err)
	}

	a.CheckNow()
	sink.waitFor(t, "downloaded")

	sink.setCloseable(false)
	if err := a.Install(); !errors.Is(err, ErrHostNotCloseable) {
		t.Fatalf("Install() with closed host error = %v, want ErrHostNotCloseable", err)
	}

	sink.setCloseable(true)
	if err := a.Install(); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	sink.mu.Lock()
	shutdown := sink.shutdown
	sink.mu.Unlock()
	if shutdown != 1 {
		t.Errorf("shutdown requests = %d, want 1", shutdown)
	}
}

func TestAppcast_StagedStateSurvivesRestart(t *testing.T) {
	pkg := []byte("payload")
	url, pub, _ := testFeed(t, "2.0.0", pkg)

	dir := t.TempDir()
	a := NewAppcast(Config{
		FeedURL:        url,
		PublicKey:      pub,
		CurrentVersion: "1.0.0",
		DownloadDir:    dir,
	})
	sink := &eventSink{closeable: true}
	if err := a.Start(sink.callbacks()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	a.CheckNow()
	sink.waitFor(t, "downloaded")
	a.Stop()

	restarted := NewAppcast(Config{
		FeedURL:        url,
		PublicKey:      pub,
		CurrentVersion: "1.0.0",
		DownloadDir:    dir,
	})
	if err := restarted.Start((&eventSink{}).callbacks()); err != nil {
		t.Fatalf("restart Start() error = %v", err)
	}
	t.Cleanup(restarted.Stop)

	if got := restarted.StagedVersion(); got != "2.0.0" {
		t.Errorf("StagedVersion() after restart = %q, want 2.0.0", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		FeedURL:        "http://example.com/feed",
		PublicKey:      "key",
		CurrentVersion: "1.0.0",
		DownloadDir:    "/tmp/updates",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing feed url", mutate: func(c *Config) { c.FeedURL = "" }, wantErr: true},
		{name: "missing public key", mutate: func(c *Config) { c.PublicKey = "" }, wantErr: true},
		{name: "missing version", mutate: func(c *Config) { c.CurrentVersion = "" }, wantErr: true},
		{name: "missing download dir", mutate: func(c *Config) { c.DownloadDir = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	if cfg.CheckInterval != MinCheckInterval {
		t.Errorf("CheckInterval = %v, want %v", cfg.CheckInterval, MinCheckInterval)
	}
	if cfg.HTTPClient == nil {
		t.Error("HTTPClient not defaulted")
	}
	if cfg.Logger == nil {
		t.Error("Logger not defaulted")
	}

	cfg = Config{CheckInterval: 2 * time.Hour}
	cfg.SetDefaults()
	if cfg.CheckInterval != 2*time.Hour {
		t.Errorf("CheckInterval = %v, want value above floor kept", cfg.CheckInterval)
	}
}
