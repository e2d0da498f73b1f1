package trainerroad

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJarHeaderDeterministic(t *testing.T) {
	jar := NewJar(map[string]string{"b": "2", "a": "1", "c": "3"})
	if got := jar.Header(); got != "a=1; b=2; c=3" {
		t.Fatalf("Header = %q", got)
	}
	if got := NewJar(nil).Header(); got != "" {
		t.Fatalf("empty jar header = %q", got)
	}
}

func TestJarApplySetCookies(t *testing.T) {
	jar := NewJar(map[string]string{"keep": "old"})
	jar.ApplySetCookies([]string{
		"keep=new; Path=/; HttpOnly",
		"session=abc; Secure",
		"=novalue",
		"bare",
	})
	if jar.Get("keep") != "new" {
		t.Fatalf("keep = %q, want last write to win", jar.Get("keep"))
	}
	if jar.Get("session") != "abc" {
		t.Fatalf("session = %q (attributes should be stripped)", jar.Get("session"))
	}
	if jar.Has("") || jar.Has("bare") {
		t.Fatal("nameless and separator-less segments should be ignored")
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.json")
	store := NewSessionStore(path)

	sess := Session{
		Cookies:         map[string]string{AuthCookie: "tok"},
		UpdatedAt:       "2024-01-01T00:00:00Z",
		AuthenticatedAt: "2024-01-01T00:00:00Z",
	}
	if err := store.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok := store.Load()
	if !ok {
		t.Fatal("Load after Save should succeed")
	}
	if loaded.Cookies[AuthCookie] != "tok" || loaded.AuthenticatedAt != sess.AuthenticatedAt {
		t.Fatalf("loaded = %+v", loaded)
	}

	// no temp files left behind in the session dir
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".session-") {
			t.Fatalf("leftover temp file %s", entry.Name())
		}
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := store.Load(); ok {
		t.Fatal("Load after Clear should fail")
	}
	// clearing twice is fine
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestSessionStoreNilCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(`{"updatedAt": "2024-01-01T00:00:00Z"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	sess, ok := NewSessionStore(path).Load()
	if !ok || sess.Cookies == nil {
		t.Fatalf("sess = %+v ok=%v (cookies must come back non-nil)", sess, ok)
	}
}
