package trainerroad

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	perr "trcli/internal/platform/errors"
)

// Jar is a name to value cookie map. Responses overwrite by name, last
// write wins; expiry and path attributes are ignored on purpose since
// the session file outlives a process anyway
type Jar struct {
	cookies map[string]string
}

// NewJar builds a jar from a snapshot, which may be nil
func NewJar(cookies map[string]string) *Jar {
	jar := &Jar{cookies: make(map[string]string, len(cookies))}
	for name, value := range cookies {
		jar.cookies[name] = value
	}
	return jar
}

// Get returns a cookie value, "" when absent
func (j *Jar) Get(name string) string { return j.cookies[name] }

// Has reports whether the jar holds the named cookie
func (j *Jar) Has(name string) bool {
	_, ok := j.cookies[name]
	return ok
}

// Set stores a cookie
func (j *Jar) Set(name, value string) { j.cookies[name] = value }

// Header renders the jar as a Cookie header value, names sorted so the
// output is deterministic
func (j *Jar) Header() string {
	if len(j.cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(j.cookies))
	for name := range j.cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+j.cookies[name])
	}
	return strings.Join(pairs, "; ")
}

// ApplySetCookies folds Set-Cookie header values into the jar, keeping
// only the name=value segment
func (j *Jar) ApplySetCookies(setCookies []string) {
	for _, raw := range setCookies {
		segment, _, _ := strings.Cut(raw, ";")
		name, value, ok := strings.Cut(segment, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		j.cookies[name] = strings.TrimSpace(value)
	}
}

// Snapshot copies the jar for persistence
func (j *Jar) Snapshot() map[string]string {
	out := make(map[string]string, len(j.cookies))
	for name, value := range j.cookies {
		out[name] = value
	}
	return out
}

// Session is the persisted session file shape
type Session struct {
	Cookies           map[string]string `json:"cookies"`
	UpdatedAt         string            `json:"updatedAt,omitempty"`
	AuthenticatedAt   string            `json:"authenticatedAt,omitempty"`
	LastLoginRedirect string            `json:"lastLoginRedirect,omitempty"`
}

// SessionStore owns the session file. Single-owner, no locking
type SessionStore struct {
	path string
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Path returns the session file location
func (s *SessionStore) Path() string { return s.path }

// Load reads the session file. Missing or corrupt files report false
// rather than erroring so a stale session degrades to logged-out
func (s *SessionStore) Load() (Session, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Session{}, false
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, false
	}
	if sess.Cookies == nil {
		sess.Cookies = map[string]string{}
	}
	return sess, true
}

// Save writes the session atomically: temp file in the same directory,
// then rename over the target
func (s *SessionStore) Save(sess Session) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "create session dir %s failed", dir)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "encode session failed")
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "create session temp file failed")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "write session failed")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "close session temp file failed")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "replace session file failed")
	}
	return nil
}

// Clear removes the session file; a missing file is fine
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "remove session file failed")
	}
	return nil
}
