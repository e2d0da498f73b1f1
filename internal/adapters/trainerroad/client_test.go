package trainerroad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	perr "trcli/internal/platform/errors"
)

const loginPageHTML = `<html><body><form>
<input name="__RequestVerificationToken" type="hidden" value="tok-123" />
<input id="ReturnUrl" name="ReturnUrl" type="hidden" value="/app/career/alice" />
</form></body></html>`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{
		BaseURL:     server.URL,
		SessionFile: filepath.Join(t.TempDir(), "session.json"),
		Username:    "alice",
		Password:    "hunter2",
	})
}

func TestLoginHandshake(t *testing.T) {
	var postedForm map[string]string

	r := chi.NewRouter()
	r.Get("/app/login", func(w http.ResponseWriter, req *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "__RequestVerificationToken", Value: "cookie-side"})
		_, _ = w.Write([]byte(loginPageHTML))
	})
	r.Post("/app/login", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		postedForm = map[string]string{}
		for key := range req.PostForm {
			postedForm[key] = req.PostForm.Get(key)
		}
		if req.Header.Get("Cookie") == "" {
			t.Error("login post should carry the page cookies")
		}
		http.SetCookie(w, &http.Cookie{Name: AuthCookie, Value: "auth-token"})
		w.Header().Set("Location", "/app/career/alice")
		w.WriteHeader(http.StatusFound)
	})

	c := newTestClient(t, r)
	result, err := c.Login(context.Background(), "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !result.HasAuthCookie || result.Redirect != "/app/career/alice" {
		t.Fatalf("result = %+v", result)
	}

	if postedForm["Username"] != "alice" || postedForm["Password"] != "hunter2" {
		t.Fatalf("credentials = %v", postedForm)
	}
	if postedForm["__RequestVerificationToken"] != "tok-123" {
		t.Fatalf("token = %q (must come from the page's hidden field)", postedForm["__RequestVerificationToken"])
	}
	if postedForm["ReturnUrl"] != "/app/career/alice" {
		t.Fatalf("return url = %q", postedForm["ReturnUrl"])
	}

	// the session file exists and records the authenticated cookies
	sess, ok := NewSessionStore(c.store.Path()).Load()
	if !ok {
		t.Fatal("session file should exist after login")
	}
	if sess.Cookies[AuthCookie] != "auth-token" || sess.AuthenticatedAt == "" {
		t.Fatalf("session = %+v", sess)
	}
}

func TestLoginFailureModes(t *testing.T) {
	t.Run("no credentials", func(t *testing.T) {
		c := NewClient(Options{SessionFile: filepath.Join(t.TempDir(), "s.json")})
		_, err := c.Login(context.Background(), "")
		if !perr.IsCode(err, perr.ErrorCodeAuthentication) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("token missing from page", func(t *testing.T) {
		r := chi.NewRouter()
		r.Get("/app/login", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>no hidden fields here</html>"))
		})
		c := newTestClient(t, r)
		_, err := c.Login(context.Background(), "")
		if !perr.IsCode(err, perr.ErrorCodeAuthentication) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("post does not redirect", func(t *testing.T) {
		r := chi.NewRouter()
		r.Get("/app/login", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(loginPageHTML))
		})
		r.Post("/app/login", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("bad credentials"))
		})
		c := newTestClient(t, r)
		_, err := c.Login(context.Background(), "")
		if !perr.IsCode(err, perr.ErrorCodeAuthentication) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("redirect without auth cookie", func(t *testing.T) {
		r := chi.NewRouter()
		r.Get("/app/login", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(loginPageHTML))
		})
		r.Post("/app/login", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusFound)
		})
		c := newTestClient(t, r)
		_, err := c.Login(context.Background(), "")
		if !perr.IsCode(err, perr.ErrorCodeAuthentication) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestBatchedFetchChunksIDs(t *testing.T) {
	var idsHeaders []string

	r := chi.NewRouter()
	r.Get("/app/api/react-calendar/{memberID}/activities", func(w http.ResponseWriter, req *http.Request) {
		header := req.Header.Get("ids")
		idsHeaders = append(idsHeaders, header)
		items := make([]string, 0)
		for _, id := range strings.Split(header, ",") {
			items = append(items, fmt.Sprintf(`{"id": %s}`, id))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, "[%s]", strings.Join(items, ","))
	})

	c := newTestClient(t, r)
	ids := make([]int64, 250)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	out, err := c.ActivitiesByIDs(context.Background(), 42, "alice", ids)
	if err != nil {
		t.Fatalf("ActivitiesByIDs: %v", err)
	}

	if len(idsHeaders) != 3 {
		t.Fatalf("requests = %d, want 3 for 250 ids", len(idsHeaders))
	}
	if n := len(strings.Split(idsHeaders[0], ",")); n != 100 {
		t.Fatalf("first batch size = %d", n)
	}
	if n := len(strings.Split(idsHeaders[2], ",")); n != 50 {
		t.Fatalf("last batch size = %d", n)
	}

	// concatenation preserves request order
	if len(out) != 250 {
		t.Fatalf("out len = %d", len(out))
	}
	if out[0].Int("id") != 1 || out[249].Int("id") != 250 {
		t.Fatalf("order = %v .. %v", out[0], out[249])
	}
}

func TestBatchedFetchEmptyInput(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/app/api/react-calendar/{memberID}/activities", func(http.ResponseWriter, *http.Request) {
		t.Error("no request should be issued for zero ids")
	})
	c := newTestClient(t, r)
	out, err := c.ActivitiesByIDs(context.Background(), 42, "alice", nil)
	if err != nil || len(out) != 0 {
		t.Fatalf("out = %v err = %v", out, err)
	}

	merged, err := c.PersonalRecordsByActivityIDs(context.Background(), 42, "alice", nil)
	if err != nil || len(merged) != 0 {
		t.Fatalf("merged = %v err = %v", merged, err)
	}
}

func TestPersonalRecordsByActivityIDsMerges(t *testing.T) {
	call := 0
	r := chi.NewRouter()
	r.Get("/app/api/react-calendar/{memberID}/personal-records", func(w http.ResponseWriter, req *http.Request) {
		call++
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"batch%d": {"n": %d}}`, call, call)
	})

	c := newTestClient(t, r)
	ids := make([]int64, 150)
	for i := range ids {
		ids[i] = int64(i)
	}
	merged, err := c.PersonalRecordsByActivityIDs(context.Background(), 42, "alice", ids)
	if err != nil {
		t.Fatalf("PersonalRecordsByActivityIDs: %v", err)
	}
	if len(merged) != 2 || merged["batch1"] == nil || merged["batch2"] == nil {
		t.Fatalf("merged = %v", merged)
	}
}

func TestRequestHeadersAndStatusError(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/app/api/member-info", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get(jsonFormatHeader) != "camel-case" {
			t.Errorf("json format header = %q", req.Header.Get(jsonFormatHeader))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"username": "alice", "memberId": 42}`))
	})
	r.Get("/app/api/tss/{username}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such profile"))
	})

	c := newTestClient(t, r)
	info, err := c.MemberInfo(context.Background())
	if err != nil {
		t.Fatalf("MemberInfo: %v", err)
	}
	if info.String("username") != "alice" || info.Int("memberId") != 42 {
		t.Fatalf("info = %v", info)
	}

	_, err = c.PublicTSS(context.Background(), "ghost")
	if !perr.IsCode(err, perr.ErrorCodeUpstream) {
		t.Fatalf("err code = %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err chain should carry StatusError: %v", err)
	}
	if statusErr.Status != http.StatusNotFound || !strings.Contains(statusErr.Body, "no such profile") {
		t.Fatalf("status error = %+v", statusErr)
	}
}

func TestNonJSONBodyIsUpstreamError(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/app/api/member-info", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance page</html>"))
	})

	c := newTestClient(t, r)
	_, err := c.MemberInfo(context.Background())
	if !perr.IsCode(err, perr.ErrorCodeUpstream) {
		t.Fatalf("a 200 with a non-JSON body should read as an upstream fault: %v", err)
	}
}

func TestCareerAndSeasonEndpoints(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/app/api/career/{username}/new", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"username": "alice", "ftp": 250}`))
	})
	r.Get("/app/api/seasons/{memberID}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 1, "name": "2024 Base"}]`))
	})
	r.Get("/app/api/onboarding/personal-records", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("startTime") != "2024-01-01T00:00:00Z" {
			t.Errorf("startTime = %q", req.URL.Query().Get("startTime"))
		}
		if req.URL.Query().Has("endTime") {
			t.Error("unset endTime should not be sent")
		}
		_, _ = w.Write([]byte(`[{"watts": 300}]`))
	})

	c := newTestClient(t, r)
	career, err := c.CareerSummary(context.Background(), "alice")
	if err != nil || career.Int("ftp") != 250 {
		t.Fatalf("career = %v err = %v", career, err)
	}
	seasons, err := c.Seasons(context.Background(), 42, "alice")
	if err != nil || len(seasons) != 1 || seasons[0].String("name") != "2024 Base" {
		t.Fatalf("seasons = %v err = %v", seasons, err)
	}
	records, err := c.OnboardingPersonalRecords(context.Background(), "alice", "2024-01-01T00:00:00Z", "")
	if err != nil || len(records) != 1 {
		t.Fatalf("records = %v err = %v", records, err)
	}
}

func TestPersonalRecordsForDateRange(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/app/api/personal-records/for-date-range/{memberID}", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("rowType") != "101" || req.URL.Query().Get("indoorOnly") != "false" {
			t.Errorf("query = %v", req.URL.Query())
		}
		var slots []map[string]any
		if err := json.NewDecoder(req.Body).Decode(&slots); err != nil || len(slots) != 1 {
			t.Errorf("slots = %v err = %v", slots, err)
		} else if slots[0]["StartDate"] != "2024-01-01" || slots[0]["Slot"] != float64(1) {
			// defaults must land in the posted slot array, PascalCase
			t.Errorf("slot = %v", slots[0])
		}
		_, _ = w.Write([]byte(`{"results": [{"personalRecords": [{"watts": 400}]}]}`))
	})

	c := newTestClient(t, r)
	out, err := c.PersonalRecordsForDateRange(context.Background(), 42, "alice", DateRangeQuery{
		StartDate: "2024-01-01",
		EndDate:   "2024-06-01",
	})
	if err != nil {
		t.Fatalf("PersonalRecordsForDateRange: %v", err)
	}
	results := out.Objects("results")
	if len(results) != 1 || len(results[0].Objects("personalRecords")) != 1 {
		t.Fatalf("out = %v", out)
	}

	if _, err := c.PersonalRecordsForDateRange(context.Background(), 42, "alice", DateRangeQuery{}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("missing dates err = %v", err)
	}
}

func TestCookiesPersistAcrossRequests(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/app/api/member-info", func(w http.ResponseWriter, req *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refresh", Value: "v2", Path: "/"})
		_, _ = w.Write([]byte(`{}`))
	})

	c := newTestClient(t, r)
	c.jar.Set("refresh", "v1")
	c.jar.Set("other", "keep")
	if _, err := c.MemberInfo(context.Background()); err != nil {
		t.Fatalf("MemberInfo: %v", err)
	}

	// last write wins, untouched cookies survive
	if c.jar.Get("refresh") != "v2" || c.jar.Get("other") != "keep" {
		t.Fatalf("jar = %v", c.jar.Snapshot())
	}
}

func TestLoadSessionTolerance(t *testing.T) {
	dir := t.TempDir()

	c := NewClient(Options{SessionFile: filepath.Join(dir, "missing.json")})
	if c.LoadSession() {
		t.Fatal("missing file should load as logged-out")
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	c = NewClient(Options{SessionFile: corrupt})
	if c.LoadSession() {
		t.Fatal("corrupt file should load as logged-out")
	}
	if c.HasAuthCookie() {
		t.Fatal("jar should stay empty after a failed load")
	}
}
