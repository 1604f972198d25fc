package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/diogo/codechat/internal/api"
	"github.com/diogo/codechat/internal/browser"
	"github.com/diogo/codechat/internal/config"
)

// fakeExtractor returns canned cookies and records its arguments
type fakeExtractor struct {
	result  *browser.ExtractResult
	err     error
	browser browser.SupportedBrowser
	baseURL string
	names   []string
}

func (f *fakeExtractor) ExtractCookies(ctx context.Context, b browser.SupportedBrowser, baseURL string, names []string) (*browser.ExtractResult, error) {
	f.browser = b
	f.baseURL = baseURL
	f.names = names
	return f.result, f.err
}

func TestImportCookies_File(t *testing.T) {
	env := newTestEnv(t, &api.MockBackendClient{})

	src := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(src, []byte(`[{"name":"sessionid","value":"s1"},{"name":"csrftoken","value":"c1"}]`), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := env.run("import-cookies", src); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(env.stdout.String(), "Imported 2 cookies") {
		t.Errorf("stdout = %q", env.stdout.String())
	}

	cookies, err := config.LoadCookies()
	if err != nil {
		t.Fatalf("LoadCookies() error = %v", err)
	}
	if v, _ := cookies.Get("sessionid"); v != "s1" {
		t.Errorf("sessionid = %q, want s1", v)
	}
}

func TestImportCookies_FileErrors(t *testing.T) {
	env := newTestEnv(t, &api.MockBackendClient{})

	if err := env.run("import-cookies", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for a missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`not json`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := env.run("import-cookies", bad); err == nil {
		t.Error("expected error for malformed cookies")
	}
}

func TestImportCookies_Browser(t *testing.T) {
	env := newTestEnv(t, &api.MockBackendClient{})
	fake := &fakeExtractor{
		result: &browser.ExtractResult{
			Cookies:     config.NewCookies(map[string]string{"sessionid": "from-browser"}),
			BrowserName: "firefox",
		},
	}
	env.deps.Browser = fake

	err := env.run("import-cookies", "--browser", "firefox", "--names", "sessionid, csrftoken", "--base-url", "http://dev.local:8000")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if fake.browser != browser.BrowserFirefox {
		t.Errorf("browser = %q, want firefox", fake.browser)
	}
	if fake.baseURL != "http://dev.local:8000" {
		t.Errorf("baseURL = %q", fake.baseURL)
	}
	if diff := cmp.Diff([]string{"sessionid", "csrftoken"}, fake.names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	cookies, err := config.LoadCookies()
	if err != nil {
		t.Fatalf("LoadCookies() error = %v", err)
	}
	if v, _ := cookies.Get("sessionid"); v != "from-browser" {
		t.Errorf("sessionid = %q, want from-browser", v)
	}
	if !strings.Contains(env.stdout.String(), "from firefox") {
		t.Errorf("stdout = %q", env.stdout.String())
	}
}

func TestImportCookies_BrowserErrors(t *testing.T) {
	t.Run("unsupported browser", func(t *testing.T) {
		env := newTestEnv(t, &api.MockBackendClient{})
		fake := &fakeExtractor{}
		env.deps.Browser = fake

		if err := env.run("import-cookies", "--browser", "netscape"); err == nil {
			t.Fatal("expected error")
		}
		if fake.baseURL != "" {
			t.Error("extractor should not be called")
		}
	})

	t.Run("extraction fails", func(t *testing.T) {
		env := newTestEnv(t, &api.MockBackendClient{})
		env.deps.Browser = &fakeExtractor{err: errors.New("no cookie store")}

		if err := env.run("import-cookies"); err == nil {
			t.Fatal("expected error")
		}
		cookies, err := config.LoadCookies()
		if err != nil {
			t.Fatalf("LoadCookies() error = %v", err)
		}
		if cookies.Len() != 0 {
			t.Error("no cookies should be saved")
		}
	})
}
