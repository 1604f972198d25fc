package browser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/browserutils/kooky"
)

func TestParseBrowser(t *testing.T) {
	tests := []struct {
		input    string
		expected SupportedBrowser
		wantErr  bool
	}{
		{"auto", BrowserAuto, false},
		{"", BrowserAuto, false},
		{"chrome", BrowserChrome, false},
		{"Chrome", BrowserChrome, false},
		{"CHROME", BrowserChrome, false},
		{"google-chrome", BrowserChrome, false},
		{"chromium", BrowserChromium, false},
		{"firefox", BrowserFirefox, false},
		{"Firefox", BrowserFirefox, false},
		{"mozilla", BrowserFirefox, false},
		{"mozilla-firefox", BrowserFirefox, false},
		{"edge", BrowserEdge, false},
		{"microsoft-edge", BrowserEdge, false},
		{"msedge", BrowserEdge, false},
		{"opera", BrowserOpera, false},
		{"invalid", "", true},
		{"safari", "", true}, // Not supported
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseBrowser(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseBrowser(%q) expected error, got nil", tt.input)
				}
			} else {
				if err != nil {
					t.Errorf("ParseBrowser(%q) unexpected error: %v", tt.input, err)
				}
				if result != tt.expected {
					t.Errorf("ParseBrowser(%q) = %v, want %v", tt.input, result, tt.expected)
				}
			}
		})
	}
}

func TestSupportedBrowserString(t *testing.T) {
	tests := []struct {
		browser  SupportedBrowser
		expected string
	}{
		{BrowserAuto, "auto"},
		{BrowserChrome, "chrome"},
		{BrowserChromium, "chromium"},
		{BrowserFirefox, "firefox"},
		{BrowserEdge, "edge"},
		{BrowserOpera, "opera"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.browser.String(); result != tt.expected {
				t.Errorf("SupportedBrowser.String() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAllSupportedBrowsers(t *testing.T) {
	browsers := AllSupportedBrowsers()

	if len(browsers) == 0 {
		t.Error("AllSupportedBrowsers() returned empty slice")
	}

	// Check that all expected browsers are present
	expected := map[SupportedBrowser]bool{
		BrowserChrome:   true,
		BrowserChromium: true,
		BrowserFirefox:  true,
		BrowserEdge:     true,
		BrowserOpera:    true,
	}

	for _, browser := range browsers {
		if !expected[browser] {
			t.Errorf("Unexpected browser in AllSupportedBrowsers(): %v", browser)
		}
		delete(expected, browser)
	}

	if len(expected) > 0 {
		t.Errorf("Missing browsers in AllSupportedBrowsers(): %v", expected)
	}
}

func TestMatchesBrowser(t *testing.T) {
	tests := []struct {
		browserName string
		target      SupportedBrowser
		expected    bool
	}{
		{"chrome", BrowserChrome, true},
		{"Google Chrome", BrowserChrome, true},
		{"chromium", BrowserChrome, false}, // chromium should not match chrome
		{"chromium", BrowserChromium, true},
		{"Chromium", BrowserChromium, true},
		{"firefox", BrowserFirefox, true},
		{"Firefox", BrowserFirefox, true},
		{"Mozilla Firefox", BrowserFirefox, true},
		{"edge", BrowserEdge, true},
		{"Microsoft Edge", BrowserEdge, true},
		{"opera", BrowserOpera, true},
		{"Opera", BrowserOpera, true},
		{"safari", BrowserChrome, false},
		{"", BrowserChrome, false},
	}

	for _, tt := range tests {
		t.Run(tt.browserName+"_"+tt.target.String(), func(t *testing.T) {
			result := matchesBrowser(tt.browserName, tt.target)
			if result != tt.expected {
				t.Errorf("matchesBrowser(%q, %v) = %v, want %v", tt.browserName, tt.target, result, tt.expected)
			}
		})
	}
}

func TestStoreDomain(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"127.0.0.1", "127.0.0.1"},
		{"localhost", "localhost"},
		{"::1", "::1"},
		{"chat.example.com", "example.com"},
		{"example.com", "example.com"},
		{"api.team.example.co.uk", "example.co.uk"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if got := storeDomain(tt.host); got != tt.want {
				t.Errorf("storeDomain(%q) = %q, want %q", tt.host, got, tt.want)
			}
		})
	}
}

func TestDomainMatches(t *testing.T) {
	tests := []struct {
		domain string
		host   string
		want   bool
	}{
		{"127.0.0.1", "127.0.0.1", true},
		{"localhost", "localhost", true},
		{"example.com", "chat.example.com", true},
		{".example.com", "chat.example.com", true},
		{"chat.example.com", "chat.example.com", true},
		{"other.example.com", "chat.example.com", false},
		{"notexample.com", "example.com", false},
		{"0.0.1", "127.0.0.1", false},
		{"Example.COM", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.domain+"_"+tt.host, func(t *testing.T) {
			if got := domainMatches(tt.domain, tt.host); got != tt.want {
				t.Errorf("domainMatches(%q, %q) = %v, want %v", tt.domain, tt.host, got, tt.want)
			}
		})
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		baseURL string
		want    string
		wantErr bool
	}{
		{"http://127.0.0.1:8000", "127.0.0.1", false},
		{"https://Chat.Example.com/api", "chat.example.com", false},
		{"not a url", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.baseURL, func(t *testing.T) {
			got, err := hostOf(tt.baseURL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("hostOf(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("hostOf(%q) = %q, want %q", tt.baseURL, got, tt.want)
			}
		})
	}
}

func TestListAvailableBrowsers(t *testing.T) {
	// The result depends on the browsers installed on the machine
	browsers := ListAvailableBrowsers(context.Background())
	t.Logf("Found %d browsers: %v", len(browsers), browsers)
}

func TestExtractCookies_InvalidURL(t *testing.T) {
	_, err := KookyExtractor{}.ExtractCookies(context.Background(), BrowserChrome, "://bad", nil)
	if err == nil {
		t.Fatal("ExtractCookies with an invalid URL should return error")
	}
	if !strings.Contains(err.Error(), "invalid backend URL") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExtractCookies_UnknownBrowser(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := KookyExtractor{}.ExtractCookies(ctx, "nonexistent", "http://127.0.0.1:8000", nil)
	if err == nil {
		t.Error("ExtractCookies with nonexistent browser should return error")
	}
}

func TestExtractCookiesFromStore(t *testing.T) {
	ctx := context.Background()

	stores := kooky.FindAllCookieStores(ctx)
	if len(stores) == 0 {
		t.Skip("No cookie stores available for testing")
	}
	defer func() {
		for _, store := range stores {
			_ = store.Close()
		}
	}()

	store := stores[0]
	result, err := extractCookiesFromStore(ctx, store, store.Browser(), store.Profile(), "codechat.invalid", []string{"session"})
	if err == nil {
		t.Fatalf("expected no cookies for an unused host, got %v", result.Cookies.Names())
	}
	if !strings.Contains(err.Error(), "codechat.invalid") {
		t.Errorf("error should name the host, got: %v", err)
	}
}
