// Package browser provides functionality to extract backend session cookies
// from web browsers.
package browser

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/chrome"
	_ "github.com/browserutils/kooky/browser/chromium"
	_ "github.com/browserutils/kooky/browser/edge"
	_ "github.com/browserutils/kooky/browser/firefox"
	_ "github.com/browserutils/kooky/browser/opera"
	"golang.org/x/net/publicsuffix"

	"github.com/diogo/codechat/internal/config"
)

// SupportedBrowser represents a supported browser type
type SupportedBrowser string

const (
	BrowserAuto     SupportedBrowser = "auto"
	BrowserChrome   SupportedBrowser = "chrome"
	BrowserChromium SupportedBrowser = "chromium"
	BrowserFirefox  SupportedBrowser = "firefox"
	BrowserEdge     SupportedBrowser = "edge"
	BrowserOpera    SupportedBrowser = "opera"
)

// AllSupportedBrowsers returns a list of all supported browsers
func AllSupportedBrowsers() []SupportedBrowser {
	return []SupportedBrowser{
		BrowserChrome,
		BrowserChromium,
		BrowserFirefox,
		BrowserEdge,
		BrowserOpera,
	}
}

// String returns the string representation of the browser
func (b SupportedBrowser) String() string {
	return string(b)
}

// ParseBrowser parses a browser string into a SupportedBrowser
func ParseBrowser(s string) (SupportedBrowser, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return BrowserAuto, nil
	case "chrome", "google-chrome":
		return BrowserChrome, nil
	case "chromium":
		return BrowserChromium, nil
	case "firefox", "mozilla", "mozilla-firefox":
		return BrowserFirefox, nil
	case "edge", "microsoft-edge", "msedge":
		return BrowserEdge, nil
	case "opera":
		return BrowserOpera, nil
	default:
		return "", fmt.Errorf("unsupported browser: %s. Supported: chrome, chromium, firefox, edge, opera", s)
	}
}

// ExtractResult contains the result of cookie extraction
type ExtractResult struct {
	Cookies     *config.Cookies
	BrowserName string
}

// Extractor pulls the cookies a browser holds for the backend
type Extractor interface {
	ExtractCookies(ctx context.Context, browser SupportedBrowser, baseURL string, names []string) (*ExtractResult, error)
}

// KookyExtractor reads browser cookie stores from disk
type KookyExtractor struct{}

var _ Extractor = KookyExtractor{}

// ExtractCookies extracts the cookies for baseURL's host. When names is
// empty every cookie for the host is returned.
func (KookyExtractor) ExtractCookies(ctx context.Context, browser SupportedBrowser, baseURL string, names []string) (*ExtractResult, error) {
	host, err := hostOf(baseURL)
	if err != nil {
		return nil, err
	}
	if browser == BrowserAuto {
		return extractFromAllBrowsers(ctx, host, names)
	}
	return extractFromBrowser(ctx, browser, host, names)
}

func hostOf(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("invalid backend URL %q", baseURL)
	}
	return strings.ToLower(u.Hostname()), nil
}

// extractFromAllBrowsers tries to extract cookies from all supported browsers
func extractFromAllBrowsers(ctx context.Context, host string, names []string) (*ExtractResult, error) {
	browsers := []SupportedBrowser{
		BrowserChrome,
		BrowserFirefox,
		BrowserEdge,
		BrowserChromium,
		BrowserOpera,
	}

	var lastErr error
	for _, browser := range browsers {
		result, err := extractFromBrowser(ctx, browser, host, names)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("could not find cookies for %s in any browser: %w", host, lastErr)
	}
	return nil, fmt.Errorf("could not find cookies for %s in any supported browser", host)
}

// extractFromBrowser tries every profile of one browser until one holds
// cookies for host
func extractFromBrowser(ctx context.Context, browser SupportedBrowser, host string, names []string) (*ExtractResult, error) {
	stores := kooky.FindAllCookieStores(ctx)

	var matchingStores []kooky.CookieStore
	var browserName string

	for _, store := range stores {
		name := store.Browser()
		if matchesBrowser(name, browser) {
			matchingStores = append(matchingStores, store)
			if browserName == "" {
				browserName = name
			}
		} else {
			store.Close()
		}
	}

	if len(matchingStores) == 0 {
		return nil, fmt.Errorf("browser %s not found or no cookie store available", browser)
	}
	defer func() {
		for _, s := range matchingStores {
			s.Close()
		}
	}()

	var lastErr error
	for _, store := range matchingStores {
		result, err := extractCookiesFromStore(ctx, store, browserName, store.Profile(), host, names)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// matchesBrowser checks if a browser name matches the target browser
func matchesBrowser(browserName string, target SupportedBrowser) bool {
	browserName = strings.ToLower(browserName)

	switch target {
	case BrowserChrome:
		return strings.Contains(browserName, "chrome") && !strings.Contains(browserName, "chromium")
	case BrowserChromium:
		return strings.Contains(browserName, "chromium")
	case BrowserFirefox:
		return strings.Contains(browserName, "firefox")
	case BrowserEdge:
		return strings.Contains(browserName, "edge")
	case BrowserOpera:
		return strings.Contains(browserName, "opera")
	default:
		return false
	}
}

// storeDomain is the widest domain whose cookies could apply to host: the
// registrable domain for DNS names, the host itself for IPs and single labels
func storeDomain(host string) string {
	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return etld1
	}
	return host
}

// domainMatches reports whether a cookie set for domain is sent to host
func domainMatches(domain, host string) bool {
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	if domain == host {
		return true
	}
	if net.ParseIP(host) != nil {
		return false
	}
	return strings.HasSuffix(host, "."+domain)
}

// extractCookiesFromStore collects the cookies for host from one store
func extractCookiesFromStore(ctx context.Context, store kooky.CookieStore, browserName, profile, host string, names []string) (*ExtractResult, error) {
	cookies := store.TraverseCookies(
		kooky.Valid,
		kooky.DomainContains(storeDomain(host)),
	).OnlyCookies()

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	values := map[string]string{}
	exact := map[string]bool{}
	for cookie := range cookies {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !domainMatches(cookie.Domain, host) {
			continue
		}
		if len(wanted) > 0 && !wanted[cookie.Name] {
			continue
		}
		// host-only cookies win over parent-domain ones
		isExact := strings.TrimPrefix(strings.ToLower(cookie.Domain), ".") == host
		if _, seen := values[cookie.Name]; seen && exact[cookie.Name] && !isExact {
			continue
		}
		values[cookie.Name] = cookie.Value
		exact[cookie.Name] = isExact
	}

	displayName := browserName
	if profile != "" {
		displayName = fmt.Sprintf("%s (profile: %s)", browserName, profile)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("no cookies for %s found in %s. Please log in to the backend in that browser first", host, displayName)
	}
	for _, n := range names {
		if _, ok := values[n]; !ok {
			return nil, fmt.Errorf("cookie %s not found for %s in %s", n, host, displayName)
		}
	}

	return &ExtractResult{
		Cookies:     config.NewCookies(values),
		BrowserName: displayName,
	}, nil
}

// ListAvailableBrowsers returns a list of browsers that have cookie stores
func ListAvailableBrowsers(ctx context.Context) []string {
	stores := kooky.FindAllCookieStores(ctx)
	var browsers []string

	seen := make(map[string]bool)
	for _, store := range stores {
		name := store.Browser()
		if !seen[name] {
			browsers = append(browsers, name)
			seen[name] = true
		}
		store.Close()
	}

	return browsers
}
