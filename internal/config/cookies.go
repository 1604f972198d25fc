package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Cookies holds the backend session cookies attached to every request
type Cookies struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewCookies creates a cookie set from name/value pairs
func NewCookies(values map[string]string) *Cookies {
	c := &Cookies{values: make(map[string]string, len(values))}
	for k, v := range values {
		if k != "" {
			c.values[k] = v
		}
	}
	return c
}

// Get returns the value of a cookie
func (c *Cookies) Get(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[name]
	return v, ok
}

// Set updates a cookie (thread-safe)
func (c *Cookies) Set(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]string)
	}
	c.values[name] = value
}

// Len returns the number of cookies
func (c *Cookies) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Names returns the cookie names, sorted
func (c *Cookies) Names() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.values))
	for k := range c.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ToMap converts cookies to a map for HTTP requests (thread-safe)
func (c *Cookies) ToMap() map[string]string {
	if c == nil {
		return map[string]string{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := make(map[string]string, len(c.values))
	for k, v := range c.values {
		m[k] = v
	}
	return m
}

// CookieListItem represents a cookie in browser export format
type CookieListItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LoadCookies loads cookies from the cookies file. A missing file is not an
// error: the backend may not require a session.
func LoadCookies() (*Cookies, error) {
	cookiesPath, err := GetCookiesPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cookiesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewCookies(nil), nil
		}
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	return parseCookies(data)
}

// parseCookies parses cookies from JSON data
// Supports both list format [{name, value}] and dict format {name: value}
func parseCookies(data []byte) (*Cookies, error) {
	var dictFormat map[string]string
	if err := json.Unmarshal(data, &dictFormat); err == nil {
		if len(dictFormat) == 0 {
			return nil, fmt.Errorf("no cookies found in file")
		}
		return NewCookies(dictFormat), nil
	}

	var listFormat []CookieListItem
	if err := json.Unmarshal(data, &listFormat); err == nil {
		values := make(map[string]string, len(listFormat))
		for _, item := range listFormat {
			if item.Name != "" {
				values[item.Name] = item.Value
			}
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("no cookies found in file")
		}
		return NewCookies(values), nil
	}

	return nil, fmt.Errorf("invalid cookies format: expected list [{name, value}] or dict {name: value}")
}

// SaveCookies saves cookies to the cookies file
func SaveCookies(cookies *Cookies) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	cookiesPath := configDir + "/cookies.json"

	listFormat := make([]CookieListItem, 0, cookies.Len())
	values := cookies.ToMap()
	for _, name := range cookies.Names() {
		listFormat = append(listFormat, CookieListItem{Name: name, Value: values[name]})
	}

	data, err := json.MarshalIndent(listFormat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	// Owner read/write only
	if err := os.WriteFile(cookiesPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookies file: %w", err)
	}

	return nil
}

// ImportCookies imports cookies from a source file
func ImportCookies(sourcePath string) (*Cookies, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("source file not found: %s", sourcePath)
		}
		return nil, fmt.Errorf("could not read file: %w", err)
	}

	cookies, err := parseCookies(data)
	if err != nil {
		return nil, err
	}

	if err := SaveCookies(cookies); err != nil {
		return nil, err
	}
	return cookies, nil
}
