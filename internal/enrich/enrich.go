// Package enrich looks up firmographic data for a lead's email domain.
// Lookups are best-effort: the conversation never waits on one and a
// failure costs nothing but a log line.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/stellarlinkco/leadflow/internal/config"
	"github.com/stellarlinkco/leadflow/internal/profile"
)

// ErrDisabled is returned when no enrichment backend is configured.
var ErrDisabled = errors.New("enrich: disabled")

// Free mailbox providers carry no company signal, so their domains are
// never looked up.
var freeMailDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"yahoo.com":      true,
	"hotmail.com":    true,
	"outlook.com":    true,
	"live.com":       true,
	"icloud.com":     true,
	"me.com":         true,
	"aol.com":        true,
	"proton.me":      true,
	"protonmail.com": true,
	"gmx.com":        true,
	"mail.com":       true,
	"zoho.com":       true,
	"yandex.com":     true,
}

type Enricher struct {
	enabled    bool
	baseURL    string
	apiKey     string
	cache      *lru.Cache[string, profile.EnrichmentData]
	httpClient *http.Client
}

func NewEnricher(cfg *config.Config) (*Enricher, error) {
	cache, err := lru.New[string, profile.EnrichmentData](cfg.Enrich.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("enrich cache: %w", err)
	}
	return &Enricher{
		enabled:    cfg.Enrich.Enabled,
		baseURL:    strings.TrimRight(cfg.Enrich.BaseURL, "/"),
		apiKey:     cfg.Enrich.APIKey,
		cache:      cache,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// DomainFromEmail extracts the lookup key from an email address. ok is
// false for malformed addresses and free mailbox providers.
func DomainFromEmail(email string) (string, bool) {
	_, domain, found := strings.Cut(email, "@")
	if !found {
		return "", false
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" || freeMailDomains[domain] {
		return "", false
	}
	return domain, true
}

// Lookup fetches firmographic data for a company domain, serving repeats
// from the cache.
func (e *Enricher) Lookup(ctx context.Context, domain string) (profile.EnrichmentData, error) {
	if !e.enabled || e.baseURL == "" {
		return profile.EnrichmentData{}, ErrDisabled
	}
	if data, ok := e.cache.Get(domain); ok {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/companies/find?domain="+domain, nil)
	if err != nil {
		return profile.EnrichmentData{}, fmt.Errorf("create request: %w", err)
	}
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return profile.EnrichmentData{}, fmt.Errorf("enrich lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return profile.EnrichmentData{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return profile.EnrichmentData{}, fmt.Errorf("enrich http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Name     string `json:"name"`
		Industry string `json:"industry"`
		Size     string `json:"size"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return profile.EnrichmentData{}, fmt.Errorf("decode response: %w", err)
	}

	data := profile.EnrichmentData{
		Company:  decoded.Name,
		Industry: decoded.Industry,
		Size:     decoded.Size,
	}
	e.cache.Add(domain, data)
	return data, nil
}
