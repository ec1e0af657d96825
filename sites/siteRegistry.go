package sites

import (
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"gazo/config"
	"gazo/downloader"
)

const (
	EngineGoogle     = "google"
	EngineBing       = "bing"
	EngineDuckDuckGo = "duckduckgo"
	EngineSearxng    = "searxng"
	EngineBrave      = "brave"
	EngineSerpAPI    = "serpapi"
	EngineAuto       = "auto"
)

// Registry holds the available search engines by name
type Registry struct {
	mu      sync.RWMutex
	engines map[string]downloader.Engine
}

func NewRegistry(engines ...downloader.Engine) *Registry {
	r := &Registry{engines: make(map[string]downloader.Engine, len(engines))}
	for _, e := range engines {
		r.Register(e)
	}
	return r
}

// Register adds or replaces an engine. Engines without a name are ignored.
func (r *Registry) Register(e downloader.Engine) {
	if e == nil {
		return
	}
	name := normalizeName(e.Name())
	if name == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = e
}

func (r *Registry) Get(name string) (downloader.Engine, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[normalizeName(name)]
	return e, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered engine names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engines returns the registered engines sorted by name
func (r *Registry) Engines() []downloader.Engine {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]downloader.Engine, 0, len(names))
	for _, name := range names {
		out = append(out, r.engines[name])
	}
	return out
}

type ResolveInput struct {
	Requested       string
	Configured      string
	BraveAPIKey     string
	SearxngEndpoint string
	SerpAPIKey      string
}

// Resolve picks the engine to use: the one asked for, then the configured default,
// then the first engine that has credentials, then Google
func (r *Registry) Resolve(input ResolveInput) string {
	requested := normalizeName(input.Requested)
	if requested != "" && requested != EngineAuto && r.Has(requested) {
		return requested
	}

	configured := normalizeName(input.Configured)
	if configured != "" && configured != EngineAuto && r.Has(configured) {
		return configured
	}

	if strings.TrimSpace(input.BraveAPIKey) != "" && r.Has(EngineBrave) {
		return EngineBrave
	}
	if strings.TrimSpace(input.SearxngEndpoint) != "" && r.Has(EngineSearxng) {
		return EngineSearxng
	}
	if strings.TrimSpace(input.SerpAPIKey) != "" && r.Has(EngineSerpAPI) {
		return EngineSerpAPI
	}
	return EngineGoogle
}

// ResolveFromSettings is Resolve with the credentials taken from s
func (r *Registry) ResolveFromSettings(requested string, s config.Settings) string {
	return r.Resolve(ResolveInput{
		Requested:       requested,
		Configured:      s.Engine,
		BraveAPIKey:     s.BraveAPIKey,
		SearxngEndpoint: s.SearxngEndpoint,
		SerpAPIKey:      s.SerpAPIKey,
	})
}

// BuildRegistry constructs every engine from the current settings.
// Engines that need a key are registered regardless; they return a config error
// when searched without one so the user learns what is missing.
func BuildRegistry(s config.Settings, client *downloader.HTTPClient) *Registry {
	executor := downloader.NewRequestExecutor(client, s.BrowserFallback, s.BrowserScrolls)
	api := downloader.NewAPIClient(client, time.Duration(s.TimeoutSeconds)*time.Second)

	r := NewRegistry(
		NewGoogleEngine(executor),
		NewBingEngine(executor),
		NewDuckDuckGoEngine(client, api),
		NewSearxngEngine(client, s.SearxngEndpoint, s.SearxngAPIKey),
		NewBraveEngine(client, s.BraveAPIKey),
		NewSerpAPIEngine(client, s.SerpAPIKey),
	)
	log.Printf("[Sites] Registered engines: %s", strings.Join(r.Names(), ", "))
	return r
}

func normalizeName(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}
