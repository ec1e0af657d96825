package models

// RequiredFields defines which settings an engine needs before it can be used.
// The settings window shows the matching entries and validation refuses a search
// on an engine whose fields are empty.
type RequiredFields struct {
	APIKey   bool `json:"api_key"`  // Whether an API key must be configured
	Endpoint bool `json:"endpoint"` // Whether an instance URL must be configured
}

// EngineInfo describes one image search engine.
// Name is the registry key, DisplayName is shown to users.
type EngineInfo struct {
	Name           string         `json:"name"`            // Internal identifier (e.g., "searxng")
	DisplayName    string         `json:"display_name"`    // User-facing name (e.g., "SearXNG")
	Description    string         `json:"description"`     // One line shown under the engine select
	Scraped        bool           `json:"scraped"`         // Results come from an HTML page rather than an API
	RequiredFields RequiredFields `json:"required_fields"` // Which settings this engine requires
}

// EngineCatalog is the root structure of the embedded engines.json file
type EngineCatalog struct {
	Engines []EngineInfo `json:"engines"`
}

// Find returns the catalog entry for name
func (c EngineCatalog) Find(name string) (EngineInfo, bool) {
	for _, e := range c.Engines {
		if e.Name == name {
			return e, true
		}
	}
	return EngineInfo{}, false
}

// DisplayNames returns the display names in catalog order
func (c EngineCatalog) DisplayNames() []string {
	names := make([]string, 0, len(c.Engines))
	for _, e := range c.Engines {
		names = append(names, e.DisplayName)
	}
	return names
}

// NameForDisplay maps a display name back to the registry key
func (c EngineCatalog) NameForDisplay(display string) string {
	for _, e := range c.Engines {
		if e.DisplayName == display {
			return e.Name
		}
	}
	return ""
}
