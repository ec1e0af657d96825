package sites

import (
	_ "embed"
	"encoding/json"
	"log"

	"gazo/models"
)

//go:embed engines.json
var enginesJSON []byte

// LoadEngineCatalog parses the embedded engine catalog.
// The catalog is compiled into the binary, so a parse failure is a build problem;
// it is logged and an empty catalog returned.
func LoadEngineCatalog() models.EngineCatalog {
	var catalog models.EngineCatalog
	if err := json.Unmarshal(enginesJSON, &catalog); err != nil {
		log.Printf("[Sites] error unmarshalling engine catalog: %v", err)
		return models.EngineCatalog{}
	}
	return catalog
}

// GetEmbeddedEnginesJSON returns the raw catalog
func GetEmbeddedEnginesJSON() []byte {
	return enginesJSON
}
