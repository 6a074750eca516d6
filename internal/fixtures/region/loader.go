package region

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/amirasaad/fxengine/pkg/region"
)

//go:embed regions.json
var regionsJSON []byte

// LoadRegionsJSON loads the region table from a JSON file, or the embedded
// table when path is empty.
func LoadRegionsJSON(path string) (region.Config, error) {
	data := regionsJSON
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return region.Config{}, fmt.Errorf("failed to read file: %w", err)
		}
		data = b
	}
	var cfg region.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return region.Config{}, fmt.Errorf("decode regions: %w", err)
	}
	return cfg, nil
}
