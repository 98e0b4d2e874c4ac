package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Catalog maps a filter group heading to the option names a client may ask
// for. It is advisory: the scraper resolves names against the live page.
type Catalog map[string][]string

// Load reads the catalog file. Callers load it per request so edits are
// picked up without a restart.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not load filters: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("could not load filters: invalid JSON in %s: %w", path, err)
	}
	if c == nil {
		c = Catalog{}
	}
	return c, nil
}

// ReadRaw returns the catalog file as stored, after checking it holds valid
// JSON. The contents are not required to match Catalog.
func ReadRaw(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not load filters: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("could not load filters: invalid JSON in %s", path)
	}
	return json.RawMessage(data), nil
}

// Has reports whether any group lists name. Matching is exact.
func (c Catalog) Has(name string) bool {
	for _, options := range c {
		for _, o := range options {
			if o == name {
				return true
			}
		}
	}
	return false
}

// Unknown returns the names the catalog does not list, in input order.
func (c Catalog) Unknown(names []string) []string {
	var out []string
	for _, n := range names {
		if !c.Has(n) {
			out = append(out, n)
		}
	}
	return out
}
