package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alexanderramin/workledger/internal/domain"
)

type mappingFile struct {
	Mappings []struct {
		Customer string `yaml:"customer"`
		Epic     string `yaml:"epic"`
	} `yaml:"mappings"`
}

// LoadEpicMappings reads a YAML customer-to-epic mapping file:
//
//	mappings:
//	  - customer: Acme
//	    epic: ACME-12
func LoadEpicMappings(path string) ([]domain.EpicMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mappings: %w", err)
	}
	return ParseEpicMappings(data)
}

// ParseEpicMappings decodes the YAML mapping format. Duplicate customers are
// rejected.
func ParseEpicMappings(data []byte) ([]domain.EpicMapping, error) {
	var f mappingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: mappings: %w", ErrConfigInvalid, err)
	}

	seen := make(map[string]bool, len(f.Mappings))
	out := make([]domain.EpicMapping, 0, len(f.Mappings))
	for i, m := range f.Mappings {
		customer := strings.TrimSpace(m.Customer)
		if customer == "" || strings.TrimSpace(m.Epic) == "" {
			return nil, fmt.Errorf("%w: mapping %d needs customer and epic", ErrConfigInvalid, i+1)
		}
		if seen[customer] {
			return nil, fmt.Errorf("%w: customer %q mapped twice", ErrConfigInvalid, customer)
		}
		seen[customer] = true
		out = append(out, domain.EpicMapping{Customer: customer, EpicKey: strings.TrimSpace(m.Epic)})
	}
	return out, nil
}
