package masterdata

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/odyssey-books/internal/books"
)

//go:embed chart.yaml
var defaultChartYAML []byte

type chartFile struct {
	Accounts []chartAccount `yaml:"accounts"`
}

type chartAccount struct {
	Code   string            `yaml:"code"`
	Name   string            `yaml:"name"`
	Group  string            `yaml:"group"`
	Type   books.AccountType `yaml:"type"`
	System bool              `yaml:"system"`
}

// DefaultChart returns the built-in chart of accounts in code order.
func DefaultChart() ([]AccountInput, error) {
	return parseChart(defaultChartYAML)
}

func parseChart(data []byte) ([]AccountInput, error) {
	var file chartFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("masterdata: parse chart: %w", err)
	}
	inputs := make([]AccountInput, 0, len(file.Accounts))
	seen := make(map[string]struct{}, len(file.Accounts))
	for _, acc := range file.Accounts {
		in := AccountInput{Code: acc.Code, Name: acc.Name, Group: acc.Group, Type: acc.Type, IsSystem: acc.System}
		if err := in.normalize(); err != nil {
			return nil, fmt.Errorf("masterdata: chart account %q: %w", acc.Code, err)
		}
		if _, dup := seen[in.Code]; dup {
			return nil, fmt.Errorf("masterdata: chart account %q listed twice", in.Code)
		}
		seen[in.Code] = struct{}{}
		inputs = append(inputs, in)
	}
	return inputs, nil
}
