package store

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/tpeters15/theme-score-nexus/internal/model"
)

//go:embed framework.yaml
var frameworkYAML []byte

// DefaultFramework returns the built-in scoring framework. It is seeded into
// the database by `migrate` and can be replaced later via SeedFramework.
func DefaultFramework() ([]model.Category, error) {
	var doc struct {
		Categories []model.Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(frameworkYAML, &doc); err != nil {
		return nil, eris.Wrap(err, "store: parse embedded framework")
	}
	// CategoryID is implied by nesting in the YAML; fill it in here so callers
	// always see fully-populated criteria.
	for i := range doc.Categories {
		for j := range doc.Categories[i].Criteria {
			doc.Categories[i].Criteria[j].CategoryID = doc.Categories[i].ID
		}
	}
	return doc.Categories, nil
}
