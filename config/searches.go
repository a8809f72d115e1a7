package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	apperr "autoalert/listingworker/pkg/errors"
)

// SearchSpec is one configured search against a source. Either URL is given
// verbatim, or the source query URL is built from the parameter fields.
// Price bounds and radius use pointers so "unset" is distinguishable from
// zero.
type SearchSpec struct {
	Name       string `yaml:"name" validate:"required"`
	Source     string `yaml:"source" validate:"required,oneof=bazos_sk bazos_cz"`
	URL        string `yaml:"url" validate:"omitempty,url"`
	SearchTerm string `yaml:"search_term"`
	PriceMin   *int   `yaml:"price_min" validate:"omitempty,gte=0"`
	PriceMax   *int   `yaml:"price_max" validate:"omitempty,gte=0"`
	Location   string `yaml:"location"`
	Radius     *int   `yaml:"radius" validate:"omitempty,gt=0"`
	Order      string `yaml:"order"`
	MaxPages   int    `yaml:"max_pages" validate:"gte=1"`
}

type searchesFile struct {
	Searches []SearchSpec `yaml:"searches"`
}

var validate = validator.New()

// LoadSearches reads and validates the searches file
func LoadSearches(path string) ([]SearchSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.NewConfiguration("failed to read searches file "+path, err)
	}

	var file searchesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperr.NewConfiguration("invalid YAML in searches file "+path, err)
	}
	if len(file.Searches) == 0 {
		return nil, apperr.NewConfiguration("searches file "+path+" declares no searches", nil)
	}

	for i := range file.Searches {
		spec := &file.Searches[i]
		if spec.MaxPages == 0 {
			spec.MaxPages = 3
		}
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}

	return file.Searches, nil
}

// Validate checks a single search specification
func (s SearchSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return apperr.NewConfiguration(fmt.Sprintf("search %q is invalid", s.Name), err)
	}
	if s.URL == "" && s.SearchTerm == "" {
		return apperr.NewConfiguration(fmt.Sprintf("search %q needs either url or search_term", s.Name), nil)
	}
	if s.PriceMin != nil && s.PriceMax != nil && *s.PriceMin > *s.PriceMax {
		return apperr.NewConfiguration(fmt.Sprintf("search %q has price_min above price_max", s.Name), nil)
	}
	return nil
}
