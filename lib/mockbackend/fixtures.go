// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mockbackend

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// dateLayout is the layout of pass expiry dates and metric days.
const dateLayout = "2006-01-02"

// Fixtures is the data the mock serves.
type Fixtures struct {
	Villages  []Village  `yaml:"villages"`
	Resources []Resource `yaml:"resources"`
	Passes    []Pass     `yaml:"passes"`
}

// Village is a pueblo.
type Village struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Resource is a discountable venue belonging to a village.
type Resource struct {
	ID        int64   `yaml:"id"`
	Name      string  `yaml:"name"`
	VillageID string  `yaml:"village_id"`
	Discount  float64 `yaml:"discount"`
}

// Pass is a Club membership QR token.
type Pass struct {
	Token  string `yaml:"token"`
	Holder string `yaml:"holder"`

	// Expires is the last valid day, YYYY-MM-DD. Empty never expires.
	Expires string `yaml:"expires"`

	// ForceStatus, when set, is returned for every scan of this
	// token with an error body.
	ForceStatus int `yaml:"force_status"`
}

// DefaultFixtures is served when no fixture file is given.
func DefaultFixtures() Fixtures {
	return Fixtures{
		Villages: []Village{
			{ID: "7", Name: "Albarracín"},
			{ID: "12", Name: "Cudillero"},
		},
		Resources: []Resource{
			{ID: 42, Name: "Catedral del Salvador", VillageID: "7", Discount: 15},
			{ID: 43, Name: "Museo de Albarracín", VillageID: "7", Discount: 10},
			{ID: 90, Name: "Pósito de Cudillero", VillageID: "12", Discount: 20},
		},
		Passes: []Pass{
			{Token: "abcdef1234567890", Holder: "Socia de prueba"},
			{Token: "0123456789abcdef", Holder: "Socio de prueba"},
			{Token: "expired000000000", Holder: "Socio caducado", Expires: "2020-12-31"},
			{Token: "servererror00000", Holder: "Fallo forzado", ForceStatus: 500},
		},
	}
}

// LoadFixtures reads fixtures from a YAML file.
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, err
	}
	var fixtures Fixtures
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return Fixtures{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := fixtures.Validate(); err != nil {
		return Fixtures{}, fmt.Errorf("%s: %w", path, err)
	}
	return fixtures, nil
}

// Validate checks references and uniqueness, reporting every problem.
func (f Fixtures) Validate() error {
	var errs []error

	villages := make(map[string]bool, len(f.Villages))
	for _, village := range f.Villages {
		if village.ID == "" {
			errs = append(errs, errors.New("village with empty id"))
			continue
		}
		if villages[village.ID] {
			errs = append(errs, fmt.Errorf("duplicate village %s", village.ID))
		}
		villages[village.ID] = true
	}

	resources := make(map[int64]bool, len(f.Resources))
	for _, resource := range f.Resources {
		if resource.ID <= 0 {
			errs = append(errs, fmt.Errorf("resource %q: id must be positive", resource.Name))
			continue
		}
		if resources[resource.ID] {
			errs = append(errs, fmt.Errorf("duplicate resource %d", resource.ID))
		}
		resources[resource.ID] = true
		if !villages[resource.VillageID] {
			errs = append(errs, fmt.Errorf("resource %d: unknown village %q", resource.ID, resource.VillageID))
		}
		if resource.Discount < 0 || resource.Discount > 100 {
			errs = append(errs, fmt.Errorf("resource %d: discount must be between 0 and 100", resource.ID))
		}
	}

	passes := make(map[string]bool, len(f.Passes))
	for _, pass := range f.Passes {
		if pass.Token == "" {
			errs = append(errs, errors.New("pass with empty token"))
			continue
		}
		if passes[pass.Token] {
			errs = append(errs, fmt.Errorf("duplicate pass %s", pass.Token))
		}
		passes[pass.Token] = true
		if pass.Expires != "" {
			if _, err := time.Parse(dateLayout, pass.Expires); err != nil {
				errs = append(errs, fmt.Errorf("pass %s: expires must be YYYY-MM-DD", pass.Token))
			}
		}
		if pass.ForceStatus != 0 && (pass.ForceStatus < 100 || pass.ForceStatus > 599) {
			errs = append(errs, fmt.Errorf("pass %s: force_status %d is not an HTTP status", pass.Token, pass.ForceStatus))
		}
	}

	return errors.Join(errs...)
}
