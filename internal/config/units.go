package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
)

//go:embed units.yaml
var embeddedUnits []byte

type unitsFile struct {
	Units []struct {
		Name      string   `yaml:"name"`
		Code      int      `yaml:"code"`
		FloodRisk *float64 `yaml:"flood_risk"`
	} `yaml:"units"`
	RainyMonths          []int `yaml:"rainy_months"`
	SchoolYearStartMonth int   `yaml:"school_year_start_month"`
}

// Units is the parsed geographic-unit configuration.
type Units struct {
	Table           *domain.UnitTable
	RainyMonths     []time.Month
	SchoolYearStart time.Month
}

// LoadUnits parses the unit table from a YAML file, or from the embedded
// default when path is empty (UNITS_CONFIG overrides at the call site).
func LoadUnits(path string) (*Units, error) {
	data := embeddedUnits
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read units config: %w", err)
		}
	}

	var f unitsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse units config: %w", err)
	}

	units := make([]domain.GeographicUnit, 0, len(f.Units))
	for _, u := range f.Units {
		units = append(units, domain.GeographicUnit{
			Name:      u.Name,
			Code:      u.Code,
			FloodRisk: u.FloodRisk,
		})
	}

	table, err := domain.NewUnitTable(units)
	if err != nil {
		return nil, err
	}

	months := make([]time.Month, 0, len(f.RainyMonths))
	for _, m := range f.RainyMonths {
		if m < 1 || m > 12 {
			return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("rainy month %d out of range", m)}
		}
		months = append(months, time.Month(m))
	}

	if f.SchoolYearStartMonth < 1 || f.SchoolYearStartMonth > 12 {
		return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("school-year start month %d out of range", f.SchoolYearStartMonth)}
	}

	return &Units{
		Table:           table,
		RainyMonths:     months,
		SchoolYearStart: time.Month(f.SchoolYearStartMonth),
	}, nil
}
