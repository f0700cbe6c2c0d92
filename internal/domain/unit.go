package domain

import (
	"fmt"
	"sort"
)

// GeographicUnit is one Metro Manila local government unit. The set of units
// is fixed at configuration time; nothing creates or destroys units at
// runtime. Code is the stable categorical feature value (0-16, alphabetical
// by name in the training data).
type GeographicUnit struct {
	Name string
	Code int

	// FloodRisk is the unit's mean flood-risk score in [0,1]. Nil when the
	// configuration has no score for the unit; the feature engineer then
	// substitutes a neutral midpoint rather than failing.
	FloodRisk *float64
}

// ConfigurationError is a startup-time failure: an unknown geographic unit or
// a missing/invalid static table. It is never raised per prediction.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// UnitTable is the configured geographic-unit registry.
type UnitTable struct {
	units  []GeographicUnit
	byName map[string]GeographicUnit
}

// NewUnitTable builds a UnitTable from configured units. Codes must be unique
// and cover 0..len-1 so the categorical feature stays aligned with training.
func NewUnitTable(units []GeographicUnit) (*UnitTable, error) {
	if len(units) == 0 {
		return nil, &ConfigurationError{Reason: "geographic-unit table is empty"}
	}

	byName := make(map[string]GeographicUnit, len(units))
	byCode := make(map[int]string, len(units))
	for _, u := range units {
		if u.Name == "" {
			return nil, &ConfigurationError{Reason: "geographic unit with empty name"}
		}
		if _, dup := byName[u.Name]; dup {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate geographic unit %q", u.Name)}
		}
		if u.Code < 0 || u.Code >= len(units) {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("unit %q code %d out of range [0,%d)", u.Name, u.Code, len(units))}
		}
		if prev, dup := byCode[u.Code]; dup {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("units %q and %q share code %d", prev, u.Name, u.Code)}
		}
		if u.FloodRisk != nil && (*u.FloodRisk < 0 || *u.FloodRisk > 1) {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("unit %q flood-risk score %g outside [0,1]", u.Name, *u.FloodRisk)}
		}
		byName[u.Name] = u
		byCode[u.Code] = u.Name
	}

	ordered := make([]GeographicUnit, len(units))
	copy(ordered, units)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Code < ordered[j].Code })

	return &UnitTable{units: ordered, byName: byName}, nil
}

// Lookup returns the unit with the given name. Unknown names are a
// ConfigurationError because the unit set is fixed at startup.
func (t *UnitTable) Lookup(name string) (GeographicUnit, error) {
	u, ok := t.byName[name]
	if !ok {
		return GeographicUnit{}, &ConfigurationError{Reason: fmt.Sprintf("unknown geographic unit %q", name)}
	}
	return u, nil
}

// Contains reports whether name is a configured unit.
func (t *UnitTable) Contains(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// All returns the configured units ordered by code.
func (t *UnitTable) All() []GeographicUnit {
	out := make([]GeographicUnit, len(t.units))
	copy(out, t.units)
	return out
}

// Count returns the number of configured units.
func (t *UnitTable) Count() int { return len(t.units) }
