// Package budget tracks estimated memory per asset category, classifies
// pressure against per-category and aggregate budgets, and evicts
// non-persistent assets in (priority, last access) order
package budget

import (
	"fmt"
	"strings"
)

// Category groups assets that share a budget
type Category int

const (
	CategoryTexture Category = iota
	CategoryMesh
	CategoryAudio
	CategoryOther

	CategoryCount
)

var categoryNames = [CategoryCount]string{"texture", "mesh", "audio", "other"}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the defined categories
func (c Category) Valid() bool {
	return c >= 0 && c < CategoryCount
}

// ParseCategory accepts the lowercase category name
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown asset category %q", s)
}

// Pressure is a classification level, ordered by severity
type Pressure int

const (
	PressureNone Pressure = iota
	PressureWarning
	PressureCritical
	PressureEmergency
)

func (p Pressure) String() string {
	switch p {
	case PressureWarning:
		return "warning"
	case PressureCritical:
		return "critical"
	case PressureEmergency:
		return "emergency"
	default:
		return "none"
	}
}

// Thresholds are usage/budget ratios; each level is entered strictly above its ratio
type Thresholds struct {
	Warning   float64
	Critical  float64
	Emergency float64
}

// Classify maps a usage ratio onto a pressure level
func (t Thresholds) Classify(ratio float64) Pressure {
	switch {
	case ratio > t.Emergency:
		return PressureEmergency
	case ratio > t.Critical:
		return PressureCritical
	case ratio > t.Warning:
		return PressureWarning
	default:
		return PressureNone
	}
}
