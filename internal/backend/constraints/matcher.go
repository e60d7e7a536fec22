// Package constraints is a pure function deciding whether an offer's
// attribute map satisfies a configured constraint string.
package constraints

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/metamx/mesos-scheduler-backend/internal/backend/driver"
)

// Constraint is one required attribute: a name and the set of acceptable
// values. An empty Values set means "present with any value".
type Constraint struct {
	Name   string
	Values map[string]struct{}
}

// Parse turns a configured constraint string into a slice of Constraints.
// The grammar is a semicolon-separated list of "name:v1,v2,..." or bare
// "name" entries, matching spark's mesos.constraints convention.
func Parse(raw string) ([]Constraint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var constraints []Constraint
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, valuesPart, hasValues := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.Errorf("empty attribute name in constraint %q", entry)
		}

		values := map[string]struct{}{}
		if hasValues {
			for _, v := range strings.Split(valuesPart, ",") {
				v = strings.TrimSpace(v)
				if v != "" {
					values[v] = struct{}{}
				}
			}
		}
		constraints = append(constraints, Constraint{Name: name, Values: values})
	}
	return constraints, nil
}

// Matches reports whether an offer satisfies every configured constraint:
// each required attribute must be present, and if the required value set
// is non-empty the offer's value must fall in it.
func Matches(constraints []Constraint, attributes map[string]driver.Attribute) bool {
	for _, c := range constraints {
		attr, present := attributes[c.Name]
		if !present {
			return false
		}
		if len(c.Values) == 0 {
			continue
		}
		if !attributeSatisfies(attr, c.Values) {
			return false
		}
	}
	return true
}

func attributeSatisfies(attr driver.Attribute, required map[string]struct{}) bool {
	switch attr.Kind {
	case driver.AttributeScalar:
		for v := range required {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f == attr.Scalar {
				return true
			}
		}
		return false
	case driver.AttributeRange:
		for v := range required {
			point, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			for _, r := range attr.Ranges {
				if point >= r.Begin && point <= r.End {
					return true
				}
			}
		}
		return false
	default: // AttributeText
		_, ok := required[attr.Text]
		return ok
	}
}
