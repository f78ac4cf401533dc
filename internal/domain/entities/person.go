// Package entities contains core domain data structures.
package entities

import (
	"fmt"
	"strings"
	"time"
)

// Sex is the recorded sex of a person. It drives gendered labels and the
// one-biological-parent-per-sex rule.
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

// IsValid reports whether s is one of the known sex values.
func (s Sex) IsValid() bool {
	switch s {
	case SexMale, SexFemale, SexUnknown:
		return true
	default:
		return false
	}
}

// ParseSex converts user input to a Sex. Empty input maps to SexUnknown.
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return SexMale, nil
	case "f", "female":
		return SexFemale, nil
	case "", "u", "unknown":
		return SexUnknown, nil
	default:
		return "", fmt.Errorf("invalid sex: %s (valid: male, female, unknown)", s)
	}
}

// PersonName is a localized rendering of a person's name.
type PersonName struct {
	Locale    string `json:"locale"`
	GivenName string `json:"given_name"`
	Surname   string `json:"surname"`
}

// Person is an individual in a family tree.
type Person struct {
	ID        string       `json:"id"`
	TreeID    string       `json:"tree_id"`
	Sex       Sex          `json:"sex"`
	GivenName string       `json:"given_name"`
	Surname   string       `json:"surname"`
	Names     []PersonName `json:"names,omitempty"`
	Birth     *FuzzyDate   `json:"birth,omitempty"`
	Death     *FuzzyDate   `json:"death,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IsLiving reports whether no death date is recorded.
func (p *Person) IsLiving() bool {
	return p.Death == nil
}

// DisplayName returns "Given Surname", falling back to the ID.
func (p *Person) DisplayName() string {
	name := strings.TrimSpace(p.GivenName + " " + p.Surname)
	if name == "" {
		return p.ID
	}
	return name
}

// NameFor returns the localized name for locale, or the primary name.
func (p *Person) NameFor(locale string) string {
	for _, n := range p.Names {
		if strings.EqualFold(n.Locale, locale) {
			if name := strings.TrimSpace(n.GivenName + " " + n.Surname); name != "" {
				return name
			}
		}
	}
	return p.DisplayName()
}

// NormalizeName converts a name to lowercase for case-insensitive matching.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
