package model

import (
	"fmt"
	"strings"
)

// ThemeKind discriminates the loosely-typed theme field: documents store
// it as a string, a numeric code, or not at all.
type ThemeKind int

const (
	ThemeAbsent ThemeKind = iota
	ThemeCoded
	ThemeNamed
)

// Theme is the decoded form of the theme field. Normalization operates
// only on this variant, never on the raw document value.
type Theme struct {
	Kind ThemeKind
	Code int
	Name string
}

var themeNames = map[int]string{
	1: "Health",
	2: "Growth",
	3: "Wealth",
	4: "Tribe",
	5: "Home",
}

var themeCodes = func() map[string]int {
	m := make(map[string]int, len(themeNames))
	for code, name := range themeNames {
		m[strings.ToLower(name)] = code
	}
	return m
}()

func ThemeFromCode(code int) Theme {
	return Theme{Kind: ThemeCoded, Code: code}
}

// ThemeFromName case-folds the input and re-maps it through the numeric
// aliases, so "health" and "Health" both decode to code 1. Names outside
// the alias set are kept verbatim.
func ThemeFromName(name string) Theme {
	name = strings.TrimSpace(name)
	if name == "" {
		return Theme{}
	}
	if code, ok := themeCodes[strings.ToLower(name)]; ok {
		return Theme{Kind: ThemeCoded, Code: code}
	}
	return Theme{Kind: ThemeNamed, Name: name}
}

// Display renders the theme for the metadata block: the canonical name
// for known codes, "Theme #<n>" for unknown codes, the raw name for
// named themes, and "" when absent.
func (t Theme) Display() string {
	switch t.Kind {
	case ThemeCoded:
		if name, ok := themeNames[t.Code]; ok {
			return name
		}
		return fmt.Sprintf("Theme #%d", t.Code)
	case ThemeNamed:
		return t.Name
	default:
		return ""
	}
}

func (t Theme) Absent() bool {
	return t.Kind == ThemeAbsent
}
