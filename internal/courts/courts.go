// Package courts holds the static court directory used to validate queries.
package courts

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// CourtType is the kind of court a query is addressed to.
type CourtType string

const (
	HighCourt     CourtType = "high_court"
	DistrictCourt CourtType = "district_court"
)

// Types lists every supported court type.
var Types = []CourtType{HighCourt, DistrictCourt}

// ParseCourtType accepts the canonical names plus the common spellings
// ("High Court", "highcourt", "high-court").
func ParseCourtType(s string) (CourtType, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch norm {
	case "high_court", "highcourt":
		return HighCourt, true
	case "district_court", "districtcourt":
		return DistrictCourt, true
	}
	return "", false
}

// Valid reports whether t is a known court type.
func (t CourtType) Valid() bool {
	return t == HighCourt || t == DistrictCourt
}

// CaseType is a case-type code with its description.
type CaseType struct {
	Code string `toml:"code" json:"code"`
	Name string `toml:"name" json:"name"`
}

//go:embed courts.toml
var defaultDirectory []byte

type directoryFile struct {
	Courts    map[string][]string `toml:"courts"`
	CaseTypes []CaseType          `toml:"case_types"`
}

// Directory maps court types to the court names accepted for them. It is
// read-only after construction.
type Directory struct {
	courts    map[CourtType][]string
	lookup    map[CourtType]map[string]string
	caseTypes []CaseType
}

// Default returns the directory compiled into the binary.
func Default() (*Directory, error) {
	return Parse(defaultDirectory)
}

// Load reads a directory from a TOML file, or the default one when path is
// empty.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read court directory: %w", err)
	}
	return Parse(data)
}

// Parse builds a directory from TOML.
func Parse(data []byte) (*Directory, error) {
	var file directoryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse court directory: %w", err)
	}

	d := &Directory{
		courts:    make(map[CourtType][]string),
		lookup:    make(map[CourtType]map[string]string),
		caseTypes: file.CaseTypes,
	}
	for key, names := range file.Courts {
		courtType, ok := ParseCourtType(key)
		if !ok {
			return nil, fmt.Errorf("unknown court type %q in court directory", key)
		}
		index := make(map[string]string, len(names))
		var list []string
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			folded := strings.ToLower(name)
			if _, dup := index[folded]; dup {
				continue
			}
			index[folded] = name
			list = append(list, name)
		}
		d.courts[courtType] = list
		d.lookup[courtType] = index
	}

	for _, t := range Types {
		if len(d.courts[t]) == 0 {
			return nil, fmt.Errorf("court directory has no courts for %s", t)
		}
	}
	sort.Slice(d.caseTypes, func(i, j int) bool { return d.caseTypes[i].Code < d.caseTypes[j].Code })
	return d, nil
}

// Canonical returns the directory spelling of name for courtType.
func (d *Directory) Canonical(courtType CourtType, name string) (string, bool) {
	canonical, ok := d.lookup[courtType][strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// Names returns a copy of the court names for courtType in file order.
func (d *Directory) Names(courtType CourtType) []string {
	return append([]string(nil), d.courts[courtType]...)
}

// CaseTypes returns the known case-type codes sorted by code.
func (d *Directory) CaseTypes() []CaseType {
	return append([]CaseType(nil), d.caseTypes...)
}
