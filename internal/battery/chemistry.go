package battery

import (
	"fmt"
	"strings"
)

type Chemistry string

const (
	Chen2020  Chemistry = "Chen2020"
	OKane2022 Chemistry = "OKane2022"
	Ai2020    Chemistry = "Ai2020"
)

// ChemistryInfo describes one entry of the chemistry catalog.
type ChemistryInfo struct {
	ID    Chemistry
	Label string
	// Options are forwarded to the solver as model options.
	Options map[string]string
}

var catalog = []ChemistryInfo{
	{
		ID:      Chen2020,
		Label:   "Chen2020 (NMC/Graphite)",
		Options: map[string]string{"thermal": "lumped"},
	},
	{
		ID:    OKane2022,
		Label: "OKane2022 (LCO/Graphite)",
		Options: map[string]string{
			"thermal":         "lumped",
			"SEI":             "ec reaction limited",
			"lithium plating": "partially reversible",
		},
	},
	{
		ID:      Ai2020,
		Label:   "Ai2020 (LFP/Graphite)",
		Options: map[string]string{"thermal": "lumped"},
	},
}

// Chemistries returns the catalog in display order.
func Chemistries() []ChemistryInfo {
	out := make([]ChemistryInfo, len(catalog))
	for i, c := range catalog {
		out[i] = c
		out[i].Options = copyOptions(c.Options)
	}
	return out
}

// ParseChemistry accepts a catalog ID (case-insensitive) or its display label.
func ParseChemistry(s string) (Chemistry, error) {
	s = strings.TrimSpace(s)
	for _, c := range catalog {
		if strings.EqualFold(s, string(c.ID)) || s == c.Label {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("unknown chemistry: %q (available: %s)", s, strings.Join(chemistryIDs(), ", "))
}

func (c Chemistry) Valid() bool {
	_, ok := c.info()
	return ok
}

func (c Chemistry) Label() string {
	if info, ok := c.info(); ok {
		return info.Label
	}
	return string(c)
}

func (c Chemistry) Options() map[string]string {
	if info, ok := c.info(); ok {
		return copyOptions(info.Options)
	}
	return nil
}

// Next cycles through the catalog, wrapping at both ends.
func (c Chemistry) Next(dir int) Chemistry {
	idx := 0
	for i, info := range catalog {
		if info.ID == c {
			idx = i
			break
		}
	}
	n := len(catalog)
	return catalog[((idx+dir)%n+n)%n].ID
}

func (c Chemistry) info() (ChemistryInfo, bool) {
	for _, info := range catalog {
		if info.ID == c {
			return info, true
		}
	}
	return ChemistryInfo{}, false
}

func chemistryIDs() []string {
	ids := make([]string, len(catalog))
	for i, c := range catalog {
		ids[i] = string(c.ID)
	}
	return ids
}

func copyOptions(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
