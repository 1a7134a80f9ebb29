// Package marketdata normalizes CS:GO market hash names into the variant
// tuple (base name, StatTrak, Souvenir, condition, phase) that keys the
// unified market_data table.
package marketdata

import (
	"strings"
)

// Wear condition short codes, ordered best to worst.
const (
	ConditionFN = "FN"
	ConditionMW = "MW"
	ConditionFT = "FT"
	ConditionWW = "WW"
	ConditionBS = "BS"
)

var conditionCodes = map[string]string{
	"Factory New":    ConditionFN,
	"Minimal Wear":   ConditionMW,
	"Field-Tested":   ConditionFT,
	"Well-Worn":      ConditionWW,
	"Battle-Scarred": ConditionBS,
}

var conditionNames = []string{
	"Factory New",
	"Minimal Wear",
	"Field-Tested",
	"Well-Worn",
	"Battle-Scarred",
}

// Doppler phase tokens, case sensitive to match CS:GO naming.
var phaseTokens = []string{
	"Ruby", "Sapphire", "Black Pearl", "Emerald",
	"Phase 1", "Phase 2", "Phase 3", "Phase 4",
}

// Variant is a fully normalized item variant.
type Variant struct {
	NameBase   string
	IsStatTrak bool
	IsSouvenir bool
	Condition  string // short code, empty for items without wear
	Phase      string
}

// ParseMarketHashName splits a Steam market hash name like
// "StatTrak™ AK-47 | Redline (Field-Tested)" into its variant parts.
// The condition is returned as a short code.
func ParseMarketHashName(name string) Variant {
	v := Variant{}
	if name == "" {
		return v
	}

	s := name
	v.IsStatTrak = strings.Contains(s, "StatTrak")
	v.IsSouvenir = strings.Contains(s, "Souvenir")

	for _, cond := range conditionNames {
		suffix := "(" + cond + ")"
		if strings.HasSuffix(s, suffix) {
			v.Condition = conditionCodes[cond]
			s = strings.TrimSpace(s[:len(s)-len(suffix)])
			break
		}
	}

	s = strings.ReplaceAll(s, "StatTrak™ ", "")
	s = strings.ReplaceAll(s, "StatTrak ", "")
	s = strings.ReplaceAll(s, "Souvenir ", "")
	v.NameBase = strings.TrimSpace(s)
	v.Phase = DetectPhase(name)
	return v
}

// DetectPhase returns the Doppler phase token contained in the name, if any.
func DetectPhase(name string) string {
	for _, token := range phaseTokens {
		if strings.Contains(name, token) {
			return token
		}
	}
	return ""
}

// ItemKey builds the stable technical key for a variant: non-empty parts
// joined with a pipe. Keys are identical across fetchers so that rows from
// different marketplaces merge into one market_data row.
func (v Variant) ItemKey() string {
	parts := make([]string, 0, 5)
	if v.NameBase != "" {
		parts = append(parts, v.NameBase)
	}
	if v.IsStatTrak {
		parts = append(parts, "StatTrak")
	}
	if v.IsSouvenir {
		parts = append(parts, "Souvenir")
	}
	if v.Condition != "" {
		parts = append(parts, v.Condition)
	}
	if v.Phase != "" {
		parts = append(parts, v.Phase)
	}
	return strings.Join(parts, "|")
}

// DisplayName reconstructs the human-readable market name for a variant.
func (v Variant) DisplayName() string {
	name := v.NameBase
	if v.IsStatTrak {
		if strings.HasPrefix(name, "★ ") {
			name = strings.Replace(name, "★ ", "★ StatTrak™ ", 1)
		} else {
			name = "StatTrak™ " + name
		}
	}
	if v.IsSouvenir && !v.IsStatTrak {
		name = "Souvenir " + name
	}
	if v.Condition != "" {
		for full, code := range conditionCodes {
			if code == v.Condition {
				name = name + " (" + full + ")"
				break
			}
		}
	}
	return name
}
