// Package numenera holds the Numenera character sheet entities
package numenera

import (
	"strings"
)

// Stat identifies one of the three attribute pools
type Stat string

// Stats
const (
	StatNone      Stat = ""
	StatMight     Stat = "might"
	StatSpeed     Stat = "speed"
	StatIntellect Stat = "intellect"
)

// Stats lists every stat in sheet order
var Stats = []Stat{StatMight, StatSpeed, StatIntellect}

// ParseStat accepts the short form ("might") or the display form ("Might").
// Blank input yields StatNone.
func ParseStat(s string) (Stat, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" {
		return StatNone, true
	}
	for _, stat := range Stats {
		if string(stat) == trimmed {
			return stat, true
		}
	}
	return StatNone, false
}

// Short returns the key used in pool paths
func (s Stat) Short() string {
	return string(s)
}

// IsSet reports whether a stat was chosen
func (s Stat) IsSet() bool {
	return s != StatNone
}

// LocalizationKey returns the catalog key of the stat's display name
func (s Stat) LocalizationKey() string {
	return "NUMENERA.stats." + string(s)
}
