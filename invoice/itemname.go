/*
itemname.go - QuickBooks item-name construction

PURPOSE:
  Builds the item name the accounting import matches products against.
  The spacing and pluralization rules here look arbitrary because they
  are: they reproduce the legacy import's product list exactly. Do not
  "fix" the spacing.

RULES (in order):
  1. Work type "EPA Charges" is always exactly "EPA Charges", no prefix.
  2. Hourly work types: "{prefix}-Jani" for janitorial (case-insensitive),
     "{prefix}-Addi" for any other hourly work.
  3. Per-unit work types: "{prefix} {workType} {frequencySuffix}", joined
     by single spaces, trimmed.
     - The work type pluralizes (+"s") when the frequency contains "2x"
       AND the name ends in a letter. Names ending in a digit (unit model
       numbers like "W900") never pluralize.
     - The frequency suffix comes from an ordered rule table; the
       letter/digit spacing check inspects the ORIGINAL work-type name,
       never the pluralized form.

FREQUENCY SUFFIX TABLE:
  weekly, 1x/week  -> "1 X / Wk"
  2x/week          -> "2 X /Wk"  (name ends in letter)
                      "2 X / Wk" (otherwise)
  monthly, 1x/month-> "1 X / MO"
  2x/month         -> "2 X /MO"  (name ends in letter)
                      "2 X / MO" (otherwise)
  anything else    -> passed through unchanged

SEE ALSO:
  - group.go: Calls ItemName per work-log row
*/
package invoice

import (
	"strings"
	"unicode"

	"github.com/fleetwash/report-engine/engine"
)

// epaWorkType short-circuits every other rule.
const epaWorkType = "EPA Charges"

// =============================================================================
// FREQUENCY SUFFIX RULES
// =============================================================================

// freqRule maps one frequency spelling to its rendered suffix. The
// endsInLetter argument reflects the original work-type name.
type freqRule struct {
	match  func(freq string) bool
	render func(endsInLetter bool) string
}

func anyOf(spellings ...string) func(string) bool {
	return func(freq string) bool {
		for _, s := range spellings {
			if strings.EqualFold(freq, s) {
				return true
			}
		}
		return false
	}
}

// First match wins; no match passes the frequency through unchanged.
var freqRules = []freqRule{
	{anyOf("weekly", "1x/week"), func(bool) string { return "1 X / Wk" }},
	{anyOf("2x/week"), func(letter bool) string {
		if letter {
			return "2 X /Wk"
		}
		return "2 X / Wk"
	}},
	{anyOf("monthly", "1x/month"), func(bool) string { return "1 X / MO" }},
	{anyOf("2x/month"), func(letter bool) string {
		if letter {
			return "2 X /MO"
		}
		return "2 X / MO"
	}},
}

// FrequencySuffix renders the frequency portion of a per-unit item name.
// workType must be the original, unpluralized name: its trailing rune
// decides the spacing variant.
func FrequencySuffix(freq, workType string) string {
	letter := endsInLetter(workType)
	for _, rule := range freqRules {
		if rule.match(freq) {
			return rule.render(letter)
		}
	}
	return freq
}

func endsInLetter(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 {
		return false
	}
	return unicode.IsLetter(runes[len(runes)-1])
}

// =============================================================================
// ITEM NAME
// =============================================================================

// ItemName builds the QuickBooks item name for one work-log line.
// prefix is the parent company name, falling back to the client name.
func ItemName(prefix, workType string, rateType engine.RateType, frequency string) string {
	if workType == epaWorkType {
		return epaWorkType
	}

	if rateType == engine.RateHourly {
		if strings.EqualFold(workType, "janitorial") {
			return prefix + "-Jani"
		}
		return prefix + "-Addi"
	}

	// Spacing check precedes pluralization and inspects the original name.
	suffix := FrequencySuffix(frequency, workType)

	name := workType
	if strings.Contains(strings.ToLower(frequency), "2x") && endsInLetter(workType) {
		name += "s"
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{prefix, name, suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Prefix resolves the item-name prefix for one row: parent company when
// present, otherwise the client name.
func Prefix(row engine.WorkLogRow) string {
	if row.ParentCompany != "" {
		return row.ParentCompany
	}
	return row.ClientName
}
