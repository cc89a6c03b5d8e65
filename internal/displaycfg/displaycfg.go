// Package displaycfg implements merge and validation semantics for
// per-club display, branding and TV configuration.
//
// Admin updates are partial: a patch is deep-merged into the stored
// config, so unspecified keys are always preserved.
package displaycfg

import (
	"fmt"
	"regexp"
	"strings"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Limits on the integer display fields.
const (
	MinDaysToDisplay     = 1
	MaxDaysToDisplay     = 14
	MinRefreshIntervalMs = 60_000
	MaxShortLabelLen     = 5
)

// Merge deep-merges patch into base and returns the result. Nested maps
// merge recursively; any other value in patch replaces the base value.
// Neither input is mutated.
func Merge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		patchMap, patchIsMap := v.(map[string]any)
		baseMap, baseIsMap := out[k].(map[string]any)
		if patchIsMap && baseIsMap {
			out[k] = Merge(baseMap, patchMap)
			continue
		}
		out[k] = v
	}
	return out
}

// Errors maps a field path to a validation message.
type Errors map[string]string

// Validate checks a merged display config. It validates only keys that are
// present; absent keys mean "keep whatever was stored".
func Validate(cfg map[string]any) Errors {
	errs := Errors{}

	validateColors(cfg, "", errs)

	if raw, ok := cfg["sessions"]; ok {
		validateSessions(raw, errs)
	}

	if raw, ok := cfg["days_to_display"]; ok {
		if n, ok := intValue(raw); !ok || n < MinDaysToDisplay || n > MaxDaysToDisplay {
			errs["days_to_display"] = fmt.Sprintf("must be an integer between %d and %d", MinDaysToDisplay, MaxDaysToDisplay)
		}
	}

	if raw, ok := cfg["refresh_interval_ms"]; ok {
		if n, ok := intValue(raw); !ok || n < MinRefreshIntervalMs {
			errs["refresh_interval_ms"] = fmt.Sprintf("must be an integer >= %d", MinRefreshIntervalMs)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// validateColors walks the config and checks every key containing "color"
// against the #RRGGBB pattern.
func validateColors(m map[string]any, prefix string, errs Errors) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			validateColors(val, path, errs)
		case string:
			if strings.Contains(strings.ToLower(k), "color") && !colorPattern.MatchString(val) {
				errs[path] = "must be a hex color like #1A2B3C"
			}
		}
	}
}

func validateSessions(raw any, errs Errors) {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		errs["sessions"] = "must be a non-empty array"
		return
	}

	seenShort := make(map[string]bool)
	for i, item := range list {
		field := fmt.Sprintf("sessions[%d]", i)
		session, ok := item.(map[string]any)
		if !ok {
			errs[field] = "must be an object"
			continue
		}

		if _, ok := session["id"]; !ok {
			errs[field+".id"] = "is required"
		}

		label, _ := session["label"].(string)
		if label == "" {
			errs[field+".label"] = "must be a non-empty string"
		}

		short, _ := session["shortLabel"].(string)
		switch {
		case short == "":
			errs[field+".shortLabel"] = "must be a non-empty string"
		case len(short) > MaxShortLabelLen:
			errs[field+".shortLabel"] = fmt.Sprintf("must be at most %d characters", MaxShortLabelLen)
		case seenShort[short]:
			errs[field+".shortLabel"] = "must be unique across sessions"
		default:
			seenShort[short] = true
		}

		start, _ := session["startTime"].(string)
		end, _ := session["endTime"].(string)
		switch {
		case !isHHMM(start):
			errs[field+".startTime"] = "must be HH:MM"
		case !isHHMM(end):
			errs[field+".endTime"] = "must be HH:MM"
		case start >= end:
			errs[field+".startTime"] = "must be before endTime"
		}
	}
}

// isHHMM checks for a zero-padded 24-hour HH:MM string. Lexicographic
// comparison of two such strings matches chronological order.
func isHHMM(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hh := s[:2]
	mm := s[3:]
	for _, c := range hh + mm {
		if c < '0' || c > '9' {
			return false
		}
	}
	return hh <= "23" && mm <= "59"
}

// intValue coerces JSON numbers (float64 after unmarshal) and ints.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
