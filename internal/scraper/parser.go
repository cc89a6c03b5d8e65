package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shedboard/shedboard-api/internal/models"
)

// tinnieMarkers are the raw-name phrases that classify a boat as a tinnie
// rather than a rowing shell. Case-insensitive substring match.
// TODO: confirm this list against current production fleet names before
// onboarding further clubs; upstream is not consistent about it.
var tinnieMarkers = []string{"tinnie", "training barge"}

var (
	boatTypeRe = regexp.MustCompile(`^\d+[Xx][+\-]?$|^\d+[+\-]$`)
	classRe    = regexp.MustCompile(`\b(RACER|CLUB)\b`)
	weightRe   = regexp.MustCompile(`\b(\d+)\s*KG\b`)
	nicknameRe = regexp.MustCompile(`\(([^()]*)\)\s*$`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// ParsedName is the structured form of an upstream boat display name.
// Raw names follow "<type> <class> - <name> [<weight> KG] [(<nickname>)]",
// with every part optional except the name.
type ParsedName struct {
	BoatType       string // leading token like 2X, 4+, 2-
	Classification string // RACER or CLUB
	WeightKg       int
	Nickname       string
	Name           string
	Category       models.BoatCategory
}

// ParseBoatName extracts the structured fields from a raw display name.
func ParseBoatName(raw string) ParsedName {
	p := ParsedName{Category: models.BoatCategoryRace}

	lower := strings.ToLower(raw)
	for _, marker := range tinnieMarkers {
		if strings.Contains(lower, marker) {
			p.Category = models.BoatCategoryTinnie
			break
		}
	}

	work := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))

	// Final parenthesized group is the nickname.
	if m := nicknameRe.FindStringSubmatch(work); m != nil {
		p.Nickname = strings.TrimSpace(spaceRe.ReplaceAllString(m[1], " "))
		work = strings.TrimSpace(strings.TrimSuffix(work, m[0]))
	}

	if m := weightRe.FindStringSubmatch(work); m != nil {
		if kg, err := strconv.Atoi(m[1]); err == nil {
			p.WeightKg = kg
		}
		work = strings.TrimSpace(strings.Replace(work, m[0], "", 1))
	}

	if m := classRe.FindString(work); m != "" {
		p.Classification = m
		work = strings.TrimSpace(strings.Replace(work, m, "", 1))
	}

	if fields := strings.Fields(work); len(fields) > 0 && boatTypeRe.MatchString(fields[0]) {
		p.BoatType = strings.ToUpper(fields[0])
		work = strings.TrimSpace(strings.TrimPrefix(work, fields[0]))
	}

	// Whatever remains, minus separator dashes, is the name.
	work = strings.Trim(work, " -")
	p.Name = strings.TrimSpace(spaceRe.ReplaceAllString(work, " "))

	return p
}

// String reassembles the canonical display form. For every canonical
// input, ParseBoatName(p.String()) preserves all semantic fields.
func (p ParsedName) String() string {
	var b strings.Builder
	if p.BoatType != "" {
		b.WriteString(p.BoatType)
		b.WriteByte(' ')
	}
	if p.Classification != "" {
		b.WriteString(p.Classification)
		b.WriteByte(' ')
	}
	b.WriteString("- ")
	b.WriteString(p.Name)
	if p.WeightKg > 0 {
		fmt.Fprintf(&b, " %d KG", p.WeightKg)
	}
	if p.Nickname != "" {
		fmt.Fprintf(&b, " (%s)", p.Nickname)
	}
	return b.String()
}

// timeLayouts are the observed upstream time formats, tried in order.
var timeLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04 pm", "3:04pm"}

// NormalizeTime parses an upstream time string into a zero-padded
// 24-hour HH:MM string.
func NormalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("unrecognized time %q", s)
}
