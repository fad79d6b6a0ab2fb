package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/schema"
)

// Confidence levels assigned by the rule extractor. Explicit markers ("my
// name is", "at 3pm") score high; values inferred from loose free text score
// low enough to trigger a confirmation question downstream.
const (
	confidenceExplicit = 0.9
	confidenceReply    = 0.8
	confidenceInferred = 0.5
)

var (
	phoneRE    = regexp.MustCompile(`(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	emailCapRE = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	clockRE   = regexp.MustCompile(`(?i)\b(?:at\s+|around\s+|about\s+)?(\d{1,2})(?::(\d{2}))?\s*(a\.m\.|p\.m\.|am|pm)\b`)
	clock24RE = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	noonRE    = regexp.MustCompile(`(?i)\b(noon|midday)\b`)

	isoDateRE   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRE = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	longDateRE  = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)

	durationRE = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:minutes?|mins?)\b`)
	hourDurRE  = regexp.MustCompile(`(?i)\b(an?|1|one|2|two)\s*hours?\b`)

	reasonMarkerRE = regexp.MustCompile(`(?i)\b(?:because of|because|for my|about my|regarding)\s+(.{3,80})`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var nameMarkerPatterns = buildNameMarkerPatterns()

const nameWordPattern = `[\p{L}][\p{L}\p{M}'\-]*`

func buildNameMarkerPatterns() []*regexp.Regexp {
	name := nameWordPattern + `(?:\s+` + nameWordPattern + `){0,2}`
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)my name is\s+(` + name + `)`),
		regexp.MustCompile(`(?i)i'?m\s+(` + name + `)(?:\s|,|\.|!|$)`),
		regexp.MustCompile(`(?i)i am\s+(` + name + `)(?:\s|,|\.|!|$)`),
		regexp.MustCompile(`(?i)this is\s+(` + name + `)`),
		regexp.MustCompile(`(?i)call me\s+(` + name + `)`),
	}
}

// RuleExtractor is the deterministic fallback extractor. It resolves relative
// dates ("tomorrow", "next Tuesday") against an injected clock so tests stay
// stable.
type RuleExtractor struct {
	loc *time.Location
	now func() time.Time
}

// NewRuleExtractor builds a rule extractor. loc defaults to time.Local and
// now to time.Now when nil.
func NewRuleExtractor(loc *time.Location, now func() time.Time) *RuleExtractor {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &RuleExtractor{loc: loc, now: now}
}

// Extract scans the utterance with the pattern set and returns every field it
// can bind. It never returns an error.
func (e *RuleExtractor) Extract(_ context.Context, utterance string, asked schema.Field, current appointment.Request) ([]FieldUpdate, error) {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return nil, nil
	}
	lower := strings.ToLower(text)

	var updates []FieldUpdate
	add := func(f schema.Field, value string, confidence float64) {
		if value == "" {
			return
		}
		// Do not overwrite already-collected fields unless the patient was
		// just asked about one.
		if f != asked && schema.Get(current, f) != "" {
			return
		}
		for _, u := range updates {
			if u.Field == f {
				return
			}
		}
		updates = append(updates, FieldUpdate{Field: f, Value: value, Confidence: confidence})
	}

	if email := emailCapRE.FindString(text); email != "" {
		add(schema.FieldEmail, email, confidenceExplicit)
	}
	if phone := e.findPhone(text); phone != "" {
		add(schema.FieldPhone, phone, confidenceExplicit)
	}
	if name, conf := e.findName(text, asked); name != "" {
		add(schema.FieldPatientName, name, conf)
	}
	if sp, ok := appointment.ParseSpecialty(lower); ok {
		conf := confidenceInferred
		if asked == schema.FieldSpecialty || strings.Contains(lower, strings.ToLower(string(sp))) {
			conf = confidenceExplicit
		}
		add(schema.FieldSpecialty, string(sp), conf)
	}
	if date, conf := e.findDate(lower, text); date != "" {
		add(schema.FieldDate, date, conf)
	}
	if clock, conf := e.findTime(text); clock != "" {
		add(schema.FieldTime, clock, conf)
	}
	if dur := findDuration(lower); dur != "" {
		add(schema.FieldDuration, dur, confidenceExplicit)
	}
	if m := reasonMarkerRE.FindStringSubmatch(text); len(m) == 2 {
		add(schema.FieldReason, strings.TrimRight(strings.TrimSpace(m[1]), ".!?"), confidenceInferred)
	}

	// A short bare reply to a direct question binds to the asked field when
	// nothing above claimed it.
	if asked != "" && !hasField(updates, asked) {
		if value, ok := e.bareReply(text, asked); ok {
			updates = append(updates, FieldUpdate{Field: asked, Value: value, Confidence: confidenceReply})
		}
	}

	return updates, nil
}

func hasField(updates []FieldUpdate, f schema.Field) bool {
	for _, u := range updates {
		if u.Field == f {
			return true
		}
	}
	return false
}

func (e *RuleExtractor) findPhone(text string) string {
	match := phoneRE.FindString(text)
	if match == "" {
		return ""
	}
	digits := 0
	for _, r := range match {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 10 || digits > 11 {
		return ""
	}
	return strings.TrimSpace(match)
}

func (e *RuleExtractor) findName(text string, asked schema.Field) (string, float64) {
	for _, pattern := range nameMarkerPatterns {
		if m := pattern.FindStringSubmatch(text); len(m) >= 2 {
			if name := cleanName(m[1]); name != "" {
				return name, confidenceExplicit
			}
		}
	}
	if asked == schema.FieldPatientName {
		if name := cleanName(text); name != "" {
			return name, confidenceReply
		}
	}
	return "", 0
}

// nameStopwords are common words that end a name capture, so "I'm Maria
// Lopez and I need..." yields "Maria Lopez" rather than "Maria Lopez and".
var nameStopwords = map[string]bool{
	"and": true, "but": true, "the": true, "here": true, "new": true,
	"calling": true, "looking": true, "trying": true, "hoping": true,
	"interested": true, "wondering": true, "please": true, "thanks": true,
}

func cleanName(raw string) string {
	words := strings.Fields(strings.TrimSpace(raw))
	kept := make([]string, 0, 3)
	for _, w := range words {
		w = strings.Trim(w, ".,!?\"()")
		if w == "" {
			continue
		}
		if nameStopwords[strings.ToLower(w)] {
			break
		}
		first, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsLetter(first) {
			return ""
		}
		kept = append(kept, w)
		if len(kept) == 3 {
			break
		}
	}
	if len(kept) == 0 || len(words) > 4 {
		return ""
	}
	return strings.Join(kept, " ")
}

func (e *RuleExtractor) findDate(lower, original string) (string, float64) {
	today := e.today()

	if m := isoDateRE.FindString(original); m != "" {
		return m, confidenceExplicit
	}
	if m := slashDateRE.FindString(original); m != "" {
		return m, confidenceExplicit
	}
	if m := longDateRE.FindStringSubmatch(original); len(m) >= 3 {
		month := m[1]
		day := m[2]
		year := m[3]
		if year == "" {
			year = strconv.Itoa(today.Year())
		}
		candidate := fmt.Sprintf("%s %s, %s", month, day, year)
		if parsed, err := appointment.ParseDate(candidate, e.loc); err == nil {
			// A month-day with no year that already passed means next year.
			if m[3] == "" && parsed.Before(today) {
				candidate = fmt.Sprintf("%s %s, %d", month, day, today.Year()+1)
			}
			return candidate, confidenceExplicit
		}
	}

	if strings.Contains(lower, "day after tomorrow") {
		return today.AddDate(0, 0, 2).Format("2006-01-02"), confidenceExplicit
	}
	if strings.Contains(lower, "tomorrow") {
		return today.AddDate(0, 0, 1).Format("2006-01-02"), confidenceExplicit
	}
	if strings.Contains(lower, "today") {
		return today.Format("2006-01-02"), confidenceExplicit
	}

	for word, day := range weekdays {
		if !strings.Contains(lower, word) {
			continue
		}
		ahead := int(day-today.Weekday()+7) % 7
		if ahead == 0 {
			ahead = 7
		}
		if strings.Contains(lower, "next "+word) && ahead < 7 {
			ahead += 7
		}
		conf := confidenceInferred
		if strings.Contains(lower, "on "+word) || strings.Contains(lower, "next "+word) || strings.Contains(lower, "this "+word) {
			conf = confidenceExplicit
		}
		return today.AddDate(0, 0, ahead).Format("2006-01-02"), conf
	}

	return "", 0
}

func (e *RuleExtractor) findTime(text string) (string, float64) {
	if m := clockRE.FindStringSubmatch(text); len(m) >= 4 {
		hour := m[1]
		minute := m[2]
		meridiem := strings.ToUpper(strings.ReplaceAll(m[3], ".", ""))
		if minute == "" {
			minute = "00"
		}
		return fmt.Sprintf("%s:%s %s", hour, minute, meridiem), confidenceExplicit
	}
	if noonRE.MatchString(text) {
		return "12:00 PM", confidenceExplicit
	}
	if m := clock24RE.FindString(text); m != "" {
		return m, confidenceInferred
	}
	return "", 0
}

func findDuration(lower string) string {
	if m := durationRE.FindStringSubmatch(lower); len(m) == 2 {
		return m[1]
	}
	if m := hourDurRE.FindStringSubmatch(lower); len(m) == 2 {
		switch m[1] {
		case "2", "two":
			return "120"
		default:
			return "60"
		}
	}
	return ""
}

// bareReply validates a short answer against the asked field and returns the
// value to store. Implausible replies are dropped so the dialogue re-prompts.
func (e *RuleExtractor) bareReply(text string, asked schema.Field) (string, bool) {
	trimmed := strings.TrimRight(strings.TrimSpace(text), ".!")
	switch asked {
	case schema.FieldPatientName:
		name := cleanName(trimmed)
		return name, name != ""
	case schema.FieldSpecialty:
		if sp, ok := appointment.ParseSpecialty(trimmed); ok {
			return string(sp), true
		}
	case schema.FieldReason:
		if len(trimmed) >= 3 {
			return trimmed, true
		}
	case schema.FieldDate:
		if _, err := appointment.ParseDate(trimmed, e.loc); err == nil {
			return trimmed, true
		}
	case schema.FieldTime:
		if _, err := appointment.ParseClock(trimmed); err == nil {
			return trimmed, true
		}
	case schema.FieldPhone:
		if phone := e.findPhone(trimmed); phone != "" {
			return phone, true
		}
	case schema.FieldEmail:
		if emailCapRE.MatchString(trimmed) {
			return emailCapRE.FindString(trimmed), true
		}
	case schema.FieldDuration:
		if _, err := strconv.Atoi(trimmed); err == nil {
			return trimmed, true
		}
	}
	return "", false
}

func (e *RuleExtractor) today() time.Time {
	now := e.now().In(e.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
}
