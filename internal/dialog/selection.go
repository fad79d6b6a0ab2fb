package dialog

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
)

// SelectionKind classifies a patient reply to presented alternatives.
type SelectionKind int

const (
	// SelectionNone means the reply selects nothing and changes nothing;
	// the patient is re-prompted.
	SelectionNone SelectionKind = iota
	// SelectionPicked means one presented slot was chosen.
	SelectionPicked
	// SelectionDeclined means every presented slot was rejected.
	SelectionDeclined
	// SelectionConstraintChange means the patient asked for a different
	// day or time instead of picking a slot.
	SelectionConstraintChange
)

// Selection is the parsed reply to a presented list of alternatives.
type Selection struct {
	Kind SelectionKind
	Slot appointment.Candidate
}

var (
	optionRE       = regexp.MustCompile(`(?i)^(?:option|number|choice|#)?\s*(\d+)\.?$`)
	meridiemTimeRE = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?)`)
	bareNumberRE   = regexp.MustCompile(`\b(\d{1,2})\b`)
)

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5, "sixth": 6,
	"1st": 1, "2nd": 2, "3rd": 3, "4th": 4, "5th": 5, "6th": 6,
}

var declinePhrases = []string{
	"none of these", "none of those", "none work", "neither works",
	"no thanks", "no thank you", "nothing works", "don't work",
	"not interested", "forget it", "i'll pass", "pass on these",
}

var constraintPhrases = []string{
	"different day", "different date", "different time", "another day",
	"another date", "another week", "other times", "other days",
	"what about", "how about", "can we try", "could we try",
	"next week", "the week after", "earlier", "later",
}

// ParseSelection interprets a patient reply to a list of presented slots.
// Slot index and ordinal words win over time matching; a time with an
// explicit am/pm is matched against the slot start times.
func ParseSelection(text string, slots []appointment.Candidate, loc *time.Location) Selection {
	msg := strings.TrimSpace(strings.ToLower(text))
	if msg == "" || len(slots) == 0 {
		return Selection{Kind: SelectionNone}
	}
	if loc == nil {
		loc = time.Local
	}

	for _, p := range declinePhrases {
		if strings.Contains(msg, p) {
			return Selection{Kind: SelectionDeclined}
		}
	}
	if msg == "no" || msg == "nope" {
		return Selection{Kind: SelectionDeclined}
	}
	for _, p := range constraintPhrases {
		if strings.Contains(msg, p) {
			return Selection{Kind: SelectionConstraintChange}
		}
	}

	// "option 2", "#1", bare "3"
	if m := optionRE.FindStringSubmatch(msg); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= len(slots) {
			return Selection{Kind: SelectionPicked, Slot: slots[n-1]}
		}
	}

	// "the first one", "2nd"
	for word, n := range ordinalWords {
		if strings.Contains(msg, word) && n >= 1 && n <= len(slots) {
			return Selection{Kind: SelectionPicked, Slot: slots[n-1]}
		}
	}

	// "2pm", "the 10:30 am one"
	if m := meridiemTimeRE.FindStringSubmatch(msg); len(m) > 0 {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		mer := strings.ReplaceAll(m[3], ".", "")
		if strings.HasPrefix(mer, "p") && hour != 12 {
			hour += 12
		} else if strings.HasPrefix(mer, "a") && hour == 12 {
			hour = 0
		}
		for _, s := range slots {
			start := s.Start.In(loc)
			if start.Hour() == hour && start.Minute() == minute {
				return Selection{Kind: SelectionPicked, Slot: s}
			}
		}
		// explicit time given but nothing matches: treat as asking for
		// a time we didn't offer
		return Selection{Kind: SelectionConstraintChange}
	}

	// a bare number embedded in a sentence, e.g. "let's do 2"
	if m := bareNumberRE.FindStringSubmatch(msg); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= len(slots) {
			return Selection{Kind: SelectionPicked, Slot: slots[n-1]}
		}
	}

	return Selection{Kind: SelectionNone}
}
