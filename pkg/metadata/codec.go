// Package metadata encodes a denormalized snapshot of a task or story
// into the note field of a reminder, and parses it back. The text
// layout is a durable contract: fixed key order, a divider line and a
// marker line proving machine origin.
package metadata

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// Divider terminates the key/value block.
	Divider = "------"
	// Marker proves a note was written by this tool. A note carrying
	// the marker is system-owned; a note without it is foreign and must
	// not be overwritten destructively.
	Marker = "[Auto-synced from BOB]"

	dateLayout  = "2006-01-02"
	placeholder = "-"
)

// EntityType tags which collection a block's id points into.
type EntityType string

const (
	EntityTask  EntityType = "task"
	EntityStory EntityType = "story"
)

// Fields is the structured content of one metadata block. Start and End
// carry day precision only; time-of-day lives in the reminder's native
// date fields.
type Fields struct {
	Type        EntityType
	ID          string
	Title       string
	Description string
	Story       string
	StoryName   string
	Goal        string
	Theme       string
	Start       *time.Time
	End         *time.Time
	Sprint      string
}

var idPattern = regexp.MustCompile(`^(task|story):(\S+)$`)

// Encode renders the block in its fixed line order. Blank values render
// as a dash so a later parse can tell "absent" from "parse failure".
// The Description and Story-Name lines are omitted entirely when blank.
func Encode(f Fields) string {
	var b strings.Builder
	writeLine(&b, "Task", f.Title)
	if strings.TrimSpace(f.Description) != "" {
		writeLine(&b, "Description", f.Description)
	}
	writeLine(&b, "Story", f.Story)
	if strings.TrimSpace(f.StoryName) != "" {
		writeLine(&b, "Story-Name", f.StoryName)
	}
	writeLine(&b, "Goal", f.Goal)
	writeLine(&b, "Theme", f.Theme)
	writeLine(&b, "Start", formatDate(f.Start))
	writeLine(&b, "End", formatDate(f.End))
	writeLine(&b, "Sprint", f.Sprint)
	writeLine(&b, "BOB-ID", string(f.Type)+":"+f.ID)
	b.WriteString(Divider + "\n")
	b.WriteString(Marker)
	return b.String()
}

func writeLine(b *strings.Builder, key, value string) {
	if strings.TrimSpace(value) == "" {
		value = placeholder
	} else {
		value = escapeValue(value)
	}
	b.WriteString(key + ": " + value + "\n")
}

// Values are kept single-line on the wire: backslashes and line breaks
// escape as \\, \n and \r so multi-line text survives a round trip.
func escapeValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func unescapeValue(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			// Unknown escapes pass through untouched; hand-typed
			// backslashes in foreign-ish notes stay intact.
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// IsSystemNote reports whether the note carries the marker.
func IsSystemNote(note string) bool {
	return strings.Contains(note, Marker)
}

// Parse reads a block back out of a note. It is tolerant: lines that do
// not look like "Key: value" are skipped, and a dash collapses back to
// the zero value. The block is invalid only when no well-formed BOB-ID
// line is found.
func Parse(note string) (*Fields, bool) {
	f := &Fields{}
	hasID := false
	for key, value := range lines(note) {
		switch key {
		case "Task":
			f.Title = value
		case "Description":
			f.Description = value
		case "Story":
			f.Story = value
		case "Story-Name":
			f.StoryName = value
		case "Goal":
			f.Goal = value
		case "Theme":
			f.Theme = value
		case "Start":
			f.Start = parseDate(value)
		case "End":
			f.End = parseDate(value)
		case "Sprint":
			f.Sprint = value
		case "BOB-ID":
			m := idPattern.FindStringSubmatch(value)
			if m == nil {
				continue
			}
			f.Type = EntityType(m[1])
			f.ID = m[2]
			hasID = true
		}
	}
	if !hasID {
		return nil, false
	}
	return f, true
}

// requiredKeys are flagged by Validate when missing from a block.
var requiredKeys = []string{"Goal", "Theme", "Start", "End", "Sprint", "BOB-ID"}

// Validate reports structural issues with a note's block: missing
// required keys and a malformed BOB-ID value. Issues are advisory; they
// never block a parse. The returned strings are meant for logging.
func Validate(note string) []string {
	seen := map[string]string{}
	for key, value := range lines(note) {
		seen[key] = value
	}
	var issues []string
	for _, key := range requiredKeys {
		if _, ok := seen[key]; !ok {
			issues = append(issues, "missing "+key+" line")
		}
	}
	if id, ok := seen["BOB-ID"]; ok && !idPattern.MatchString(id) {
		issues = append(issues, "malformed BOB-ID value "+strconv.Quote(id))
	}
	return issues
}

// lines iterates the "Key: value" lines of a note, skipping anything
// non-conforming. Dash placeholders collapse to "".
func lines(note string) func(yield func(string, string) bool) {
	return func(yield func(string, string) bool) {
		for _, line := range strings.Split(note, "\n") {
			key, value, ok := strings.Cut(line, ": ")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)
			if key == "" || strings.Contains(key, " ") {
				continue
			}
			if value == placeholder {
				value = ""
			} else {
				value = unescapeValue(value)
			}
			if !yield(key, value) {
				return
			}
		}
	}
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil
	}
	return &t
}
