// Package titles handles the presentation conventions layered onto
// reminder titles: the bracketed sprint tag and the #story type tag.
package titles

import "strings"

const storyTag = "#story"

// Compose builds the outbound reminder title. An existing non-blank
// title wins over the entity's own; stories are guaranteed a #story
// tag; a sprint name is prepended as "[name] " unless the title already
// starts with a bracketed tag.
func Compose(existing, entityTitle, sprintName string, story bool) string {
	title := strings.TrimSpace(existing)
	if title == "" {
		title = strings.TrimSpace(entityTitle)
		if story {
			title = storyTag + " " + title
		}
	}
	if story && !strings.Contains(title, storyTag) {
		title = storyTag + " " + title
	}
	if sprintName != "" && !hasBracketTag(title) {
		title = "[" + sprintName + "] " + title
	}
	return title
}

func hasBracketTag(title string) bool {
	if !strings.HasPrefix(title, "[") {
		return false
	}
	i := strings.Index(title, "]")
	return i >= 0 && i+1 < len(title) && title[i+1] == ' '
}

// Normalize strips the decoration Compose adds so inbound comparisons
// see semantic content: leading bracketed tags, then a leading "#story "
// tag, repeated to a fixed point so the result is idempotent.
func Normalize(title string) string {
	t := strings.TrimSpace(title)
	for {
		prev := t
		if strings.HasPrefix(t, "[") {
			if i := strings.Index(t, "]"); i >= 0 {
				t = strings.TrimPrefix(t[i+1:], " ")
			}
		}
		t = strings.TrimPrefix(t, storyTag+" ")
		t = strings.TrimSpace(t)
		if t == prev {
			return t
		}
	}
}
