package room

import (
	"regexp"
	"strings"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// resolveMentions extracts @tokens from text and matches them against the
// roster. Per token: exact name match first, then substring containment
// (token contained in avatar name), both case-insensitive, scanning the
// roster in insertion order so the first matching entry wins. The result is
// deduplicated, in order of first match, using canonical roster names.
func resolveMentions(text string, roster *Roster) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	agents := roster.All()
	if len(agents) == 0 {
		return nil
	}

	var resolved []string
	seen := make(map[string]bool)

	for _, m := range matches {
		token := strings.ToLower(m[1])

		name := ""
		for _, a := range agents {
			if strings.ToLower(a.Name) == token {
				name = a.Name
				break
			}
		}
		if name == "" {
			for _, a := range agents {
				if strings.Contains(strings.ToLower(a.Name), token) {
					name = a.Name
					break
				}
			}
		}

		if name != "" && !seen[name] {
			seen[name] = true
			resolved = append(resolved, name)
		}
	}

	return resolved
}
