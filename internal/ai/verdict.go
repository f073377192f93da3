package ai

import "regexp"

var bracketed = regexp.MustCompile(`\[([^\[\]]+)\]`)

// ParseVerdict finds the first bracket-delimited verdict label in raw model
// output. Brackets holding anything else (for example "[...]" placeholders)
// are ignored.
func ParseVerdict(raw string) (Role, bool) {
	for _, match := range bracketed.FindAllStringSubmatch(raw, -1) {
		role, ok := lookup(match[1])
		if ok && role.IsVerdict() {
			return role, true
		}
	}
	return "", false
}
