package model

import "strings"

var separatorReplacer = strings.NewReplacer("-", "", "_", "", ".", "", " ", "", "/", "")

// CanonicalKey lowercases a model identifier and strips separators so that
// vendor spellings like "claude-sonnet-4.5" and "claude_sonnet_45" compare
// equal.
func CanonicalKey(name string) string {
	return separatorReplacer.Replace(strings.ToLower(name))
}

// Family collapses a model identifier to its family name ("opus", "sonnet",
// "haiku"). Unknown identifiers come back lowercased as-is so callers can
// still bucket them.
func Family(name string) string {
	lower := strings.ToLower(name)
	for _, fam := range []string{"opus", "sonnet", "haiku"} {
		if strings.Contains(lower, fam) {
			return fam
		}
	}
	return lower
}

// IsSynthetic reports whether the model field marks a locally generated row
// that carries no billable usage.
func IsSynthetic(name string) bool {
	return name == "<synthetic>"
}
