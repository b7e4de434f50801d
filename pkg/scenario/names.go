package scenario

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayName turns a snake_case or SCREAMING_CASE id into a readable title,
// e.g. "iwakura_upper_hallway" becomes "Iwakura Upper Hallway".
func DisplayName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(words) == 0 {
		return ""
	}
	titleCaser := cases.Title(language.English)
	return titleCaser.String(strings.ToLower(strings.Join(words, " ")))
}
