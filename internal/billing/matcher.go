package billing

import (
	"strings"
	"unicode/utf8"
)

// MatchResult reports what Match did to the row. When Matched is true the
// selection span covers the auto-completed tail of the name so a UI can
// render it as an inline suggestion; offsets are in runes.
type MatchResult struct {
	Matched        bool `json:"matched"`
	SelectionStart int  `json:"selectionStart"`
	SelectionEnd   int  `json:"selectionEnd"`
}

// Match applies a name edit to item. previous is the value the field held
// before the edit; a shorter typed value is treated as deletion and never
// triggers completion, so users can always backspace past a suggestion.
func Match(item *LineItem, typed, previous string, catalog []Product) MatchResult {
	end := utf8.RuneCountInString(typed)
	if utf8.RuneCountInString(typed) < utf8.RuneCountInString(previous) {
		item.Name = typed
		if typed == "" {
			item.unbind()
		}
		return MatchResult{SelectionStart: end, SelectionEnd: end}
	}

	p, ok := firstPrefixMatch(typed, catalog)
	if !ok {
		item.unbind()
		item.Name = typed
		return MatchResult{SelectionStart: end, SelectionEnd: end}
	}

	item.bind(p)
	return MatchResult{
		Matched:        true,
		SelectionStart: end,
		SelectionEnd:   utf8.RuneCountInString(p.Name),
	}
}

// Suggest lists catalog products whose name starts with prefix, in catalog
// order. A limit of zero or less returns every match.
func Suggest(prefix string, catalog []Product, limit int) []Product {
	out := make([]Product, 0)
	for _, p := range catalog {
		if !hasFoldPrefix(p.Name, prefix) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func firstPrefixMatch(typed string, catalog []Product) (Product, bool) {
	if typed == "" {
		return Product{}, false
	}
	for _, p := range catalog {
		if hasFoldPrefix(p.Name, typed) {
			return p, true
		}
	}
	return Product{}, false
}

func hasFoldPrefix(name, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix))
}
