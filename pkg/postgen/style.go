package postgen

import "fmt"

// Style is the tone of a generated post.
type Style string

const (
	Informal     Style = "informal"
	Professional Style = "professional"
	Humorous     Style = "humorous"

	DefaultStyle = Informal
)

// Styles lists every supported style in display order.
var Styles = []Style{Informal, Professional, Humorous}

var descriptions = map[Style]string{
	Informal:     "неформальном разговорном стиле",
	Professional: "профессиональном деловом стиле",
	Humorous:     "юмористическом и легком стиле",
}

var labels = map[Style]string{
	Informal:     "Неформальный",
	Professional: "Профессиональный",
	Humorous:     "Юмористический",
}

// ParseStyle maps s to a Style; the empty string is DefaultStyle.
func ParseStyle(s string) (Style, error) {
	if s == "" {
		return DefaultStyle, nil
	}
	st := Style(s)
	if _, ok := descriptions[st]; !ok {
		return "", &ValidationError{
			Field:   "style",
			Message: fmt.Sprintf("Неизвестный стиль %q: ожидается informal, professional или humorous", s),
		}
	}
	return st, nil
}

// Description is the prepositional phrase used in the user prompt.
func (s Style) Description() string {
	return descriptions[s]
}

// Label is the human-readable name of the style.
func (s Style) Label() string {
	return labels[s]
}
