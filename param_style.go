package sqlspec

// ParameterStyle is the syntactic family of placeholders a driver accepts.
// The Statement Pipeline's renderer emits exactly the style a dialect
// advertises as preferred.
type ParameterStyle string

const (
	StyleQMark       ParameterStyle = "qmark"        // ?
	StyleNumeric     ParameterStyle = "numeric"      // $1
	StyleNamedColon  ParameterStyle = "named_colon"  // :name
	StyleNamedAt     ParameterStyle = "named_at"     // @name
	StyleNamedDollar ParameterStyle = "named_dollar" // $name
	StyleFormat      ParameterStyle = "format"       // %s / %(name)s
)

// IsNamed reports whether values of this style are addressed by name
// rather than by position.
func (s ParameterStyle) IsNamed() bool {
	switch s {
	case StyleNamedColon, StyleNamedAt, StyleNamedDollar:
		return true
	case StyleFormat:
		// %(name)s is named, %s is positional; callers that need to tell
		// the two apart inspect the rendered placeholder text directly.
		return true
	default:
		return false
	}
}
