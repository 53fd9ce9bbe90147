package executor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)

// substitute replaces every {{name}} placeholder in text with
// params[name]'s canonical string form. An unresolved placeholder is
// TASK_FAILURE{missing_input} (substitution-totality). No environment
// walk; params is a flat, explicit map.
func substitute(text string, params map[string]any) (string, error) {
	if text == "" {
		return "", nil
	}

	// A field whose entire content is one placeholder is rendered to the
	// same canonical string form as every other occurrence; the original
	// value's type (number, boolean) is not preserved.
	if m := placeholderPattern.FindStringSubmatch(text); m != nil && m[0] == text {
		v, ok := params[m[1]]
		if !ok {
			return "", missingInput(m[1])
		}
		return canonicalString(v), nil
	}

	var missing string
	result := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-2]
		v, ok := params[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return canonicalString(v)
	})
	if missing != "" {
		return "", missingInput(missing)
	}
	return result, nil
}

func canonicalString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case []string:
		return strings.Join(x, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", x)
	}
}
