package executor

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
)

// validateJSONOutput implements the output-validation rule: parse content
// as JSON, and if a schema type tag is declared, check it matches. The
// strict parse runs first; only if it fails (and repair is enabled) does
// one best-effort repair pass run over the raw content, and if the repaired
// text still does not parse, the original strict failure is returned.
func (e *AtomicExecutor) validateJSONOutput(tmpl *ports.AtomicTemplate, result ports.TaskResult) (ports.TaskResult, error) {
	content := result.Content
	parsed, err := parseJSON(content)
	if err != nil && e.repairJSON {
		if repaired, repairErr := jsonrepair.JSONRepair(content); repairErr == nil {
			if reparsed, reparseErr := parseJSON(repaired); reparseErr == nil {
				parsed, err = reparsed, nil
			}
		}
	}
	if err != nil {
		return ports.TaskResult{}, taskerrors.NewTaskFailure(ports.ReasonOutputFormatFailure, "content is not valid JSON", map[string]any{
			"content": content,
		})
	}

	if tmpl.OutputFormat.Schema != "" {
		actual := jsonTypeTag(parsed)
		if actual != tmpl.OutputFormat.Schema {
			return ports.TaskResult{}, taskerrors.NewTaskFailure(ports.ReasonOutputFormatFailure, "output type does not match declared schema", map[string]any{
				"expectedType": tmpl.OutputFormat.Schema,
				"actualType": actual,
				"content": content,
			})
		}
	}

	result.ParsedContent = parsed
	return result, nil
}

func parseJSON(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func jsonTypeTag(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}
