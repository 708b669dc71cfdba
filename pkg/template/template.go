package template

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ruleflow-io/ruleflow/pkg/models"
)

var (
	placeholder  = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	functionCall = regexp.MustCompile(`(\w+)\((.*)\)`)
)

// Evaluate evaluates a single expression against the context. An expression
// is either a function call name(arg1, arg2, ...) or a bare field path.
func Evaluate(expression string, ctx models.ExecutionContext) any {
	if strings.Contains(expression, "(") && strings.Contains(expression, ")") {
		return evaluateFunction(expression, ctx)
	}

	return Resolve(expression, ctx)
}

// Render substitutes every {{expression}} occurrence in the template with
// the stringified evaluation result. Repeated occurrences of the same
// expression are all replaced; nil stringifies to the empty string.
func Render(template string, ctx models.ExecutionContext) string {
	if template == "" {
		return template
	}

	result := template

	for _, match := range placeholder.FindAllStringSubmatch(template, -1) {
		value := Evaluate(strings.TrimSpace(match[1]), ctx)
		result = strings.ReplaceAll(result, match[0], Stringify(value))
	}

	return result
}

// ApplyMapping reshapes source through a JSON-shaped mapping template:
// objects and arrays are walked recursively, string leaves are rendered as
// templates, other scalars pass through unchanged. The mapping context
// exposes the source under apiResult and previousResult unless those are
// already present. Any internal failure degrades to returning the source
// unchanged with a diagnostic, never an error.
func ApplyMapping(source, mapping any, ctx models.ExecutionContext) any {
	if source == nil || mapping == nil {
		return source
	}

	mappingCtx := ctx.Clone()
	if _, ok := mappingCtx[models.ContextAPIResult]; !ok {
		mappingCtx[models.ContextAPIResult] = source
	}

	if _, ok := mappingCtx[models.ContextPreviousResult]; !ok {
		mappingCtx[models.ContextPreviousResult] = source
	}

	// A string mapping is a JSON document that has not been decoded yet.
	if text, ok := mapping.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			slog.Warn("Failed to decode mapping definition, returning source unchanged", "error", err)

			return source
		}

		mapping = decoded
	}

	return mapNode(mapping, mappingCtx)
}

func mapNode(node any, ctx models.ExecutionContext) any {
	switch v := node.(type) {
	case map[string]any:
		mapped := make(map[string]any, len(v))
		for key, value := range v {
			mapped[key] = mapNode(value, ctx)
		}

		return mapped
	case []any:
		mapped := make([]any, len(v))
		for i, value := range v {
			mapped[i] = mapNode(value, ctx)
		}

		return mapped
	case string:
		return Render(v, ctx)
	default:
		return v
	}
}

// Stringify converts an evaluated value to its template representation.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func evaluateFunction(expression string, ctx models.ExecutionContext) any {
	match := functionCall.FindStringSubmatch(expression)
	if match == nil {
		return nil
	}

	name := strings.ToLower(match[1])
	args := parseArguments(match[2], ctx)

	switch name {
	case "tostring":
		if len(args) == 0 {
			return ""
		}

		return Stringify(args[0])
	case "tonumber":
		if len(args) == 0 {
			return float64(0)
		}

		return toNumber(args[0])
	case "concat":
		var builder strings.Builder
		for _, arg := range args {
			builder.WriteString(Stringify(arg))
		}

		return builder.String()
	case "datenow":
		return time.Now().UTC().Format("2006-01-02T15:04:05Z")
	case "formatdate":
		return formatDate(args)
	case "if":
		return evaluateIf(args)
	default:
		return nil
	}
}

// parseArguments splits a comma-separated argument list. Commas inside
// quoted strings are not supported, matching the engine's historic
// behavior. Each argument is a quoted string literal, a number literal, or
// a field path resolved against the context.
func parseArguments(argsText string, ctx models.ExecutionContext) []any {
	if strings.TrimSpace(argsText) == "" {
		return nil
	}

	parts := strings.Split(argsText, ",")
	args := make([]any, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)

		switch {
		case strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) && len(trimmed) >= 2:
			args = append(args, trimmed[1:len(trimmed)-1])
		default:
			if number, err := strconv.ParseFloat(trimmed, 64); err == nil {
				args = append(args, number)
			} else {
				args = append(args, Resolve(trimmed, ctx))
			}
		}
	}

	return args
}

func toNumber(value any) float64 {
	if value == nil {
		return 0
	}

	number, err := strconv.ParseFloat(Stringify(value), 64)
	if err != nil {
		return 0
	}

	return number
}

// formatDate parses args[0] as a timestamp and formats it with the
// .NET-style pattern in args[1] (default yyyy-MM-dd). Unparsable input
// falls back to the current UTC time.
func formatDate(args []any) string {
	layout := convertDateFormat("yyyy-MM-dd")
	if len(args) >= 2 {
		layout = convertDateFormat(Stringify(args[1]))
	}

	date := time.Now().UTC()

	if len(args) >= 1 {
		if parsed, ok := parseDate(Stringify(args[0])); ok {
			date = parsed
		}
	}

	return date.Format(layout)
}

func parseDate(value string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}

	return time.Time{}, false
}

// convertDateFormat translates the .NET-style date tokens used by stored
// mappings into a Go reference layout.
func convertDateFormat(pattern string) string {
	replacer := strings.NewReplacer(
		"yyyy", "2006",
		"MM", "01",
		"dd", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
	)

	return replacer.Replace(pattern)
}

// evaluateIf returns args[1] unless args[0] is nil, "false", "0" or empty,
// in which case it returns args[2].
func evaluateIf(args []any) any {
	if len(args) < 3 {
		return nil
	}

	condition := Stringify(args[0])
	truthy := args[0] != nil && condition != "false" && condition != "0" && condition != ""

	if truthy {
		return args[1]
	}

	return args[2]
}
