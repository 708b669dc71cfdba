// Package conditions evaluates rule conditions: structured
// field/operator/value lists folded with AND/OR, and legacy inline template
// expressions kept for compatibility with existing rules.
package conditions

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/template"
)

// legacyOperators are scanned in this exact order: >= and <= must be
// matched before the bare > and <. A value that itself contains an operator
// substring breaks the split; that ambiguity is inherent to the legacy form
// and preserved as-is. Structured conditions are the supported replacement.
var legacyOperators = []string{"==", "!=", ">=", "<=", ">", "<"}

// Evaluator evaluates rule conditions against an execution context. Every
// failure mode, from malformed JSON to non-numeric operands, evaluates to
// false rather than surfacing an error.
type Evaluator struct {
	logger *slog.Logger
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate returns the boolean result of the condition. A condition whose
// trimmed text starts with { or [ is tried as a structured condition list
// first; anything else, or unparsable JSON, takes the legacy template path.
// An empty condition is true.
func (e *Evaluator) Evaluate(condition string, ctx models.ExecutionContext) bool {
	trimmed := strings.TrimSpace(condition)
	if trimmed == "" {
		return true
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if result, ok := e.evaluateStructured(trimmed, ctx); ok {
			return result
		}
	}

	return e.evaluateLegacy(trimmed, ctx)
}

// evaluateStructured parses the condition as one or more RuleCondition
// entries and folds them left to right. The accumulator combines with each
// subsequent result using the previous entry's logical operator; unknown
// operators leave the accumulator unchanged.
func (e *Evaluator) evaluateStructured(condition string, ctx models.ExecutionContext) (bool, bool) {
	payload := condition
	if strings.HasPrefix(payload, "{") {
		payload = "[" + payload + "]"
	}

	var entries []models.RuleCondition
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		e.logger.Debug("Condition is not a structured list, falling back to template evaluation", "error", err)

		return false, false
	}

	if len(entries) == 0 {
		return false, false
	}

	var (
		accumulator bool
		seeded      bool
		pending     string
	)

	for _, entry := range entries {
		fieldValue := template.Resolve(models.ContextAPIResult+"."+entry.FieldPath, ctx)
		result := evaluateSingleCondition(fieldValue, entry.Operator, entry.Value)

		e.logger.Debug("Structured condition evaluated",
			"field_path", entry.FieldPath,
			"operator", entry.Operator,
			"expected", entry.Value,
			"actual", fieldValue,
			"result", result)

		switch {
		case !seeded:
			accumulator = result
			seeded = true
		case pending == "AND":
			accumulator = accumulator && result
		case pending == "OR":
			accumulator = accumulator || result
		}

		pending = entry.LogicalOperator
	}

	return accumulator, true
}

// evaluateSingleCondition compares one resolved field value against the
// expected value. String operators compare case-insensitively; ordering
// operators require both sides to parse as numbers, otherwise false.
func evaluateSingleCondition(fieldValue any, operator, expected string) bool {
	actual := template.Stringify(fieldValue)

	switch strings.ToLower(operator) {
	case "==", "equals":
		return strings.EqualFold(actual, expected)
	case "!=", "notequals":
		return !strings.EqualFold(actual, expected)
	case "contains":
		return strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	case "startswith":
		return strings.HasPrefix(strings.ToLower(actual), strings.ToLower(expected))
	case "endswith":
		return strings.HasSuffix(strings.ToLower(actual), strings.ToLower(expected))
	case ">":
		left, right, ok := parseNumericPair(actual, expected)

		return ok && left > right
	case "<":
		left, right, ok := parseNumericPair(actual, expected)

		return ok && left < right
	case ">=":
		left, right, ok := parseNumericPair(actual, expected)

		return ok && left >= right
	case "<=":
		left, right, ok := parseNumericPair(actual, expected)

		return ok && left <= right
	default:
		return false
	}
}

// evaluateLegacy renders the whole condition as a template and scans the
// result for the first comparison operator. With no operator present the
// rendered text itself decides: parseable booleans win, then any non-empty
// string other than the literal "null" is true.
func (e *Evaluator) evaluateLegacy(condition string, ctx models.ExecutionContext) bool {
	rendered := template.Render(condition, ctx)

	e.logger.Debug("Evaluating legacy condition", "condition", condition, "rendered", rendered)

	for _, operator := range legacyOperators {
		if !strings.Contains(rendered, operator) {
			continue
		}

		left, right, ok := splitOperands(rendered, operator)
		if !ok {
			return false
		}

		switch operator {
		case "==":
			return strings.EqualFold(trimQuotes(left), trimQuotes(right))
		case "!=":
			return !strings.EqualFold(trimQuotes(left), trimQuotes(right))
		default:
			leftNum, rightNum, numeric := parseNumericPair(left, right)
			if !numeric {
				return false
			}

			switch operator {
			case ">=":
				return leftNum >= rightNum
			case "<=":
				return leftNum <= rightNum
			case ">":
				return leftNum > rightNum
			case "<":
				return leftNum < rightNum
			}
		}
	}

	if boolean, err := strconv.ParseBool(strings.TrimSpace(rendered)); err == nil {
		return boolean
	}

	trimmed := strings.TrimSpace(rendered)

	return trimmed != "" && trimmed != "null"
}

// splitOperands splits on every occurrence of the operator, drops empty
// entries and requires exactly two operands, matching the historic split
// semantics.
func splitOperands(expression, operator string) (string, string, bool) {
	var parts []string

	for _, part := range strings.Split(expression, operator) {
		if part != "" {
			parts = append(parts, part)
		}
	}

	if len(parts) != 2 {
		return "", "", false
	}

	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func trimQuotes(value string) string {
	return strings.Trim(strings.TrimSpace(value), `"`)
}

func parseNumericPair(left, right string) (float64, float64, bool) {
	leftNum, leftErr := strconv.ParseFloat(strings.TrimSpace(left), 64)
	rightNum, rightErr := strconv.ParseFloat(strings.TrimSpace(right), 64)

	return leftNum, rightNum, leftErr == nil && rightErr == nil
}
