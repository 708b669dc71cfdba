// Package template provides the expression and template engine used to
// extract values from rule results and to render {{...}} placeholders in
// conditions and mappings.
package template

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ruleflow-io/ruleflow/pkg/models"
)

var indexedSegment = regexp.MustCompile(`^(\w+)\[(\d+)\]$`)

// Resolve walks a dotted/bracketed field path against the context. The
// first segment is looked up directly as a context variable; the remaining
// segments are applied to the current value as map lookups, with name[N]
// additionally indexing into a sequence. Missing keys, out-of-range indices
// and type mismatches all yield nil, never an error.
func Resolve(path string, ctx models.ExecutionContext) any {
	segments := strings.Split(path, ".")
	if len(segments) == 0 {
		return nil
	}

	root, ok := ctx[segments[0]]
	if !ok {
		return nil
	}

	current := root

	for _, segment := range segments[1:] {
		if current == nil {
			return nil
		}

		if match := indexedSegment.FindStringSubmatch(segment); match != nil {
			current = property(current, match[1])

			index, err := strconv.Atoi(match[2])
			if err != nil {
				return nil
			}

			current = element(current, index)

			continue
		}

		current = property(current, segment)
	}

	return current
}

// property looks a key up in a JSON object. Scalars and sequences have no
// properties, so anything that is not a string-keyed mapping yields nil.
func property(value any, name string) any {
	switch v := value.(type) {
	case map[string]any:
		return v[name]
	case models.ExecutionContext:
		return v[name]
	default:
		return nil
	}
}

// element indexes into a JSON array; out of range yields nil.
func element(value any, index int) any {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	if index < 0 || index >= len(items) {
		return nil
	}

	return items[index]
}
