package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/template"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	ctx := models.ExecutionContext{
		"apiResult": map[string]any{
			"user": map[string]any{
				"name": "Alice",
				"roles": []any{
					map[string]any{"name": "admin"},
					map[string]any{"name": "viewer"},
				},
			},
			"count": float64(3),
		},
		"previousResult": "raw-value",
	}

	tests := []struct {
		name     string
		path     string
		expected any
	}{
		{
			name:     "nested field",
			path:     "apiResult.user.name",
			expected: "Alice",
		},
		{
			name:     "indexed field",
			path:     "apiResult.user.roles[1].name",
			expected: "viewer",
		},
		{
			name:     "root variable",
			path:     "previousResult",
			expected: "raw-value",
		},
		{
			name:     "missing key yields nil",
			path:     "apiResult.user.email",
			expected: nil,
		},
		{
			name:     "index out of range yields nil",
			path:     "apiResult.user.roles[5].name",
			expected: nil,
		},
		{
			name:     "property of scalar yields nil",
			path:     "apiResult.count.value",
			expected: nil,
		},
		{
			name:     "unknown root yields nil",
			path:     "missing.field",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, template.Resolve(tt.path, ctx))
		})
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	ctx := models.ExecutionContext{
		"apiResult": map[string]any{
			"id":     float64(42),
			"name":   "invoice",
			"active": true,
		},
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "single placeholder",
			template: "result is {{apiResult.name}}",
			expected: "result is invoice",
		},
		{
			name:     "number renders without exponent",
			template: "{{apiResult.id}}",
			expected: "42",
		},
		{
			name:     "boolean placeholder",
			template: "{{apiResult.active}}",
			expected: "true",
		},
		{
			name:     "missing field renders empty",
			template: "[{{apiResult.missing}}]",
			expected: "[]",
		},
		{
			name:     "repeated placeholder replaced everywhere",
			template: "{{apiResult.name}}-{{apiResult.name}}",
			expected: "invoice-invoice",
		},
		{
			name:     "no placeholders passes through",
			template: "plain text",
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, template.Render(tt.template, ctx))
		})
	}
}

func TestRenderFunctions(t *testing.T) {
	t.Parallel()

	ctx := models.ExecutionContext{
		"apiResult": map[string]any{
			"amount": float64(12.5),
			"user":   map[string]any{"name": "Bob"},
			"when":   "2024-03-09T10:30:00Z",
		},
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "concat joins literals and paths",
			template: `{{concat("hello ", apiResult.user.name)}}`,
			expected: "hello Bob",
		},
		{
			name:     "tostring of a number",
			template: "{{toString(apiResult.amount)}}",
			expected: "12.5",
		},
		{
			name:     "tonumber of non-numeric is zero",
			template: "{{toNumber(apiResult.user.name)}}",
			expected: "0",
		},
		{
			name:     "formatdate default layout",
			template: "{{formatDate(apiResult.when)}}",
			expected: "2024-03-09",
		},
		{
			name:     "formatdate custom layout",
			template: `{{formatDate(apiResult.when, "dd/MM/yyyy")}}`,
			expected: "09/03/2024",
		},
		{
			name:     "if picks second branch when condition empty",
			template: `{{if(apiResult.missing, "yes", "no")}}`,
			expected: "no",
		},
		{
			name:     "if picks first branch when condition truthy",
			template: `{{if(apiResult.user.name, "yes", "no")}}`,
			expected: "yes",
		},
		{
			name:     "unknown function renders empty",
			template: "{{reverse(apiResult.user.name)}}",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, template.Render(tt.template, ctx))
		})
	}
}

func TestApplyMapping(t *testing.T) {
	t.Parallel()

	source := map[string]any{
		"customer": map[string]any{"id": "c-1", "name": "Acme"},
		"total":    float64(99),
	}

	mapping := map[string]any{
		"customerId": "{{apiResult.customer.id}}",
		"label":      `{{concat(apiResult.customer.name, " order")}}`,
		"fixed":      float64(7),
		"nested": map[string]any{
			"total": "{{apiResult.total}}",
		},
		"items": []any{"{{apiResult.customer.id}}", "literal"},
	}

	mapped := template.ApplyMapping(source, mapping, models.ExecutionContext{})

	result, ok := mapped.(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "c-1", result["customerId"])
	assert.Equal(t, "Acme order", result["label"])
	assert.Equal(t, float64(7), result["fixed"])
	assert.Equal(t, map[string]any{"total": "99"}, result["nested"])
	assert.Equal(t, []any{"c-1", "literal"}, result["items"])
}

func TestApplyMappingEdgeCases(t *testing.T) {
	t.Parallel()

	source := map[string]any{"value": "x"}

	t.Run("nil mapping returns source", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, source, template.ApplyMapping(source, nil, models.ExecutionContext{}))
	})

	t.Run("nil source returns nil", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, template.ApplyMapping(nil, map[string]any{"a": "b"}, models.ExecutionContext{}))
	})

	t.Run("string mapping is decoded as JSON", func(t *testing.T) {
		t.Parallel()

		mapped := template.ApplyMapping(source, `{"out":"{{apiResult.value}}"}`, models.ExecutionContext{})
		assert.Equal(t, map[string]any{"out": "x"}, mapped)
	})

	t.Run("unparsable string mapping returns source unchanged", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, source, template.ApplyMapping(source, "{not json", models.ExecutionContext{}))
	})

	t.Run("existing apiResult in context is not overwritten", func(t *testing.T) {
		t.Parallel()

		ctx := models.ExecutionContext{
			models.ContextAPIResult: map[string]any{"value": "from-context"},
		}

		mapped := template.ApplyMapping(source, map[string]any{"out": "{{apiResult.value}}"}, ctx)
		assert.Equal(t, map[string]any{"out": "from-context"}, mapped)
	})
}

func TestStringify(t *testing.T) {
	t.Parallel()

	assert.Empty(t, template.Stringify(nil))
	assert.Equal(t, "text", template.Stringify("text"))
	assert.Equal(t, "1.25", template.Stringify(1.25))
	assert.Equal(t, "100", template.Stringify(float64(100)))
	assert.Equal(t, "false", template.Stringify(false))
	assert.JSONEq(t, `{"a":1}`, template.Stringify(map[string]any{"a": float64(1)}))
	assert.JSONEq(t, `[1,2]`, template.Stringify([]any{float64(1), float64(2)}))
}
