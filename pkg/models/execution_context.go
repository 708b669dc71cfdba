package models

// Well-known context variable names threaded through a policy run.
const (
	ContextAPIResult       = "apiResult"
	ContextCurrentResult   = "currentResult"
	ContextPreviousResult  = "previousResult"
	ContextLastResult      = "lastResult"
	ContextAuthToken       = "authToken"
	ContextAuthSettingName = "authSettingName"
	ContextInputMapping    = "inputMapping"
)

// ExecutionContext is the mutable variable environment of one policy run: a
// mapping from variable name to a generic JSON value (nil, bool, float64 or
// json.Number, string, []any, map[string]any). It has no lifecycle beyond a
// single execution.
type ExecutionContext map[string]any

// NewExecutionContext returns an empty context, or a shallow copy of the
// supplied initial variables so the caller's map is never mutated.
func NewExecutionContext(initial map[string]any) ExecutionContext {
	ctx := make(ExecutionContext, len(initial))
	for key, value := range initial {
		ctx[key] = value
	}

	return ctx
}

// Clone copies the context one level deep. Rule boundaries clone before
// building condition or mapping variants so per-rule aliases like apiResult
// never leak across rules.
func (c ExecutionContext) Clone() ExecutionContext {
	clone := make(ExecutionContext, len(c))
	for key, value := range c {
		clone[key] = value
	}

	return clone
}

// With returns a clone with one variable set.
func (c ExecutionContext) With(key string, value any) ExecutionContext {
	clone := c.Clone()
	clone[key] = value

	return clone
}
