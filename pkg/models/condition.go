package models

// RuleCondition is one entry of a structured condition list. A list is
// folded left to right: each entry's result combines with the accumulator
// using the LogicalOperator of the entry before it.
type RuleCondition struct {
	// FieldPath is resolved against the context root apiResult, e.g.
	// "data.profileList[0].positionTitle".
	FieldPath string `json:"FieldPath"`

	// Operator is one of ==, !=, >, <, >=, <=, contains, startsWith,
	// endsWith; equals/notEquals are accepted as aliases. Matching is
	// case-insensitive.
	Operator string `json:"Operator"`

	// Value is the right-hand operand, compared as a string or parsed as a
	// number depending on the operator.
	Value string `json:"Value"`

	// LogicalOperator is AND or OR and applies between this condition and
	// the next one; empty on the last entry.
	LogicalOperator string `json:"LogicalOperator,omitempty"`
}
