// errors/validation_errors.go
package errors

import "fmt"

// Construction-time validation errors. They reject structurally invalid
// input before it can be stored, carry the offending values and must
// never be swallowed: each one indicates a caller bug or bad
// configuration.

// DelegationValidationError rejects an invalid delegation grant.
type DelegationValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *DelegationValidationError) Error() string {
	return fmt.Sprintf("invalid delegation grant: %s (field %q, value %q)", e.Message, e.Field, e.Value)
}

// PolicyRuleEvaluationError rejects an evaluation call that cannot
// produce a meaningful result, such as an empty rule set.
type PolicyRuleEvaluationError struct {
	Reason string
}

func (e *PolicyRuleEvaluationError) Error() string {
	return fmt.Sprintf("policy rule evaluation error: %s", e.Reason)
}

// EvidenceDurabilityPolicyParseError rejects a structurally invalid
// durability policy configuration.
type EvidenceDurabilityPolicyParseError struct {
	Field   string
	Value   string
	Message string
}

func (e *EvidenceDurabilityPolicyParseError) Error() string {
	return fmt.Sprintf("invalid evidence durability policy: %s (field %q, value %q)", e.Message, e.Field, e.Value)
}
