// policy/dsl.go
package policy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clearops/clearance/model"
)

// The condition DSL is deliberately tiny: `field operator literal`,
// operators `eq` and `contains`. It is evaluated by this explicit
// parser, never by dynamic code execution.

const (
	OperatorEq       = "eq"
	OperatorContains = "contains"
)

// Condition is a parsed DSL condition.
type Condition struct {
	Field    string
	Operator string
	Literal  string
}

// ParseCondition tokenizes and validates a DSL condition string. The
// literal is everything after the operator, so it may contain spaces.
func ParseCondition(raw string) (Condition, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Condition{}, fmt.Errorf("condition is empty")
	}

	parts := strings.SplitN(trimmed, " ", 3)
	if len(parts) < 3 {
		return Condition{}, fmt.Errorf("condition %q must have the form 'field operator literal'", raw)
	}

	cond := Condition{
		Field:    parts[0],
		Operator: parts[1],
		Literal:  strings.TrimSpace(parts[2]),
	}
	if cond.Operator != OperatorEq && cond.Operator != OperatorContains {
		return Condition{}, fmt.Errorf("unsupported operator %q, expected %q or %q", cond.Operator, OperatorEq, OperatorContains)
	}
	if cond.Literal == "" {
		return Condition{}, fmt.Errorf("condition %q has an empty literal", raw)
	}
	return cond, nil
}

// fieldValue is a resolved context field: a scalar string or a string
// list, never both.
type fieldValue struct {
	scalar string
	list   []string
	isList bool
}

// resolveField looks a DSL field up in the decision context. Metadata
// keys are addressed as metadata.<key>.
func resolveField(ctx model.DecisionContext, field string) (fieldValue, error) {
	switch field {
	case "riskLevel":
		return fieldValue{scalar: string(ctx.RiskLevel)}, nil
	case "requestedByUserId":
		return fieldValue{scalar: ctx.RequestedByUserID}, nil
	case "workspaceId":
		return fieldValue{scalar: ctx.WorkspaceID}, nil
	case "approverUserIds":
		return fieldValue{list: ctx.ApproverUserIDs, isList: true}, nil
	case "evidenceCount":
		return fieldValue{scalar: strconv.Itoa(ctx.EvidenceCount)}, nil
	case "decisiveEvidenceCount":
		return fieldValue{scalar: strconv.Itoa(ctx.DecisiveEvidenceCount)}, nil
	}
	if key, found := strings.CutPrefix(field, "metadata."); found {
		value, ok := ctx.Metadata[key]
		if !ok {
			return fieldValue{}, fmt.Errorf("metadata key %q is not present in the decision context", key)
		}
		return fieldValue{scalar: value}, nil
	}
	return fieldValue{}, fmt.Errorf("unknown context field %q", field)
}

// applyOperator evaluates the parsed condition against a resolved field.
// For lists, eq matches a single-element list and contains checks
// membership; for scalars, contains checks substrings.
func applyOperator(value fieldValue, cond Condition) bool {
	switch cond.Operator {
	case OperatorEq:
		if value.isList {
			return len(value.list) == 1 && value.list[0] == cond.Literal
		}
		return value.scalar == cond.Literal
	case OperatorContains:
		if value.isList {
			for _, item := range value.list {
				if item == cond.Literal {
					return true
				}
			}
			return false
		}
		return strings.Contains(value.scalar, cond.Literal)
	}
	return false
}
