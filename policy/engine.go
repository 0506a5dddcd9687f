// policy/engine.go
package policy

import (
	"fmt"

	clearance_errors "github.com/clearops/clearance/errors"
	"github.com/clearops/clearance/model"
)

// Rule is one gating predicate. Evaluate must be pure: same context,
// same result, trace included.
type Rule interface {
	ID() string
	Effect() model.RuleEffect
	Evaluate(ctx model.DecisionContext) model.PolicyRuleEvaluation
}

// trace accumulates ordered evaluation steps. Entries are append-only
// during evaluation and frozen once the evaluation is returned.
type trace struct {
	entries []model.TraceEntry
}

func (t *trace) add(result model.TraceResult, format string, args ...any) {
	t.entries = append(t.entries, model.TraceEntry{
		Seq:    len(t.entries),
		Result: result,
		Detail: fmt.Sprintf(format, args...),
	})
}

// DSLRule evaluates a condition authored in the `field operator literal`
// DSL.
type DSLRule struct {
	rule model.PolicyRule
}

// NewDSLRule wraps a stored policy rule for evaluation.
func NewDSLRule(rule model.PolicyRule) *DSLRule {
	return &DSLRule{rule: rule}
}

func (r *DSLRule) ID() string               { return r.rule.ID }
func (r *DSLRule) Effect() model.RuleEffect { return r.rule.Effect }

// Evaluate runs the DSL condition. A parse error or an unresolvable
// field produces an `error` trace entry and a NeedsHuman outcome rather
// than failing the evaluation call: a broken rule must surface to a
// human, not silently allow or deny.
func (r *DSLRule) Evaluate(ctx model.DecisionContext) model.PolicyRuleEvaluation {
	t := &trace{}

	cond, err := ParseCondition(r.rule.Condition)
	if err != nil {
		t.add(model.TraceError, "condition could not be parsed: %v", err)
		return r.result(model.OutcomeNeedsHuman, t)
	}

	value, err := resolveField(ctx, cond.Field)
	if err != nil {
		t.add(model.TraceError, "condition field could not be resolved: %v", err)
		return r.result(model.OutcomeNeedsHuman, t)
	}

	matched := applyOperator(value, cond)
	if matched {
		t.add(model.TracePass, "condition %q matched", r.rule.Condition)
	} else {
		t.add(model.TraceFail, "condition %q did not match", r.rule.Condition)
	}

	outcome := model.OutcomePass
	switch r.rule.Effect {
	case model.EffectDeny:
		if matched {
			t.add(model.TraceFail, "deny rule matched, decision is blocked")
			outcome = model.OutcomeFail
		} else {
			t.add(model.TracePass, "deny rule did not match")
		}
	default: // allow
		if !matched {
			t.add(model.TraceFail, "allow rule did not match, decision is blocked")
			outcome = model.OutcomeFail
		} else {
			t.add(model.TracePass, "allow rule matched")
		}
	}

	return r.result(outcome, t)
}

func (r *DSLRule) result(outcome model.RuleOutcome, t *trace) model.PolicyRuleEvaluation {
	return model.PolicyRuleEvaluation{
		RuleID:  r.rule.ID,
		Effect:  r.rule.Effect,
		Outcome: outcome,
		Trace:   t.entries,
	}
}

// EvaluateRuleSet runs every rule against the context. There is no
// short-circuit: the trace must be complete even when an early rule
// fails. Aggregate priority is Fail > NeedsHuman > Pass. Evaluating an
// empty rule set is a caller bug and is rejected.
func EvaluateRuleSet(rules []Rule, ctx model.DecisionContext) (model.PolicySetEvaluation, error) {
	if len(rules) == 0 {
		return model.PolicySetEvaluation{}, &clearance_errors.PolicyRuleEvaluationError{
			Reason: "cannot evaluate an empty rule set",
		}
	}

	evaluations := make([]model.PolicyRuleEvaluation, 0, len(rules))
	aggregate := model.OutcomePass
	for _, rule := range rules {
		evaluation := rule.Evaluate(ctx)
		evaluations = append(evaluations, evaluation)

		switch evaluation.Outcome {
		case model.OutcomeFail:
			aggregate = model.OutcomeFail
		case model.OutcomeNeedsHuman:
			if aggregate != model.OutcomeFail {
				aggregate = model.OutcomeNeedsHuman
			}
		}
	}

	return model.PolicySetEvaluation{
		AggregateOutcome: aggregate,
		RuleEvaluations:  evaluations,
		EvaluatedAtIso:   ctx.NowIso,
	}, nil
}

// RulesFromModels wraps stored DSL rules for evaluation.
func RulesFromModels(stored []model.PolicyRule) []Rule {
	rules := make([]Rule, 0, len(stored))
	for _, rule := range stored {
		rules = append(rules, NewDSLRule(rule))
	}
	return rules
}
