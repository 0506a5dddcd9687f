// model/policy.go
package model

// RuleEffect is what a matching rule contributes to the decision.
type RuleEffect string

const (
	EffectAllow RuleEffect = "allow"
	EffectDeny  RuleEffect = "deny"
)

// RuleOutcome is the result of evaluating one rule against a context.
type RuleOutcome string

const (
	OutcomePass       RuleOutcome = "pass"
	OutcomeFail       RuleOutcome = "fail"
	OutcomeNeedsHuman RuleOutcome = "needs_human"
)

// TraceResult tags one step of a rule's evaluation trace.
type TraceResult string

const (
	TracePass  TraceResult = "pass"
	TraceFail  TraceResult = "fail"
	TraceSkip  TraceResult = "skip"
	TraceError TraceResult = "error"
)

// PolicyRule is one gating predicate authored in the condition DSL
// (`field operator literal`). It is immutable once evaluated.
type PolicyRule struct {
	ID          string     `json:"id"`
	Description string     `json:"description,omitempty"`
	Condition   string     `json:"condition"`
	Effect      RuleEffect `json:"effect"`
}

// TraceEntry is one ordered step of an evaluation trace. Detail strings
// are phrased for auditors.
type TraceEntry struct {
	Seq    int         `json:"seq"`
	Result TraceResult `json:"result"`
	Detail string      `json:"detail"`
}

// PolicyRuleEvaluation is the frozen result of evaluating one rule.
type PolicyRuleEvaluation struct {
	RuleID  string       `json:"ruleId"`
	Effect  RuleEffect   `json:"effect"`
	Outcome RuleOutcome  `json:"outcome"`
	Trace   []TraceEntry `json:"trace"`
}

// PolicySetEvaluation aggregates all rule evaluations for one decision.
// Aggregate priority is Fail > NeedsHuman > Pass.
type PolicySetEvaluation struct {
	AggregateOutcome RuleOutcome            `json:"aggregateOutcome"`
	RuleEvaluations  []PolicyRuleEvaluation `json:"ruleEvaluations"`
	EvaluatedAtIso   string                 `json:"evaluatedAtIso,omitempty"`
}

// DecisionContext is the typed context rules evaluate against. Identity
// and role values are opaque strings resolved by the caller.
type DecisionContext struct {
	WorkspaceID           string            `json:"workspaceId,omitempty"`
	RiskLevel             RiskLevel         `json:"riskLevel"`
	RequestedByUserID     string            `json:"requestedByUserId"`
	ApproverUserIDs       []string          `json:"approverUserIds"`
	EvidenceCount         int               `json:"evidenceCount"`
	DecisiveEvidenceCount int               `json:"decisiveEvidenceCount"`
	NowIso                string            `json:"nowIso,omitempty"`
	Metadata              map[string]string `json:"metadata,omitempty"`
}
