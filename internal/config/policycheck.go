// policycheck.go adds a declarative validation layer alongside the
// numeric checks in config.go: a small embedded Rego bundle that
// cross-checks config invariants spanning more than one field, the way
// the teacher's internal/policy.Engine evaluates its own Rego bundle
// against a structured input document.
package config

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

//go:embed policy.rego
var configPolicySource string

// CheckPolicy runs the embedded config-validation bundle once at
// startup, against an in-memory document built from cfg. It is never
// run against a directory on disk and never runs during generation, so
// it does not violate the "no I/O during generation" rule.
func CheckPolicy(cfg *Config) error {
	r := rego.New(
		rego.Query("data.badgesim.configcheck.deny"),
		rego.Module("policy.rego", configPolicySource),
	)

	pq, err := r.PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("config: preparing policy query: %w", err)
	}

	input := map[string]any{
		"curious_user_percentage": cfg.CuriousUserPercentage,
		"cloned_badge_percentage": cfg.ClonedBadgePercentage,
		"user_count":              cfg.UserCount,
		"days":                    cfg.Days,
	}

	rs, err := pq.Eval(context.Background(), rego.EvalInput(input))
	if err != nil {
		return fmt.Errorf("config: evaluating policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil
	}

	denials, ok := rs[0].Expressions[0].Value.([]interface{})
	if !ok || len(denials) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(denials))
	for _, d := range denials {
		msgs = append(msgs, fmt.Sprint(d))
	}
	return &ValidationError{Violations: msgs}
}
