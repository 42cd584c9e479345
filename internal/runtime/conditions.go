package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/expr-lang/expr"
)

// visibleChoices filters choices by their condition. Filtering never hides
// every choice: if nothing would remain, the unfiltered list is returned so a
// non-terminal node stays non-terminal.
func (e *Engine) visibleChoices(ctx context.Context, nodeID string, choices []domain.Choice) []domain.Choice {
	out := make([]domain.Choice, 0, len(choices))
	conditional := false
	for _, c := range choices {
		if strings.TrimSpace(c.Condition) == "" {
			out = append(out, c)
			continue
		}
		conditional = true
		ok, err := evalCondition(c.Condition, e.conditionEnv())
		if err != nil {
			e.logger.WarnContext(ctx, "choice condition failed, hiding choice",
				"node_id", nodeID, "choice", c.ID, "condition", c.Condition, "err", err)
			continue
		}
		if ok {
			out = append(out, c)
		}
	}
	if conditional && len(out) == 0 {
		out = append(out, choices...)
	}
	return domain.CloneChoices(out)
}

// conditionEnv exposes the story variables to condition expressions. Every
// variable any authored choice can affect is present, defaulting to zero.
func (e *Engine) conditionEnv() map[string]any {
	env := make(map[string]any)
	for _, n := range e.nodes.Nodes() {
		for _, c := range n.Choices {
			for k := range c.Effects {
				env[k] = 0.0
			}
		}
	}
	for k, v := range e.session.State.Variables {
		env[k] = v
	}
	env["last_choice"] = e.session.State.LastChoiceText
	return env
}

// evalCondition evaluates a boolean expr-lang expression.
func evalCondition(exprStr string, env map[string]any) (bool, error) {
	program, err := expr.Compile(exprStr, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", exprStr, err)
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("eval condition %q: %w", exprStr, err)
	}
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return bool (got %T)", exprStr, output)
	}
	return result, nil
}

// applyEffects adds a choice's deltas to the story variables.
func (e *Engine) applyEffects(effects map[string]float64) {
	if len(effects) == 0 {
		return
	}
	if e.session.State.Variables == nil {
		e.session.State.Variables = make(map[string]float64)
	}
	for k, d := range effects {
		e.session.State.Variables[k] += d
	}
}
