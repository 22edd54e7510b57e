package menu

import "context"

// Evaluator is the narrow contract to the external condition/expression
// collaborator. Expressions come verbatim from menu definitions; the vars map
// carries the viewer identity and the ViewContext placeholder snapshot.
//
// A CEL-backed default ships with the engine; see NewCELEvaluator.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string, vars map[string]any) (bool, error)
}

// TrueEvaluator satisfies every predicate. It is the default when no
// evaluator is configured, so menus without conditions work out of the box.
type TrueEvaluator struct{}

// Evaluate implements Evaluator.
func (TrueEvaluator) Evaluate(context.Context, string, map[string]any) (bool, error) {
	return true, nil
}

// evalAll reports whether every predicate in the list holds. An empty list
// holds trivially. Evaluation errors count as unsatisfied; the caller decides
// whether to log.
func evalAll(ctx context.Context, eval Evaluator, exprs []string, vars map[string]any) (bool, error) {
	for _, expr := range exprs {
		ok, err := eval.Evaluate(ctx, expr, vars)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// conditionVars assembles the variable snapshot passed to the evaluator for
// one viewer and view context.
func conditionVars(viewer Viewer, vctx *ViewContext) map[string]any {
	vars := map[string]any{
		"viewer": "",
		"name":   "",
	}
	if viewer != nil {
		vars["viewer"] = viewer.ID()
		vars["name"] = viewer.Name()
	}
	if vctx != nil {
		vars["ctx"] = vctx.placeholderSnapshot()
	} else {
		vars["ctx"] = map[string]string{}
	}
	return vars
}
