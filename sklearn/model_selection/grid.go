package model_selection

import (
	"maps"
	"slices"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// ParamGrid maps a parameter name to the values to try. A nil value stands
// for "no limit" where the estimator supports it (e.g. max_depth).
type ParamGrid map[string][]interface{}

// Candidates enumerates every combination of the grid. Keys are taken in
// sorted order and the last key varies fastest, so the order is stable.
func (g ParamGrid) Candidates() ([]map[string]interface{}, error) {
	if len(g) == 0 {
		return nil, errors.NewValidationError("param_grid", "must contain at least one parameter", nil)
	}
	keys := slices.Sorted(maps.Keys(g))
	total := 1
	for _, k := range keys {
		if len(g[k]) == 0 {
			return nil, errors.NewValidationError(k, "parameter grid values must be a non-empty list", g[k])
		}
		total *= len(g[k])
	}

	out := make([]map[string]interface{}, 0, total)
	idx := make([]int, len(keys))
	for c := 0; c < total; c++ {
		params := make(map[string]interface{}, len(keys))
		for i, k := range keys {
			params[k] = g[k][idx[i]]
		}
		out = append(out, params)

		for i := len(keys) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(g[keys[i]]) {
				break
			}
			idx[i] = 0
		}
	}
	return out, nil
}

// Len returns the number of combinations in the grid.
func (g ParamGrid) Len() int {
	if len(g) == 0 {
		return 0
	}
	total := 1
	for _, v := range g {
		total *= len(v)
	}
	return total
}
