package api

import (
	"net/http"
	"strconv"

	"github.com/livemeasure/livemeasure/pkg/formula"
	"github.com/livemeasure/livemeasure/pkg/metric"
)

type formulaInfo struct {
	Metric    metric.Metric `json:"metric"`
	DependsOn []string      `json:"depends_on,omitempty"`
	Aggregate bool          `json:"aggregate"`
}

// handleFormulas handles GET /api/v1/formulas?new_code=true|false. The
// formulas are listed in evaluation order.
func (h *Handler) handleFormulas(w http.ResponseWriter, r *http.Request) {
	plan := h.engine.Plan()

	var formulas []*formula.Formula
	switch v := r.URL.Query().Get("new_code"); v {
	case "":
		formulas = append(formulas, plan.Formulas(false)...)
		formulas = append(formulas, plan.Formulas(true)...)
	default:
		newCode, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid new_code: "+v)
			return
		}
		formulas = plan.Formulas(newCode)
	}

	out := make([]formulaInfo, 0, len(formulas))
	for _, f := range formulas {
		info := formulaInfo{Metric: f.Metric, Aggregate: f.Aggregate != nil}
		for _, dep := range f.DependsOn {
			info.DependsOn = append(info.DependsOn, dep.Key)
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"formulas": out})
}
