package toolcall

import (
	"context"
	"strings"
)

// Tool names the model may emit.
const (
	ToolShowROICalculator = "show_roi_calculator"
	ToolScheduleDemo      = "schedule_demo"
	ToolStartAssessment   = "start_assessment"
	ToolExplainSolution   = "explain_solution"
	ToolShowCaseStudy     = "show_case_study"
	ToolNavigateTo        = "navigate_to"
)

// solutionCatalog backs explain_solution. Content only; no behavior.
var solutionCatalog = map[string]string{
	"workflow-automation": "Workflow Automation removes repetitive handoffs by routing work items automatically, typically cutting processing time 40-60%.",
	"customer-insights":   "Customer Insights unifies interaction data into live dashboards so teams act on behavior instead of gut feeling.",
	"ai-assistant":        "The AI Assistant handles first-line requests around the clock and escalates with full context when a human is needed.",
	"data-integration":    "Data Integration connects your existing tools into one consistent pipeline without replacing them.",
}

// caseStudyCatalog backs show_case_study, keyed by industry.
var caseStudyCatalog = map[string]string{
	"manufacturing": "A mid-size manufacturer automated quality reporting and cut defect-triage time from days to hours.",
	"healthcare":    "A regional clinic network reduced patient-intake processing by 70% while staying compliant.",
	"retail":        "A retail chain unified inventory signals across 200 stores and recovered 12% of lost sales.",
	"finance":       "A lending firm automated document checks and halved its time-to-decision.",
	"technology":    "A SaaS scale-up consolidated its support tooling and doubled first-response speed.",
}

const noDataMessage = "No data available for that yet - could you share a bit more detail about what you're looking for?"

// RegisterBuiltins installs the standard tool set. UI-facing tools only
// return an action payload; the channel decides how to render it.
func RegisterBuiltins(r *Registry) {
	r.Register(ToolShowROICalculator, func(ctx context.Context, params map[string]string) Result {
		return Result{Success: true, Action: "show_panel", Data: map[string]any{"panel": "roi_calculator"}}
	})
	r.Register(ToolScheduleDemo, func(ctx context.Context, params map[string]string) Result {
		return Result{Success: true, Action: "show_panel", Data: map[string]any{"panel": "scheduler"}}
	})
	r.Register(ToolStartAssessment, func(ctx context.Context, params map[string]string) Result {
		return Result{Success: true, Action: "start_assessment"}
	})
	r.Register(ToolNavigateTo, func(ctx context.Context, params map[string]string) Result {
		page := strings.TrimSpace(params["page"])
		if page == "" {
			return Result{Success: false, Message: noDataMessage}
		}
		return Result{Success: true, Action: "navigate", Data: map[string]any{"page": page}}
	})
	r.Register(ToolExplainSolution, func(ctx context.Context, params map[string]string) Result {
		return lookupCatalog(solutionCatalog, params["solution_id"], "solution")
	})
	r.Register(ToolShowCaseStudy, func(ctx context.Context, params map[string]string) Result {
		return lookupCatalog(caseStudyCatalog, params["industry"], "case_study")
	})
}

// lookupCatalog resolves a content table entry. Missing or unrecognized keys
// ask for more detail rather than erroring.
func lookupCatalog(catalog map[string]string, key, kind string) Result {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, " ", "-")
	content, ok := catalog[k]
	if !ok {
		return Result{Success: false, Message: noDataMessage}
	}
	return Result{
		Success: true,
		Action:  "show_content",
		Message: content,
		Data:    map[string]any{"kind": kind, "id": k},
	}
}
