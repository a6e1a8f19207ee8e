package validation

import (
	"fmt"
	"time"

	"github.com/personaforge/personaforge-backend/internal/platform/logger"
	"github.com/personaforge/personaforge-backend/internal/record"
)

// TemplateRun is the aggregate outcome of running a full template.
type TemplateRun struct {
	Result
	CategoryScores map[Category]float64 `json:"categoryScores"`
	Status         Status               `json:"status"`
	PassedRules    []string             `json:"passedRules"`
	FailedRules    []string             `json:"failedRules"`
}

// Engine runs templates against candidates. It is stateless apart from its
// registry and safe for concurrent use.
type Engine struct {
	registry *Registry
	log      *logger.Logger
}

func NewEngine(registry *Registry, baseLog *logger.Logger) *Engine {
	return &Engine{
		registry: registry,
		log:      baseLog.With("component", "ValidationEngine"),
	}
}

// Run looks up a template and validates the candidate against it.
func (e *Engine) Run(templateID, version string, c record.Candidate, vctx *Context) (*TemplateRun, error) {
	t, err := e.registry.Get(templateID, version)
	if err != nil {
		return nil, err
	}
	return e.RunTemplate(t, c, vctx), nil
}

// RunTemplate executes every enabled unit. A panicking unit is converted
// into a validation-timeout error scoped to that unit's field and the run
// continues: one faulty rule degrades the score, never the whole template.
func (e *Engine) RunTemplate(t *Template, c record.Candidate, vctx *Context) *TemplateRun {
	start := time.Now()
	if vctx == nil {
		vctx = &Context{}
	}

	run := &TemplateRun{
		CategoryScores: map[Category]float64{},
		PassedRules:    []string{},
		FailedRules:    []string{},
	}
	catScores := map[Category][]float64{}
	executed, skipped := 0, 0

	for _, unit := range t.Units {
		if unit.Disabled {
			skipped++
			continue
		}
		executed++
		res := e.runUnit(unit, c, vctx)
		run.Errors = append(run.Errors, res.Errors...)
		run.Warnings = append(run.Warnings, res.Warnings...)
		catScores[unit.Category] = append(catScores[unit.Category], res.Score)
		if res.IsValid {
			run.PassedRules = append(run.PassedRules, unit.Name)
		} else {
			run.FailedRules = append(run.FailedRules, unit.Name)
		}
	}

	// Category score is the unweighted mean of its units; overall is the
	// weighted blend across categories that actually ran.
	var overall, weightSum float64
	for cat, scores := range catScores {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		avg := sum / float64(len(scores))
		run.CategoryScores[cat] = avg
		w := t.CategoryWeights[cat]
		if w <= 0 {
			w = 0.25
		}
		overall += avg * w
		weightSum += w
	}
	if weightSum > 0 {
		overall /= weightSum
	} else {
		overall = 100
	}
	if overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}

	if run.Errors == nil {
		run.Errors = []Error{}
	}
	if run.Warnings == nil {
		run.Warnings = []Warning{}
	}
	run.Score = overall
	run.IsValid = len(run.Errors) == 0
	run.Status = statusFor(overall, run.Errors)
	run.Metadata = ResultMetadata{
		TemplateID:       t.ID,
		TemplateVersion:  t.Version,
		ValidationTimeMs: time.Since(start).Milliseconds(),
		RulesExecuted:    executed,
		RulesSkipped:     skipped,
		Timestamp:        time.Now().UTC(),
	}
	return run
}

func (e *Engine) runUnit(unit Unit, c record.Candidate, vctx *Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("validator panicked", "unit", unit.Name, "panic", fmt.Sprint(r))
			err := newError(KindValidationTimeout, unit.Field,
				fmt.Sprintf("validator %s aborted: %v", unit.Name, r), SeverityError)
			res = finish(unit.Penalty, []Error{err}, nil)
		}
	}()
	return unit.Check(c, vctx)
}

func statusFor(score float64, errs []Error) Status {
	critical := false
	for _, e := range errs {
		if e.Severity == SeverityCritical {
			critical = true
			break
		}
	}
	switch {
	case critical:
		return StatusFailed
	case score >= 70:
		return StatusPassed
	case score >= 50:
		return StatusWarning
	default:
		return StatusFailed
	}
}
