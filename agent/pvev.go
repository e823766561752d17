package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/nova/model"
)

// MinPlanConfidence is the lowest per-step confidence a plan may carry.
const MinPlanConfidence = 0.7

// PlanRejectedMessage is returned when plan validation fails.
const PlanRejectedMessage = "Plan rejected due to low confidence."

// PlanStep is one step of a generated plan.
type PlanStep struct {
	Step        int     `json:"step"`
	Description string  `json:"description"`
	Tool        string  `json:"tool,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// Plan is the structured output of the planning phase.
type Plan struct {
	Plan []PlanStep `json:"plan"`
}

// GeneratePlan asks the model for a step-by-step plan toward a goal,
// seeding the prompt with matching past episodes. Unparseable responses
// yield an empty plan, which validation rejects.
func (a *Agent) GeneratePlan(ctx context.Context, goal string) Plan {
	episodesText := "None available."
	if episodes, err := a.memory.GetEpisodes(ctx, goal, 1); err == nil && len(episodes) > 0 {
		episodesText = fmt.Sprintf("Past success for '%s': %s",
			goal, strings.Join(episodes[0].Steps, "; "))
	}

	prompt := fmt.Sprintf(`GOAL: %s

RELEVANT PAST EPISODES (Trajectory Replay):
%s

Create a step-by-step plan.
OUTPUT JSON ONLY:
{
    "plan": [
        {"step": 1, "description": "...", "tool": "tool.name", "confidence": 0.0-1.0}
    ]
}`, goal, episodesText)

	response, err := a.model.Generate(ctx, model.Request{
		System:   prompt,
		Messages: a.history,
	})
	if err != nil {
		a.logger.Error("plan generation failed", "error", err)
		return Plan{}
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return Plan{}
	}

	var plan Plan
	if err := json.Unmarshal([]byte(response[start:end+1]), &plan); err != nil {
		a.logger.Warn("plan parse failed", "error", err)
		return Plan{}
	}
	return plan
}

// ValidatePlan accepts a plan only when every step clears the confidence
// floor.
func (a *Agent) ValidatePlan(plan Plan) bool {
	if len(plan.Plan) == 0 {
		return false
	}
	for _, step := range plan.Plan {
		if step.Confidence < MinPlanConfidence {
			a.logger.Warn("low confidence step",
				"description", step.Description, "confidence", step.Confidence)
			return false
		}
	}
	return true
}

// RunPVEV runs a plan-validate-execute-verify session: generate a plan,
// reject it below the confidence floor, execute each step through the
// reasoning loop, then append a reflection on the outcome.
func (a *Agent) RunPVEV(ctx context.Context, goal string) (string, error) {
	plan := a.GeneratePlan(ctx, goal)
	if !a.ValidatePlan(plan) {
		a.logger.Warn("plan validation failed, aborting", "goal", goal)
		return PlanRejectedMessage, nil
	}

	var results []string
	for _, step := range plan.Plan {
		a.logger.Info("executing plan step", "step", step.Step, "description", step.Description)
		stepInput := fmt.Sprintf("Execute step: %s. Use tool: %s", step.Description, step.Tool)
		response, err := a.ProcessInput(ctx, stepInput, 3)
		if err != nil {
			return "", fmt.Errorf("agent: pvev step %d: %w", step.Step, err)
		}
		if response == "" {
			a.logger.Warn("plan step failed", "step", step.Step)
			return "Execution halted.", nil
		}
		results = append(results, response)
	}

	executionLog := strings.Join(results, "\n")
	reflection := a.reflect(ctx, plan, executionLog)
	return fmt.Sprintf("%s\n\n[REFLECTION]\n%s", executionLog, reflection), nil
}

// reflect runs a single non-tool generation summarizing the execution.
func (a *Agent) reflect(ctx context.Context, plan Plan, executionLog string) string {
	planJSON, _ := json.Marshal(plan)
	prompt := fmt.Sprintf(`PLAN: %s
EXECUTION LOG:
%s

Analyze the execution. Did it succeed?
Identify any mistakes or areas for improvement.
OUTPUT: A concise summary of the outcome and any self-correction needed.`, planJSON, executionLog)

	response, err := a.model.Generate(ctx, model.Request{
		System:   prompt,
		Messages: a.history,
	})
	if err != nil {
		a.logger.Warn("reflection failed", "error", err)
		return ""
	}
	return response
}
