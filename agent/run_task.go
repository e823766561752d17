package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/task"
)

// RunTask executes a task's pending steps in order. Each step gets a
// workspace checkpoint first; tool-bound steps run through the dispatcher's
// breaker and retry path, free-form steps delegate to the reasoning loop. A
// failing step rolls the workspace back, marks the task failed and stops.
// Completed tasks are persisted as episodes.
//
// State-machine violations are returned as errors and abort immediately.
func (a *Agent) RunTask(ctx context.Context, t *task.Task) error {
	a.logger.Info("starting task", "goal", t.Goal)
	if err := t.Transition(task.StatusInProgress); err != nil {
		return err
	}
	a.notifyTask(t)

	for _, step := range t.Steps {
		if step.Status != task.StatusPending {
			continue
		}

		checkpoint := fmt.Sprintf("step_%s_%d", step.ID, time.Now().Unix())
		if err := a.rollback.Checkpoint(ctx, checkpoint); err != nil {
			a.logger.Warn("checkpoint failed", "name", checkpoint, "error", err)
		}

		a.logger.Info("executing step", "id", step.ID, "description", step.Description)
		if err := t.TransitionStep(step, task.StatusInProgress); err != nil {
			return err
		}
		a.notifyTask(t)

		var failed bool
		if step.Tool != "" {
			args := step.Args
			if args == nil {
				args = map[string]any{}
			}
			res := a.dispatcher.DispatchSingle(ctx, core.ToolCall{Tool: step.Tool, Args: args})
			if res.Result.Success {
				step.Result = fmt.Sprintf("%v", res.Result.Result)
			} else {
				step.Error = res.Result.Error
				failed = true
			}
		} else {
			response, err := a.ProcessInput(ctx, "Current Step: "+step.Description, 5)
			if err == nil && response != "" {
				step.Result = response
			} else {
				step.Error = "Agent failed to execute step"
				failed = true
			}
		}

		if failed {
			if err := t.TransitionStep(step, task.StatusFailed); err != nil {
				return err
			}
			if err := t.Transition(task.StatusFailed); err != nil {
				return err
			}
			a.logger.Warn("step failed, rolling back", "id", step.ID)
			if err := a.rollback.Revert(ctx, checkpoint); err != nil {
				a.logger.Warn("rollback failed", "name", checkpoint, "error", err)
			}
			a.notifyTask(t)
			break
		}

		if err := t.TransitionStep(step, task.StatusCompleted); err != nil {
			return err
		}
		a.notifyTask(t)
	}

	if t.Status != task.StatusFailed {
		if err := t.Transition(task.StatusCompleted); err != nil {
			return err
		}
		a.notifyTask(t)
		a.memory.SaveEpisode(ctx, t.Goal, t.Descriptions(), "success", a.sessionID)
		a.logger.Info("task completed", "goal", t.Goal)
	}
	return nil
}

func (a *Agent) notifyTask(t *task.Task) {
	if a.taskCb != nil {
		a.taskCb(t)
	}
}
