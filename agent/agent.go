// Package agent wires the reasoning loop together: model routing, prompt
// assembly, tool-call parsing, parallel dispatch, validation, memory and
// telemetry. One Agent owns one session; its loop is single threaded with
// parallel fan-out only at tool dispatch.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/nova/compress"
	"github.com/hupe1980/nova/config"
	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/dispatch"
	"github.com/hupe1980/nova/executor"
	"github.com/hupe1980/nova/logging"
	"github.com/hupe1980/nova/memory"
	"github.com/hupe1980/nova/model"
	"github.com/hupe1980/nova/policy"
	"github.com/hupe1980/nova/reasoning"
	"github.com/hupe1980/nova/routing"
	"github.com/hupe1980/nova/rollback"
	"github.com/hupe1980/nova/task"
	"github.com/hupe1980/nova/telemetry"
	"github.com/hupe1980/nova/tool"
	"github.com/hupe1980/nova/trajectory"
)

const defaultSystemPrompt = `You are Nova — an autonomous local agent.

IDENTITY: You are "Nova". Operate privately.
RESPONSE: Be concise, direct, and action-oriented.

CRITICAL INSTRUCTIONS:
1. CALL TOOLS for any task. OUTPUT JSON ONLY: {"tool": "name", "args": {...}}
2. USE ONLY these tools:
%s
3. NEVER nest tools. No explanations unless you've finished all tasks.
4. Search/Learn if unsure: web.search, web.learn_topic.

FORMAT:
{"tool": "tool.name", "args": {"arg1": "value1"}}`

// MaxIterationsMessage is returned when the loop exhausts its iteration
// budget without a final response.
const MaxIterationsMessage = "Max iterations reached."

// Options configures an Agent. Zero-value fields get working defaults
// derived from the config.
type Options struct {
	Config            *config.Config
	Memory            *memory.Manager
	Compressor        *compress.Compressor
	Router            *routing.Router
	Trajectory        *trajectory.Logger
	Telemetry         *telemetry.Collector
	Rollback          *rollback.Manager
	Callbacks         core.Callbacks
	TaskCallback      func(*task.Task)
	Logger            logging.Logger
	SessionID         string
	BenchmarkCriteria *reasoning.Criteria
}

// Agent runs the ReAct loop for one session.
type Agent struct {
	cfg        *config.Config
	model      model.LanguageModel
	registry   *tool.Registry
	dispatcher *dispatch.Dispatcher
	memory     *memory.Manager
	compressor *compress.Compressor
	router     *routing.Router
	reasoner   *reasoning.Router
	validator  *reasoning.Validator
	guard      *reasoning.MemoryGuard
	trajectory *trajectory.Logger
	telemetry  *telemetry.Collector
	rollback   *rollback.Manager
	callbacks  core.Callbacks
	taskCb     func(*task.Task)
	logger     logging.Logger

	sessionID string
	history   core.History
	criteria  *reasoning.Criteria
}

// New wires an Agent around a model, tool registry and policy engine.
func New(m model.LanguageModel, registry *tool.Registry, policies *policy.Engine, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
		cfg.WorkspaceDir = "."
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.New().String()
	}
	if opts.Memory == nil {
		opts.Memory = memory.NewManager(memory.NewInMemoryStore(), func(o *memory.ManagerOptions) {
			o.Logger = opts.Logger
		})
	}
	if opts.Compressor == nil {
		opts.Compressor = compress.New(func(o *compress.Options) {
			o.MaxHistory = cfg.MaxHistoryBeforeCompression
			o.Model = m
			o.ModelName = cfg.TierModels[routing.TierFast.String()]
			o.Logger = opts.Logger
		})
	}
	if opts.Router == nil {
		ledger := routing.NewBudgetLedger(routing.LedgerPath(cfg.StateDir()), cfg.DailyBudget)
		opts.Router = routing.NewRouter(ledger, func(o *routing.RouterOptions) {
			o.TierModels = cfg.TierModels
			o.Logger = opts.Logger
		})
	}
	if opts.Trajectory == nil {
		opts.Trajectory = trajectory.NewLogger(filepath.Join(cfg.StateDir(), "trajectories"))
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NewCollector(telemetry.FilePath(cfg.StateDir()))
	}
	if opts.Rollback == nil {
		opts.Rollback = rollback.New(cfg.WorkspaceDir, func(o *rollback.Options) {
			o.Logger = opts.Logger
		})
	}

	exec := executor.New(registry, policies, opts.Logger)
	workers := dispatch.DefaultWorkers
	if cfg.TurboMode {
		workers = dispatch.TurboWorkers
	}
	dispatcher := dispatch.New(exec, func(o *dispatch.Options) {
		o.MaxWorkers = workers
		o.Breaker = dispatch.NewBreaker(cfg.CircuitBreakerThreshold)
		o.Callbacks = opts.Callbacks
		o.Logger = opts.Logger
	})

	return &Agent{
		cfg:        cfg,
		model:      m,
		registry:   registry,
		dispatcher: dispatcher,
		memory:     opts.Memory,
		compressor: opts.Compressor,
		router:     opts.Router,
		reasoner:   reasoning.NewRouter(),
		validator:  reasoning.NewValidator(),
		guard:      reasoning.NewMemoryGuard(),
		trajectory: opts.Trajectory,
		telemetry:  opts.Telemetry,
		rollback:   opts.Rollback,
		callbacks:  opts.Callbacks,
		taskCb:     opts.TaskCallback,
		logger:     opts.Logger,
		sessionID:  opts.SessionID,
		criteria:   opts.BenchmarkCriteria,
	}
}

// SessionID returns the agent's session id.
func (a *Agent) SessionID() string { return a.sessionID }

// History returns a copy of the conversation so far.
func (a *Agent) History() core.History { return a.history.Clone() }

// ProcessInput runs the ReAct loop for one user turn. The context cancels
// cooperatively at iteration boundaries; in-flight tool calls finish and
// their results are discarded.
func (a *Agent) ProcessInput(ctx context.Context, userInput string, maxIterations int) (string, error) {
	a.history = a.compressor.Compress(ctx, a.history)

	var policyPtr *reasoning.TaskPolicy
	var taskType reasoning.TaskType
	if a.cfg.BenchmarkMode {
		if a.cfg.BenchmarkTaskType == "" || a.cfg.BenchmarkTaskType == "auto" {
			taskType = reasoning.DetectTaskType(userInput)
		} else {
			taskType = reasoning.TaskType(a.cfg.BenchmarkTaskType)
		}
		p := a.reasoner.Route(taskType, a.criteria)
		policyPtr = &p
		a.logger.Debug("benchmark routing", "task_type", taskType, "mode", p.Mode)

		if taskType == reasoning.TaskConversation {
			a.guard.AddTurn(core.RoleUser, userInput)
			userInput = a.guard.ContextPrompt(userInput)
		}
	}

	a.history = a.history.Append(core.RoleUser, userInput)
	a.trajectory.Log(trajectory.StepInput, map[string]any{"content": userInput})

	start := time.Now()
	for iteration := 1; iteration <= maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			a.finalize(false, "cancelled")
			return "", err
		}

		a.callbacks.EmitStatus(core.StatusThinkingStart)

		systemPrompt := a.buildSystemPrompt(policyPtr)
		decision := a.route(userInput)
		a.logger.Debug("model selection",
			"model", decision.Model, "tier", decision.Tier.String(), "reason", decision.Reason)

		cacheKey := memory.CacheKey(systemPrompt, a.history.Render())
		if iteration == 1 {
			if cached, ok := a.memory.CachedResponse(ctx, cacheKey); ok {
				a.callbacks.EmitStatus(core.StatusThinkingEnd)
				a.callbacks.EmitStream(cached)
				_ = a.telemetry.LogCache(true)
				return cached, nil
			}
		}
		_ = a.telemetry.LogCache(false)

		genOpts := &model.Options{
			Temperature: model.Float(a.cfg.Temperature),
			MaxTokens:   a.cfg.MaxTokens,
			Stop:        []string{"Observation:"},
		}
		if a.cfg.Seed != 0 {
			genOpts.Seed = model.Int(a.cfg.Seed)
		}
		response, err := a.generate(ctx, model.Request{
			Model:    decision.Model,
			System:   systemPrompt,
			Messages: a.history,
			Options:  genOpts,
		})
		a.callbacks.EmitStatus(core.StatusThinkingEnd)
		if err != nil {
			a.trajectory.Log(trajectory.StepError, map[string]any{
				"message": err.Error(), "type": "generation_error",
			})
			a.logger.Error("generation failed", "error", err)
			return "", fmt.Errorf("agent: generation: %w", err)
		}

		a.account(systemPrompt, response, decision.Tier)

		if response != "" {
			a.memory.CacheResponse(ctx, cacheKey, response)
			a.trajectory.Log(trajectory.StepThought, map[string]any{"content": response})
		}

		if calls := ParseToolCalls(response); len(calls) > 0 {
			a.history = a.history.Append(core.RoleAssistant, response)
			results := a.dispatcher.Dispatch(ctx, calls)
			for _, r := range results {
				a.trajectory.Log(trajectory.StepToolCall, map[string]any{
					"tool": r.Call.Tool, "args": r.Call.Args,
				})
				a.trajectory.Log(trajectory.StepToolResult, map[string]any{
					"tool": r.Call.Tool, "success": r.Result.Success, "error": r.Result.Error,
				})
			}
			observation := dispatch.FormatObservation(results)
			a.trajectory.Log(trajectory.StepObservation, map[string]any{"content": observation})
			a.history = a.history.Append(core.RoleUser,
				fmt.Sprintf("[OBSERVATION]\n%s\n\nWhat is the next step?", observation))
			continue
		}

		if bad := DetectBadToolCall(response); bad != "" {
			a.logger.Warn("invalid tool call format", "tool", bad)
			a.history = a.history.Append(core.RoleAssistant, response)
			a.history = a.history.Append(core.RoleUser, "SYSTEM ERROR: You MUST use JSON format for tool calls.")
			a.trajectory.Log(trajectory.StepError, map[string]any{
				"message": "bad_tool_format", "tool": bad,
			})
			continue
		}

		if policyPtr != nil {
			result := a.validator.Validate(response, taskType, a.criteria)
			if !result.Passed {
				a.logger.Warn("response validation failed", "issues", strings.Join(result.Issues, "; "))
				if iteration < a.cfg.BenchmarkMaxRetries {
					a.history = a.history.Append(core.RoleAssistant, response)
					a.history = a.history.Append(core.RoleUser, result.FixPrompt)
					continue
				}
				a.logger.Warn("max validation retries reached, returning best effort")
			}
			if policyPtr.Mode == reasoning.ModeConversational {
				a.guard.AddTurn(core.RoleAssistant, response)
			}
		}

		a.history = a.history.Append(core.RoleAssistant, response)
		a.trajectory.Log(trajectory.StepResponse, map[string]any{"content": response})
		a.SaveState(ctx)
		_ = a.telemetry.LogTask(true, time.Since(start))
		return response, nil
	}

	a.finalize(false, "max_iterations")
	_ = a.telemetry.LogTask(false, time.Since(start))
	return MaxIterationsMessage, nil
}

// route picks the model for this turn. Benchmark runs without turbo pin the
// configured model at the powerful tier.
func (a *Agent) route(userInput string) routing.Decision {
	if a.cfg.BenchmarkMode && !a.cfg.TurboMode {
		return routing.Decision{
			Tier:   routing.TierPowerful,
			Model:  a.cfg.ModelName,
			Reason: "benchmark mode, turbo disabled",
		}
	}
	return a.router.Route(userInput)
}

// generate produces one model response, streaming through the callback when
// one is registered. While streaming, chunks stop being forwarded as soon as
// a '{' shows up in the accumulated text so raw tool calls stay hidden.
func (a *Agent) generate(ctx context.Context, req model.Request) (string, error) {
	if a.callbacks.Stream == nil {
		return a.model.Generate(ctx, req)
	}

	stream, err := a.model.StreamGenerate(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, err := stream.Next()
		if chunk != "" {
			full.WriteString(chunk)
			if !strings.Contains(full.String(), "{") {
				a.callbacks.EmitStream(chunk)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return full.String(), err
		}
	}
	return full.String(), nil
}

// account updates telemetry and the budget ledger with the turn's estimated
// token usage.
func (a *Agent) account(systemPrompt, response string, tier routing.ModelTier) {
	promptTokens := len(systemPrompt) / 4
	completionTokens := len(response) / 4
	cost := float64(promptTokens+completionTokens) * tier.CostPer1K() / 1000

	_ = a.telemetry.LogTokens(promptTokens, completionTokens, cost)
	if err := a.router.Track(tier, promptTokens+completionTokens); err != nil {
		a.logger.Warn("budget tracking failed", "error", err)
	}
}

func (a *Agent) buildSystemPrompt(policy *reasoning.TaskPolicy) string {
	descriptions := a.registry.Descriptions()
	names := make([]string, 0, len(descriptions))
	for name := range descriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	var lines []string
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %s", name, descriptions[name]))
	}
	toolDesc := strings.Join(lines, "\n")

	if policy != nil {
		prompt := reasoning.SystemPrompt(*policy)
		if policy.AllowTools {
			prompt += "\n\nAVAILABLE TOOLS:\n" + toolDesc
		}
		return prompt
	}
	return fmt.Sprintf(defaultSystemPrompt, toolDesc)
}

func (a *Agent) finalize(success bool, reason string) {
	if err := a.trajectory.Finalize(a.sessionID, success, map[string]any{"reason": reason}); err != nil {
		a.logger.Warn("trajectory finalize failed", "error", err)
	}
}

// SaveState persists the current conversation snapshot.
func (a *Agent) SaveState(ctx context.Context) {
	a.memory.SaveSession(ctx, a.sessionID, a.history, map[string]string{
		"profile": "general",
		"sandbox": a.cfg.SafetyLevel,
	})
}

// LoadSession replaces the conversation with a stored snapshot.
func (a *Agent) LoadSession(ctx context.Context, sessionID string) error {
	sess, err := a.memory.LoadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	a.history = sess.History
	a.sessionID = sess.ID
	a.logger.Info("resumed session", "session_id", sessionID)
	return nil
}

// ResetConversation clears the history and the conversation memory guard.
func (a *Agent) ResetConversation() {
	a.history = nil
	a.guard.Reset()
}
