// Package nova provides a high-level façade over the agent runtime: tool
// registry, policy engine, memory, budget routing and the reasoning loop.
// Most applications interact with this package by:
//  1. Creating a Nova via New() (optionally overriding config, store and logger)
//  2. Registering tools and policies
//  3. Driving turns with Process, plans with RunPVEV, or tasks with RunTask
//
// All defaults are safe for local development: an in-memory store, a no-op
// logger and an Ollama model on localhost. Production setups typically
// supply a durable memory store and a structured logger.
package nova

import (
	"context"
	"path/filepath"

	"github.com/hupe1980/nova/agent"
	"github.com/hupe1980/nova/config"
	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/logging"
	"github.com/hupe1980/nova/memory"
	"github.com/hupe1980/nova/model"
	"github.com/hupe1980/nova/model/ollama"
	"github.com/hupe1980/nova/policy"
	"github.com/hupe1980/nova/reasoning"
	"github.com/hupe1980/nova/task"
	"github.com/hupe1980/nova/tool"
)

// Options configures the Nova instance.
type Options struct {
	// Config controls safety, budget, benchmark and model defaults.
	Config *config.Config

	// Model is the language model driving the loop. Defaults to an Ollama
	// client built from the config.
	Model model.LanguageModel

	// Store backs the memory tiers (defaults to in-memory).
	Store memory.Store

	// Callbacks receive status and stream events.
	Callbacks core.Callbacks

	// TaskCallback observes task state transitions.
	TaskCallback func(*task.Task)

	// BenchmarkCriteria supplies expected answers and keywords for
	// benchmark validation.
	BenchmarkCriteria *reasoning.Criteria

	// Logger defaults to NoOp.
	Logger logging.Logger

	// SessionID pins the session; empty generates one.
	SessionID string
}

// Nova is the high-level façade aggregating the agent and its services.
type Nova struct {
	opts     Options
	registry *tool.Registry
	policies *policy.Engine
	memory   *memory.Manager
	agent    *agent.Agent
}

// New creates a Nova instance with optional overrides. Any unset service is
// initialized with a local default.
func New(optFns ...func(o *Options)) *Nova {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config == nil {
		opts.Config = config.Default()
		opts.Config.WorkspaceDir = "."
	}
	if opts.Model == nil {
		opts.Model = ollama.NewModel(func(o *ollama.Options) {
			o.BaseURL = opts.Config.OllamaHost
			o.Model = opts.Config.ModelName
			o.Timeout = opts.Config.ToolTimeout
		})
	}
	if opts.Store == nil {
		opts.Store = memory.NewInMemoryStore()
	}

	registry := tool.NewRegistry()
	policies := defaultPolicyEngine(opts.Config)
	mem := memory.NewManager(opts.Store, func(o *memory.ManagerOptions) {
		o.Logger = opts.Logger
	})

	a := agent.New(opts.Model, registry, policies, func(o *agent.Options) {
		o.Config = opts.Config
		o.Memory = mem
		o.Callbacks = opts.Callbacks
		o.TaskCallback = opts.TaskCallback
		o.BenchmarkCriteria = opts.BenchmarkCriteria
		o.Logger = opts.Logger
		o.SessionID = opts.SessionID
	})

	return &Nova{
		opts:     opts,
		registry: registry,
		policies: policies,
		memory:   mem,
		agent:    a,
	}
}

// defaultPolicyEngine assembles the policy chain matching the configured
// safety level. Every decision lands in the audit log under the state dir.
func defaultPolicyEngine(cfg *config.Config) *policy.Engine {
	level := policy.ParseSafetyLevel(cfg.SafetyLevel)
	audit := policy.NewAuditLogger(filepath.Join(cfg.StateDir(), "audit.log"))
	return policy.NewEngine(audit,
		policy.NewSafetyLevelPolicy(level, cfg.SandboxRoot, cfg.WorkspaceDir),
		policy.NewDangerousCommandPolicy(),
	)
}

// RegisterTool adds a tool to the registry.
func (n *Nova) RegisterTool(t tool.Tool) { n.registry.Register(t) }

// Registry exposes the tool registry for ephemeral overlays and listings.
func (n *Nova) Registry() *tool.Registry { return n.registry }

// Policies exposes the policy engine for adding or removing policies.
func (n *Nova) Policies() *policy.Engine { return n.policies }

// Memory exposes the memory manager.
func (n *Nova) Memory() *memory.Manager { return n.memory }

// Agent exposes the underlying loop orchestrator.
func (n *Nova) Agent() *agent.Agent { return n.agent }

// Process runs one user turn through the reasoning loop.
func (n *Nova) Process(ctx context.Context, input string) (string, error) {
	return n.agent.ProcessInput(ctx, input, n.opts.Config.MaxIterations)
}

// RunPVEV runs a plan-validate-execute-verify session for a goal.
func (n *Nova) RunPVEV(ctx context.Context, goal string) (string, error) {
	return n.agent.RunPVEV(ctx, goal)
}

// RunTask executes a structured task through checkpointed steps.
func (n *Nova) RunTask(ctx context.Context, t *task.Task) error {
	return n.agent.RunTask(ctx, t)
}
