// Package compress keeps conversation history inside the model's context
// window. Long histories are folded into a summary message while system
// messages and the most recent turns survive verbatim.
package compress

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/nova/core"
	"github.com/hupe1980/nova/logging"
	"github.com/hupe1980/nova/model"
)

const (
	// DefaultMaxHistory is the message count beyond which compression
	// kicks in.
	DefaultMaxHistory = 10

	// keepRecent is how many trailing messages stay verbatim.
	keepRecent = 5

	summaryPrefix = "[Previous Context Summary]: "
)

// Options configures a Compressor.
type Options struct {
	MaxHistory int

	// Model summarizes the folded span. When nil the span is replaced by
	// a count marker instead.
	Model model.LanguageModel

	// ModelName selects the (fast) model used for summarization.
	ModelName string

	Logger logging.Logger
}

// Compressor folds long histories into a compact form.
type Compressor struct {
	maxHistory int
	model      model.LanguageModel
	modelName  string
	logger     logging.Logger
}

// New creates a Compressor.
func New(optFns ...func(o *Options)) *Compressor {
	opts := Options{
		MaxHistory: DefaultMaxHistory,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultMaxHistory
	}
	return &Compressor{
		maxHistory: opts.MaxHistory,
		model:      opts.Model,
		modelName:  opts.ModelName,
		logger:     opts.Logger,
	}
}

// Compress returns the history unchanged while it fits, otherwise system
// messages, one summary message and the last few turns.
func (c *Compressor) Compress(ctx context.Context, messages []core.Message) []core.Message {
	if len(messages) <= c.maxHistory {
		return messages
	}

	var system []core.Message
	var rest []core.Message
	for _, msg := range messages {
		if msg.Role == core.RoleSystem {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}

	if len(rest) <= keepRecent {
		return messages
	}

	middle := rest[:len(rest)-keepRecent]
	recent := rest[len(rest)-keepRecent:]

	summary := c.summarize(ctx, middle)

	out := make([]core.Message, 0, len(system)+1+len(recent))
	out = append(out, system...)
	out = append(out, core.NewMessage(core.RoleSystem, summaryPrefix+summary))
	out = append(out, recent...)

	c.logger.Debug("compressed history", "before", len(messages), "after", len(out))
	return out
}

func (c *Compressor) summarize(ctx context.Context, middle []core.Message) string {
	if c.model == nil {
		return fmt.Sprintf("... %d preserved messages ...", len(middle))
	}

	var sb strings.Builder
	for _, msg := range middle {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
	}

	summary, err := c.model.Generate(ctx, model.Request{
		Model:  c.modelName,
		System: "Summarize the following conversation in a few sentences. Preserve facts, decisions and open questions.",
		Messages: []core.Message{
			core.NewMessage(core.RoleUser, sb.String()),
		},
	})
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			c.logger.Warn("history summarization failed", "error", err)
		}
		return fmt.Sprintf("... %d preserved messages ...", len(middle))
	}
	return strings.TrimSpace(summary)
}
