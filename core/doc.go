// Package core defines the shared data model of the Nova runtime: conversation
// messages, tool calls and their normalized results, risk levels and the
// observer callback contracts. Higher-level packages (tool, policy, executor,
// dispatch, agent) depend on core; core depends on nothing but the standard
// library.
package core
