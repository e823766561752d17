// Package reasoning routes benchmark tasks to reasoning modes and validates
// model output against task-specific rules. Detection is keyword-based, each
// mode carries its own system prompt and iteration budget, and failed
// validations produce fix prompts the loop re-injects as user turns.
package reasoning
