// Package model defines the language model contract used by the agent loop
// and its provider implementations. A LanguageModel turns a system prompt
// plus conversation history into text, either in one shot (Generate) or as a
// pull-based token Stream (StreamGenerate). Concrete providers live in the
// subpackages ollama, anthropic and openai; MockModel backs tests.
package model
