// Package openai implements the embedding gateway against OpenAI-compatible
// APIs (OpenAI, Ollama, LocalAI, vLLM).
//
// Vectors are unit-normalized and dimension-checked before leaving this
// package, so downstream similarity math can assume well-formed input.
package openai
