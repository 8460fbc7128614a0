// Package gemini talks to the Gemini generateContent API. It provides the
// model-backed pipeline operations (narrative breakdown, pitch deck, visual
// assets, production breakdown, scene extraction) on top of a retrying HTTP
// client with quota-aware error classification.
package gemini
