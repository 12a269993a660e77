package rag

import (
	"context"
	"fmt"
	"strings"

	"trek-assistant-be/internal/pkg/logger"
	"trek-assistant-be/pkg/llm"
)

// FallbackAnswer is returned when every generation attempt failed.
const FallbackAnswer = "Could not generate an answer at this time."

// NotConfiguredAnswer is returned when no generation backend is wired up.
const NotConfiguredAnswer = "LLM not configured (missing GOOGLE_GEMINI_API_KEY). Context-aware generation is disabled for now."

const answerPromptHeader = `You are PeakPilot, a helpful hiking assistant for Indian treks.
You have some relevant notes below. Use them when helpful, but speak naturally and answer directly.
If something is uncertain or missing, say so briefly and suggest how to verify.`

const answerPromptInstructions = `Instructions:
- Give a concise, accurate answer first.
- Include trek specifics (distance, elevation gain, difficulty, best time, permits) when relevant.
- If you cite, use [Source: domain or name].
- If asked about current weather/conditions, note that real-time checks may be required.`

// Generator turns retrieved context plus a question into a final answer. It
// retries once on an alternate model before giving up with FallbackAnswer.
type Generator struct {
	provider      llm.LLMProvider
	fallbackModel string
	log           logger.ILogger
}

// NewGenerator builds a Generator. A nil provider is valid and yields
// NotConfiguredAnswer for every call.
func NewGenerator(provider llm.LLMProvider, fallbackModel string, log logger.ILogger) *Generator {
	return &Generator{
		provider:      provider,
		fallbackModel: fallbackModel,
		log:           log,
	}
}

// BuildContextBlock renders retrieved chunks into the notes section of the
// prompt: a provenance header line followed by the chunk text.
func BuildContextBlock(chunks []RetrievedChunk) string {
	if len(chunks) == 0 {
		return "(no context)"
	}
	lines := make([]string, len(chunks))
	for i, c := range chunks {
		lines[i] = fmt.Sprintf("[%s] %s | %s\n%s", c.Metadata.Source, c.Metadata.TrailName, c.Metadata.URL, c.Text)
	}
	return strings.Join(lines, "\n\n")
}

// Answer generates the final response for a question given its retrieved
// context. It never returns an error; failure modes degrade to fixed
// messages.
func (g *Generator) Answer(ctx context.Context, question string, chunks []RetrievedChunk) string {
	if g.provider == nil {
		return NotConfiguredAnswer
	}

	prompt := fmt.Sprintf(
		"%s\n\nNotes (may be partial):\n%s\n\nUser question: %s\n\n%s",
		answerPromptHeader,
		BuildContextBlock(chunks),
		question,
		answerPromptInstructions,
	)

	answer, err := g.provider.Generate(ctx, prompt)
	if err == nil && answer != "" {
		return answer
	}
	if g.log != nil {
		g.log.Warn("rag", "primary generation failed", map[string]interface{}{
			"error": errString(err),
		})
	}

	if g.fallbackModel != "" {
		answer, err = g.provider.Generate(ctx, prompt, llm.WithModel(g.fallbackModel))
		if err == nil && answer != "" {
			return answer
		}
		if g.log != nil {
			g.log.Warn("rag", "fallback model generation failed", map[string]interface{}{
				"model": g.fallbackModel,
				"error": errString(err),
			})
		}
	}

	return FallbackAnswer
}
