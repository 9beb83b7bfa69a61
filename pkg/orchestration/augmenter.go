package orchestration

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

// PromptAugmenter wraps the raw user prompt with phase-specific
// instructions and, for the revision phase, a rendering of the prior
// collation. It is pure and stateless: the same (phase, prompt, prior)
// input always produces the same augmented text.
type PromptAugmenter struct{}

// Augment builds the user_prompt field of the DisruptionPayload sent to
// every agent in phase. prior must be non-nil iff phase is revision, per
// spec §4.2 step 1.
func (PromptAugmenter) Augment(phase disruption.Phase, prompt string, prior *disruption.Collation) string {
	switch phase {
	case disruption.PhaseInitial:
		return fmt.Sprintf(
			"%s\n\n---\nThis is the initial analysis round. Provide your independent assessment of the disruption above.",
			prompt,
		)
	case disruption.PhaseRevision:
		var b strings.Builder
		fmt.Fprintf(&b, "%s\n\n---\nThis is the revision round. Other agents' initial recommendations are below; revise your own analysis in light of them where warranted, but do not simply defer to the majority.\n\n", prompt)
		for _, name := range disruption.AllAgents {
			resp, ok := prior.Responses[name]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "[%s] (%s, confidence %.2f): %s\n", name, resp.Status, resp.Confidence, resp.Recommendation)
		}
		return b.String()
	default:
		return prompt
	}
}

// BuildPayload constructs the full DisruptionPayload for one agent in one
// phase, including the other_recommendations map required by spec §3.1 for
// the revision phase.
func (a PromptAugmenter) BuildPayload(phase disruption.Phase, prompt string, prior *disruption.Collation) disruption.DisruptionPayload {
	payload := disruption.DisruptionPayload{
		UserPrompt: a.Augment(phase, prompt, prior),
		Phase:      phase,
	}
	if phase == disruption.PhaseRevision && prior != nil {
		payload.OtherRecommendations = make(map[disruption.AgentName]disruption.AgentResponse, len(prior.Responses))
		for name, resp := range prior.Responses {
			payload.OtherRecommendations[name] = resp
		}
	}
	return payload
}
