package weights

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/pkg/anthropic"
)

const refinerSystemPrompt = `You translate walking-route preferences into JSON.
Respond with a single JSON object and nothing else, using exactly these keys:
  avoid_highways (bool), prefer_scenic (bool), prefer_shade (bool),
  shade_penalty (number, 0 when shade is not mentioned, 1-3 scaled by how
  strongly the user wants shade), max_elevation_gain (number in meters, or
  null when hills are not mentioned).`

// Refiner upgrades keyword-parsed weights with an LLM pass. The keyword
// result is always computed first and serves as the fallback when the model
// is unreachable or returns something unparseable.
type Refiner struct {
	client anthropic.Client
	model  string
}

// NewRefiner builds a Refiner around an Anthropic client.
func NewRefiner(client anthropic.Client, model string) *Refiner {
	return &Refiner{client: client, model: model}
}

// Refine parses the prompt with keywords, then asks the model for a
// structured reading. Any model failure degrades to the keyword result.
func (r *Refiner) Refine(ctx context.Context, prompt string) RouteWeights {
	base := ParsePrompt(prompt)
	if r == nil || r.client == nil {
		return base
	}

	temp := 0.0
	resp, err := r.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       r.model,
		MaxTokens:   256,
		Temperature: &temp,
		System:      []anthropic.SystemBlock{{Text: refinerSystemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		zap.L().Warn("weights: refiner call failed, using keyword parse", zap.Error(err))
		return base
	}
	resp.Usage.LogCost(r.model, "weights")

	refined, err := decodeWeights(resp.Text())
	if err != nil {
		zap.L().Warn("weights: unparseable refiner output, using keyword parse", zap.Error(err))
		return base
	}
	return refined
}

// decodeWeights extracts the first JSON object from the model's reply.
func decodeWeights(text string) (RouteWeights, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return RouteWeights{}, eris.New("weights: no JSON object in reply")
	}
	var w RouteWeights
	if err := json.Unmarshal([]byte(text[start:end+1]), &w); err != nil {
		return RouteWeights{}, eris.Wrap(err, "weights: decode reply")
	}
	return w, nil
}
