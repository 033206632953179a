// Package cost estimates the price of routed calls from token usage.
package cost

import (
	"sync"

	"github.com/zen-systems/modelmux/pkg/adapter"
	"github.com/zen-systems/modelmux/pkg/config"
)

const pricingModel = "per_1k_tokens"

// Cost captures a normalized cost estimate.
type Cost struct {
	Currency     string  `json:"currency"`
	Amount       float64 `json:"amount"`
	IsEstimate   bool    `json:"is_estimate"`
	PricingModel string  `json:"pricing_model,omitempty"`
}

// CallReport captures one priced call.
type CallReport struct {
	Candidate string        `json:"candidate,omitempty"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Usage     adapter.Usage `json:"usage"`
	Cost      Cost          `json:"cost"`
	Priced    bool          `json:"priced"`
}

// Report summarizes every call recorded by a Tracker.
type Report struct {
	Currency    string        `json:"currency"`
	TotalAmount float64       `json:"total_amount"`
	TotalUsage  adapter.Usage `json:"total_usage"`
	Calls       []CallReport  `json:"calls,omitempty"`
}

// Tracker accumulates usage and estimated cost across calls. It is safe for
// concurrent use.
type Tracker struct {
	pricing config.PricingConfig

	mu          sync.Mutex
	totalUsage  adapter.Usage
	totalAmount float64
	calls       []CallReport
}

// NewTracker creates a tracker using pricing. A nil pricing table records
// usage without cost.
func NewTracker(pricing config.PricingConfig) *Tracker {
	return &Tracker{pricing: pricing}
}

// Estimate prices usage for provider and model.
func (t *Tracker) Estimate(provider, model string, usage adapter.Usage) (Cost, bool) {
	return Estimate(t.pricing, provider, model, usage)
}

// Record prices usage for the candidate that served a call and adds it to the
// running totals.
func (t *Tracker) Record(candidate, provider, model string, usage *adapter.Usage) CallReport {
	u := normalizeUsage(usage)
	c, ok := t.Estimate(provider, model, u)
	report := CallReport{
		Candidate: candidate,
		Provider:  provider,
		Model:     model,
		Usage:     u,
		Cost:      c,
		Priced:    ok,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, report)
	t.totalUsage = addUsage(t.totalUsage, u)
	t.totalAmount += c.Amount
	return report
}

// Report returns a snapshot of the totals.
func (t *Tracker) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Report{
		Currency:    "USD",
		TotalAmount: t.totalAmount,
		TotalUsage:  t.totalUsage,
		Calls:       append([]CallReport(nil), t.calls...),
	}
}

// Estimate prices usage against a pricing table.
func Estimate(pricing config.PricingConfig, provider, model string, usage adapter.Usage) (Cost, bool) {
	entry, ok := pricingFor(pricing, provider, model)
	if !ok {
		return Cost{Currency: "USD"}, false
	}

	promptCost := (float64(usage.PromptTokens) / 1000.0) * entry.PromptPer1K
	completionCost := (float64(usage.CompletionTokens) / 1000.0) * entry.CompletionPer1K
	return Cost{
		Currency:     "USD",
		Amount:       promptCost + completionCost,
		IsEstimate:   true,
		PricingModel: pricingModel,
	}, true
}

func pricingFor(pricing config.PricingConfig, provider, model string) (config.ModelPricing, bool) {
	if pricing == nil {
		return config.ModelPricing{}, false
	}
	if models, ok := pricing[provider]; ok {
		if entry, ok := models[model]; ok {
			return entry, true
		}
		if entry, ok := models["default"]; ok {
			return entry, true
		}
	}
	return config.ModelPricing{}, false
}

func normalizeUsage(u *adapter.Usage) adapter.Usage {
	if u == nil {
		return adapter.Usage{}
	}
	usage := *u
	if usage.TotalTokens == 0 && (usage.PromptTokens > 0 || usage.CompletionTokens > 0) {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}

func addUsage(a adapter.Usage, b adapter.Usage) adapter.Usage {
	return adapter.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
