package domain

import "time"

const DefaultAnalysisType = "stability"

// HighImpactWeight is the relation weight above which an entity counts as a risk factor.
const HighImpactWeight = 2.0

type MarketAnalysisRequest struct {
	Products     []string `json:"products"`
	AnalysisType string   `json:"analysis_type"`
}

// RelatedEntity is a knowledge-graph neighbour of a product and the weight of the link.
type RelatedEntity struct {
	Entity string  `json:"entity"`
	Weight float64 `json:"weight"`
}

type StabilityFactors struct {
	ConnectionStrength int      `json:"connection_strength"`
	RiskFactors        []string `json:"risk_factors"`
	StabilityScore     float64  `json:"stability_score"`
}

type ProductStability struct {
	RelatedEntities   []RelatedEntity  `json:"related_entities"`
	ApplicableRules   int              `json:"applicable_rules"`
	RuleDetails       []string         `json:"rule_details"`
	MarketConnections int              `json:"market_connections"`
	StabilityFactors  StabilityFactors `json:"stability_factors"`
}

type MarketAnalysis struct {
	Success               bool                        `json:"success"`
	AnalysisType          string                      `json:"analysis_type"`
	ProductsAnalyzed      int                         `json:"products_analyzed"`
	Analysis              map[string]ProductStability `json:"analysis"`
	KnowledgeGraphSummary map[string]any              `json:"knowledge_graph_summary"`
	Timestamp             time.Time                   `json:"timestamp"`
}

type TemporalImpact struct {
	DaysOffset int     `json:"days_offset"`
	Impact     float64 `json:"impact"`
}

type KnowledgeInsights struct {
	Success          bool                        `json:"success"`
	Product          string                      `json:"product"`
	RelatedEntities  []RelatedEntity             `json:"related_entities"`
	SymbolicRules    []string                    `json:"symbolic_rules"`
	TemporalImpacts  map[string][]TemporalImpact `json:"temporal_impacts"`
	KnowledgeSummary map[string]any              `json:"knowledge_summary"`
	Insights         []string                    `json:"insights"`
}

// ExplanationRequest asks why a product is predicted at a value.
type ExplanationRequest struct {
	ProductName     string         `json:"product_name"`
	PredictionValue float64        `json:"prediction_value"`
	Context         map[string]any `json:"context"`
}

// Reasoning is what a reasoning-capable engine returns for an explanation query.
type Reasoning struct {
	ReasoningChain  []string         `json:"reasoning_chain"`
	ApplicableRules []string         `json:"applicable_rules"`
	Confidence      float64          `json:"confidence"`
	CausalEffects   []map[string]any `json:"causal_effects"`
	Counterfactual  map[string]any   `json:"counterfactual_analysis"`
}

// ReasoningQuery is sent to the engine. BaselinePrice feeds the counterfactual.
type ReasoningQuery struct {
	Question      string  `json:"question"`
	Product       string  `json:"product"`
	CurrentPrice  float64 `json:"current_price"`
	DemandLevel   string  `json:"demand_level"`
	DaysOffset    int     `json:"days_offset"`
	ScenarioPrice float64 `json:"scenario_price"`
	BaselinePrice float64 `json:"baseline_price"`
}

type ExplanationResponse struct {
	Success       bool           `json:"success"`
	Product       string         `json:"product"`
	Prediction    float64        `json:"prediction"`
	Explanation   map[string]any `json:"explanation"`
	HumanReadable string         `json:"human_readable"`
}
