package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/szlkpr/ims-ml-service/internal/domain"
	"github.com/szlkpr/ims-ml-service/internal/forecaster"
)

const (
	stabilityMaxHops = 2

	insightEntities      = 5
	strongConnections    = 5
	predictableRuleCount = 3
	highImpactListed     = 3
)

var temporalOffsets = []int{-7, -1, 0, 1, 7}

// MarketService answers questions about the engine's knowledge graph.
type MarketService struct {
	gateway *Gateway
	now     func() time.Time
}

func NewMarketService(gateway *Gateway) *MarketService {
	return &MarketService{gateway: gateway, now: time.Now}
}

func (s *MarketService) graph() (forecaster.KnowledgeGraph, error) {
	if s.gateway == nil {
		return nil, domain.ErrModelUnavailable
	}
	kg, ok := s.gateway.KnowledgeGraph()
	if !ok {
		return nil, domain.ErrModelUnavailable
	}
	return kg, nil
}

// AnalyzeStability scores each product by how connected it is in the graph.
// More connections mean a lower score.
func (s *MarketService) AnalyzeStability(ctx context.Context, req domain.MarketAnalysisRequest) (*domain.MarketAnalysis, error) {
	kg, err := s.graph()
	if err != nil {
		return nil, err
	}

	analysisType := req.AnalysisType
	if analysisType == "" {
		analysisType = domain.DefaultAnalysisType
	}

	summary, err := kg.Summary(ctx)
	if err != nil {
		return nil, graphError(err, "summary")
	}

	analysis := make(map[string]domain.ProductStability, len(req.Products))
	for _, product := range req.Products {
		entities, err := kg.RelatedEntities(ctx, product, stabilityMaxHops)
		if err != nil {
			return nil, graphError(err, "related entities of "+product)
		}
		rules, err := kg.SymbolicRules(ctx, product)
		if err != nil {
			return nil, graphError(err, "rules of "+product)
		}
		analysis[product] = stabilityOf(entities, rules)
	}

	return &domain.MarketAnalysis{
		Success:               true,
		AnalysisType:          analysisType,
		ProductsAnalyzed:      len(req.Products),
		Analysis:              analysis,
		KnowledgeGraphSummary: summary,
		Timestamp:             s.now(),
	}, nil
}

func stabilityOf(entities []domain.RelatedEntity, rules []string) domain.ProductStability {
	if entities == nil {
		entities = []domain.RelatedEntity{}
	}
	if rules == nil {
		rules = []string{}
	}

	score := 1.0 / float64(len(entities)+1)

	return domain.ProductStability{
		RelatedEntities:   entities,
		ApplicableRules:   len(rules),
		RuleDetails:       rules,
		MarketConnections: len(entities),
		StabilityFactors: domain.StabilityFactors{
			ConnectionStrength: len(entities),
			RiskFactors:        highImpact(entities, 0),
			StabilityScore:     score,
		},
	}
}

// highImpact lists entities above HighImpactWeight in graph order, at most
// limit of them when limit > 0.
func highImpact(entities []domain.RelatedEntity, limit int) []string {
	out := []string{}
	for _, e := range entities {
		if e.Weight > domain.HighImpactWeight {
			out = append(out, e.Entity)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

// KnowledgeInsights gathers a product's neighbourhood, rules and how its
// closest neighbours affect it around today.
func (s *MarketService) KnowledgeInsights(ctx context.Context, product string) (*domain.KnowledgeInsights, error) {
	if strings.TrimSpace(product) == "" {
		return nil, fmt.Errorf("%w: product is required", domain.ErrInvalidRequest)
	}
	kg, err := s.graph()
	if err != nil {
		return nil, err
	}

	entities, err := kg.RelatedEntities(ctx, product, stabilityMaxHops)
	if err != nil {
		return nil, graphError(err, "related entities of "+product)
	}
	if entities == nil {
		entities = []domain.RelatedEntity{}
	}
	rules, err := kg.SymbolicRules(ctx, product)
	if err != nil {
		return nil, graphError(err, "rules of "+product)
	}
	if rules == nil {
		rules = []string{}
	}
	summary, err := kg.Summary(ctx)
	if err != nil {
		return nil, graphError(err, "summary")
	}

	impacts := make(map[string][]domain.TemporalImpact)
	for i, e := range entities {
		if i == insightEntities {
			break
		}
		var series []domain.TemporalImpact
		for _, offset := range temporalOffsets {
			impact, err := kg.TemporalImpact(ctx, e.Entity, product, offset)
			if err != nil {
				return nil, graphError(err, "temporal impact of "+e.Entity)
			}
			if impact > 0 {
				series = append(series, domain.TemporalImpact{DaysOffset: offset, Impact: impact})
			}
		}
		if len(series) > 0 {
			impacts[e.Entity] = series
		}
	}

	return &domain.KnowledgeInsights{
		Success:          true,
		Product:          product,
		RelatedEntities:  entities,
		SymbolicRules:    rules,
		TemporalImpacts:  impacts,
		KnowledgeSummary: summary,
		Insights:         insightsFor(product, entities, rules),
	}, nil
}

func insightsFor(product string, entities []domain.RelatedEntity, rules []string) []string {
	insights := []string{}
	if len(entities) > strongConnections {
		insights = append(insights, fmt.Sprintf("%s has strong market connections - monitor related products", product))
	}
	if len(rules) > predictableRuleCount {
		insights = append(insights, fmt.Sprintf("Multiple market rules apply to %s - high predictability", product))
	}
	if high := highImpact(entities, highImpactListed); len(high) > 0 {
		insights = append(insights, "High impact factors: "+strings.Join(high, ", "))
	}
	return insights
}

func graphError(err error, what string) error {
	log.Error().Err(err).Str("query", what).Msg("market: knowledge graph query failed")
	return fmt.Errorf("%w: knowledge graph %s: %w", domain.ErrForecaster, what, err)
}
