package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/szlkpr/ims-ml-service/internal/domain"
	"github.com/szlkpr/ims-ml-service/internal/events"
	"github.com/szlkpr/ims-ml-service/internal/inventory"
	"github.com/szlkpr/ims-ml-service/internal/report"
	"github.com/szlkpr/ims-ml-service/internal/repository"
	"github.com/szlkpr/ims-ml-service/internal/storage"
)

// Short-range forecast used to estimate demand during optimization.
const (
	demandHorizon        = 7
	syntheticHistoryDays = 30
	syntheticMean        = 50.0
	syntheticStdDev      = 10.0

	defaultOptimizeConcurrency = 4
)

var syntheticStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

type InventoryConfig struct {
	Concurrency   int
	ArchivePrefix string
}

type InventoryService struct {
	gateway   *Gateway
	optimizer *inventory.Optimizer
	publisher events.Publisher
	archive   storage.ObjectStorage
	runs      repository.RunRepository
	cfg       InventoryConfig
	now       func() time.Time
}

// NewInventoryService accepts nil publisher, archive and runs; each side
// effect is skipped when its collaborator is missing.
func NewInventoryService(gateway *Gateway, publisher events.Publisher, archive storage.ObjectStorage, runs repository.RunRepository, cfg InventoryConfig) *InventoryService {
	if runs == nil {
		runs = repository.NewNoopRunRepository()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultOptimizeConcurrency
	}
	return &InventoryService{
		gateway:   gateway,
		optimizer: inventory.NewOptimizer(),
		publisher: publisher,
		archive:   archive,
		runs:      runs,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Optimize is all-or-nothing: an invalid product or an engine failure fails
// the whole request.
func (s *InventoryService) Optimize(ctx context.Context, req domain.OptimizationRequest) (*domain.OptimizationResponse, error) {
	goal := req.OptimizationGoal
	if goal == "" {
		goal = domain.DefaultOptimizationGoal
	}

	inputs := make(map[string]domain.InventoryInput, len(req.ProductData))
	for product, stock := range req.ProductData {
		if product == "" {
			return nil, fmt.Errorf("%w: product name must not be empty", domain.ErrInvalidRequest)
		}
		in, err := stock.Resolve()
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", product, err)
		}
		if len(stock.HistoricalData) > 0 {
			check := domain.ForecastRequest{ProductName: product, HistoricalData: stock.HistoricalData, ForecastHorizon: demandHorizon}
			if err := check.Validate(0); err != nil {
				return nil, fmt.Errorf("product %s: %w", product, err)
			}
		}
		inputs[product] = in
	}

	var (
		mu      sync.Mutex
		results = make(map[string]domain.InventoryDecision, len(inputs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for product, in := range inputs {
		product, in := product, in
		history := req.ProductData[product].HistoricalData
		g.Go(func() error {
			demand, err := s.predictedDemand(gctx, product, history, in.PredictedDemand)
			if err != nil {
				return err
			}
			in.PredictedDemand = demand

			decision := s.optimizer.Optimize(in, goal)
			mu.Lock()
			results[product] = decision
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &domain.OptimizationResponse{
		Success:           true,
		OptimizationGoal:  goal,
		ProductsOptimized: len(req.ProductData),
		Results:           results,
		Summary:           inventory.Summarize(results),
	}

	s.record(ctx, resp)
	s.publishReorders(ctx, resp)
	resp.ReportKey = s.archiveReport(ctx, resp)

	return resp, nil
}

// predictedDemand is the mean of a 7-day engine forecast when the engine is
// trained, and the caller's estimate otherwise.
func (s *InventoryService) predictedDemand(ctx context.Context, product string, history []domain.HistoricalPoint, estimate float64) (float64, error) {
	if s.gateway == nil || !s.gateway.Trained() {
		return estimate, nil
	}

	if len(history) == 0 {
		history = s.gateway.Fallback().SyntheticHistory(syntheticHistoryDays, syntheticMean, syntheticStdDev, syntheticStart)
	}

	result, ok, err := s.gateway.ForecastIfTrained(ctx, product, history, demandHorizon)
	if err != nil {
		return 0, fmt.Errorf("product %s: %w", product, err)
	}
	if !ok {
		return estimate, nil
	}
	return result.Mean(), nil
}

func (s *InventoryService) record(ctx context.Context, resp *domain.OptimizationResponse) {
	run := &domain.OptimizationRun{
		Goal:                   resp.OptimizationGoal,
		TotalProducts:          resp.Summary.TotalProducts,
		ReorderNeeded:          resp.Summary.ReorderNeeded,
		HighRiskProducts:       resp.Summary.HighRiskProducts,
		OptimizationEfficiency: resp.Summary.OptimizationEfficiency,
	}
	if err := s.runs.SaveOptimizationRun(ctx, run, resp.Results); err != nil {
		log.Warn().Err(err).Msg("inventory: failed to record optimization run")
	}
}

func (s *InventoryService) publishReorders(ctx context.Context, resp *domain.OptimizationResponse) {
	if s.publisher == nil {
		return
	}

	products := make([]string, 0, len(resp.Results))
	for product, d := range resp.Results {
		if d.ReorderNeeded {
			products = append(products, product)
		}
	}
	sort.Strings(products)

	occurredAt := s.now().UTC()
	for _, product := range products {
		d := resp.Results[product]
		ev := domain.ReorderEvent{
			Product:          product,
			Goal:             resp.OptimizationGoal,
			CurrentStock:     d.CurrentStock,
			RecommendedStock: d.RecommendedStock,
			ReorderQuantity:  d.ReorderQuantity,
			RiskLevel:        d.RiskLevel,
			OccurredAt:       occurredAt,
		}
		if err := s.publisher.PublishReorder(ctx, ev); err != nil {
			log.Warn().Err(err).Str("product", product).Msg("inventory: failed to publish reorder event")
		}
	}
}

func (s *InventoryService) archiveReport(ctx context.Context, resp *domain.OptimizationResponse) string {
	if s.archive == nil {
		return ""
	}

	now := s.now()
	payload, err := report.OptimizationJSON(resp, now)
	if err != nil {
		log.Warn().Err(err).Msg("inventory: failed to encode optimization report")
		return ""
	}

	key := report.Key(s.cfg.ArchivePrefix, "optimization", string(resp.OptimizationGoal), now, "json")
	if err := s.archive.UploadObject(ctx, key, payload); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("inventory: failed to archive optimization report")
		return ""
	}
	return key
}
