package scoring

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/llm"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

// ScoreOutcome pairs a result with its provenance. FromCache lets callers
// skip usage billing and tells API consumers the score was not recomputed.
type ScoreOutcome struct {
	Result    *models.ScoreResult
	FromCache bool
}

// PostScoreHook observes every freshly computed score. Hooks run after the
// result is cached; a hook must handle its own failures and never block
// scoring. Usage recording and audit trails register here.
type PostScoreHook func(ctx context.Context, req *models.ScoreRequest, result *models.ScoreResult)

// ScoreCache is the caching contract the orchestrator needs. The Redis
// implementation lives in this package; tests substitute an in-memory one.
type ScoreCache interface {
	Get(ctx context.Context, key string) (*models.ScoreResult, bool)
	Set(ctx context.Context, key string, profileID string, result *models.ScoreResult)
	InvalidateProfile(ctx context.Context, profileID string) error
	Do(key string, fn func() (*models.ScoreResult, error)) (*models.ScoreResult, error)
}

// Orchestrator routes score requests to the right computation strategy and
// owns the fallback policy between them. All cache interaction happens
// here; the calculator and pipeline stay oblivious to caching.
type Orchestrator struct {
	calculator      *Calculator
	pipeline        *Pipeline
	cache           ScoreCache
	generativeShare float64
	hooks           []PostScoreHook
	logger          *zap.Logger
}

func NewOrchestrator(calculator *Calculator, pipeline *Pipeline, cache ScoreCache, generativeShare float64, logger *zap.Logger) *Orchestrator {
	if generativeShare <= 0 || generativeShare >= 1 {
		generativeShare = 0.7
	}
	return &Orchestrator{
		calculator:      calculator,
		pipeline:        pipeline,
		cache:           cache,
		generativeShare: generativeShare,
		logger:          logger.Named("orchestrator"),
	}
}

// AddHook registers a post-score hook. Not safe to call after Score is in
// use; register everything during startup wiring.
func (o *Orchestrator) AddHook(hook PostScoreHook) {
	o.hooks = append(o.hooks, hook)
}

// Score produces the result for one opportunity/profile pair, serving from
// cache when possible. Concurrent identical requests share one
// computation. Hooks fire only when a fresh computation happened.
func (o *Orchestrator) Score(ctx context.Context, req *models.ScoreRequest, opp *models.Opportunity, profile *models.Profile) (*ScoreOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if opp == nil || profile == nil {
		return nil, fmt.Errorf("opportunity and profile are required")
	}

	key := CacheKey(profile, opp.ID, req.Method, req.Mode)

	if cached, ok := o.cache.Get(ctx, key); ok {
		o.logger.Debug("cache hit",
			zap.String("opportunity_id", opp.ID),
			zap.Stringer("profile_id", profile.ID))
		return &ScoreOutcome{Result: cached, FromCache: true}, nil
	}

	result, err := o.cache.Do(key, func() (*models.ScoreResult, error) {
		// Another caller may have finished while we waited on the
		// singleflight lock.
		if cached, ok := o.cache.Get(ctx, key); ok {
			return cached, nil
		}

		result, err := o.compute(ctx, req, opp, profile)
		if err != nil {
			return nil, err
		}

		o.cache.Set(ctx, key, profile.ID.String(), result)
		for _, hook := range o.hooks {
			hook(ctx, req, result)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	return &ScoreOutcome{Result: result}, nil
}

// InvalidateProfile drops all cached scores for a profile.
func (o *Orchestrator) InvalidateProfile(ctx context.Context, profileID string) error {
	return o.cache.InvalidateProfile(ctx, profileID)
}

func (o *Orchestrator) compute(ctx context.Context, req *models.ScoreRequest, opp *models.Opportunity, profile *models.Profile) (*models.ScoreResult, error) {
	switch req.Method {
	case models.MethodCalculation:
		return o.calculator.Calculate(opp, profile), nil
	case models.MethodGenerative:
		return o.generative(ctx, req, opp, profile)
	case models.MethodHybrid:
		return o.hybrid(ctx, req, opp, profile)
	default:
		return nil, fmt.Errorf("unknown method %q", req.Method)
	}
}

// generative runs the pipeline and falls back to the deterministic
// calculator only on provider-availability failures. Anything else (bad
// input, caller cancellation) propagates: a fallback there would mask a
// bug rather than ride out an outage.
func (o *Orchestrator) generative(ctx context.Context, req *models.ScoreRequest, opp *models.Opportunity, profile *models.Profile) (*models.ScoreResult, error) {
	result, err := o.pipeline.Run(ctx, opp, profile, req.Mode)
	if err == nil {
		return result, nil
	}
	if !llm.IsOutage(err) {
		return nil, err
	}

	o.logger.Warn("generative scoring unavailable, falling back to calculation",
		zap.String("opportunity_id", opp.ID),
		zap.Error(err))
	fallback := o.calculator.Calculate(opp, profile)
	fallback.AlgorithmVersion = models.AlgorithmCalcFallback
	return fallback, nil
}

// hybrid blends the generative and calculated scores, running both legs
// concurrently. The calculated leg cannot fail, so a dead generative leg
// degrades to a pure calculated result under a distinct algorithm tag.
func (o *Orchestrator) hybrid(ctx context.Context, req *models.ScoreRequest, opp *models.Opportunity, profile *models.Profile) (*models.ScoreResult, error) {
	calcCh := make(chan *models.ScoreResult, 1)
	go func() {
		calcCh <- o.calculator.Calculate(opp, profile)
	}()

	gen, err := o.pipeline.Run(ctx, opp, profile, req.Mode)
	calc := <-calcCh
	if err != nil {
		if !llm.IsOutage(err) {
			return nil, err
		}
		o.logger.Warn("hybrid generative leg unavailable, using calculated score",
			zap.String("opportunity_id", opp.ID),
			zap.Error(err))
		calc.AlgorithmVersion = models.AlgorithmHybridCalcFallback
		return calc, nil
	}

	blended := float64(gen.OverallScore)*o.generativeShare + float64(calc.OverallScore)*(1-o.generativeShare)

	// The generative result carries the richer breakdown; the calculated
	// factors ride along under their own category names.
	result := *gen
	result.OverallScore = clampScore(math.Round(blended))
	result.AlgorithmVersion = models.AlgorithmHybrid
	result.Categories = mergeCategories(gen.Categories, calc.Categories)
	return &result, nil
}

func mergeCategories(generative, calculated map[string]models.CategoryScore) map[string]models.CategoryScore {
	merged := make(map[string]models.CategoryScore, len(generative)+len(calculated))
	for name, cat := range calculated {
		merged[name] = cat
	}
	for name, cat := range generative {
		merged[name] = cat
	}
	return merged
}
