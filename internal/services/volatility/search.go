package volatility

import (
	"context"
	"fmt"
	"math/rand/v2"

	"FinSight/internal/domain/models"
)

// SearchConfig drives the randomized hyperparameter search.
type SearchConfig struct {
	Iterations      int
	Folds           int
	Seed            uint64
	MaxFeatures     float64
	Workers         int
	NEstimators     []int
	MaxDepth        []int // 0 = unlimited
	MinSamplesSplit []int
	MinSamplesLeaf  []int
}

// DefaultSearchConfig is 20 candidates over the reference grid with 5 folds.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Iterations:      20,
		Folds:           5,
		Seed:            123,
		MaxFeatures:     1,
		NEstimators:     []int{100, 200, 300},
		MaxDepth:        []int{0, 5, 10, 20},
		MinSamplesSplit: []int{2, 5, 10},
		MinSamplesLeaf:  []int{1, 2, 4},
	}
}

// CandidateScore is the cross-validated score of one hyperparameter set.
type CandidateScore struct {
	Params models.Hyperparams
	R2     float64
	MAE    float64
}

// SearchResult holds the winner refit on every row.
type SearchResult struct {
	Best       CandidateScore
	Candidates []CandidateScore
	Forest     *Forest
}

// Candidates samples the grid without replacement in a seeded order.
func (c SearchConfig) Candidates() []models.Hyperparams {
	grid := make([]models.Hyperparams, 0, len(c.NEstimators)*len(c.MaxDepth)*len(c.MinSamplesSplit)*len(c.MinSamplesLeaf))
	for _, ne := range c.NEstimators {
		for _, md := range c.MaxDepth {
			for _, ms := range c.MinSamplesSplit {
				for _, ml := range c.MinSamplesLeaf {
					grid = append(grid, models.Hyperparams{NEstimators: ne, MaxDepth: md, MinSamplesSplit: ms, MinSamplesLeaf: ml})
				}
			}
		}
	}
	rng := rand.New(rand.NewPCG(c.Seed, uint64(len(grid))))
	rng.Shuffle(len(grid), func(i, j int) { grid[i], grid[j] = grid[j], grid[i] })
	if c.Iterations > 0 && c.Iterations < len(grid) {
		grid = grid[:c.Iterations]
	}
	return grid
}

// Search scores every candidate on time-ordered folds, keeps the lowest mean
// validation MAE and refits it on all rows.
func Search(ctx context.Context, x [][]float64, y []float64, cfg SearchConfig) (*SearchResult, error) {
	folds, err := TimeSeriesSplit(len(x), cfg.Folds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInsufficientHistory, err)
	}
	candidates := cfg.Candidates()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("search: empty hyperparameter grid")
	}
	opt := forestOptions{seed: cfg.Seed, maxFeatures: cfg.MaxFeatures, workers: cfg.Workers}

	res := &SearchResult{Candidates: make([]CandidateScore, 0, len(candidates))}
	for ci, hp := range candidates {
		var r2Sum, maeSum float64
		for _, f := range folds {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("search canceled: %w", err)
			}
			forest, err := fitForest(x[:f.TrainEnd], y[:f.TrainEnd], hp, opt)
			if err != nil {
				return nil, err
			}
			actual := y[f.TrainEnd:f.TestEnd]
			pred := make([]float64, len(actual))
			for i := range actual {
				pred[i] = forest.Predict(x[f.TrainEnd+i])
			}
			r2Sum += R2Score(actual, pred)
			maeSum += MeanAbsoluteError(actual, pred)
		}
		score := CandidateScore{
			Params: hp,
			R2:     r2Sum / float64(len(folds)),
			MAE:    maeSum / float64(len(folds)),
		}
		res.Candidates = append(res.Candidates, score)
		if ci == 0 || score.MAE < res.Best.MAE {
			res.Best = score
		}
	}

	forest, err := fitForest(x, y, res.Best.Params, opt)
	if err != nil {
		return nil, fmt.Errorf("refit best: %w", err)
	}
	res.Forest = forest
	return res, nil
}
