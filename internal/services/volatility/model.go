package volatility

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"FinSight/internal/domain/models"
)

// Confidence tier cut points on the stored validation r2. A tier is reached
// only when r2 is strictly above its threshold.
const (
	HighConfidenceR2   = 0.7
	MediumConfidenceR2 = 0.3
)

// Confidence maps a validation r2 to its tier.
func Confidence(r2 float64) models.ConfidenceTier {
	switch {
	case r2 > HighConfidenceR2:
		return models.ConfidenceHigh
	case r2 > MediumConfidenceR2:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// Model is a decoded, ready to serve artifact. It is never modified after
// construction.
type Model struct {
	meta   *models.TrainedModel
	forest *Forest
}

// Meta returns the persisted record.
func (m *Model) Meta() *models.TrainedModel { return m.meta }

// Train searches hyperparameters on the time-ordered examples and returns the
// refit model with its cross-validated metrics.
func Train(ctx context.Context, ticker, schemaVersion string, examples []models.TrainingExample, cfg SearchConfig, trainedAt time.Time) (*Model, error) {
	if len(examples) == 0 {
		return nil, fmt.Errorf("%w: no training examples", models.ErrInsufficientHistory)
	}
	order := examples[0].Features.Order
	x := make([][]float64, len(examples))
	y := make([]float64, len(examples))
	for i, ex := range examples {
		if !slices.Equal(ex.Features.Order, order) || len(ex.Features.Values) != len(order) {
			return nil, fmt.Errorf("%w: example %d has a different feature layout", models.ErrSchemaMismatch, i)
		}
		x[i] = ex.Features.Values
		y[i] = ex.Target
	}

	res, err := Search(ctx, x, y, cfg)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", ticker, err)
	}
	params, err := json.Marshal(res.Forest)
	if err != nil {
		return nil, fmt.Errorf("encode forest: %w", err)
	}

	meta := &models.TrainedModel{
		Ticker:          ticker,
		Version:         uuid.NewString(),
		SchemaVersion:   schemaVersion,
		FeatureOrder:    slices.Clone(order),
		TrainedAt:       trainedAt.UTC(),
		R2Score:         res.Best.R2,
		MAE:             res.Best.MAE,
		BestParams:      res.Best.Params,
		TrainingSamples: len(examples),
		Params:          params,
	}
	return &Model{meta: meta, forest: res.Forest}, nil
}

// Load decodes a persisted record.
func Load(meta *models.TrainedModel) (*Model, error) {
	if meta == nil {
		return nil, models.ErrNoModel
	}
	var f Forest
	if err := json.Unmarshal(meta.Params, &f); err != nil {
		return nil, fmt.Errorf("%w: decode forest %s/%s: %w", models.ErrCorruptModel, meta.Ticker, meta.Version, err)
	}
	if f.NFeatures != len(meta.FeatureOrder) {
		return nil, fmt.Errorf("%w: forest expects %d features, record lists %d", models.ErrSchemaMismatch, f.NFeatures, len(meta.FeatureOrder))
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%w: decode forest %s/%s: %w", models.ErrCorruptModel, meta.Ticker, meta.Version, err)
	}
	return &Model{meta: meta, forest: &f}, nil
}

// Predict returns next-day volatility and the model's confidence tier.
func (m *Model) Predict(fv models.FeatureVector) (float64, models.ConfidenceTier, error) {
	if !slices.Equal(fv.Order, m.meta.FeatureOrder) || len(fv.Values) != len(m.meta.FeatureOrder) {
		return 0, "", fmt.Errorf("%w: model %s trained on %v, got %v", models.ErrSchemaMismatch, m.meta.Version, m.meta.FeatureOrder, fv.Order)
	}
	return m.forest.Predict(fv.Values), Confidence(m.meta.R2Score), nil
}
