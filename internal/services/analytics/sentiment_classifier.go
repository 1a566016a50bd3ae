package analytics

import (
	"context"
	"fmt"
	"strings"

	"FinSight/internal/domain/models"
	domsvc "FinSight/internal/domain/service"
	"FinSight/pkg/config"
)

const classifyPath = "/sentiment/classify"

// HTTPSentimentClassifier calls a FinBERT-style service:
// POST /sentiment/classify {"texts": [...]} -> {"results": [{"label", "score"}]}.
type HTTPSentimentClassifier struct {
	base      *HTTPServiceBase
	batchSize int
	attempts  int
}

func NewHTTPSentimentClassifier(cfg config.ClassifierConfig) *HTTPSentimentClassifier {
	return &HTTPSentimentClassifier{
		base:      NewHTTPServiceBase(strings.TrimRight(cfg.URL, "/"), cfg.Timeout),
		batchSize: max(cfg.BatchSize, 1),
		attempts:  max(cfg.MaxAttempts, 1),
	}
}

type classifyReq struct {
	Texts []string `json:"texts"`
}

type classifyResp struct {
	Results []struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Classify labels texts in batches. Labels the service does not know map to
// neutral; a score outside [0, 1] or a short reply is an error.
func (c *HTTPSentimentClassifier) Classify(ctx context.Context, texts []string) ([]models.Classification, error) {
	out := make([]models.Classification, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		batch := texts[start:min(start+c.batchSize, len(texts))]

		var resp classifyResp
		if err := c.base.PostJSONWithRetry(ctx, classifyPath, classifyReq{Texts: batch}, &resp, c.attempts); err != nil {
			return nil, fmt.Errorf("%w: classify: %w", models.ErrUpstreamFetchFailed, err)
		}
		if len(resp.Results) != len(batch) {
			return nil, fmt.Errorf("%w: classify: sent %d texts, got %d results", models.ErrUpstreamFetchFailed, len(batch), len(resp.Results))
		}
		for i, r := range resp.Results {
			if r.Score < 0 || r.Score > 1 {
				return nil, fmt.Errorf("%w: classify: result %d score %v outside [0, 1]", models.ErrUpstreamFetchFailed, start+i, r.Score)
			}
			out = append(out, models.Classification{Label: normalizeLabel(r.Label), Confidence: r.Score})
		}
	}
	return out, nil
}

func normalizeLabel(s string) models.SentimentLabel {
	l := models.SentimentLabel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := l.Score(); ok {
		return l
	}
	return models.SentimentNeutral
}

var _ domsvc.SentimentClassifier = (*HTTPSentimentClassifier)(nil)
