package volatility

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"FinSight/internal/domain/models"
)

// Forest is a bagged ensemble of regression trees.
type Forest struct {
	NFeatures int    `json:"n_features"`
	Trees     []Tree `json:"trees"`
}

type forestOptions struct {
	seed        uint64
	maxFeatures float64 // fraction of features tried per split, 1 = all
	workers     int
}

// fitForest grows hp.NEstimators trees on bootstrap samples. Tree i draws from
// its own generator seeded by (seed, i), so the result does not depend on
// goroutine scheduling.
func fitForest(x [][]float64, y []float64, hp models.Hyperparams, opt forestOptions) (*Forest, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("fit forest: %d rows, %d targets", len(x), len(y))
	}
	if hp.NEstimators <= 0 {
		return nil, fmt.Errorf("fit forest: n_estimators must be positive, got %d", hp.NEstimators)
	}
	nf := len(x[0])
	p := treeParams{
		maxDepth:    hp.MaxDepth,
		minSplit:    max(hp.MinSamplesSplit, 2),
		minLeaf:     max(hp.MinSamplesLeaf, 1),
		maxFeatures: nf,
	}
	if opt.maxFeatures > 0 && opt.maxFeatures < 1 {
		p.maxFeatures = max(1, int(math.Round(opt.maxFeatures*float64(nf))))
	}
	workers := opt.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]Tree, hp.NEstimators)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(workers, hp.NEstimators); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rng := rand.New(rand.NewPCG(opt.seed, uint64(i)))
				idx := make([]int, len(x))
				for k := range idx {
					idx[k] = rng.IntN(len(x))
				}
				trees[i] = fitTree(x, y, idx, p, rng)
			}
		}()
	}
	for i := range trees {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return &Forest{NFeatures: nf, Trees: trees}, nil
}

// Predict averages the trees.
func (f *Forest) Predict(x []float64) float64 {
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(f.Trees))
}

func (f *Forest) validate() error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for i, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", i)
		}
		for j, nd := range t.Nodes {
			if nd.Feature < 0 {
				continue
			}
			if nd.Feature >= f.NFeatures || nd.Left <= j || nd.Right <= j || nd.Left >= len(t.Nodes) || nd.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d is malformed", i, j)
			}
		}
	}
	return nil
}
