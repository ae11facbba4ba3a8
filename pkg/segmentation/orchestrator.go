// Package segmentation runs the end-to-end RFM pipeline: detect columns,
// extract features, cluster them through the worker, and summarize the
// resulting segments.
package segmentation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/adapters/datasource"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/apperrors"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/jsonutil"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/rfm"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/worker"
)

const (
	// DefaultClusters is K when the caller does not choose one.
	DefaultClusters = 8
	// minSmallDatasetClusters floors the reduced K used for tiny populations.
	minSmallDatasetClusters = 2
	// gpuAutoThreshold is the population size at which auto compute mode
	// switches to the GPU.
	gpuAutoThreshold = 10000
)

// ComputeMode selects where clustering runs.
type ComputeMode string

const (
	ComputeAuto ComputeMode = "auto"
	ComputeGPU  ComputeMode = "gpu"
	ComputeCPU  ComputeMode = "cpu"
)

// Datasource is the slice of the adapter contract the pipeline needs.
type Datasource interface {
	GetColumns(ctx context.Context, table string) ([]datasource.Column, error)
	Execute(ctx context.Context, query string, params ...any) (*datasource.QueryResult, error)
}

// ClusterRunner dispatches one clustering job.
type ClusterRunner interface {
	Cluster(ctx context.Context, req worker.ClusterRequest) (worker.ClusterResult, error)
}

// Options tune one segmentation run. Zero values select the defaults.
type Options struct {
	NumClusters int
	SampleSize  int
	Baseline    *time.Time
	ComputeMode ComputeMode
}

// Result is the outcome of one segmentation run.
type Result struct {
	Table          string                   `json:"table"`
	Columns        models.RFMColumns        `json:"columns"`
	Segments       []models.ClusterMetadata `json:"segments"`
	CustomerCount  int                      `json:"customer_count"`
	ClusteredCount int                      `json:"clustered_count"`
	NumClusters    int                      `json:"num_clusters"`
	GPUUsed        bool                     `json:"gpu_used"`
	Sampled        bool                     `json:"sampled"`
}

// Orchestrator wires schema detection, SQL generation, the datasource, and
// the clustering worker into one pipeline.
type Orchestrator struct {
	db     Datasource
	runner ClusterRunner
	logger *zap.Logger
}

func NewOrchestrator(db Datasource, runner ClusterRunner, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		db:     db,
		runner: runner,
		logger: logger.Named("segmentation"),
	}
}

// Segment runs the full pipeline against one table.
func (o *Orchestrator) Segment(ctx context.Context, table string, opts Options) (*Result, error) {
	columns, err := o.db.GetColumns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("fetch schema for %q: %w", table, err)
	}
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}

	cols := rfm.Detect(names)
	if err := rfm.Validate(cols); err != nil {
		return nil, err
	}
	o.logger.Info("detected rfm columns",
		zap.String("table", table),
		zap.String("customer_id", cols.CustomerID),
		zap.String("order_date", cols.OrderDate),
		zap.String("order_amount", cols.OrderAmount),
		zap.Bool("precomputed", cols.Precomputed.Complete()))

	count, err := o.countCustomers(ctx, table, cols)
	if err != nil {
		return nil, err
	}
	if err := rfm.ValidateCustomerCount(count); err != nil {
		return nil, err
	}

	gen, err := rfm.Generate(table, cols, opts.SampleSize, opts.Baseline)
	if err != nil {
		return nil, err
	}
	rows, err := o.db.Execute(ctx, gen.SQL)
	if err != nil {
		return nil, fmt.Errorf("extract rfm features: %w", err)
	}

	features, dropped := o.parseFeatures(rows.Rows)
	if dropped > 0 {
		o.logger.Warn("dropped unusable feature rows",
			zap.String("table", table),
			zap.Int("dropped", dropped),
			zap.Int("total", len(rows.Rows)))
	}
	if len(features) < rfm.MinCustomers {
		return nil, fmt.Errorf("%w: %d usable customers, need at least %d",
			apperrors.ErrInsufficientCustomers, len(features), rfm.MinCustomers)
	}

	k := opts.NumClusters
	if k <= 0 {
		k = DefaultClusters
	}
	if len(features) < k {
		k = reducedClusterCount(len(features))
		o.logger.Info("reduced cluster count for small population",
			zap.Int("customers", len(features)),
			zap.Int("clusters", k))
	}

	useGPU := o.resolveGPU(opts.ComputeMode, len(features))

	req := worker.ClusterRequest{
		CustomerIDs: make([]string, len(features)),
		Features:    make([][]float64, len(features)),
		NumClusters: k,
		ScalingMode: worker.ScalingModeZScore,
		UseGPU:      useGPU,
	}
	for i, f := range features {
		req.CustomerIDs[i] = f.CustomerID
		req.Features[i] = []float64{f.Recency, f.Frequency, f.Monetary}
	}

	assignment, err := o.runner.Cluster(ctx, req)
	if err != nil {
		return nil, err
	}

	ordered, clusterIDs := o.align(features, assignment)
	segments := buildClusterStats(ordered, clusterIDs, k)

	return &Result{
		Table:          table,
		Columns:        cols,
		Segments:       segments,
		CustomerCount:  count,
		ClusteredCount: len(ordered),
		NumClusters:    k,
		GPUUsed:        assignment.GPUUsed,
		Sampled:        gen.IsSampled && len(features) < count,
	}, nil
}

func (o *Orchestrator) countCustomers(ctx context.Context, table string, cols models.RFMColumns) (int, error) {
	countSQL, err := rfm.GenerateCustomerCount(table, cols)
	if err != nil {
		return 0, err
	}
	res, err := o.db.Execute(ctx, countSQL)
	if err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	if len(res.Rows) == 0 {
		return 0, fmt.Errorf("count customers: empty result")
	}
	n, ok := jsonutil.CellFloat(res.Rows[0]["customer_count"])
	if !ok {
		return 0, fmt.Errorf("count customers: unreadable count cell")
	}
	return int(n), nil
}

// parseFeatures converts raw result rows into feature structs. Rows with a
// missing id, unreadable numerics, or negative recency or monetary are
// dropped rather than coerced.
func (o *Orchestrator) parseFeatures(rows []map[string]any) ([]models.RFMFeatures, int) {
	features := make([]models.RFMFeatures, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		id := jsonutil.CellString(row["customer_id"])
		recency, okR := jsonutil.CellFloat(row["recency"])
		frequency, okF := jsonutil.CellFloat(row["frequency"])
		monetary, okM := jsonutil.CellFloat(row["monetary"])
		if id == "" || !okR || !okF || !okM || recency < 0 || monetary < 0 {
			dropped++
			continue
		}
		features = append(features, models.RFMFeatures{
			CustomerID: id,
			Recency:    recency,
			Frequency:  frequency,
			Monetary:   monetary,
		})
	}
	return features, dropped
}

// align matches worker assignments back to locally held feature rows by
// customer id. Ids the worker returns that were never sent are skipped.
func (o *Orchestrator) align(features []models.RFMFeatures, assignment worker.ClusterResult) ([]models.RFMFeatures, []int) {
	byID := make(map[string]models.RFMFeatures, len(features))
	for _, f := range features {
		byID[f.CustomerID] = f
	}

	ordered := make([]models.RFMFeatures, 0, len(assignment.CustomerIDs))
	clusterIDs := make([]int, 0, len(assignment.CustomerIDs))
	for i, id := range assignment.CustomerIDs {
		f, ok := byID[id]
		if !ok {
			o.logger.Warn("worker returned unknown customer id", zap.String("customer_id", id))
			continue
		}
		ordered = append(ordered, f)
		clusterIDs = append(clusterIDs, assignment.ClusterIDs[i])
	}
	return ordered, clusterIDs
}

func (o *Orchestrator) resolveGPU(mode ComputeMode, n int) bool {
	switch mode {
	case ComputeGPU:
		return true
	case ComputeAuto, "":
		return n >= gpuAutoThreshold
	default:
		// Unrecognized modes run on CPU.
		return false
	}
}

// reducedClusterCount is K for populations smaller than the requested K:
// a third of the population, floored at the minimum of 2.
func reducedClusterCount(n int) int {
	k := n / 3
	if k < minSmallDatasetClusters {
		k = minSmallDatasetClusters
	}
	return k
}
