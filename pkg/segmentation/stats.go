package segmentation

import (
	"sort"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
)

// buildClusterStats aggregates per-cluster metadata from the assignment.
// Every cluster id in [0, numClusters) appears in the output even when the
// worker left it empty. Clusters come back sorted by TotalValue descending.
func buildClusterStats(features []models.RFMFeatures, assignments []int, numClusters int) []models.ClusterMetadata {
	type acc struct {
		count     int
		recency   float64
		frequency float64
		monetary  float64
	}
	accs := make([]acc, numClusters)

	maxRecency := 0.0
	grandTotal := 0.0
	for i, f := range features {
		id := assignments[i]
		if id < 0 || id >= numClusters {
			continue
		}
		accs[id].count++
		accs[id].recency += f.Recency
		accs[id].frequency += f.Frequency
		accs[id].monetary += f.Monetary
		if f.Recency > maxRecency {
			maxRecency = f.Recency
		}
		grandTotal += f.Monetary
	}

	clusters := make([]models.ClusterMetadata, numClusters)
	for id := range clusters {
		a := accs[id]
		c := models.ClusterMetadata{ClusterID: id, CustomerCount: a.count}
		if a.count > 0 {
			n := float64(a.count)
			c.AvgRecency = a.recency / n
			c.AvgFrequency = a.frequency / n
			c.AvgMonetary = a.monetary / n
			c.TotalValue = a.monetary
			if grandTotal > 0 {
				c.ValueShare = a.monetary / grandTotal
			}
			if maxRecency > 0 {
				c.AvgChurnRisk = c.AvgRecency / maxRecency
			}
			if c.AvgFrequency > 0 {
				aov := c.AvgMonetary / c.AvgFrequency
				c.AvgAOV = &aov
			}
		}
		clusters[id] = c
	}

	attachRadarValues(clusters)
	attachLabels(clusters)

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].TotalValue > clusters[j].TotalValue
	})
	return clusters
}

// attachRadarValues fills the five radar axes, recency, frequency, monetary,
// average order value, and value share, each scaled to [0,1] against the
// maximum across clusters. An axis whose maximum is 0 renders as 0.
func attachRadarValues(clusters []models.ClusterMetadata) {
	var maxR, maxF, maxM, maxAOV, maxShare float64
	for _, c := range clusters {
		maxR = maxOf(maxR, c.AvgRecency)
		maxF = maxOf(maxF, c.AvgFrequency)
		maxM = maxOf(maxM, c.AvgMonetary)
		if c.AvgAOV != nil {
			maxAOV = maxOf(maxAOV, *c.AvgAOV)
		}
		maxShare = maxOf(maxShare, c.ValueShare)
	}

	for i := range clusters {
		c := &clusters[i]
		aov := 0.0
		if c.AvgAOV != nil {
			aov = *c.AvgAOV
		}
		c.RadarValues = []float64{
			scale(c.AvgRecency, maxR),
			scale(c.AvgFrequency, maxF),
			scale(c.AvgMonetary, maxM),
			scale(aov, maxAOV),
			scale(c.ValueShare, maxShare),
		}
	}
}

func maxOf(a, b float64) float64 {
	if b > a {
		return b
	}
	return a
}

func scale(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return v / max
}
