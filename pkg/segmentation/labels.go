package segmentation

import "github.com/cohortiq-inc/cohortiq-engine/pkg/models"

// Segment labels assigned from each cluster's normalized R/F/M position.
// Thresholds split each axis into low/mid/high thirds; the first matching
// rule wins, so order encodes priority.
const (
	labelChampions   = "Champions"
	labelLoyal       = "Loyal Customers"
	labelNewCustomer = "New Customers"
	labelAtRisk      = "At Risk"
	labelBigSpenders = "Big Spenders"
	labelHibernating = "Hibernating"
	labelPromising   = "Promising"
	labelRegular     = "Regular Customers"
	labelEmpty       = "Empty Segment"
)

const (
	axisHigh = 0.66
	axisLow  = 0.34
)

type labelRule struct {
	label string
	match func(r, f, m float64) bool
}

var labelRules = []labelRule{
	{labelChampions, func(r, f, m float64) bool { return r < axisLow && f >= axisHigh && m >= axisHigh }},
	{labelLoyal, func(r, f, m float64) bool { return f >= axisHigh && m >= axisHigh }},
	{labelAtRisk, func(r, f, m float64) bool { return r >= axisHigh && m >= axisHigh }},
	{labelNewCustomer, func(r, f, m float64) bool { return r < axisLow && f < axisLow }},
	{labelBigSpenders, func(r, f, m float64) bool { return m >= axisHigh }},
	{labelHibernating, func(r, f, m float64) bool { return r >= axisHigh }},
	{labelPromising, func(r, f, m float64) bool { return r < axisLow }},
}

func labelFor(r, f, m float64) string {
	for _, rule := range labelRules {
		if rule.match(r, f, m) {
			return rule.label
		}
	}
	return labelRegular
}

// attachLabels names each cluster from its normalized radar position. Radar
// values must already be attached.
func attachLabels(clusters []models.ClusterMetadata) {
	for i := range clusters {
		c := &clusters[i]
		if c.CustomerCount == 0 {
			c.Label = labelEmpty
			continue
		}
		c.Label = labelFor(c.RadarValues[0], c.RadarValues[1], c.RadarValues[2])
	}
}
