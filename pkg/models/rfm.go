package models

// PrecomputedRFM names columns that already hold per-customer RFM values.
// Empty string means the column was not found.
type PrecomputedRFM struct {
	Recency   string `json:"recency,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Monetary  string `json:"monetary,omitempty"`
}

// Complete reports whether all three precomputed columns were detected.
func (p PrecomputedRFM) Complete() bool {
	return p.Recency != "" && p.Frequency != "" && p.Monetary != ""
}

// RFMColumns is the detected role assignment for one table. Produced fresh
// per schema inspection and immutable once returned; never merged across
// tables. Empty string means the role was not detected.
type RFMColumns struct {
	CustomerID  string             `json:"customer_id,omitempty"`
	OrderID     string             `json:"order_id,omitempty"`
	OrderDate   string             `json:"order_date,omitempty"`
	OrderAmount string             `json:"order_amount,omitempty"`
	Confidence  map[string]float64 `json:"confidence"`
	Precomputed PrecomputedRFM     `json:"precomputed_rfm"`
}

// RFMFeatures is one customer's feature row. Rows with NaN or negative
// values are dropped before clustering, never coerced to zero.
type RFMFeatures struct {
	CustomerID string  `json:"customer_id"`
	Recency    float64 `json:"recency"`
	Frequency  float64 `json:"frequency"`
	Monetary   float64 `json:"monetary"`
}

// ClusterMetadata describes one customer segment. The orchestrator returns
// segments sorted by TotalValue descending regardless of the numeric
// cluster-id order the worker assigned.
type ClusterMetadata struct {
	ClusterID     int       `json:"cluster_id"`
	Label         string    `json:"label"`
	CustomerCount int       `json:"customer_count"`
	AvgRecency    float64   `json:"avg_recency"`
	AvgFrequency  float64   `json:"avg_frequency"`
	AvgMonetary   float64   `json:"avg_monetary"`
	TotalValue    float64   `json:"total_value"`
	ValueShare    float64   `json:"value_share"`
	AvgAOV        *float64  `json:"avg_aov,omitempty"`
	AvgChurnRisk  float64   `json:"avg_churn_risk"`
	RadarValues   []float64 `json:"radar_values"`
}
