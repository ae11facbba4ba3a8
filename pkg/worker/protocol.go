// Package worker manages a long-lived clustering subprocess and the
// line-delimited JSON protocol spoken with it over stdin/stdout.
package worker

// ScalingModeZScore asks the worker to z-score features before clustering.
// The only mode in use; kept on the wire so the worker stays generic.
const ScalingModeZScore = 1

// ClusterRequest describes one clustering job.
type ClusterRequest struct {
	CustomerIDs []string
	Features    [][]float64
	NumClusters int
	ScalingMode int
	UseGPU      bool
}

// ClusterResult is the assignment returned by the worker. CustomerIDs and
// ClusterIDs are parallel slices.
type ClusterResult struct {
	CustomerIDs []string
	ClusterIDs  []int
	GPUUsed     bool
}

// requestEnvelope is the wire form of a job. Every request carries a
// correlation id so responses can arrive out of order.
type requestEnvelope struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	CustomerIDs []string    `json:"customer_ids"`
	Features    [][]float64 `json:"features"`
	NumClusters int         `json:"n_clusters"`
	ScalingMode int         `json:"scaling_mode"`
	UseGPU      bool        `json:"use_gpu"`
}

type responseEnvelope struct {
	ID          string   `json:"id"`
	CustomerIDs []string `json:"customer_ids"`
	ClusterIDs  []int    `json:"cluster_ids"`
	GPUUsed     bool     `json:"gpu_used"`
	Error       string   `json:"error,omitempty"`
}

const requestTypeCluster = "CLUSTER"
