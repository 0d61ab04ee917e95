package domain

import "time"

// PolicyModelVersion is one persisted artifact of the trading policy
// network, versioned per model key so rollbacks stay cheap.
type PolicyModelVersion struct {
	ID              int64      `json:"id"`
	ModelKey        string     `json:"model_key"`
	Version         int        `json:"version"`
	StateSpec       string     `json:"state_spec"`
	TrainedFrom     time.Time  `json:"trained_from"`
	TrainedTo       time.Time  `json:"trained_to"`
	TrainedAt       time.Time  `json:"trained_at"`
	HyperparamsJSON string     `json:"hyperparams_json"`
	MetricsJSON     string     `json:"metrics_json"`
	ArtifactFormat  string     `json:"artifact_format"`
	ArtifactBlob    []byte     `json:"-"`
	IsActive        bool       `json:"is_active"`
	ActivatedAt     *time.Time `json:"activated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
