package models

// ModelSummary is one row of the installed-model listing.
type ModelSummary struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	Size     string `json:"size"`
	Modified string `json:"modified"`
}

// RunningModel is one row of the running-model listing.
type RunningModel struct {
	Name      string `json:"name"`
	Size      string `json:"size"`
	Processor string `json:"processor"`
	Until     string `json:"until"`
}

// ModelInfo holds detailed metadata for a single model.
type ModelInfo struct {
	Name         string `json:"name"`
	Architecture string `json:"architecture,omitempty"`
	Parameters   string `json:"parameters,omitempty"`
	Quantization string `json:"quantization,omitempty"`
	Format       string `json:"format,omitempty"`
	Template     string `json:"template,omitempty"`
	System       string `json:"system,omitempty"`
	License      string `json:"license,omitempty"`
}

// PullProgress is one progress update during a model download.
type PullProgress struct {
	Status    string  `json:"status"`
	Digest    string  `json:"digest,omitempty"`
	Total     int64   `json:"total,omitempty"`
	Completed int64   `json:"completed,omitempty"`
	Percent   float64 `json:"percent"`
}
