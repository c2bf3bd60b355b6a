package api

// HealthResponse is the payload for GET /api/v1/health and the data of every
// websocket stats message.
type HealthResponse struct {
	State          string `json:"state"`
	StoreDriver    string `json:"store_driver"`
	CachedCount    int    `json:"cached_count"`
	DirtyCount     int    `json:"dirty_count"`
	NamespaceCount int    `json:"namespace_count"`
	GeneratedAt    string `json:"generated_at"` // RFC3339
}

// RepoResponse is one entry in GET /api/v1/repos.
type RepoResponse struct {
	Identifier string `json:"identifier"`
	Namespace  string `json:"namespace"`
	Dirty      bool   `json:"dirty"`
}

// FlushResponse is the payload for POST /api/v1/flush.
type FlushResponse struct {
	Scanned int    `json:"scanned"`
	Written int    `json:"written"`
	Failed  int    `json:"failed"`
	Error   string `json:"error,omitempty"`
}

// PruneResponse is the payload for POST /api/v1/prune.
type PruneResponse struct {
	MaxAgeDays int    `json:"max_age_days"`
	Error      string `json:"error,omitempty"`
}

// PurgeResponse is the payload for DELETE /api/v1/repos/{id}.
type PurgeResponse struct {
	Purged string `json:"purged"`
}

// RecordResponse is the payload for POST /api/v1/data/{kind}/{namespace}/{version}.
type RecordResponse struct {
	Identifier string `json:"identifier"`
	Recorded   int    `json:"recorded"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
