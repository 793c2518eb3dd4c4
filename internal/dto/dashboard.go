package dto

import "time"

// SystemMetricsSnapshot summarises runtime metrics for the ops endpoint.
type SystemMetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// GateDashboardResponse feeds the front-desk KPI tiles.
type GateDashboardResponse struct {
	IssuedToday    int       `json:"issuedToday"`
	CurrentlyOut   int       `json:"currentlyOut"`
	ReturnedToday  int       `json:"returnedToday"`
	CancelledToday int       `json:"cancelledToday"`
	VisitorsOnSite int       `json:"visitorsOnSite"`
	GeneratedAt    time.Time `json:"generatedAt"`
}
