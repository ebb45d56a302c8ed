package entity

import "time"

// AggregatedFormData is a read-only daily view over a site's operational forms
type AggregatedFormData struct {
	SiteID string    `json:"site_id"`
	Date   time.Time `json:"date"`

	BlastLogCount         int     `json:"blast_log_count"`
	TotalHoles            int     `json:"total_holes"`
	TotalEmulsionBlasted  float64 `json:"total_emulsion_blasted"`
	QualityReportCount    int     `json:"quality_report_count"`
	AveragePH             float64 `json:"average_ph"`
	AverageDensity        float64 `json:"average_density"`
	ProductionLogCount    int     `json:"production_log_count"`
	TotalEmulsionProduced float64 `json:"total_emulsion_produced"`
	TotalEmulsionUsed     float64 `json:"total_emulsion_used"`
	TotalDowntimeHours    float64 `json:"total_downtime_hours"`
}
