package domain

import "time"

// RetentionPolicy governs when log files are archived, compressed, or
// deleted.
type RetentionPolicy struct {
	Enabled             bool      `json:"enabled" yaml:"enabled"`
	RetentionDays       int       `json:"retention_days" yaml:"retention_days"`
	AutoClean           bool      `json:"auto_clean" yaml:"auto_clean"`
	RequireConfirmation bool      `json:"require_confirmation" yaml:"require_confirmation"`
	MaxTotalSizeBytes   int64     `json:"max_total_size_bytes" yaml:"max_total_size_bytes"`
	CompressAfterDays   int       `json:"compress_after_days" yaml:"compress_after_days"`
	MaxArchiveAgeDays   int       `json:"max_archive_age_days" yaml:"max_archive_age_days"`
	LastCleanup         time.Time `json:"last_cleanup,omitempty" yaml:"-"`
}

// DefaultRetentionPolicy returns the policy used when none is configured.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		Enabled:             true,
		RetentionDays:       30,
		AutoClean:           false,
		RequireConfirmation: true,
		MaxTotalSizeBytes:   500 << 20, // 500 MB
		CompressAfterDays:   7,
		MaxArchiveAgeDays:   90,
	}
}
