// Package dedupconfig reads cue deduplication settings from config.
package dedupconfig

import (
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/dedup"
)

// Load returns deduplication options from the loaded configuration.
func Load() dedup.Options {
	return dedup.Options{
		Criteria: dedup.ParseCriteria(config.Get("cue_dedup_criteria", string(dedup.CriteriaTimestamp))),
		Size:     config.GetInt("cue_dedup_size", dedup.DefaultSize),
	}
}
