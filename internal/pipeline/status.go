package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"plafond/internal/cache"
	"plafond/internal/domain"
)

// DiskStatus is the data-dir free-space preflight. Low warns before a
// scheduled download would hit a storage failure mid-swap.
type DiskStatus struct {
	Path        string  `json:"path"`
	TotalMB     uint64  `json:"total_mb"`
	FreeMB      uint64  `json:"free_mb"`
	UsedPercent float64 `json:"used_percent"`
	FloorMB     uint64  `json:"floor_mb"`
	Low         bool    `json:"low"`
}

// Status is a point-in-time view of the pipeline for the status
// command.
type Status struct {
	State     State       `json:"-"`
	StateName string      `json:"state"`
	CachePath string      `json:"cache_path"`
	Cache     *cache.Info `json:"cache,omitempty"`
	// CacheError is set when a cache file exists but cannot be read.
	CacheError string      `json:"cache_error,omitempty"`
	Disk       *DiskStatus `json:"disk,omitempty"`
}

// Describe probes the cache and the data dir. Probe failures degrade
// the report instead of failing it; status must stay usable exactly
// when things are broken.
func Describe(ctx context.Context, cachePath, dataDir string, diskFloorMB uint64, log zerolog.Logger) *Status {
	st := &Status{
		State:     StateUninitialized,
		CachePath: cachePath,
	}

	store, err := cache.Open(cachePath)
	switch {
	case err == nil:
		st.State = StateDownloaded
		info, infoErr := store.Info(ctx)
		if infoErr != nil {
			st.CacheError = infoErr.Error()
		} else {
			st.Cache = info
		}
		store.Close()

	default:
		var missing *domain.CacheMissingError
		if !errors.As(err, &missing) {
			st.State = StateDownloaded
			st.CacheError = err.Error()
		}
	}
	st.StateName = st.State.String()

	usage, err := disk.Usage(dataDir)
	if err != nil {
		log.Warn().Err(err).Str("path", dataDir).Msg("Failed to read disk usage")
	} else {
		st.Disk = &DiskStatus{
			Path:        dataDir,
			TotalMB:     usage.Total / 1024 / 1024,
			FreeMB:      usage.Free / 1024 / 1024,
			UsedPercent: usage.UsedPercent,
			FloorMB:     diskFloorMB,
			Low:         usage.Free/1024/1024 < diskFloorMB,
		}
	}

	return st
}
