package cliconfig

import (
	"path/filepath"
	"time"
)

// SnapshotName returns the per-run snapshot file name for day.
func (c *Config) SnapshotName(day time.Time) string {
	return c.FilePrefix + "_" + day.Format(time.DateOnly) + ".xlsx"
}

// MasterName returns the master file name.
func (c *Config) MasterName() string {
	return c.FilePrefix + "_all.xlsx"
}

// StatusPath returns where the last run status is kept.
func (c *Config) StatusPath() string {
	return filepath.Join(c.OutputDir, "status.json")
}
