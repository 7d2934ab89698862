package app

import (
	"context"
	"fmt"

	"github.com/bft-labs/penpal/internal/domain"
	"github.com/bft-labs/penpal/internal/ports"
)

// MergeResult describes what a merge wrote.
type MergeResult struct {
	// Written is the number of new records, which is also the snapshot size.
	Written int
	// MasterUpdated reports whether the master file was (re)written.
	MasterUpdated bool
	// MasterSize is the number of records in the master after the merge.
	MasterSize int
}

// DedupStore merges scraped batches into the master dataset, keeping one row
// per identity key.
type DedupStore struct {
	tables     ports.TableStore
	masterName string
	logger     ports.Logger
}

// NewDedupStore creates a store whose master lives under masterName.
func NewDedupStore(tables ports.TableStore, masterName string, logger ports.Logger) *DedupStore {
	return &DedupStore{tables: tables, masterName: masterName, logger: logger}
}

// Merge writes the records of batch whose identity key is not yet in the
// master to snapshotName, then appends them to the master. Without a master
// the whole batch becomes both files, even when empty. With a master and no
// new record nothing is written. The snapshot is always written first.
func (s *DedupStore) Merge(ctx context.Context, batch *domain.Batch, snapshotName string) (MergeResult, error) {
	records := batch.Unique()

	exists, err := s.tables.Exists(ctx, s.masterName)
	if err != nil {
		return MergeResult{}, fmt.Errorf("check master: %w", err)
	}

	if !exists {
		table := domain.RecordsToTable(records)
		if err := s.tables.Write(ctx, snapshotName, table); err != nil {
			return MergeResult{}, fmt.Errorf("write snapshot: %w", err)
		}
		if err := s.tables.Write(ctx, s.masterName, table); err != nil {
			return MergeResult{}, fmt.Errorf("write master: %w", err)
		}
		s.logger.Info("master created",
			ports.String("master", s.masterName),
			ports.String("snapshot", snapshotName),
			ports.Int("records", len(records)),
		)
		return MergeResult{Written: len(records), MasterUpdated: true, MasterSize: len(records)}, nil
	}

	table, err := s.tables.Read(ctx, s.masterName)
	if err != nil {
		return MergeResult{}, fmt.Errorf("read master: %w", err)
	}
	master, err := domain.TableToRecords(table)
	if err != nil {
		return MergeResult{}, fmt.Errorf("parse master: %w", err)
	}

	known := make(map[string]bool, len(master))
	for _, r := range master {
		known[r.IdentityKey()] = true
	}
	var fresh []domain.Record
	for _, r := range records {
		if !known[r.IdentityKey()] {
			fresh = append(fresh, r)
		}
	}

	if len(fresh) == 0 {
		s.logger.Info("no new records", ports.Int("master_size", len(master)))
		return MergeResult{MasterSize: len(master)}, nil
	}

	if err := s.tables.Write(ctx, snapshotName, domain.RecordsToTable(fresh)); err != nil {
		return MergeResult{}, fmt.Errorf("write snapshot: %w", err)
	}
	merged := append(master, fresh...)
	if err := s.tables.Write(ctx, s.masterName, domain.RecordsToTable(merged)); err != nil {
		return MergeResult{}, fmt.Errorf("write master: %w", err)
	}
	s.logger.Info("master updated",
		ports.String("master", s.masterName),
		ports.String("snapshot", snapshotName),
		ports.Int("new_records", len(fresh)),
		ports.Int("master_size", len(merged)),
	)
	return MergeResult{Written: len(fresh), MasterUpdated: true, MasterSize: len(merged)}, nil
}
