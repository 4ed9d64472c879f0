package core

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reactorcore/pkg/config"
	"reactorcore/pkg/geom"
	"reactorcore/pkg/instr"
	"reactorcore/pkg/monitor"
	"reactorcore/pkg/storage"
	"sync"
	"time"
)

var ErrClosed = errors.New("reactor: closed")

// Reactor is a durable, shareable reactor core. Steps are applied to an
// in-memory partition under a single writer lock and journaled in the
// background; checkpoints move the partition into a SQLite snapshot and
// truncate the journal.
type Reactor struct {
	mu              sync.RWMutex
	partition       *Partition
	journal         *storage.Journal
	backend         storage.Backend
	stats           *monitor.WorkloadStats
	writeCh         chan instr.Step
	flushCh         chan chan error
	closeCh         chan struct{}
	wg              sync.WaitGroup
	conf            *config.Config
	initRegion      geom.Box
	sinceCheckpoint int
	closed          bool
}

func NewReactor(cfg *config.Config) (*Reactor, error) {
	if err := os.MkdirAll(cfg.Storage.Path, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	journal, err := storage.OpenJournal(filepath.Join(cfg.Storage.Path, "reactor.journal"))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	backend, err := storage.NewSQLiteBackend(filepath.Join(cfg.Storage.Path, "reactor.db"))
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	r := &Reactor{
		partition:  NewPartitionWithDegree(cfg.Reactor.BTreeDegree),
		journal:    journal,
		backend:    backend,
		stats:      monitor.NewWorkloadStats(),
		writeCh:    make(chan instr.Step, cfg.Storage.JournalBufferSize),
		flushCh:    make(chan chan error),
		closeCh:    make(chan struct{}),
		conf:       cfg,
		initRegion: geom.Cube(cfg.Reactor.InitRadius),
	}

	if err := r.recover(); err != nil {
		journal.Close()
		backend.Close()
		return nil, err
	}

	r.wg.Add(1)
	go r.backgroundPersist()

	return r, nil
}

// recover loads the last snapshot, replays the journal on top of it and
// folds the result into a fresh snapshot.
func (r *Reactor) recover() error {
	log.Println("[Reactor] Loading snapshot...")
	entries, err := r.backend.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if err := r.partition.Restore(entries); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	log.Printf("[Reactor] Restored %d entries from snapshot.", len(entries))

	log.Println("[Reactor] Replaying journal...")
	steps, err := r.journal.Replay()
	if err != nil {
		// Keep what was read; a torn tail is the expected result of a crash
		// mid-append.
		log.Printf("[Journal] Replay stopped after %d steps: %v", len(steps), err)
	}
	for _, s := range steps {
		r.partition.Insert(s.On, s.Box)
	}
	log.Printf("[Reactor] Replayed %d steps.", len(steps))

	if len(steps) > 0 || err != nil {
		if err := r.backend.SaveSnapshot(r.partition.Entries()); err != nil {
			return fmt.Errorf("startup checkpoint: %w", err)
		}
		if err := r.journal.Truncate(); err != nil {
			return fmt.Errorf("truncate journal: %w", err)
		}
	}
	r.stats.SetPartition(r.partition.Len(), r.partition.LitVolume())
	return nil
}

// Apply inserts one step.
func (r *Reactor) Apply(step instr.Step) error {
	return r.ApplyAll([]instr.Step{step})
}

// ApplyAll inserts steps in order as one batch; no reader observes a state
// between two of them.
func (r *Reactor) ApplyAll(steps []instr.Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	before := r.partition.Stats().Fragments
	for _, s := range steps {
		start := time.Now()
		r.partition.Insert(s.On, s.Box)
		r.stats.RecordStep(s.On, time.Since(start))
		r.writeCh <- s
		r.sinceCheckpoint++
	}
	r.stats.AddFragments(r.partition.Stats().Fragments - before)
	r.stats.SetPartition(r.partition.Len(), r.partition.LitVolume())

	if every := r.conf.Storage.CheckpointEvery; every > 0 && r.sinceCheckpoint >= every {
		if err := r.checkpointLocked(); err != nil {
			log.Printf("[Reactor] Checkpoint failed: %v", err)
		}
	}
	return nil
}

// Count returns the lit cells inside region and in total.
func (r *Reactor) Count(region geom.Box) (inRegion, total int64) {
	r.stats.RecordQuery()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.partition.LitIn(region), r.partition.LitVolume()
}

// InitRegion is the region used when a caller does not name one.
func (r *Reactor) InitRegion() geom.Box {
	return r.initRegion
}

func (r *Reactor) IsOn(p geom.Point) bool {
	r.stats.RecordProbe()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.partition.IsOn(p)
}

func (r *Reactor) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.partition.Entries()
}

// Checkpoint writes a snapshot of the partition and truncates the journal.
func (r *Reactor) Checkpoint() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return r.checkpointLocked()
}

func (r *Reactor) checkpointLocked() error {
	if err := r.flush(); err != nil {
		return err
	}
	if err := r.backend.SaveSnapshot(r.partition.Entries()); err != nil {
		return err
	}
	if err := r.journal.Truncate(); err != nil {
		return err
	}
	log.Printf("[Reactor] Checkpoint: %d entries, %d steps folded.", r.partition.Len(), r.sinceCheckpoint)
	r.sinceCheckpoint = 0
	return nil
}

// flush waits until every step sent so far is in the journal. The caller
// must hold the write lock so no new step is queued meanwhile.
func (r *Reactor) flush() error {
	done := make(chan error)
	r.flushCh <- done
	return <-done
}

// Reset switches every cell off and discards the journal and snapshot.
func (r *Reactor) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	if err := r.flush(); err != nil {
		return err
	}
	r.partition.Reset()
	r.sinceCheckpoint = 0
	if err := r.journal.Truncate(); err != nil {
		return err
	}
	if err := r.backend.Truncate(); err != nil {
		return err
	}
	r.stats.SetPartition(0, 0)
	return nil
}

func (r *Reactor) backgroundPersist() {
	defer r.wg.Done()
	batch := r.conf.Storage.JournalBatchSize
	buffer := make([]instr.Step, 0, batch)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		err := r.journal.AppendBatch(buffer)
		if err != nil {
			log.Printf("[Journal] Batch write error: %v", err)
		}
		buffer = buffer[:0]
		return err
	}
	drain := func() {
		for {
			select {
			case s := <-r.writeCh:
				buffer = append(buffer, s)
			default:
				return
			}
		}
	}

	for {
		select {
		case s := <-r.writeCh:
			buffer = append(buffer, s)
			if len(buffer) >= batch {
				flush()
			}
		case <-ticker.C:
			flush()
		case done := <-r.flushCh:
			drain()
			done <- flush()
		case <-r.closeCh:
			drain()
			flush()
			return
		}
	}
}

// Close checkpoints and releases the journal and database.
func (r *Reactor) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.sinceCheckpoint > 0 {
		if err := r.checkpointLocked(); err != nil {
			log.Printf("[Reactor] Final checkpoint failed: %v", err)
		}
	}
	r.mu.Unlock()

	close(r.closeCh)
	r.wg.Wait()
	if err := r.journal.Close(); err != nil {
		log.Printf("[Journal] Close failed: %v", err)
	}
	r.backend.Close()
}

func (r *Reactor) Metrics() *monitor.WorkloadStats {
	return r.stats
}

func (r *Reactor) Stats() map[string]interface{} {
	r.mu.RLock()
	ps := r.partition.Stats()
	entries := r.partition.Len()
	lit := r.partition.LitVolume()
	region := r.partition.LitIn(r.initRegion)
	since := r.sinceCheckpoint
	r.mu.RUnlock()

	journalSize, _ := r.journal.Size()
	return map[string]interface{}{
		"entries":           entries,
		"lit_total":         lit,
		"lit_init_region":   region,
		"steps_applied":     ps.Inserts,
		"entries_replaced":  ps.Replaced,
		"fragments_created": ps.Fragments,
		"pieces_discarded":  ps.Discarded,
		"pending_writes":    len(r.writeCh),
		"since_checkpoint":  since,
		"journal_bytes":     journalSize,
		"rw_ratio":          r.stats.GetReadWriteRatio(),
	}
}
