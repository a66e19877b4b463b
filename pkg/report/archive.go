package report

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
)

// Archive key schema:
//
//	run:<runID>              → RunMeta
//	s:<runID>:<8-byte tick>  → Sample
//
// Ticks are big-endian so a prefix scan returns samples in tick order.
const (
	prefixRun    = "run:"
	prefixSample = "s:"
)

var ErrRunNotFound = errors.New("run not found in archive")

// RunMeta describes an archived run.
type RunMeta struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	QuoteAsset string    `json:"quote_asset"`
	Trend      string    `json:"trend"`
	Seed       int64     `json:"seed"`
	Orders     int       `json:"orders"`
	StartedAt  time.Time `json:"started_at"`
}

func NewRunID() string { return uuid.NewString() }

func runKey(id string) []byte { return []byte(prefixRun + id) }

func samplePrefix(id string) []byte { return []byte(prefixSample + id + ":") }

func sampleKey(id string, tick int) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(tick))
	return append(samplePrefix(id), k[:]...)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// Archive persists samples per run in a Pebble store so a run can be
// reported again later.
type Archive struct {
	db *pebble.DB
}

func OpenArchive(dir string) (*Archive, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", dir, err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

// BeginRun records the run's metadata.
func (a *Archive) BeginRun(meta RunMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := a.db.Set(runKey(meta.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Publish stores one sample of runID.
func (a *Archive) Publish(runID string, s Sample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}
	if err := a.db.Set(sampleKey(runID, s.Tick), data, pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save sample: %w", err)
	}
	return nil
}

// Runs lists archived runs, oldest first.
func (a *Archive) Runs() ([]RunMeta, error) {
	prefix := []byte(prefixRun)
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var runs []RunMeta
	for iter.First(); iter.Valid(); iter.Next() {
		var m RunMeta
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue
		}
		runs = append(runs, m)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
	return runs, nil
}

// Load returns a run's metadata and its samples in tick order.
func (a *Archive) Load(runID string) (RunMeta, []Sample, error) {
	var meta RunMeta
	data, closer, err := a.db.Get(runKey(runID))
	if err == pebble.ErrNotFound {
		return meta, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return meta, nil, fmt.Errorf("failed to get run: %w", err)
	}
	err = json.Unmarshal(data, &meta)
	closer.Close()
	if err != nil {
		return meta, nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}

	prefix := samplePrefix(runID)
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return meta, nil, err
	}
	defer iter.Close()

	var samples []Sample
	for iter.First(); iter.Valid(); iter.Next() {
		var s Sample
		if err := json.Unmarshal(iter.Value(), &s); err != nil {
			return meta, nil, fmt.Errorf("failed to unmarshal sample: %w", err)
		}
		samples = append(samples, s)
	}
	return meta, samples, nil
}
