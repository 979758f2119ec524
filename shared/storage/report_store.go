package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"channel-insights/internal/models"
)

// ErrReportNotFound is returned when no stored report matches.
var ErrReportNotFound = errors.New("report not found")

const (
	indexFile  = "reports_index.json"
	reportsDir = "reports"
)

// ReportStore keeps digest reports as JSON files under a data directory, with
// an index of what was stored when. Reports older than maxAge are pruned.
type ReportStore struct {
	dataDir string
	maxAge  time.Duration
	entries []ReportEntry
	mu      sync.RWMutex
	now     func() time.Time

	indexMod time.Time
}

// ReportEntry is one index record.
type ReportEntry struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channel_id"`
	ChannelTitle string    `json:"channel_title"`
	GeneratedAt  time.Time `json:"generated_at"`
}

func NewReportStore(dataDir string, maxAge time.Duration) (*ReportStore, error) {
	return newReportStore(dataDir, maxAge, time.Now)
}

func newReportStore(dataDir string, maxAge time.Duration, now func() time.Time) (*ReportStore, error) {
	if err := os.MkdirAll(filepath.Join(dataDir, reportsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := &ReportStore{
		dataDir: dataDir,
		maxAge:  maxAge,
		now:     now,
	}

	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load report index: %w", err)
	}

	if _, err := store.Prune(); err != nil {
		return nil, err
	}

	return store, nil
}

// Save assigns an ID and timestamp when missing, writes the report and
// records it in the index.
func (rs *ReportStore) Save(report *models.DigestReport) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}
	if report.Channel == nil || report.Channel.ID == "" {
		return fmt.Errorf("report has no channel")
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = rs.now().UTC()
	}

	if err := writeJSON(rs.reportPath(report.ID), report); err != nil {
		return fmt.Errorf("failed to write report %s: %w", report.ID, err)
	}

	rs.entries = append(rs.entries, ReportEntry{
		ID:           report.ID,
		ChannelID:    report.Channel.ID,
		ChannelTitle: report.Channel.Title,
		GeneratedAt:  report.GeneratedAt,
	})
	return rs.save()
}

// Get reads one report by ID.
func (rs *ReportStore) Get(id string) (*models.DigestReport, error) {
	rs.refresh()

	rs.mu.RLock()
	defer rs.mu.RUnlock()

	if !slices.ContainsFunc(rs.entries, func(e ReportEntry) bool { return e.ID == id }) {
		return nil, ErrReportNotFound
	}
	return rs.read(id)
}

// Latest returns the newest report for a channel.
func (rs *ReportStore) Latest(channelID string) (*models.DigestReport, error) {
	entries := rs.List(channelID)
	if len(entries) == 0 {
		return nil, ErrReportNotFound
	}

	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.read(entries[0].ID)
}

// List returns index entries for channelID, newest first. An empty channelID
// lists every channel.
func (rs *ReportStore) List(channelID string) []ReportEntry {
	rs.refresh()

	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make([]ReportEntry, 0, len(rs.entries))
	for _, e := range rs.entries {
		if channelID == "" || e.ChannelID == channelID {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b ReportEntry) int { return b.GeneratedAt.Compare(a.GeneratedAt) })
	return out
}

// Count returns the number of stored reports.
func (rs *ReportStore) Count() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.entries)
}

// Prune removes reports older than maxAge and returns how many were removed.
// A zero maxAge keeps everything.
func (rs *ReportStore) Prune() (int, error) {
	if rs.maxAge <= 0 {
		return 0, nil
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	cutoff := rs.now().Add(-rs.maxAge)
	kept := make([]ReportEntry, 0, len(rs.entries))
	removed := 0
	for i, e := range rs.entries {
		if !e.GeneratedAt.Before(cutoff) {
			kept = append(kept, e)
			continue
		}
		if err := os.Remove(rs.reportPath(e.ID)); err != nil && !os.IsNotExist(err) {
			// Entries from the failed one onward stay indexed.
			rs.entries = append(kept, rs.entries[i:]...)
			removeErr := fmt.Errorf("failed to remove report %s: %w", e.ID, err)
			if removed > 0 {
				if err := rs.save(); err != nil {
					return removed, errors.Join(removeErr, err)
				}
			}
			return removed, removeErr
		}
		removed++
	}
	rs.entries = kept

	if removed == 0 {
		return 0, nil
	}
	return removed, rs.save()
}

func (rs *ReportStore) reportPath(id string) string {
	return filepath.Join(rs.dataDir, reportsDir, id+".json")
}

func (rs *ReportStore) read(id string) (*models.DigestReport, error) {
	data, err := os.ReadFile(rs.reportPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to read report %s: %w", id, err)
	}

	var report models.DigestReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}
	return &report, nil
}

func (rs *ReportStore) indexPath() string {
	return filepath.Join(rs.dataDir, indexFile)
}

// load reads the index file; a missing file is an empty store.
func (rs *ReportStore) load() error {
	file, err := os.Open(rs.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	var entries []ReportEntry
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode index: %w", err)
	}
	rs.entries = entries
	if info, err := file.Stat(); err == nil {
		rs.indexMod = info.ModTime()
	}
	return nil
}

// refresh reloads the index when another process has rewritten it since it
// was last read.
func (rs *ReportStore) refresh() {
	info, err := os.Stat(rs.indexPath())
	if err != nil {
		return
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if info.ModTime().Equal(rs.indexMod) {
		return
	}
	if err := rs.load(); err != nil {
		log.Warn().Err(err).Str("data_dir", rs.dataDir).Msg("Failed to reload report index")
	}
}

func (rs *ReportStore) save() error {
	if err := writeJSON(rs.indexPath(), rs.entries); err != nil {
		return err
	}
	if info, err := os.Stat(rs.indexPath()); err == nil {
		rs.indexMod = info.ModTime()
	}
	return nil
}

// writeJSON replaces path atomically through a temp file.
func writeJSON(path string, v any) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
