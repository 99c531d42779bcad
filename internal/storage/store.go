// Package storage persists parsed solver logs.
//
// Each ingested run gets a directory <baseDir>/<id>/ holding metadata.json and
// iterations.csv, and a row in the SQLite catalog <baseDir>/catalog.db that
// also keeps the per-increment records and diagnostics. Writers from several
// processes are serialized through the lock file <baseDir>/.lock.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/logger"
	"github.com/san-kum/damaskio/internal/solverlog"
)

var ErrNotFound = errors.New("storage: run not found")

const (
	metadataFile   = "metadata.json"
	iterationsFile = "iterations.csv"
	catalogFile    = "catalog.db"
	lockFile       = ".lock"
)

type Store struct {
	baseDir string
	log     logger.Logger
	mu      sync.Mutex
	lock    *flock.Flock
	catalog *catalog
}

func New(baseDir string, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop{}
	}
	return &Store{
		baseDir: baseDir,
		log:     log,
		lock:    flock.New(filepath.Join(baseDir, lockFile)),
	}
}

// Init creates the base directory and opens the catalog.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	c, err := openCatalog(filepath.Join(s.baseDir, catalogFile))
	if err != nil {
		return err
	}
	s.catalog = c
	return nil
}

func (s *Store) Close() error {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.close()
}

func (s *Store) BaseDir() string {
	return s.baseDir
}

type RunMetadata struct {
	ID         string           `json:"id"`
	Source     string           `json:"source"`
	IngestedAt time.Time        `json:"ingested_at"`
	Increments int              `json:"increments"`
	Converged  int              `json:"converged"`
	Iterations int              `json:"iterations"`
	Metrics    []string         `json:"metrics"`
	Warnings   []damask.Message `json:"warnings"`
	Errors     []damask.Message `json:"errors"`
}

// Save stores run under a new id. stderr holds the error blocks of the
// matching diagnostic stream and may be nil.
func (s *Store) Save(ctx context.Context, source string, run *solverlog.LogRun, stderr []damask.Message) (string, error) {
	if s.catalog == nil {
		return "", fmt.Errorf("storage: store not initialized")
	}
	if stderr == nil {
		stderr = []damask.Message{}
	}

	unlock, err := s.acquire()
	if err != nil {
		return "", err
	}
	defer unlock()

	meta := &RunMetadata{
		ID:         uuid.New().String(),
		Source:     source,
		IngestedAt: time.Now().UTC(),
		Increments: run.NumIncrements,
		Converged:  run.NumConverged(),
		Iterations: run.NumIterations(),
		Metrics:    run.Errors.Keys(),
		Warnings:   run.Warnings,
		Errors:     stderr,
	}
	if meta.Metrics == nil {
		meta.Metrics = []string{}
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := atomicWrite(filepath.Join(runDir, metadataFile), data); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	if err := writeIterations(filepath.Join(runDir, iterationsFile), run); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	if err := s.catalog.insert(ctx, meta, run); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}

	s.log.Infof("stored %s as %s (%d increments, %d iterations)", source, meta.ID, meta.Converged, meta.Iterations)
	return meta.ID, nil
}

// List returns the catalog rows, newest first.
func (s *Store) List(ctx context.Context) ([]RunSummary, error) {
	if s.catalog == nil {
		return []RunSummary{}, nil
	}
	return s.catalog.list(ctx)
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", runID, ErrNotFound)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: decode metadata: %w", runID, err)
	}
	return &meta, nil
}

// LoadRun reassembles the LogRun of a stored run.
func (s *Store) LoadRun(ctx context.Context, runID string) (*solverlog.LogRun, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	incs, err := s.Increments(ctx, runID)
	if err != nil {
		return nil, err
	}
	it, err := s.LoadIterations(runID)
	if err != nil {
		return nil, err
	}

	run := &solverlog.LogRun{
		DeformationGradientAim: it.DeformationGradientAim,
		PiolaKirchhoffStress:   it.PiolaKirchhoffStress,
		IncrementIdx:           it.IncrementIdx,
		Errors:                 it.Errors,
		IncNumber:              make([]int, 0, len(incs)),
		IncTime:                make([]float64, 0, len(incs)),
		IncCutBack:             make([]float64, 0, len(incs)),
		IncLoadCase:            make([]int, 0, len(incs)),
		IncPosition:            make([]int, 0, len(incs)),
		IncNumIters:            make([]int, 0, len(incs)),
		Warnings:               meta.Warnings,
		NumIncrements:          meta.Increments,
	}
	for _, inc := range incs {
		run.IncNumber = append(run.IncNumber, inc.Number)
		run.IncTime = append(run.IncTime, inc.Time)
		run.IncCutBack = append(run.IncCutBack, inc.CutBack)
		run.IncLoadCase = append(run.IncLoadCase, inc.LoadCase)
		run.IncPosition = append(run.IncPosition, inc.Position)
		run.IncNumIters = append(run.IncNumIters, inc.NumIters)
	}
	return run, nil
}

func (s *Store) Increments(ctx context.Context, runID string) ([]IncrementRow, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("storage: store not initialized")
	}
	return s.catalog.increments(ctx, runID)
}

// Messages returns the stored diagnostics of kind KindWarning or KindError.
func (s *Store) Messages(ctx context.Context, runID, kind string) ([]damask.Message, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("storage: store not initialized")
	}
	return s.catalog.messages(ctx, runID, kind)
}

// WarningCounts counts warnings by code across every stored run.
func (s *Store) WarningCounts(ctx context.Context) (map[int]int, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("storage: store not initialized")
	}
	return s.catalog.warningCounts(ctx)
}

// Delete removes a run from the catalog and disk.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if s.catalog == nil {
		return fmt.Errorf("storage: store not initialized")
	}
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	found, err := s.catalog.delete(ctx, runID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s: %w", runID, ErrNotFound)
	}
	s.log.Infof("deleted run %s", runID)
	return os.RemoveAll(filepath.Join(s.baseDir, runID))
}

// acquire serializes writers in this process and, through the lock file,
// across processes.
func (s *Store) acquire() (func(), error) {
	s.mu.Lock()
	if err := s.lock.Lock(); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("lock %s: %w", s.baseDir, err)
	}
	return func() {
		s.lock.Unlock()
		s.mu.Unlock()
	}, nil
}

// atomicWrite writes through a temp file in the same directory and renames
// it over path.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
