// Package production provides production integrations: stats persistence,
// transition publishing, pipeline visualization.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/framesync"
)

// StatsSnapshot is a point-in-time record of a pump's counters.
type StatsSnapshot struct {
	PumpID  string          `json:"pump_id" yaml:"pump_id"`
	Stats   framesync.Stats `json:"stats" yaml:"stats"`
	SavedAt time.Time       `json:"saved_at" yaml:"saved_at"`
}

// Persister stores and retrieves stats snapshots by pump ID.
type Persister interface {
	Save(ctx context.Context, snapshot StatsSnapshot) error
	Load(ctx context.Context, pumpID string) (StatsSnapshot, error)
}

// NewPersister returns a file persister for format "json" or "yaml".
func NewPersister(dir, format string) (Persister, error) {
	switch format {
	case "json":
		return NewJSONPersister(dir)
	case "yaml", "yml":
		return NewYAMLPersister(dir)
	default:
		return nil, fmt.Errorf("unknown stats format %q", format)
	}
}

// JSONPersister is a file-based persister using JSON serialization.
type JSONPersister struct {
	dir string
}

// NewJSONPersister creates a JSONPersister, ensuring the directory exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &JSONPersister{dir: dir}, nil
}

func (p *JSONPersister) Save(ctx context.Context, snapshot StatsSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return writeSnapshot(filepath.Join(p.dir, snapshot.PumpID+".json"), data)
}

func (p *JSONPersister) Load(ctx context.Context, pumpID string) (StatsSnapshot, error) {
	data, err := readSnapshot(filepath.Join(p.dir, pumpID+".json"), pumpID)
	if err != nil {
		return StatsSnapshot{}, err
	}
	var snapshot StatsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return StatsSnapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	snapshot.PumpID = pumpID
	return snapshot, nil
}

// YAMLPersister is a file-based persister using YAML serialization.
type YAMLPersister struct {
	dir string
}

// NewYAMLPersister creates a YAMLPersister, ensuring the directory exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &YAMLPersister{dir: dir}, nil
}

func (p *YAMLPersister) Save(ctx context.Context, snapshot StatsSnapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	return writeSnapshot(filepath.Join(p.dir, snapshot.PumpID+".yaml"), data)
}

func (p *YAMLPersister) Load(ctx context.Context, pumpID string) (StatsSnapshot, error) {
	data, err := readSnapshot(filepath.Join(p.dir, pumpID+".yaml"), pumpID)
	if err != nil {
		return StatsSnapshot{}, err
	}
	var snapshot StatsSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return StatsSnapshot{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	snapshot.PumpID = pumpID
	return snapshot, nil
}

func writeSnapshot(fn string, data []byte) error {
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

func readSnapshot(fn, pumpID string) ([]byte, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("pump %q: %w", pumpID, os.ErrNotExist)
		}
		return nil, fmt.Errorf("read %s: %w", fn, err)
	}
	return data, nil
}

// StatsSource is satisfied by *framesync.Pump.
type StatsSource interface {
	Stats() framesync.Stats
}

// SaveEvery snapshots src every interval until ctx ends, then saves once
// more. Save failures are logged and do not stop the loop.
func SaveEvery(ctx context.Context, p Persister, pumpID string, src StatsSource, interval time.Duration) error {
	save := func(ctx context.Context) {
		snap := StatsSnapshot{PumpID: pumpID, Stats: src.Stats(), SavedAt: time.Now()}
		if err := p.Save(ctx, snap); err != nil {
			framesync.Logger().Warn("production: save stats", "pump", pumpID, "err", err)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			save(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			save(ctx)
		}
	}
}
