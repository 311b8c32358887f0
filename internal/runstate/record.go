// Package runstate persists the outcome of the latest build or retry as
// run_results.json in the target directory.
package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/transform-cli/internal/model"
)

// FileName is the run record file inside the target directory.
const FileName = "run_results.json"

// Metadata identifies the invocation that produced a record.
type Metadata struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Command     string    `json:"command"`
}

// Record is the on-disk run record.
type Record struct {
	Metadata    Metadata           `json:"metadata"`
	Args        model.RunArgs      `json:"args"`
	ElapsedTime float64            `json:"elapsed_time"`
	Results     []model.NodeResult `json:"results"`
}

// NoPreviousRunError is returned when no run record exists in a directory.
type NoPreviousRunError struct {
	Dir string
}

func (e *NoPreviousRunError) Error() string {
	return fmt.Sprintf("could not find previous run in '%s' target directory", e.Dir)
}

// FromResult converts a finished run into a record.
func FromResult(r *model.RunResult) *Record {
	results := r.Results
	if results == nil {
		results = []model.NodeResult{}
	}
	return &Record{
		Metadata: Metadata{
			RunID:       r.RunID,
			GeneratedAt: time.Now().UTC(),
			Command:     r.Args.Command,
		},
		Args:        r.Args,
		ElapsedTime: r.ElapsedTime,
		Results:     results,
	}
}

// Load reads the record from dir. A missing file is a *NoPreviousRunError.
func Load(dir string) (*Record, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NoPreviousRunError{Dir: dir}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "runstate: read %s", path)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrapf(err, "runstate: parse %s", path)
	}
	return &rec, nil
}

// Save writes rec to dir, replacing any previous record. The file is
// written to a temp name first and renamed so readers never see a partial
// record.
func Save(dir string, rec *Record) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "runstate: create %s", dir)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return eris.Wrap(err, "runstate: marshal record")
	}

	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return eris.Wrap(err, "runstate: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "runstate: write record")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "runstate: close record")
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, FileName)); err != nil {
		return eris.Wrap(err, "runstate: replace record")
	}
	return nil
}
