package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/syncwatch/syncwatch/types"
)

const (
	NetworkDataCSV  = "subgraph_network_data.csv"
	NetworkDataJSON = "subgraph_network_data.json"
	IssuesCSV       = "problematic_subgraphs.csv"
)

// WriteJSON writes the full report, per-source statuses included.
func WriteJSON(w io.Writer, r *types.FleetReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteFiles writes the CSV and JSON outputs of r into dir and returns the
// paths written. The issues file is only written when some deployment needs
// attention.
func WriteFiles(dir string, r *types.FleetReport) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.NewConfigError(fmt.Sprintf("cannot create output directory %s", dir), err)
	}

	var written []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := write(NetworkDataCSV, func(w io.Writer) error { return WriteCSV(w, r) }); err != nil {
		return written, err
	}
	if err := write(NetworkDataJSON, func(w io.Writer) error { return WriteJSON(w, r) }); err != nil {
		return written, err
	}
	if len(r.NeedsAttention()) > 0 {
		err := write(IssuesCSV, func(w io.Writer) error {
			_, err := WriteIssuesCSV(w, r)
			return err
		})
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
