// Package archive writes completed job results to Parquet for downstream
// analytics. One file per job, one row per scored claim.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/claimstats/internal/model"
)

const writeBatchSize = 1024

// FileName returns the canonical archive file name for a job snapshot.
func FileName(snap model.JobSnapshot) string {
	return fmt.Sprintf("claims_%s.parquet", snap.FileID)
}

// WriteSnapshot archives the scored claims of a completed job into dir.
// The write goes to a temp file first and renames into place so readers
// never see a partial archive.
func WriteSnapshot(dir string, snap model.JobSnapshot) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	path := filepath.Join(dir, FileName(snap))
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	if err := writeRows(f, snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize archive: %w", err)
	}
	return path, nil
}

func writeRows(w io.Writer, snap model.JobSnapshot) error {
	pw := parquet.NewGenericWriter[model.ClaimRow](w, parquet.Compression(&parquet.Snappy))

	batch := make([]model.ClaimRow, 0, writeBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pw.Write(batch); err != nil {
			return fmt.Errorf("write archive rows: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for i := range snap.Results {
		batch = append(batch, *model.ToClaimRow(snap.FileID, &snap.Results[i]))
		if len(batch) == writeBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close archive writer: %w", err)
	}
	return nil
}

// Read loads all rows from an archive file, mainly for verification and
// tests.
func Read(path string) ([]model.ClaimRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	r := parquet.NewGenericReader[model.ClaimRow](pf)
	defer r.Close()

	var out []model.ClaimRow
	buf := make([]model.ClaimRow, writeBatchSize)
	for {
		n, readErr := r.Read(buf)
		out = append(out, buf[:n]...)
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read archive rows: %w", readErr)
		}
	}
	return out, nil
}
