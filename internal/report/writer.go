// Package report writes and reads the Parquet batch report.
package report

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/claimforge/internal/model"
)

// Write creates path and writes rows to it as a single Parquet file.
func Write(path string, rows []model.ReportRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	w := parquet.NewGenericWriter[model.ReportRow](f)
	if _, err := w.Write(rows); err != nil {
		w.Close()
		f.Close()
		return fmt.Errorf("write report rows: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close report writer: %w", err)
	}
	return f.Close()
}
