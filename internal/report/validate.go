package report

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/claimforge/internal/model"
)

// ValidateSchema checks that the Parquet schema carries the identifying
// columns, the outcome columns and every code count column.
func ValidateSchema(schema *parquet.Schema) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		columns[strings.ToLower(field.Name())] = true
	}

	required := []string{"batch_id", "document_path", "valid", "errors", "warnings"}
	required = append(required, model.CodeTypeColumns()...)
	var missing []string
	for _, col := range required {
		if !columns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("not a claim report; missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
