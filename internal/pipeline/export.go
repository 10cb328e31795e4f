package pipeline

import (
	"clipharvest/pkg/errors"
)

// Export merges the tables at inputs into one spreadsheet at out.
func (p *Pipeline) Export(inputs []string, out string) (int, error) {
	if len(inputs) == 0 {
		return 0, errors.New(errors.ErrorTypeConfig, "at least one input table is required")
	}
	records, err := p.store.ReadTables(inputs...)
	if err != nil {
		return 0, err
	}
	if err := p.store.ExportXLSX(out, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
