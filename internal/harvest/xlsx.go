package harvest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSX returns the first column of a worksheet. An empty sheet name
// selects the first sheet.
func ReadXLSX(path, sheetName string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "harvest: open %s", path)
	}

	sheet, err := pickSheet(f, sheetName)
	if err != nil {
		return nil, err
	}

	var values []string
	for _, row := range sheet.Rows {
		if row == nil || len(row.Cells) == 0 {
			continue
		}
		values = append(values, row.Cells[0].String())
	}
	return values, nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("harvest: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("harvest: workbook has no sheets")
	}
	return f.Sheets[0], nil
}
