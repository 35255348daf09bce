package harvest

import (
	"encoding/csv"
	"errors"
	"io"

	"github.com/rotisserie/eris"
)

// ReadCSV returns the first column of every row in r.
func ReadCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var values []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "harvest: read csv row")
		}
		if len(record) > 0 {
			values = append(values, record[0])
		}
	}
}
