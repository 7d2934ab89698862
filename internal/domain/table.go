package domain

import "fmt"

// Column headers of every tabular file, in order.
const (
	ColFirstName    = "First Name"
	ColLastName     = "Last Name"
	ColInmateID     = "DOC/Inmate #"
	ColAddressLine1 = "Address Line 1"
	ColAddressLine2 = "Address Line 2"
	ColCity         = "City"
	ColState        = "State"
	ColZipCode      = "ZipCode"
)

// RecordHeader is the fixed column order of snapshot and master files.
var RecordHeader = []string{
	ColFirstName, ColLastName, ColInmateID, ColAddressLine1,
	ColAddressLine2, ColCity, ColState, ColZipCode,
}

// Table is a rectangular dataset with a header row.
type Table struct {
	Header []string
	Rows   [][]string
}

// RecordsToTable renders records with the fixed header. The inmate id is
// written with its '#' prefix.
func RecordsToTable(records []Record) Table {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.FirstName, r.LastName, FormatInmateID(r.InmateID), r.AddressLine1,
			r.AddressLine2, r.City, r.State, r.ZipCode,
		})
	}
	return Table{Header: append([]string(nil), RecordHeader...), Rows: rows}
}

// TableToRecords parses a table by header name, so column order in the file
// does not matter. Missing trailing cells read as empty.
func TableToRecords(t Table) ([]Record, error) {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		idx[h] = i
	}
	for _, h := range []string{ColFirstName, ColLastName, ColInmateID} {
		if _, ok := idx[h]; !ok {
			return nil, fmt.Errorf("table missing column %q", h)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		records = append(records, Record{
			FirstName:    cell(row, ColFirstName),
			LastName:     cell(row, ColLastName),
			InmateID:     NormalizeInmateID(cell(row, ColInmateID)),
			AddressLine1: cell(row, ColAddressLine1),
			AddressLine2: cell(row, ColAddressLine2),
			City:         cell(row, ColCity),
			State:        cell(row, ColState),
			ZipCode:      cell(row, ColZipCode),
		})
	}
	return records, nil
}
