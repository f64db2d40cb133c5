package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/mchmarny/credpulse/pkg/generate"
	"github.com/mchmarny/credpulse/pkg/registry"
)

// CSVHeader is the exact column set of the dataset file.
var CSVHeader = []string{
	"GPA",
	"Certifications & Skills",
	"College",
	"City",
	"College Tier",
	"City Tier",
	"Placement Ratio",
	"CIBIL Score",
	"Parent Income (LPA)",
	"Salary (INR)",
	"Credit Worthiness",
}

var errInvalidHeader = errors.New("invalid csv header")

// WriteCSV writes the header and one line per record.
func WriteCSV(w io.Writer, records []*generate.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for i, r := range records {
		if r == nil {
			return fmt.Errorf("record[%d] is nil", i)
		}
		if err := cw.Write(toCSV(r)); err != nil {
			return fmt.Errorf("failed to write record[%d]: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// ReadCSV parses a table produced by WriteCSV.
func ReadCSV(r io.Reader) ([]*generate.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if !slices.Equal(header, CSVHeader) {
		return nil, fmt.Errorf("%w: %v", errInvalidHeader, header)
	}

	list := make([]*generate.Record, 0)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		rec, err := fromCSV(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		list = append(list, rec)
	}
	return list, nil
}

func toCSV(r *generate.Record) []string {
	return []string{
		formatFloat(r.GPA),
		strconv.Itoa(r.Certifications),
		r.College,
		r.City,
		r.CollegeTier.String(),
		r.CityTier.String(),
		formatFloat(r.PlacementRatio),
		strconv.Itoa(r.CIBILScore),
		formatFloat(r.ParentIncome),
		formatFloat(r.Salary),
		formatFloat(r.Creditworthiness),
	}
}

func fromCSV(row []string) (*generate.Record, error) {
	var (
		r   generate.Record
		err error
	)
	p := parser{row: row}
	r.GPA = p.float(0)
	r.Certifications = p.integer(1)
	r.College = row[2]
	r.City = row[3]
	if r.CollegeTier, err = registry.ParseTier(row[4]); err != nil {
		return nil, err
	}
	if r.CityTier, err = registry.ParseTier(row[5]); err != nil {
		return nil, err
	}
	r.PlacementRatio = p.float(6)
	r.CIBILScore = p.integer(7)
	r.ParentIncome = p.float(8)
	r.Salary = p.float(9)
	r.Creditworthiness = p.float(10)
	if p.err != nil {
		return nil, p.err
	}
	return &r, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parser keeps the first conversion error.
type parser struct {
	row []string
	err error
}

func (p *parser) float(i int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.row[i], 64)
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", CSVHeader[i], err)
	}
	return v
}

func (p *parser) integer(i int) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.row[i])
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", CSVHeader[i], err)
	}
	return v
}
