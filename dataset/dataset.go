package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// FeatureNames returns the nine water-quality measurements in the
// canonical column order used everywhere (vectors, models, persisted
// bundles).
func FeatureNames() []string {
	return []string{
		"ph",
		"hardness",
		"solids",
		"chloramines",
		"sulfate",
		"conductivity",
		"organic_carbon",
		"trihalomethanes",
		"turbidity",
	}
}

const targetColumn = "potability"

// Dataset holds the parsed samples. Missing cells are NaN until an
// imputer fills them.
type Dataset struct {
	Features []string
	Rows     [][]float64
	Labels   []int
}

// ColumnSummary describes one feature column.
type ColumnSummary struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// LoadCSV reads a potability CSV file. The header row is matched
// case-insensitively against FeatureNames plus the Potability target.
// encodingName selects the source charset; an empty value or "utf-8"
// reads the file as-is.
func LoadCSV(path, encodingName string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file, encodingName)
}

// Read parses CSV content from r. See LoadCSV.
func Read(r io.Reader, encodingName string) (*Dataset, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	names := FeatureNames()
	featureIdx := make([]int, len(names))
	for i := range featureIdx {
		featureIdx[i] = -1
	}
	targetIdx := -1
	for col, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == targetColumn {
			targetIdx = col
			continue
		}
		for i, want := range names {
			if key == want {
				featureIdx[i] = col
			}
		}
	}
	if targetIdx == -1 {
		return nil, errors.New("dataset: missing Potability column")
	}
	for i, col := range featureIdx {
		if col == -1 {
			return nil, fmt.Errorf("dataset: missing column %q", names[i])
		}
	}

	ds := &Dataset{Features: names}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line+1, err)
		}
		line++

		row := make([]float64, len(names))
		for i, col := range featureIdx {
			value, err := parseCell(record[col])
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, names[i], err)
			}
			row[i] = value
		}

		label, err := parseLabel(record[targetIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ds.Rows = append(ds.Rows, row)
		ds.Labels = append(ds.Labels, label)
	}

	if len(ds.Rows) == 0 {
		return nil, errors.New("dataset: no data rows")
	}
	return ds, nil
}

// Describe computes per-column summary statistics over non-missing
// values.
func (d *Dataset) Describe() []ColumnSummary {
	summaries := make([]ColumnSummary, len(d.Features))
	for j, name := range d.Features {
		var values []float64
		for _, row := range d.Rows {
			if !math.IsNaN(row[j]) {
				values = append(values, row[j])
			}
		}
		s := ColumnSummary{
			Name:    name,
			Count:   len(values),
			Missing: len(d.Rows) - len(values),
		}
		if len(values) > 0 {
			s.Min = values[0]
			s.Max = values[0]
			sum := 0.0
			for _, v := range values {
				sum += v
				if v < s.Min {
					s.Min = v
				}
				if v > s.Max {
					s.Max = v
				}
			}
			s.Mean = sum / float64(len(values))
			variance := 0.0
			for _, v := range values {
				d := v - s.Mean
				variance += d * d
			}
			s.Std = math.Sqrt(variance / float64(len(values)))
		}
		summaries[j] = s
	}
	return summaries
}

// LabelCounts returns the number of samples per class.
func (d *Dataset) LabelCounts() map[int]int {
	counts := make(map[int]int)
	for _, label := range d.Labels {
		counts[label]++
	}
	return counts
}

func parseCell(raw string) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" || value == "NA" || value == "NaN" || value == "nan" {
		return math.NaN(), nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return parsed, nil
}

func parseLabel(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid label %q", raw)
	}
	label := int(parsed)
	if label != 0 && label != 1 {
		return 0, fmt.Errorf("label %q out of range", raw)
	}
	return label, nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252":
		return charmap.Windows1252, nil
	case "gbk":
		return simplifiedchinese.GBK, nil
	default:
		return nil, fmt.Errorf("dataset: unsupported encoding %q", name)
	}
}
