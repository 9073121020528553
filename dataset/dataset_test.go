package dataset

import (
	"math"
	"strings"
	"testing"
)

const sampleCSV = `ph,Hardness,Solids,Chloramines,Sulfate,Conductivity,Organic_carbon,Trihalomethanes,Turbidity,Potability
7.0,200,20000,7,350,400,14,80,4,1
,150,10000,5,,300,10,60,3,0
8.1,180,15000,6,320,410,12,70,4.5,1
6.2,220,25000,8,380,390,15,90,5,0
`

func TestReadParsesRowsAndMissingValues(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV), "utf-8")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(ds.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(ds.Rows))
	}
	if len(ds.Features) != 9 {
		t.Fatalf("expected 9 features, got %d", len(ds.Features))
	}
	if ds.Rows[0][0] != 7.0 {
		t.Errorf("row 0 ph = %v, want 7.0", ds.Rows[0][0])
	}
	if !math.IsNaN(ds.Rows[1][0]) || !math.IsNaN(ds.Rows[1][4]) {
		t.Errorf("empty cells should parse as NaN, got %v and %v", ds.Rows[1][0], ds.Rows[1][4])
	}
	if ds.Labels[0] != 1 || ds.Labels[1] != 0 {
		t.Errorf("unexpected labels: %v", ds.Labels)
	}
}

func TestReadRejectsMissingColumns(t *testing.T) {
	csv := "ph,Hardness,Potability\n7,100,1\n"
	if _, err := Read(strings.NewReader(csv), ""); err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestReadRejectsBadLabel(t *testing.T) {
	bad := strings.Replace(sampleCSV, ",80,4,1\n", ",80,4,3\n", 1)
	if _, err := Read(strings.NewReader(bad), ""); err == nil {
		t.Fatal("expected error for label out of range")
	}
}

func TestReadUnsupportedEncoding(t *testing.T) {
	if _, err := Read(strings.NewReader(sampleCSV), "ebcdic"); err == nil {
		t.Fatal("expected error for unsupported encoding")
	}
}

func TestDescribeSkipsMissing(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV), "")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	summaries := ds.Describe()
	ph := summaries[0]
	if ph.Name != "ph" {
		t.Fatalf("first summary should be ph, got %s", ph.Name)
	}
	if ph.Count != 3 || ph.Missing != 1 {
		t.Errorf("ph count=%d missing=%d, want 3 and 1", ph.Count, ph.Missing)
	}
	wantMean := (7.0 + 8.1 + 6.2) / 3
	if math.Abs(ph.Mean-wantMean) > 1e-9 {
		t.Errorf("ph mean = %v, want %v", ph.Mean, wantMean)
	}
	if ph.Min != 6.2 || ph.Max != 8.1 {
		t.Errorf("ph min/max = %v/%v", ph.Min, ph.Max)
	}
}

func TestLabelCounts(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV), "")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	counts := ds.LabelCounts()
	if counts[0] != 2 || counts[1] != 2 {
		t.Errorf("unexpected label counts: %v", counts)
	}
}
