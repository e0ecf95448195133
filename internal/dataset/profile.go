package dataset

import "math"

// ColumnProfile holds quality metrics for one present column
type ColumnProfile struct {
	Column        string   `json:"column"`
	Numeric       bool     `json:"numeric"`
	TotalRows     int      `json:"total_rows"`
	NonNullRows   int      `json:"non_null_rows"`
	NullRate      float64  `json:"null_rate"`
	DistinctCount int      `json:"distinct_count"`
	Entropy       float64  `json:"entropy"`
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
}

// Profile describes every present column of t, plus the known columns the
// dashboard expects but the table lacks.
func Profile(t *Table) (profiles []ColumnProfile, missing []string) {
	profiles = []ColumnProfile{}
	missing = []string{}
	if t == nil {
		for _, c := range AllColumns {
			missing = append(missing, string(c))
		}
		return profiles, missing
	}

	for _, col := range t.Columns {
		profiles = append(profiles, profileColumn(t, col))
	}
	for _, col := range AllColumns {
		if col == Sentiment {
			// derived during analysis
			continue
		}
		if !t.Has(col) {
			missing = append(missing, string(col))
		}
	}
	return profiles, missing
}

func profileColumn(t *Table, col Column) ColumnProfile {
	p := ColumnProfile{
		Column:    string(col),
		Numeric:   IsNumeric(col),
		TotalRows: t.Len(),
	}

	counts := make(map[string]int)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range t.Rows {
		key := cellString(&t.Rows[i], col)
		if key == "" {
			continue
		}
		p.NonNullRows++
		counts[key]++
		if p.Numeric {
			v := t.Rows[i].Number(col)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	p.DistinctCount = len(counts)
	if p.TotalRows > 0 {
		p.NullRate = round(float64(p.TotalRows-p.NonNullRows)/float64(p.TotalRows), 4)
	}
	p.Entropy = round(entropy(counts, p.NonNullRows), 4)
	if p.Numeric && p.NonNullRows > 0 {
		p.Min, p.Max = &lo, &hi
	}
	return p
}

// entropy computes Shannon entropy in bits
func entropy(valueCounts map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	e := 0.0
	for _, count := range valueCounts {
		if count > 0 {
			p := float64(count) / float64(total)
			e -= p * math.Log2(p)
		}
	}
	return e
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
