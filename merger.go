package hermes

import (
	"strings"
	"time"
)

const (
	RegistroColumn = "Registro"
	CuboColumn     = "Cubo"
)

// ForwardFill returns a copy of t where every null cell takes the nearest
// non-null value above it in the same column. Leading nulls stay null.
func ForwardFill(t *Table) *Table {
	out := t.Clone()
	for col := range out.Columns {
		last := NullValue()
		for _, row := range out.Rows {
			if row[col].IsNull() {
				row[col] = last
				continue
			}
			last = row[col]
		}
	}
	return out
}

// DropDuplicates returns a copy of t without repeated rows, keeping the first
// occurrence of each.
func DropDuplicates(t *Table) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	seen := make(map[string]struct{}, t.Len())
	for _, row := range t.Rows {
		key := rowKey(row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Rows = append(out.Rows, append([]Value(nil), row...))
	}
	return out
}

func rowKey(row []Value) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteString(v.key())
		b.WriteByte(0)
	}
	return b.String()
}

// normalizeEntityTable forward-fills a scraped table and renders Registro as
// a plain code. Rows whose Registro is still null after the fill are dropped.
func normalizeEntityTable(t *Table) (*Table, error) {
	filled := ForwardFill(t)
	idx := filled.ColumnIndex(RegistroColumn)
	if idx < 0 {
		_, err := filled.Column(RegistroColumn)
		return nil, err
	}
	out := &Table{Columns: filled.Columns}
	for _, row := range filled.Rows {
		if row[idx].IsNull() {
			continue
		}
		row[idx] = TextValue(NormalizeRegistro(row[idx].String()))
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// MergedOutput is the result of one extraction run.
type MergedOutput struct {
	Cube       string
	Table      *Table
	Runs       []QueryRun
	StartedAt  time.Time
	FinishedAt time.Time
}

// Entities lists the distinct Registro values, in table order.
func (o *MergedOutput) Entities() []string {
	values, err := o.Table.Column(RegistroColumn)
	if err != nil {
		return nil
	}
	var codes []string
	for _, v := range values {
		if code := v.String(); code != "" && !contains(codes, code) {
			codes = append(codes, code)
		}
	}
	return codes
}

// Merger accumulates per-entity tables, newest first.
type Merger struct {
	acc       *Table
	runs      []QueryRun
	startedAt time.Time
}

func NewMerger() *Merger {
	return &Merger{startedAt: time.Now()}
}

// Add places t before everything accumulated so far. Columns are the union
// of both, t's first; cells of a column a table lacks are null.
func (m *Merger) Add(t *Table) {
	if t == nil {
		return
	}
	if m.acc == nil {
		m.acc = t.Clone()
		return
	}
	columns := append([]string(nil), t.Columns...)
	for _, c := range m.acc.Columns {
		if !contains(columns, c) {
			columns = append(columns, c)
		}
	}
	merged := &Table{Columns: columns}
	merged.Rows = append(reshape(t, columns), reshape(m.acc, columns)...)
	m.acc = merged
}

func reshape(t *Table, columns []string) [][]Value {
	index := make([]int, len(columns))
	for i, c := range columns {
		index[i] = t.ColumnIndex(c)
	}
	rows := make([][]Value, len(t.Rows))
	for r, row := range t.Rows {
		cells := make([]Value, len(columns))
		for i, src := range index {
			if src >= 0 {
				cells[i] = row[src]
			}
		}
		rows[r] = cells
	}
	return rows
}

// Record keeps the outcome of one query run for the output summary.
func (m *Merger) Record(run QueryRun) {
	m.runs = append(m.runs, run)
}

// Result deduplicates the accumulated rows and stamps every row with cube.
func (m *Merger) Result(cube string) *MergedOutput {
	table := NewTable()
	if m.acc != nil {
		table = DropDuplicates(m.acc)
	}
	table.SetColumn(CuboColumn, TextValue(cube))
	return &MergedOutput{
		Cube:       cube,
		Table:      table,
		Runs:       append([]QueryRun(nil), m.runs...),
		StartedAt:  m.startedAt,
		FinishedAt: time.Now(),
	}
}
