package hermes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocaleNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.234,56", 1234.56, true},
		{"1.234", 1234, true},
		{"368.253", 368253, true},
		{"12", 12, true},
		{"-7,5", -7.5, true},
		{" 2.000.000 ", 2000000, true},
		{"1.23", 0, false},
		{"12,", 0, false},
		{"SP", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLocaleNumber(tt.in, BrazilianNumbers)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseLocaleNumberOtherFormat(t *testing.T) {
	us := NumberFormat{Decimal: '.', Thousands: ','}
	got, ok := ParseLocaleNumber("1,234.5", us)
	require.True(t, ok)
	assert.InDelta(t, 1234.5, got, 1e-9)

	_, ok = ParseLocaleNumber("1.234,5", us)
	assert.False(t, ok)
}

func TestNormalizeRegistro(t *testing.T) {
	assert.Equal(t, "368253", NormalizeRegistro("368253.0"))
	assert.Equal(t, "368253", NormalizeRegistro(" 368253 "))
	assert.Equal(t, "10.05", NormalizeRegistro("10.05"))
}

func TestParseTableHTML(t *testing.T) {
	html := `<table>
		<thead><tr><th>Registro</th><th>UF</th><th>Beneficiarios</th></tr></thead>
		<tbody>
			<tr><td>368.253</td><td>SP</td><td>1.234,5</td></tr>
			<tr><td></td><td>RJ</td><td>10</td></tr>
			<tr><td>&nbsp;</td><td>MG</td><td>-</td></tr>
		</tbody>
	</table>`

	table, err := ParseTableHTML(html, BrazilianNumbers)
	require.NoError(t, err)

	assert.Equal(t, []string{"Registro", "UF", "Beneficiarios"}, table.Columns)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, NumberValue(368253), table.Rows[0][0])
	assert.True(t, table.Rows[1][0].IsNull())
	assert.True(t, table.Rows[2][0].IsNull())
	assert.Equal(t, TextValue("RJ"), table.Rows[1][1])

	// "-" keeps the whole column textual
	assert.Equal(t, TextValue("1.234,5"), table.Rows[0][2])
	assert.Equal(t, TextValue("-"), table.Rows[2][2])
}

func TestParseTableHTMLSpans(t *testing.T) {
	html := `<table>
		<tr><th colspan="2">Operadora</th><th>Total</th></tr>
		<tr><td rowspan="2">368.253</td><td>SP</td><td>5</td></tr>
		<tr><td>RJ</td><td>7</td></tr>
		<tr><td colspan="2">Total</td><td>12</td></tr>
	</table>`

	table, err := ParseTableHTML(html, BrazilianNumbers)
	require.NoError(t, err)

	assert.Equal(t, []string{"Operadora", "Operadora.1", "Total"}, table.Columns)
	assert.Equal(t, [][]string{
		{"368.253", "SP", "5"},
		{"368.253", "RJ", "7"},
		{"Total", "Total", "12"},
	}, table.StringRows())
	assert.Equal(t, Text, table.Rows[0][0].Kind)
	assert.Equal(t, Number, table.Rows[0][2].Kind)
}

func TestParseTableHTMLRowspanPastShortRow(t *testing.T) {
	html := `<table>
		<tr><th>Registro</th><th>UF</th><th>Modalidade</th></tr>
		<tr><td>1</td><td>SP</td><td rowspan="2">Cooperativa</td></tr>
		<tr><td>2</td></tr>
		<tr><td>3</td><td>RJ</td><td>Autogestao</td></tr>
	</table>`

	table, err := ParseTableHTML(html, BrazilianNumbers)
	require.NoError(t, err)

	assert.Equal(t, []string{"Registro", "UF", "Modalidade"}, table.Columns)
	assert.Equal(t, [][]string{
		{"1", "SP", "Cooperativa"},
		{"2", "", "Cooperativa"},
		{"3", "RJ", "Autogestao"},
	}, table.StringRows())
	assert.True(t, table.Rows[1][1].IsNull())
}

func TestParseTableHTMLUnnamedColumns(t *testing.T) {
	html := `<table>
		<tr><th></th><th>UF</th><th>UF</th><th></th></tr>
		<tr><td>a</td><td>b</td><td>c</td><td>d</td></tr>
	</table>`

	table, err := ParseTableHTML(html, BrazilianNumbers)
	require.NoError(t, err)
	assert.Equal(t, []string{"Unnamed: 0", "UF", "UF.1", "Unnamed: 3"}, table.Columns)
}

func TestParseTableHTMLStackedHeader(t *testing.T) {
	html := `<table>
		<tr><th>Operadoras</th><th colspan="2">Medidas</th></tr>
		<tr><th>Registro</th><th>Beneficiarios</th><th></th></tr>
		<tr><td>1</td><td>2</td><td>3</td></tr>
	</table>`

	table, err := ParseTableHTML(html, BrazilianNumbers)
	require.NoError(t, err)
	assert.Equal(t, []string{"Registro", "Beneficiarios", "Medidas"}, table.Columns)
	assert.Equal(t, 1, table.Len())
}

func TestParseTableHTMLWithoutTable(t *testing.T) {
	_, err := ParseTableHTML("<div>nothing</div>", BrazilianNumbers)
	assert.ErrorIs(t, err, ErrNoResultTable)
}

func TestParseTableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.html")
	html := `<html><head><meta charset="utf-8"></head><body>` + entityTable("368253", "SP", "RJ") + `</body></html>`
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	table, err := ParseTableFile(path, BrazilianNumbers)
	require.NoError(t, err)
	assert.Equal(t, []string{"Registro", "Razao Social", "UF", "Beneficiarios"}, table.Columns)
	assert.Equal(t, 2, table.Len())

	_, err = ParseTableFile(filepath.Join(t.TempDir(), "missing.html"), BrazilianNumbers)
	assert.Error(t, err)
}

func TestCountTableRows(t *testing.T) {
	n, err := countTableRows(entityTable("368253", "SP", "RJ"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTableHelpers(t *testing.T) {
	table := NewTable("a", "b")
	table.Append(TextValue("x"))
	table.Append(NumberValue(1), NumberValue(2), NumberValue(3))

	assert.Equal(t, [][]string{{"x", ""}, {"1", "2"}}, table.StringRows())

	_, err := table.Column("c")
	assert.ErrorIs(t, err, ErrMissingColumn)

	table.SetColumn("c", TextValue("k"))
	assert.Equal(t, []string{"a", "b", "c"}, table.Columns)
	assert.Equal(t, []map[string]interface{}{
		{"a": "x", "b": nil, "c": "k"},
		{"a": 1.0, "b": 2.0, "c": "k"},
	}, table.Records())

	clone := table.Clone()
	clone.Rows[0][0] = TextValue("changed")
	assert.Equal(t, "x", table.Rows[0][0].String())

	var empty *Table
	assert.Equal(t, 0, empty.Len())
}
