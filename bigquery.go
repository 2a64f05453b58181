package hermes

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/compute/metadata"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// bigQueryRow is one table row as a BigQuery insert. Column names are folded
// into valid field names and every row carries the job and an insert time.
type bigQueryRow struct {
	insertID string
	job      string
	columns  []string
	values   []Value
	at       time.Time
}

func (r bigQueryRow) Save() (map[string]bigquery.Value, string, error) {
	row := make(map[string]bigquery.Value, len(r.columns)+2)
	for i, name := range r.columns {
		row[name] = r.values[i].Interface()
	}
	row["job"] = r.job
	row["created_at"] = r.at
	return row, r.insertID, nil
}

// bigQueryFieldName turns "Média de beneficiários" into "media_de_beneficiarios".
func bigQueryFieldName(column string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, column)
	if err != nil {
		folded = column
	}
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	name := strings.TrimSuffix(b.String(), "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "c_" + name
	}
	return name
}

func bigQueryRows(runID, job string, table *Table) []*bigQueryRow {
	columns := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		columns[i] = bigQueryFieldName(c)
	}
	now := time.Now()
	rows := make([]*bigQueryRow, 0, table.Len())
	for i, values := range table.Rows {
		rows = append(rows, &bigQueryRow{
			insertID: fmt.Sprintf("%s-%d", runID, i),
			job:      job,
			columns:  columns,
			values:   values,
			at:       now,
		})
	}
	return rows
}

func (app *Extractor) insertRowsToBigQuery(ctx context.Context, runID, job string, table *Table) error {
	dataset := app.Config.GetString("BIGQUERY_DATASET")
	tableName := app.Config.GetString("BIGQUERY_TABLE")
	projectID := app.Config.GetString("PROJECT_ID")
	if projectID == "" {
		id, err := metadata.ProjectID()
		if err != nil {
			return fmt.Errorf("failed to get project ID: %v", err)
		}
		projectID = id
	}
	msgStr := fmt.Sprintf("dataset: %s, table: %s, projectID: %s", dataset, tableName, projectID)

	client, err := bigquery.NewClient(ctx, projectID, app.gcpOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create BigQuery client: %v", err)
	}
	defer client.Close()

	inserter := client.Dataset(dataset).Table(tableName).Inserter()
	if err := inserter.Put(ctx, bigQueryRows(runID, job, table)); err != nil {
		return fmt.Errorf("failed to insert data: %v and data: %s", err, msgStr)
	}
	app.Logger.Info("%d rows inserted into BigQuery %s.%s", table.Len(), dataset, tableName)
	return nil
}
