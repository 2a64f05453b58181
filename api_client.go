package hermes

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const contentType = "application/json"

// rowsPayload is the body posted to the relay API for one run.
type rowsPayload struct {
	RunID   string                   `json:"run_id"`
	App     string                   `json:"app"`
	Job     string                   `json:"job"`
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

func (app *Extractor) apiClient() *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimSuffix(app.Config.GetString("API_ENDPOINT"), "/")).
		SetBasicAuth(app.Config.EnvString("API_USERNAME"), app.Config.EnvString("API_PASSWORD")).
		SetHeader("Content-Type", contentType).
		SetTimeout(30 * time.Second)
}

// submitRows posts the table of one run to API_ENDPOINT/rows/.
func (app *Extractor) submitRows(ctx context.Context, client *resty.Client, record RunRecord, table *Table) error {
	res, err := client.R().
		SetContext(ctx).
		SetBody(rowsPayload{
			RunID:   record.ID,
			App:     record.App,
			Job:     record.Job,
			Columns: table.Columns,
			Rows:    table.Records(),
		}).
		Post("/rows/")
	if err != nil {
		return fmt.Errorf("%s: failed to submit request: %w", record.Job, err)
	}
	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("API error for %s: status %d, body: %s", record.Job, res.StatusCode(), res.String())
	}
	return nil
}
