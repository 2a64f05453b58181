package hermes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Publication is a finished table ready for the configured sinks.
type Publication struct {
	Job    string
	Table  *Table
	Record RunRecord
}

func (app *Extractor) VidasPublication(out *MergedOutput) Publication {
	record := newRunRecord(app.Name, "vidas", out.StartedAt)
	record.FinishedAt = out.FinishedAt
	record.Cube = out.Cube
	record.Rows = out.Table.Len()
	record.Entities = out.Entities()
	record.Runs = entityRuns(out.Runs)
	return Publication{Job: "vidas", Table: out.Table, Record: record}
}

func (app *Extractor) IGRPublication(table *Table, startedAt time.Time) Publication {
	record := newRunRecord(app.Name, "igr", startedAt)
	record.Rows = table.Len()
	return Publication{Job: "igr", Table: table, Record: record}
}

// Publish exports the table locally and then feeds every configured sink
// concurrently: the bucket, BigQuery, the run store and the relay API. A
// failing sink does not stop the others; all failures are joined.
func (app *Extractor) Publish(ctx context.Context, pub Publication) error {
	if pub.Table == nil {
		return fmt.Errorf("%s: nothing to publish", pub.Job)
	}
	files, err := app.exportTable(pub.Job, pub.Table)
	pub.Record.Files = files
	if err != nil {
		app.Logger.Error("Error exporting %s: %v", pub.Job, err)
		return err
	}

	type sink struct {
		name string
		run  func() error
	}
	var sinks []sink
	if app.Config.IsSet("GCS_BUCKET") {
		sinks = append(sinks, sink{"bucket", func() error {
			return app.uploadToBucket(ctx, pub.Job, files...)
		}})
	}
	if app.Config.IsSet("BIGQUERY_DATASET") && app.Config.IsSet("BIGQUERY_TABLE") {
		sinks = append(sinks, sink{"bigquery", func() error {
			return app.insertRowsToBigQuery(ctx, pub.Record.ID, pub.Job, pub.Table)
		}})
	}
	if app.Config.IsSet("DB_DRIVER") {
		sinks = append(sinks, sink{"store", func() error {
			store, err := app.openRunStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close(ctx)
			return store.SaveRun(ctx, pub.Record)
		}})
	}
	if app.Config.IsSet("API_ENDPOINT") {
		sinks = append(sinks, sink{"api", func() error {
			return app.submitRows(ctx, app.apiClient(), pub.Record, pub.Table)
		}})
	}

	// a plain Group keeps the other sinks running after a failure; Wait only
	// reports the first, so each sink also keeps its own slot
	errs := make([]error, len(sinks))
	g := new(errgroup.Group)
	for i, s := range sinks {
		i, s := i, s
		g.Go(func() error {
			if err := s.run(); err != nil {
				app.Logger.Error("%s sink failed: %v", s.name, err)
				errs[i] = fmt.Errorf("%s: %w", s.name, err)
			}
			return errs[i]
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Join(errs...)
	}

	app.Logger.Info("Published %s run %s (%d rows)", pub.Job, pub.Record.ID, pub.Record.Rows)
	return nil
}
