package hermes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// VidasOperadora extracts the beneficiaries table of every entity code, in
// order, and merges them. A failing entity is logged and skipped; failing to
// start the session or to set up the query aborts the run. The browser is
// closed on every path.
func (app *Extractor) VidasOperadora(ctx context.Context, entities []string) (*MergedOutput, error) {
	if app.Config.GetBool("CHECK_ROBOTS_TXT") {
		if err := app.checkRobots(ctx, app.engine.DashboardURL); err != nil {
			app.Logger.Error("Robots check failed: %v", err)
			return nil, err
		}
	}

	launch, err := app.getLauncher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionStart, err)
	}
	session, err := OpenSession(ctx, launch, app.engine, app.Logger)
	if err != nil {
		app.Logger.Error("%v", err)
		return nil, err
	}
	defer session.Close()

	if err := session.Navigate(ctx, app.engine.DashboardURL); err != nil {
		app.Logger.Error("%v", err)
		return nil, err
	}

	cube, err := app.prepareQuery(ctx, session)
	if err != nil {
		app.Logger.Error("Query setup failed: %v", err)
		return nil, err
	}

	merger := NewMerger()
	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		run, table, err := app.processEntity(ctx, session, entity)
		merger.Record(run)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			app.Logger.Warn("No data returned for entity %s: %v", entity, err)
			if dumper, ok := app.Logger.(htmlDumper); ok {
				dumper.Html(session.snapshot(), "entity_"+entity, err.Error())
			}
			continue
		}
		merger.Add(table)
		app.Logger.Info("✅ Entity %s processed with %d rows", entity, table.Len())
	}

	output := merger.Result(cube)
	app.Logger.Info("Run finished: %d rows from %d/%d entities", output.Table.Len(), len(output.Entities()), len(entities))
	return output, nil
}

// prepareQuery builds the query shared by every entity and returns the cube name.
func (app *Extractor) prepareQuery(ctx context.Context, s *Session) (string, error) {
	cube, err := s.SelectDropdownOption(ctx, cubeDropdown, func(string) bool { return true })
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoCube, err)
	}
	app.Logger.Info("Cube selected: %s", cube)
	if err := pause(ctx, app.engine.Pacing.AfterCubeSelect); err != nil {
		return "", err
	}

	if err := app.addMeasures(ctx, s); err != nil {
		return "", err
	}
	if err := app.expandCategories(ctx, s); err != nil {
		return "", err
	}
	if err := app.placeFields(ctx, s); err != nil {
		return "", err
	}
	return cube, nil
}

// addMeasures clicks every measure once. Individual clicks are best effort.
func (app *Extractor) addMeasures(ctx context.Context, s *Session) error {
	measures, err := s.WaitPresent(ctx, measureLinks, 0)
	if err != nil {
		return fmt.Errorf("measures: %w", err)
	}
	added := 0
	for _, measure := range measures {
		if s.TryClick(ctx, measure) {
			added++
		}
		if err := pause(ctx, app.engine.Pacing.AfterMeasureClick); err != nil {
			return err
		}
	}
	app.Logger.Info("Measures added: %d/%d", added, len(measures))
	return nil
}

func (app *Extractor) expandCategories(ctx context.Context, s *Session) error {
	for _, category := range app.engine.Categories {
		if err := s.ClickFirst(ctx, textLocator(category)); err != nil {
			return fmt.Errorf("category %q: %w", category, err)
		}
	}
	return nil
}

// placeFields drags each row field onto the rows axis. Fields that cannot be
// placed are logged and skipped.
func (app *Extractor) placeFields(ctx context.Context, s *Session) error {
	for _, field := range app.engine.Fields {
		outcome, err := s.DragTo(ctx, fieldCandidates(field), rowsAxis)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		switch outcome {
		case Placed:
			app.Logger.Info("Field placed: %s", field)
		case SourceMissing:
			app.Logger.Error("❌ Field '%s' not found", field)
		default:
			app.Logger.Error("❌ Field '%s' could not be dragged: %v", field, err)
		}
	}
	return nil
}

// processEntity filters the query down to one entity, runs it and scrapes the
// result. Every failure, panics included, comes back as an *EntityError.
func (app *Extractor) processEntity(ctx context.Context, s *Session, entity string) (run QueryRun, table *Table, err error) {
	run = QueryRun{Entity: entity, StartedAt: time.Now(), State: RunFailed}
	stage := "filter"
	defer func() {
		if r := recover(); r != nil {
			table = nil
			err = &EntityError{Entity: entity, Stage: stage, Err: fmt.Errorf("panic: %v", r)}
			run.State = RunFailed
		}
		if err != nil {
			run.Err = err
		}
	}()

	if err := app.applyFilter(ctx, s, entity); err != nil {
		return run, nil, &EntityError{Entity: entity, Stage: stage, Err: err}
	}

	stage = "query"
	table, err = app.runQuery(ctx, s, &run)
	if err != nil {
		return run, nil, &EntityError{Entity: entity, Stage: stage, Err: err}
	}
	return run, table, nil
}

func (app *Extractor) applyFilter(ctx context.Context, s *Session, entity string) error {
	if err := pause(ctx, app.engine.Pacing.BeforeFilter); err != nil {
		return err
	}
	if err := s.ClickFirst(ctx, registroDimension); err != nil {
		return err
	}
	if err := pause(ctx, app.engine.Pacing.AfterFilterOpen); err != nil {
		return err
	}
	// the filter dialog only behaves after "Use Result" is toggled off and on
	for i := 0; i < 2; i++ {
		if err := s.Click(ctx, useResultLabel); err != nil {
			return err
		}
	}
	if err := s.Click(ctx, removeAllMembers); err != nil {
		return err
	}

	err := app.pickMember(ctx, s, entity)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	app.Logger.Error("❌ Entity %s not found in the member list", entity)
	if closeErr := s.Click(ctx, closeFilter); closeErr != nil {
		return errors.Join(fmt.Errorf("%w: %v", ErrFilterNotApplied, err), closeErr)
	}
	return fmt.Errorf("%w: %v", ErrFilterNotApplied, err)
}

func (app *Extractor) pickMember(ctx context.Context, s *Session, entity string) error {
	if err := pause(ctx, app.engine.Pacing.BeforeMemberPick); err != nil {
		return err
	}
	for _, loc := range []Locator{memberCheckbox(entity), addMembers, saveFilter} {
		if err := s.Click(ctx, loc); err != nil {
			return err
		}
	}
	return nil
}

// runQuery executes the filtered query and scrapes its table. The table is
// looked for even when the progress indicator never cleared.
func (app *Extractor) runQuery(ctx context.Context, s *Session, run *QueryRun) (*Table, error) {
	if err := s.ClickFirst(ctx, runQuery); err != nil {
		return nil, err
	}

	poller := s.completionPoller()
	state, waited, err := poller.Await(ctx, app.engine.QueryTimeout)
	run.Waited = waited
	if err != nil {
		return nil, err
	}
	if state == PollTimedOut {
		app.Logger.Warn("Query for %s still running after %v", run.Entity, waited)
	} else {
		app.Logger.Info("✓ Query for %s finished in %v", run.Entity, waited)
	}
	if err := pause(ctx, app.engine.Pacing.AfterQuery); err != nil {
		return nil, err
	}

	html, err := poller.AwaitTable(ctx, resultTable, app.engine.TableAttempts)
	if err != nil {
		if ctx.Err() == nil {
			app.Logger.Error("❌ Result table not found after every attempt")
			run.State = RunEmpty
			if state == PollTimedOut {
				run.State = RunTimedOut
			}
		}
		return nil, err
	}

	scraped, err := ParseTableHTML(html, BrazilianNumbers)
	if err != nil {
		return nil, err
	}
	table, err := normalizeEntityTable(scraped)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		run.State = RunEmpty
		return nil, fmt.Errorf("%w: no rows for %s", ErrNoResultTable, strings.TrimSpace(run.Entity))
	}
	run.State = RunSucceeded
	run.Rows = table.Len()
	return table, nil
}
