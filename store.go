package hermes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runsCollection = "runs"

// EntityRun is the persisted outcome of one QueryRun.
type EntityRun struct {
	Entity        string  `bson:"entity" datastore:"entity" json:"entity"`
	State         string  `bson:"state" datastore:"state" json:"state"`
	Rows          int     `bson:"rows" datastore:"rows" json:"rows"`
	WaitedSeconds float64 `bson:"waited_seconds" datastore:"waited_seconds" json:"waited_seconds"`
	Error         string  `bson:"error,omitempty" datastore:"error,noindex" json:"error,omitempty"`
}

// RunRecord summarizes one published extraction.
type RunRecord struct {
	ID         string      `bson:"_id" datastore:"-" json:"id"`
	App        string      `bson:"app" datastore:"app" json:"app"`
	Job        string      `bson:"job" datastore:"job" json:"job"`
	Cube       string      `bson:"cube,omitempty" datastore:"cube" json:"cube,omitempty"`
	Rows       int         `bson:"rows" datastore:"rows" json:"rows"`
	Entities   []string    `bson:"entities,omitempty" datastore:"entities" json:"entities,omitempty"`
	Runs       []EntityRun `bson:"runs,omitempty" datastore:"runs,noindex" json:"runs,omitempty"`
	Files      []string    `bson:"files,omitempty" datastore:"files,noindex" json:"files,omitempty"`
	StartedAt  time.Time   `bson:"started_at" datastore:"started_at" json:"started_at"`
	FinishedAt time.Time   `bson:"finished_at" datastore:"finished_at" json:"finished_at"`
}

// RunStore keeps the history of published runs.
type RunStore interface {
	SaveRun(ctx context.Context, record RunRecord) error
	RecentRuns(ctx context.Context, job string, limit int) ([]RunRecord, error)
	Close(ctx context.Context) error
}

func newRunRecord(appName, job string, startedAt time.Time) RunRecord {
	return RunRecord{
		ID:         uuid.NewString(),
		App:        appName,
		Job:        job,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
}

func entityRuns(runs []QueryRun) []EntityRun {
	out := make([]EntityRun, 0, len(runs))
	for _, run := range runs {
		r := EntityRun{
			Entity:        run.Entity,
			State:         run.State.String(),
			Rows:          run.Rows,
			WaitedSeconds: run.Waited.Seconds(),
		}
		if run.Err != nil {
			r.Error = run.Err.Error()
		}
		out = append(out, r)
	}
	return out
}

// openRunStore connects the store named by DB_DRIVER. It returns nil when
// no driver is configured.
func (app *Extractor) openRunStore(ctx context.Context) (RunStore, error) {
	switch driver := app.Config.GetString("DB_DRIVER"); driver {
	case "":
		return nil, nil
	case "mongo":
		store, err := newMongoStore(ctx, app.Config, app.Name)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "datastore":
		store, err := newDatastoreStore(ctx, app.Config, app.gcpOptions()...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", driver)
	}
}

// RecentRuns lists the latest runs of job from the configured store.
func (app *Extractor) RecentRuns(ctx context.Context, job string, limit int) ([]RunRecord, error) {
	store, err := app.openRunStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("no run store configured, set DB_DRIVER")
	}
	defer store.Close(ctx)
	return store.RecentRuns(ctx, job, limit)
}
