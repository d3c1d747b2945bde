package parser

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tordrt/dbdefinition/internal/db"
	"github.com/tordrt/dbdefinition/internal/db/dbtest"
	"github.com/tordrt/dbdefinition/internal/filter"
)

func tmHostFixture(t *testing.T) *dbtest.Fixture {
	t.Helper()

	return dbtest.NewFixture(t).
		Schema("public").
		Table("public", "log_access", "").
		Table("public", "tm_host", "").
		Field("public", "tm_host", dbtest.Field{Name: "host_id", Type: "integer", NotNull: true}).
		Field("public", "tm_host", dbtest.Field{Name: "host_name", Type: "text", Default: dbtest.String("")}).
		Index("public", "tm_host", "pk_tm_host", "host_id", true, true).
		Field("public", "log_access", dbtest.Field{Name: "id", Type: "integer"})
}

func TestRunRoundTrip(t *testing.T) {
	fx := tmHostFixture(t)
	p := New(dbtest.FixtureDialect{}, nil)

	opt := filter.New().AddExcludeTable("log_access")
	database, err := p.Run(context.Background(), fx.DB, opt)
	require.NoError(t, err)

	require.Len(t, database.Tables, 1)
	table := database.Tables[0]
	assert.Equal(t, "public.tm_host", table.QualifiedName())
	require.Len(t, table.Fields, 2)

	host := table.Field("host_id")
	require.NotNil(t, host)
	assert.True(t, host.NotNull)
	assert.False(t, host.HasDefault())

	name := table.Field("host_name")
	require.NotNil(t, name)
	assert.False(t, name.NotNull)
	assert.True(t, name.HasDefault())
	assert.Equal(t, "", name.DefaultValue())

	require.Len(t, table.Indexes, 1)
	pk := table.Index("pk_tm_host")
	require.NotNil(t, pk)
	assert.True(t, pk.PrimaryKey)
	assert.Equal(t, []string{"host_id"}, pk.FieldNames())

	assert.Equal(t, Finished, p.State())
}

func TestRunRecordsSkippedTables(t *testing.T) {
	fx := tmHostFixture(t)
	core, logs := observer.New(zapcore.DebugLevel)
	p := New(dbtest.FixtureDialect{}, zap.New(core))

	database, err := p.Run(context.Background(), fx.DB, filter.New().AddExcludeTable("log_access"))
	require.NoError(t, err)

	require.Len(t, database.Tables, 1)
	assert.Equal(t, "tm_host", database.Tables[0].Name)

	skipped := logs.FilterMessage("skipping table")
	require.Equal(t, 1, skipped.Len())
	entry := skipped.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "log_access", entry.ContextMap()["table"])
}

func TestRunPatternsDoNotGlob(t *testing.T) {
	fx := tmHostFixture(t)
	p := New(dbtest.FixtureDialect{}, nil)

	database, err := p.Run(context.Background(), fx.DB, filter.New().AddExcludeTable("log_%"))
	require.NoError(t, err)
	assert.Len(t, database.Tables, 2)
}

func TestRunSkipsSchemas(t *testing.T) {
	fx := tmHostFixture(t).
		Schema("audit").
		Table("audit", "events", "")
	core, logs := observer.New(zapcore.InfoLevel)
	p := New(dbtest.FixtureDialect{}, zap.New(core))

	database, err := p.Run(context.Background(), fx.DB, filter.New().AddIncludeSchema("AUDIT"))
	require.NoError(t, err)

	require.Len(t, database.Tables, 1)
	assert.Equal(t, "audit.events", database.Tables[0].QualifiedName())
	assert.Equal(t, 1, logs.FilterMessage("skipping schema").Len())
	assert.Equal(t, 0, logs.FilterMessage("skipping table").Len())
}

func TestRunWithoutForeignKeyQuery(t *testing.T) {
	fx := tmHostFixture(t).
		ForeignKey("public", "log_access", "fk_access_host", "id", "tm_host", "host_id")
	p := New(dbtest.FixtureDialect{NoForeignKeys: true}, nil)

	database, err := p.Run(context.Background(), fx.DB, nil)
	require.NoError(t, err)

	require.Len(t, database.Tables, 2)
	for _, table := range database.Tables {
		assert.Empty(t, table.ForeignKeys, table.Name)
	}
}

func TestRunDropsDuplicateTables(t *testing.T) {
	fx := tmHostFixture(t).
		Table("public", "TM_HOST", "second")
	core, logs := observer.New(zapcore.WarnLevel)
	p := New(dbtest.FixtureDialect{}, zap.New(core))

	database, err := p.Run(context.Background(), fx.DB, nil)
	require.NoError(t, err)

	require.Len(t, database.Tables, 2)
	kept := database.Table("public", "tm_host")
	require.NotNil(t, kept)
	assert.Equal(t, "tm_host", kept.Name)
	assert.Equal(t, 1, logs.FilterMessage("dropping duplicate table").Len())
}

func TestRunQueryFailure(t *testing.T) {
	fx := tmHostFixture(t)
	p := New(dbtest.FixtureDialect{FieldsQuery: dbtest.Broken}, nil)

	var started, finished int
	p.AddListener(ListenerFuncs{
		Started:  func(Event) { started++ },
		Finished: func(Event) { finished++ },
	})

	database, err := p.Run(context.Background(), fx.DB, nil)
	require.Error(t, err)
	assert.Nil(t, database)
	assert.True(t, errors.Is(err, db.ErrQuery))

	var qe *db.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, db.StepFields, qe.Step)

	assert.Equal(t, 1, started)
	assert.Equal(t, 0, finished)
	assert.Equal(t, Idle, p.State())
}

type recorder struct {
	name   string
	mu     *sync.Mutex
	events *[]string
}

func (r recorder) ParserStarted(Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.events = append(*r.events, r.name+" started")
}

func (r recorder) ParserFinished(Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.events = append(*r.events, r.name+" finished")
}

func TestListenerOrder(t *testing.T) {
	fx := tmHostFixture(t)
	p := New(dbtest.FixtureDialect{}, nil)

	var (
		mu     sync.Mutex
		events []string
	)
	p.AddListener(recorder{name: "L1", mu: &mu, events: &events})
	p.AddListener(recorder{name: "L2", mu: &mu, events: &events})

	_, err := p.Run(context.Background(), fx.DB, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"L1 started", "L2 started", "L1 finished", "L2 finished"}, events)
}

func TestListenerEvent(t *testing.T) {
	fx := tmHostFixture(t)
	p := New(dbtest.FixtureDialect{}, nil)

	var got []Event
	p.AddListener(ListenerFuncs{
		Started:  func(e Event) { got = append(got, e) },
		Finished: func(e Event) { got = append(got, e) },
	})

	_, err := p.Run(context.Background(), fx.DB, nil)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), fx.DB, nil)
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Same(t, p, got[0].Parser)
	assert.NotEqual(t, uuid.Nil, got[0].RunID)
	assert.Equal(t, got[0].RunID, got[1].RunID)
	assert.NotEqual(t, got[0].RunID, got[2].RunID)
}

func TestRemoveListener(t *testing.T) {
	fx := tmHostFixture(t)
	p := New(dbtest.FixtureDialect{}, nil)

	var calls int
	id := p.AddListener(ListenerFuncs{Started: func(Event) { calls++ }})
	require.True(t, p.RemoveListener(id))
	assert.False(t, p.RemoveListener(id))

	_, err := p.Run(context.Background(), fx.DB, nil)
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestListenerChangesDuringRun(t *testing.T) {
	fx := tmHostFixture(t)
	p := New(dbtest.FixtureDialect{}, nil)

	var late int
	lateListener := ListenerFuncs{Started: func(Event) { late++ }, Finished: func(Event) { late++ }}

	var removed int
	var removedID ListenerID
	p.AddListener(ListenerFuncs{
		Started: func(Event) {
			// Neither change affects the notification already under way.
			p.AddListener(lateListener)
			p.RemoveListener(removedID)
		},
	})
	removedID = p.AddListener(ListenerFuncs{
		Started:  func(Event) { removed++ },
		Finished: func(Event) { removed++ },
	})

	_, err := p.Run(context.Background(), fx.DB, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, removed, "removed listener still sees the started event it was part of")
	assert.Equal(t, 1, late, "late listener sees only the finished event")
}

func TestConcurrentListenerRegistration(t *testing.T) {
	fx := tmHostFixture(t)
	p := New(dbtest.FixtureDialect{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := p.AddListener(ListenerFuncs{})
				p.RemoveListener(id)
			}
		}()
	}

	_, err := p.Run(context.Background(), fx.DB, nil)
	wg.Wait()
	require.NoError(t, err)
	assert.Empty(t, p.snapshot())
}

func TestRunBusy(t *testing.T) {
	fx := tmHostFixture(t)
	p := New(dbtest.FixtureDialect{}, nil)

	var nestedErr error
	p.AddListener(ListenerFuncs{
		Started: func(Event) {
			assert.Equal(t, Started, p.State())
			_, nestedErr = p.Run(context.Background(), fx.DB, nil)
		},
	})

	_, err := p.Run(context.Background(), fx.DB, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, nestedErr, ErrBusy)
}

func TestRunDriver(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hosts.db")
	client, err := db.Connect(ctx, "sqlite", path, "", "")
	require.NoError(t, err)
	_, err = client.DB().ExecContext(ctx, `CREATE TABLE tm_host (host_id INTEGER NOT NULL PRIMARY KEY, host_name TEXT DEFAULT '')`)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	p := New(db.SQLiteDialect{}, nil)
	database := p.RunDriver(ctx, "sqlite", path, "", "", nil)
	require.NotNil(t, database)
	require.Len(t, database.Tables, 1)
	assert.Equal(t, "main.tm_host", database.Tables[0].QualifiedName())
}

func TestRunDriverFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("driver not found", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		p := New(db.PostgresDialect{}, zap.New(core))

		assert.Nil(t, p.RunDriver(ctx, "oci8", "scott/tiger", "", "", nil))
		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].Message, "fatal")
		assert.Equal(t, Idle, p.State())
	})

	t.Run("driver of another dialect", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		p := New(db.PostgresDialect{}, zap.New(core))

		path := filepath.Join(t.TempDir(), "hosts.db")
		assert.Nil(t, p.RunDriver(ctx, "sqlite", path, "", "", nil))
		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].Message, "fatal")
		assert.Contains(t, logs.All()[0].ContextMap()["error"], db.ReasonWrongDialect)
		assert.NoFileExists(t, path, "no connection is opened")
	})

	t.Run("cannot connect", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		p := New(db.SQLiteDialect{}, zap.New(core))

		missing := filepath.Join(t.TempDir(), "missing", "x.db")
		assert.Nil(t, p.RunDriver(ctx, "sqlite", missing, "", "", nil))
		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].Message, "fatal")
	})

	t.Run("query failure", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		p := New(dbtest.FixtureDialect{}, zap.New(core))

		// An empty SQLite file has none of the fixture tables.
		path := filepath.Join(t.TempDir(), "empty.db")
		assert.Nil(t, p.RunDriver(ctx, "sqlite", path, "", "", nil))
		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].Message, "fatal")
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "fetching table detail", FetchingTableDetail.String())
	assert.Equal(t, "unknown", State(42).String())
}
