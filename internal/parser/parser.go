// Package parser walks a database's schemas and tables and assembles the
// results into a schema.Database.
package parser

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"github.com/tordrt/dbdefinition/internal/db"
	"github.com/tordrt/dbdefinition/internal/filter"
	"github.com/tordrt/dbdefinition/internal/schema"
)

// ErrBusy is returned when Run is called while a traversal is in progress
var ErrBusy = errors.New("parser is already running")

// Parser drives one dialect's metadata queries over a connection.
// A Parser runs one traversal at a time; listeners may be added and removed
// from any goroutine.
type Parser struct {
	dialect db.Dialect
	log     *zap.Logger

	mu        sync.Mutex
	listeners []registration
	nextID    ListenerID

	running atomic.Bool
	state   atomic.Int32
}

// New creates a Parser for dialect. A nil logger discards output.
func New(dialect db.Dialect, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{dialect: dialect, log: log}
}

// Dialect returns the dialect the parser queries with
func (p *Parser) Dialect() db.Dialect {
	return p.dialect
}

// State returns the current traversal phase
func (p *Parser) State() State {
	return State(p.state.Load())
}

func (p *Parser) setState(s State) {
	p.state.Store(int32(s))
}

// Run traverses every schema and table opt admits and returns the assembled
// database. Any query failure aborts the traversal and no partial result is
// returned; the error satisfies errors.Is(err, db.ErrQuery).
//
// Listeners are notified when the traversal starts and when it completes
// successfully.
func (p *Parser) Run(ctx context.Context, conn db.Queryer, opt *filter.Option) (*schema.Database, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.running.Store(false)

	runID := uuid.Must(uuid.NewV4())
	log := p.log.With(zap.Stringer("run", runID))
	event := Event{Parser: p, RunID: runID}
	start := time.Now()

	p.setState(Started)
	p.fireStarted(event)

	database, err := p.traverse(ctx, db.NewDefinition(conn, p.dialect, log), opt, log)
	if err != nil {
		p.setState(Idle)
		log.Debug("traversal aborted", zap.Error(err))
		return nil, err
	}

	p.setState(Finished)
	log.Debug("traversal finished",
		zap.Int("tables", len(database.Tables)),
		zap.Duration("elapsed", time.Since(start)))
	p.fireFinished(event)

	return database, nil
}

func (p *Parser) traverse(ctx context.Context, def *db.Definition, opt *filter.Option, log *zap.Logger) (*schema.Database, error) {
	database := schema.NewDatabase()

	p.setState(EnumeratingSchemas)
	schemas, err := def.Schemas(ctx)
	if err != nil {
		return nil, err
	}

	for _, s := range schemas {
		if !opt.SchemaEnabled(s.Name) {
			log.Info("skipping schema", zap.String("schema", s.Name))
			continue
		}

		p.setState(EnumeratingTables)
		tables, err := def.Tables(ctx, s)
		if err != nil {
			return nil, err
		}

		p.setState(FetchingTableDetail)
		for _, table := range tables {
			if !opt.TableEnabled(s.Name, table.Name) {
				log.Info("skipping table", zap.String("schema", s.Name), zap.String("table", table.Name))
				continue
			}
			if database.Table(s.Name, table.Name) != nil {
				log.Warn("dropping duplicate table", zap.String("schema", s.Name), zap.String("table", table.Name))
				continue
			}

			if err := def.LoadTable(ctx, table); err != nil {
				return nil, err
			}
			database.AddTable(table)
		}
	}

	return database, nil
}

// RunDriver opens a connection with driver and url, runs a traversal and
// closes the connection. It never returns an error: an unknown driver, a
// driver of another shipped dialect, a failed connection or a failed query
// are logged at error level and nil is returned.
func (p *Parser) RunDriver(ctx context.Context, driver, url, user, password string, opt *filter.Option) *schema.Database {
	log := p.log.With(zap.String("driver", driver))

	if err := db.CheckDriver(p.dialect, driver); err != nil {
		log.Error("fatal: could not initialize connection", zap.Error(err))
		return nil
	}

	client, err := db.Connect(ctx, driver, url, user, password)
	if err != nil {
		log.Error("fatal: could not initialize connection", zap.Error(err))
		return nil
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close connection", zap.Error(err))
		}
	}()

	database, err := p.Run(ctx, client.DB(), opt)
	if err != nil {
		log.Error("fatal: could not read database definition", zap.Error(err))
		return nil
	}
	return database
}
