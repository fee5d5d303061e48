package database

import (
	"context"
	"sync"
	"time"
)

// Unit is one request's atomic scope over the datastore. A handler commits it
// before responding; anything else leaves it for the recovery middleware to
// roll back.
type Unit interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitSource begins transactional units. Satisfied by *DB.
type UnitSource interface {
	Begin(ctx context.Context) (Unit, error)
}

type carrierKey struct{}

// carrier tracks whether the current request holds an open unit. Installed by
// the recovery middleware, written by Begin/Commit/Rollback, read only at the
// request boundary.
type carrier struct {
	mu   sync.Mutex
	open Unit
}

func (c *carrier) put(u Unit) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open != nil {
		return false
	}
	c.open = u
	return true
}

func (c *carrier) release(u Unit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open == u {
		c.open = nil
	}
}

func (c *carrier) take() Unit {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.open
	c.open = nil
	return u
}

// WithCarrier installs a per-request transaction carrier.
func WithCarrier(ctx context.Context) context.Context {
	return context.WithValue(ctx, carrierKey{}, &carrier{})
}

func carrierFrom(ctx context.Context) *carrier {
	c, _ := ctx.Value(carrierKey{}).(*carrier)
	return c
}

type commitRollback interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type pgxUnit struct {
	Querier
	tx      commitRollback
	carrier *carrier
}

// Begin opens a unit and registers it with the request carrier. Beginning a
// second unit while one is open is a programming error and panics.
func (db *DB) Begin(ctx context.Context) (Unit, error) {
	c := carrierFrom(ctx)

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, MapPostgresError(err)
	}

	u := &pgxUnit{Querier: tx, tx: tx, carrier: c}
	if c != nil && !c.put(u) {
		// best effort: do not leak the second transaction
		_ = tx.Rollback(ctx)
		panic("database: transactional unit already open for this request")
	}
	return u, nil
}

func (u *pgxUnit) Commit(ctx context.Context) error {
	err := u.tx.Commit(ctx)
	if u.carrier != nil {
		u.carrier.release(u)
	}
	return MapPostgresError(err)
}

func (u *pgxUnit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if u.carrier != nil {
		u.carrier.release(u)
	}
	return MapPostgresError(err)
}

// RollbackOpen rolls back the request's unit if one is still open. Safe to call
// any number of times; after a commit or an earlier rollback it is a no-op. The
// rollback runs on a detached context so a disconnected client cannot leave a
// transaction dangling.
func RollbackOpen(ctx context.Context) {
	c := carrierFrom(ctx)
	if c == nil {
		return
	}
	u := c.take()
	if u == nil {
		return
	}

	rbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = u.Rollback(rbCtx)
}
