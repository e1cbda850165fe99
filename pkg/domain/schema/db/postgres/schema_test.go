package postgres_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v4"

	kpool "github.com/cropbase/cropbase/pkg/conn/db/postgres/pool"
	kpgschema "github.com/cropbase/cropbase/pkg/domain/schema/db/postgres"
)

// fakePool hands out a single canned connection.
//
// Methods other than Acquire fall through to the embedded nil
// interface. Tests here never reach them.
type fakePool struct {
	kpool.Pool
	conn kpool.Conn
}

func (p *fakePool) Acquire(context.Context) (kpool.Conn, error) { return p.conn, nil }

// embeddedConn renames kpool.Conn for embedding: embedding it directly
// would create a field named Conn that shadows the interface's Conn()
// method, so *fakeConn would no longer satisfy kpool.Conn.
type embeddedConn = kpool.Conn

type fakeConn struct {
	embeddedConn
	queries []string
	row     fakeRow
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, _ ...interface{}) pgx.Row {
	c.queries = append(c.queries, sql)
	return c.row
}

func (c *fakeConn) Release() {}

type fakeRow struct {
	value int
	err   error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	if p, ok := dest[0].(*int); ok {
		*p = r.value
	}
	return nil
}

func TestVersion(t *testing.T) {

	t.Run("an empty version table reads as version 0", func(t *testing.T) {
		// coalesce keeps max() from yielding NULL before any row lands.
		conn := &fakeConn{row: fakeRow{value: 0}}
		testee := kpgschema.New(&fakePool{conn: conn}, t.TempDir())

		ctx := context.Background()
		version, err := testee.Version(ctx)
		if err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}
		if version != 0 {
			t.Errorf("unexpected version: %d", version)
		}

		if len(conn.queries) != 1 {
			t.Fatalf("unexpected queries: %v", conn.queries)
		}
		if !strings.Contains(conn.queries[0], `coalesce(max("version"), 0)`) {
			t.Errorf("version query does not guard against NULL: %s", conn.queries[0])
		}
	})

	t.Run("it reads the latest applied version", func(t *testing.T) {
		conn := &fakeConn{row: fakeRow{value: 3}}
		testee := kpgschema.New(&fakePool{conn: conn}, t.TempDir())

		ctx := context.Background()
		version, err := testee.Version(ctx)
		if err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}
		if version != 3 {
			t.Errorf("unexpected version: %d", version)
		}
	})
}
