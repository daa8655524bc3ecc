package tables

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"MesaQR/internal/database"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDBSeq int64

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:tables_test_%d?mode=memory&cache=shared&_fk=1", atomic.AddInt64(&testDBSeq, 1))
	db, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.MustExec(database.DB_SCHEMA)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreate(t *testing.T) {
	svc := NewService(testDB(t))

	table, err := svc.Create(CreateParams{Number: 1, Name: "Ventana", Capacity: 2, Location: "Terraza"})
	require.NoError(t, err)
	assert.Equal(t, 1, table.Number)
	assert.Equal(t, "Ventana", table.Name.String)
	assert.Equal(t, database.TableAvailable, table.Status)
	assert.True(t, table.IsActive)

	// Capacity defaults when not given.
	table, err = svc.Create(CreateParams{Number: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, table.Capacity)
}

func TestCreateDuplicateNumber(t *testing.T) {
	svc := NewService(testDB(t))

	_, err := svc.Create(CreateParams{Number: 5})
	require.NoError(t, err)

	_, err = svc.Create(CreateParams{Number: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNumberTaken))
}

func TestResolveAndFind(t *testing.T) {
	svc := NewService(testDB(t))

	created, err := svc.Create(CreateParams{Number: 3})
	require.NoError(t, err)

	found, err := svc.Resolve(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	byNumber, err := svc.FindByNumber(3)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byNumber.ID)

	_, err = svc.Resolve(uuid.NewString())
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrNotFound))

	_, err = svc.FindByNumber(99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func TestFindAllSortsByNumber(t *testing.T) {
	svc := NewService(testDB(t))

	for _, n := range []int{3, 1, 2} {
		_, err := svc.Create(CreateParams{Number: n})
		require.NoError(t, err)
	}

	all, err := svc.FindAll(false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].Number)
	assert.Equal(t, 2, all[1].Number)
	assert.Equal(t, 3, all[2].Number)
}

func TestFindAllSkipsInactive(t *testing.T) {
	svc := NewService(testDB(t))

	table, err := svc.Create(CreateParams{Number: 1})
	require.NoError(t, err)
	_, err = svc.Create(CreateParams{Number: 2})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(table.ID, UpdateParams{IsActive: &inactive})
	require.NoError(t, err)

	active, err := svc.FindAll(false)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := svc.FindAll(true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdate(t *testing.T) {
	svc := NewService(testDB(t))

	table, err := svc.Create(CreateParams{Number: 1})
	require.NoError(t, err)
	other, err := svc.Create(CreateParams{Number: 2})
	require.NoError(t, err)

	name := "Rincón"
	capacity := 6
	updated, err := svc.Update(table.ID, UpdateParams{Name: &name, Capacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, "Rincón", updated.Name.String)
	assert.Equal(t, 6, updated.Capacity)

	// Renumbering onto a taken number is rejected.
	taken := other.Number
	_, err = svc.Update(table.ID, UpdateParams{Number: &taken})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNumberTaken))
}

func TestSetStatus(t *testing.T) {
	svc := NewService(testDB(t))

	table, err := svc.Create(CreateParams{Number: 1})
	require.NoError(t, err)

	reserved, err := svc.SetStatus(table.ID, database.TableReserved)
	require.NoError(t, err)
	assert.Equal(t, database.TableReserved, reserved.Status)

	_, err = svc.SetStatus(table.ID, "broken")
	require.Error(t, err)

	byStatus, err := svc.FindByStatus(database.TableReserved)
	require.NoError(t, err)
	assert.Len(t, byStatus, 1)
}

func TestOccupyIsIdempotent(t *testing.T) {
	svc := NewService(testDB(t))

	table, err := svc.Create(CreateParams{Number: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Occupy(table.ID))
	require.NoError(t, svc.Occupy(table.ID))

	fresh, err := svc.Resolve(table.ID)
	require.NoError(t, err)
	assert.Equal(t, database.TableOccupied, fresh.Status)

	err = svc.Occupy(uuid.NewString())
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func TestOccupyTxRollsBackWithCaller(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)

	table, err := svc.Create(CreateParams{Number: 1})
	require.NoError(t, err)

	// Occupancy inside an aborted transaction leaves no trace.
	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, svc.OccupyTx(tx, table.ID))
	require.NoError(t, tx.Rollback())

	fresh, err := svc.Resolve(table.ID)
	require.NoError(t, err)
	assert.Equal(t, database.TableAvailable, fresh.Status)

	// A committed transaction sticks.
	tx, err = db.Beginx()
	require.NoError(t, err)
	require.NoError(t, svc.OccupyTx(tx, table.ID))
	require.NoError(t, tx.Commit())

	fresh, err = svc.Resolve(table.ID)
	require.NoError(t, err)
	assert.Equal(t, database.TableOccupied, fresh.Status)
}

func TestActiveOrderCountAndRelease(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)

	table, err := svc.Create(CreateParams{Number: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Occupy(table.ID))

	insertOrder := func(id, status string) {
		now := time.Now().UTC()
		db.MustExec(`INSERT INTO Orders (ID, OrderNumber, TableID, Status, Source, Subtotal, Tax, Total, EstimatedTime, CreatedAt, UpdatedAt)
			VALUES ($1, $2, $3, $4, 'waiter', '1', '0.1', '1.1', 20, $5, $5);`,
			id, "ORD-20260305-"+id, table.ID, status, now)
	}
	insertOrder("001", database.StatusPreparing)
	insertOrder("002", database.StatusDelivered)
	insertOrder("003", database.StatusCancelled)

	count, err := svc.ActiveOrderCount(db, table.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.ReleaseTx(db, table.ID))
	fresh, err := svc.Resolve(table.ID)
	require.NoError(t, err)
	assert.Equal(t, database.TableAvailable, fresh.Status)
}
