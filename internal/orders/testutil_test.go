package orders

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"MesaQR/internal/bus"
	"MesaQR/internal/database"
	"MesaQR/internal/menu"
	"MesaQR/internal/qrcodes"
	"MesaQR/internal/tables"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testDBSeq int64

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:orders_test_%d?mode=memory&cache=shared&_fk=1", atomic.AddInt64(&testDBSeq, 1))
	db, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	// Shared-cache memory databases need a single connection, otherwise
	// each pooled connection sees its own empty database.
	db.SetMaxOpenConns(1)
	db.MustExec(database.DB_SCHEMA)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type testEnv struct {
	db     *sqlx.DB
	bus    *bus.Bus
	tables *tables.Service
	menu   *menu.Service
	qr     *qrcodes.Service
	orders *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testDB(t)
	b := bus.New()
	tablesSvc := tables.NewService(db)
	menuSvc := menu.NewService(db)
	qrSvc := qrcodes.NewService(db, tablesSvc, "http://localhost/qr")
	return &testEnv{
		db:     db,
		bus:    b,
		tables: tablesSvc,
		menu:   menuSvc,
		qr:     qrSvc,
		orders: NewService(db, tablesSvc, menuSvc, qrSvc, b),
	}
}

func (e *testEnv) createTable(t *testing.T, number int) *database.Table {
	t.Helper()
	table, err := e.tables.Create(tables.CreateParams{Number: number, Capacity: 4})
	require.NoError(t, err)
	return table
}

func (e *testEnv) createProduct(t *testing.T, name, price string, prepTime int) *database.Product {
	t.Helper()
	p, err := decimal.NewFromString(price)
	require.NoError(t, err)
	product, err := e.menu.CreateProduct(menu.ProductParams{Name: name, Price: p, PreparationTime: prepTime})
	require.NoError(t, err)
	return product
}

func (e *testEnv) createOrder(t *testing.T, table *database.Table, items ...ItemRequest) *Order {
	t.Helper()
	order, err := e.orders.CreateOrder(CreateRequest{
		TableID: table.ID,
		Source:  database.SourceWaiter,
		Items:   items,
	}, &Identity{ID: uuid.NewString(), Role: "waiter"})
	require.NoError(t, err)
	return order
}

// deliver walks the order down the whole happy path.
func (e *testEnv) deliver(t *testing.T, id string) *Order {
	t.Helper()
	for _, step := range []func(string) (*Order, error){
		e.orders.Confirm, e.orders.StartPreparing, e.orders.MarkReady, e.orders.MarkDelivered,
	} {
		_, err := step(id)
		require.NoError(t, err)
	}
	order, err := e.orders.FindOne(id)
	require.NoError(t, err)
	return order
}

// drain empties a subscriber channel without blocking.
func drain(sub *bus.Subscriber) []bus.Event {
	var out []bus.Event
	for {
		select {
		case ev := <-sub.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func todayTag() string {
	return time.Now().UTC().Format("20060102")
}
