package menu

import (
	"fmt"
	"sync/atomic"
	"testing"

	"MesaQR/internal/database"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDBSeq int64

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:menu_test_%d?mode=memory&cache=shared&_fk=1", atomic.AddInt64(&testDBSeq, 1))
	db, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.MustExec(database.DB_SCHEMA)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestCreateProduct(t *testing.T) {
	svc := NewService(testDB(t))

	product, err := svc.CreateProduct(ProductParams{
		Name:            "Pizza Margherita",
		Desc:            "Tomate, mozzarella y albahaca",
		Price:           mustDecimal(t, "8.50"),
		PreparationTime: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, "8.50", product.Price.StringFixed(2))
	assert.True(t, product.IsAvailable)

	_, err = svc.CreateProduct(ProductParams{Price: mustDecimal(t, "1.00")})
	require.Error(t, err)

	_, err = svc.CreateProduct(ProductParams{Name: "Gratis", Price: mustDecimal(t, "-1.00")})
	require.Error(t, err)
}

func TestResolveProduct(t *testing.T) {
	svc := NewService(testDB(t))

	created, err := svc.CreateProduct(ProductParams{Name: "Coca-Cola", Price: mustDecimal(t, "2.50")})
	require.NoError(t, err)

	found, err := svc.ResolveProduct(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coca-Cola", found.Name)
	// The stored price round-trips exactly.
	assert.True(t, found.Price.Equal(created.Price))

	_, err = svc.ResolveProduct(uuid.NewString())
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func TestProductsAvailabilityFilter(t *testing.T) {
	svc := NewService(testDB(t))

	pizza, err := svc.CreateProduct(ProductParams{Name: "Pizza", Price: mustDecimal(t, "8.50")})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ProductParams{Name: "Tarta", Price: mustDecimal(t, "4.00")})
	require.NoError(t, err)

	updated, err := svc.SetAvailability(pizza.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)

	available, err := svc.Products(true)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Tarta", available[0].Name)

	all, err := svc.Products(false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateProduct(t *testing.T) {
	svc := NewService(testDB(t))

	product, err := svc.CreateProduct(ProductParams{Name: "Pizza", Price: mustDecimal(t, "8.50"), PreparationTime: 15})
	require.NoError(t, err)

	newPrice := mustDecimal(t, "9.00")
	prep := 20
	updated, err := svc.UpdateProduct(product.ID, ProductUpdate{Price: &newPrice, PreparationTime: &prep})
	require.NoError(t, err)
	assert.Equal(t, "9.00", updated.Price.StringFixed(2))
	assert.Equal(t, 20, updated.PreparationTime)
	// Untouched fields survive a partial update.
	assert.Equal(t, "Pizza", updated.Name)

	negative := mustDecimal(t, "-1.00")
	_, err = svc.UpdateProduct(product.ID, ProductUpdate{Price: &negative})
	require.Error(t, err)
}

func TestCategories(t *testing.T) {
	svc := NewService(testDB(t))

	category, err := svc.CreateCategory("Pizzas", "Horno de leña")
	require.NoError(t, err)

	_, err = svc.CreateProduct(ProductParams{CategoryID: category.ID, Name: "Pizza", Price: mustDecimal(t, "8.50")})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ProductParams{Name: "Café", Price: mustDecimal(t, "1.50")})
	require.NoError(t, err)

	categories, err := svc.Categories()
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Pizzas", categories[0].Name)

	inCategory, err := svc.ProductsByCategory(category.ID)
	require.NoError(t, err)
	require.Len(t, inCategory, 1)
	assert.Equal(t, "Pizza", inCategory[0].Name)

	_, err = svc.CreateCategory("", "")
	require.Error(t, err)
}
