package database

import (
	"time"

	"MesaQR/pkg/logging"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type seedProduct struct {
	name     string
	desc     string
	price    string
	prepTime int
	category string
}

var seedCategories = []struct {
	name string
	desc string
}{
	{"Entradas", "Para compartir"},
	{"Pizzas", "Pizzas artesanales con masa madre"},
	{"Pastas", "Pastas frescas hechas en casa"},
	{"Bebidas", "Bebidas frías y calientes"},
	{"Postres", "Deliciosos postres caseros"},
}

var seedProducts = []seedProduct{
	{"Margherita", "Tomate, mozzarella, albahaca fresca y aceite de oliva", "8.50", 15, "Pizzas"},
	{"Pepperoni", "Tomate, mozzarella y pepperoni", "9.50", 15, "Pizzas"},
	{"Cuatro Quesos", "Mozzarella, gorgonzola, parmesano y provolone", "10.50", 15, "Pizzas"},
	{"Hawaiana", "Tomate, mozzarella, jamón y piña", "9.50", 15, "Pizzas"},
	{"Carbonara", "Nata, bacon, champiñones, mozzarella y huevo", "10.50", 18, "Pizzas"},
	{"Vegetal", "Tomate, mozzarella, pimientos, cebolla, champiñones y aceitunas", "9.50", 15, "Pizzas"},
	{"Spaghetti Carbonara", "Pasta con bacon, huevo, parmesano y pimienta negra", "8.50", 12, "Pastas"},
	{"Lasaña de Carne", "Lasaña casera con boloñesa y bechamel", "9.50", 20, "Pastas"},
	{"Ensalada César", "Lechuga, pollo, parmesano, croutons y salsa césar", "7.50", 10, "Entradas"},
	{"Pan de Ajo", "Pan artesanal con mantequilla de ajo", "4.50", 8, "Entradas"},
	{"Coca-Cola", "Lata 33cl", "2.50", 0, "Bebidas"},
	{"Agua Mineral", "Botella 50cl", "1.50", 0, "Bebidas"},
	{"Cerveza", "Caña de cerveza artesanal", "3.00", 0, "Bebidas"},
	{"Tiramisú", "Tiramisú casero con mascarpone", "5.50", 5, "Postres"},
	{"Tarta de Queso", "Tarta de queso con mermelada de frutos rojos", "5.00", 5, "Postres"},
}

// SeedDemo loads the demo dataset (tables 1-8, the menu and two staff users)
// if the database is still empty. Safe to call on every start.
func SeedDemo(db *sqlx.DB) error {

	logger := logging.GetLogger()
	logger.Info("SeedDemo:>Start")
	defer logger.Info("SeedDemo:>End")

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM Products;"); err != nil {
		return errors.Wrap(err, "failed SELECT COUNT from Products")
	}
	if count > 0 {
		logger.Info("SeedDemo:>Demo data already present")
		return nil
	}

	now := time.Now().UTC()
	tx := db.MustBegin()

	categoryIDs := make(map[string]string)
	for _, c := range seedCategories {
		id := uuid.NewString()
		categoryIDs[c.name] = id
		tx.MustExec("INSERT INTO Categories (ID, Name, Description, IsActive) VALUES ($1, $2, $3, 1);",
			id, c.name, c.desc)
	}

	for _, p := range seedProducts {
		tx.MustExec(`INSERT INTO Products (ID, CategoryID, Name, Description, Price, IsAvailable, PreparationTime, CreatedAt, UpdatedAt)
			VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8);`,
			uuid.NewString(), categoryIDs[p.category], p.name, p.desc, p.price, p.prepTime, now, now)
	}

	locations := map[int]string{1: "Interior", 2: "Interior", 3: "Interior", 4: "Interior",
		5: "Terraza", 6: "Terraza", 7: "Terraza", 8: "Salón principal"}
	for number := 1; number <= 8; number++ {
		tx.MustExec(`INSERT INTO Tables (ID, Number, Name, Capacity, Status, Location, IsActive, CreatedAt, UpdatedAt)
			VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8);`,
			uuid.NewString(), number, nil, 4, TableAvailable, locations[number], now, now)
	}

	tx.MustExec("INSERT INTO Users (ID, Name, Role, IsActive) VALUES ($1, 'Admin', 'admin', 1);", uuid.NewString())
	tx.MustExec("INSERT INTO Users (ID, Name, Role, IsActive) VALUES ($1, 'Carlos', 'waiter', 1);", uuid.NewString())

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed Commit() of demo seed")
	}

	logger.Infof("SeedDemo:>Loaded %d products, 8 tables", len(seedProducts))
	return nil
}
