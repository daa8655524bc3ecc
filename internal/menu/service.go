package menu

import (
	"database/sql"
	"time"

	"MesaQR/internal/database"
	"MesaQR/pkg/logging"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when a product exists but cannot currently be
// ordered.
var ErrUnavailable = errors.New("product is not available")

type Service struct {
	db *sqlx.DB
}

func NewService(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// ResolveProduct loads a product by ID. Availability is not checked here;
// the order flow decides what an unavailable product means for the request.
func (s *Service) ResolveProduct(id string) (*database.Product, error) {
	var product database.Product
	err := s.db.Get(&product, "SELECT * FROM Products WHERE ID=$1;", id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(database.ErrNotFound, "product %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT from Products; ID=%s", id)
	}
	return &product, nil
}

func (s *Service) Products(onlyAvailable bool) ([]database.Product, error) {
	var out []database.Product
	query := "SELECT * FROM Products ORDER BY Name ASC;"
	if onlyAvailable {
		query = "SELECT * FROM Products WHERE IsAvailable=1 ORDER BY Name ASC;"
	}
	if err := s.db.Select(&out, query); err != nil {
		return nil, errors.Wrap(err, "failed SELECT from Products")
	}
	return out, nil
}

func (s *Service) ProductsByCategory(categoryID string) ([]database.Product, error) {
	var out []database.Product
	err := s.db.Select(&out, "SELECT * FROM Products WHERE CategoryID=$1 AND IsAvailable=1 ORDER BY Name ASC;", categoryID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT from Products; CategoryID=%s", categoryID)
	}
	return out, nil
}

type ProductParams struct {
	CategoryID      string
	Name            string
	Desc            string
	Price           decimal.Decimal
	PreparationTime int
}

func (s *Service) CreateProduct(p ProductParams) (*database.Product, error) {

	logger := logging.GetLogger()
	logger.Debug("Start Menu.CreateProduct")
	defer logger.Debug("End Menu.CreateProduct")

	if p.Name == "" {
		return nil, errors.New("product name is required")
	}
	if p.Price.IsNegative() {
		return nil, errors.New("product price must not be negative")
	}

	now := time.Now().UTC()
	product := &database.Product{
		ID:              uuid.NewString(),
		CategoryID:      sql.NullString{String: p.CategoryID, Valid: p.CategoryID != ""},
		Name:            p.Name,
		Desc:            sql.NullString{String: p.Desc, Valid: p.Desc != ""},
		Price:           p.Price.Round(2),
		IsAvailable:     true,
		PreparationTime: p.PreparationTime,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := s.db.Exec(`INSERT INTO Products (ID, CategoryID, Name, Description, Price, IsAvailable, PreparationTime, CreatedAt, UpdatedAt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`,
		product.ID, product.CategoryID, product.Name, product.Desc, product.Price,
		product.IsAvailable, product.PreparationTime, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed INSERT into Products; Name=%s", p.Name)
	}

	logger.Debugf("Product %q created, ID=%s", product.Name, product.ID)
	return product, nil
}

type ProductUpdate struct {
	Name            *string
	Desc            *string
	Price           *decimal.Decimal
	PreparationTime *int
	CategoryID      *string
}

func (s *Service) UpdateProduct(id string, p ProductUpdate) (*database.Product, error) {

	product, err := s.ResolveProduct(id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil && *p.Name != "" {
		product.Name = *p.Name
	}
	if p.Desc != nil {
		product.Desc = sql.NullString{String: *p.Desc, Valid: *p.Desc != ""}
	}
	if p.Price != nil {
		if p.Price.IsNegative() {
			return nil, errors.New("product price must not be negative")
		}
		product.Price = p.Price.Round(2)
	}
	if p.PreparationTime != nil {
		product.PreparationTime = *p.PreparationTime
	}
	if p.CategoryID != nil {
		product.CategoryID = sql.NullString{String: *p.CategoryID, Valid: *p.CategoryID != ""}
	}
	product.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(`UPDATE Products SET CategoryID=$1, Name=$2, Description=$3, Price=$4, PreparationTime=$5, UpdatedAt=$6 WHERE ID=$7;`,
		product.CategoryID, product.Name, product.Desc, product.Price, product.PreparationTime, product.UpdatedAt, product.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed UPDATE Products; ID=%s", id)
	}
	return product, nil
}

func (s *Service) SetAvailability(id string, available bool) (*database.Product, error) {
	if _, err := s.ResolveProduct(id); err != nil {
		return nil, err
	}
	_, err := s.db.Exec("UPDATE Products SET IsAvailable=$1, UpdatedAt=$2 WHERE ID=$3;",
		available, time.Now().UTC(), id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed UPDATE Products; ID=%s", id)
	}
	return s.ResolveProduct(id)
}

func (s *Service) Categories() ([]database.Category, error) {
	var out []database.Category
	if err := s.db.Select(&out, "SELECT * FROM Categories WHERE IsActive=1 ORDER BY Name ASC;"); err != nil {
		return nil, errors.Wrap(err, "failed SELECT from Categories")
	}
	return out, nil
}

func (s *Service) CreateCategory(name, desc string) (*database.Category, error) {
	if name == "" {
		return nil, errors.New("category name is required")
	}
	category := &database.Category{
		ID:       uuid.NewString(),
		Name:     name,
		Desc:     sql.NullString{String: desc, Valid: desc != ""},
		IsActive: true,
	}
	_, err := s.db.Exec("INSERT INTO Categories (ID, Name, Description, IsActive) VALUES ($1, $2, $3, $4);",
		category.ID, category.Name, category.Desc, category.IsActive)
	if err != nil {
		return nil, errors.Wrapf(err, "failed INSERT into Categories; Name=%s", name)
	}
	return category, nil
}
