package orders

import (
	"database/sql"
	"time"

	"MesaQR/internal/bus"
	"MesaQR/internal/database"
	"MesaQR/internal/menu"
	"MesaQR/internal/qrcodes"
	"MesaQR/internal/tables"
	"MesaQR/pkg/logging"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Tax is a fixed 10% of the subtotal, computed once at creation.
var taxRate = decimal.New(10, -2)

// Base preparation minutes added on top of the slowest item.
const basePreparationMinutes = 5

// Fallback when a product carries no preparation time.
const defaultPreparationMinutes = 15

// Identity is the acting staff identity recorded on waiter/admin orders.
// Opaque: authentication happens upstream.
type Identity struct {
	ID   string
	Role string
}

type ItemRequest struct {
	ProductID string
	Quantity  int
	Notes     string
}

type CreateRequest struct {
	TableID      string
	Source       string // waiter or admin
	Items        []ItemRequest
	Notes        string
	CustomerName string
}

type QrCreateRequest struct {
	QrCode       string
	Items        []ItemRequest
	Notes        string
	CustomerName string
}

// Item is an order line hydrated with its product.
type Item struct {
	database.OrderItem
	Product *database.Product
}

// Order is the fully hydrated aggregate handed to callers and to the bus.
type Order struct {
	database.Order
	Table   *database.Table
	Items   []Item
	Creator *database.User
}

type Service struct {
	db      *sqlx.DB
	tables  *tables.Service
	menu    *menu.Service
	qr      *qrcodes.Service
	bus     *bus.Bus
	numbers numberSource
}

func NewService(db *sqlx.DB, tablesSvc *tables.Service, menuSvc *menu.Service, qrSvc *qrcodes.Service, b *bus.Bus) *Service {
	return &Service{
		db:     db,
		tables: tablesSvc,
		menu:   menuSvc,
		qr:     qrSvc,
		bus:    b,
	}
}

// CreateOrder admits a staff-entered order.
func (s *Service) CreateOrder(req CreateRequest, identity *Identity) (*Order, error) {

	logger := logging.GetLogger()
	logger.Debug("Start Orders.CreateOrder")
	defer logger.Debug("End Orders.CreateOrder")

	if req.Source != database.SourceWaiter && req.Source != database.SourceAdmin {
		return nil, errors.Errorf("unknown order source %q", req.Source)
	}

	table, err := s.tables.Resolve(req.TableID)
	if err != nil {
		return nil, err
	}

	return s.create(table, req.Items, req.Source, req.Notes, req.CustomerName, identity)
}

// CreateOrderFromQr admits an unauthenticated diner order. The token is the
// sole source of truth for which table the order belongs to.
func (s *Service) CreateOrderFromQr(req QrCreateRequest) (*Order, error) {

	logger := logging.GetLogger()
	logger.Debug("Start Orders.CreateOrderFromQr")
	defer logger.Debug("End Orders.CreateOrderFromQr")

	qr, err := s.qr.Validate(req.QrCode)
	if err != nil {
		return nil, err
	}

	table, err := s.tables.Resolve(qr.TableID)
	if err != nil {
		return nil, err
	}

	return s.create(table, req.Items, database.SourceQrClient, req.Notes, req.CustomerName, nil)
}

type pricedItem struct {
	product   *database.Product
	quantity  int
	notes     string
	unitPrice decimal.Decimal
	subtotal  decimal.Decimal
}

func (s *Service) create(table *database.Table, items []ItemRequest, source, notes, customerName string, identity *Identity) (*Order, error) {

	logger := logging.GetLogger()

	if len(items) == 0 {
		return nil, errors.New("at least one item is required")
	}

	// Price every line before touching storage. Any unavailable product
	// fails the whole order; no partial orders.
	priced := make([]pricedItem, 0, len(items))
	subtotal := decimal.Zero
	maxPrep := 0
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, errors.Errorf("invalid quantity %d for product %s", item.Quantity, item.ProductID)
		}
		product, err := s.menu.ResolveProduct(item.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsAvailable {
			return nil, errors.Wrapf(menu.ErrUnavailable, "product %q", product.Name)
		}

		// Snapshot of the catalog price at this instant. Later price
		// changes must not touch existing orders.
		unitPrice := product.Price
		itemSubtotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		priced = append(priced, pricedItem{
			product:   product,
			quantity:  item.Quantity,
			notes:     item.Notes,
			unitPrice: unitPrice,
			subtotal:  itemSubtotal,
		})
		subtotal = subtotal.Add(itemSubtotal)

		prep := product.PreparationTime
		if prep == 0 {
			prep = defaultPreparationMinutes
		}
		if prep > maxPrep {
			maxPrep = prep
		}
	}

	tax := subtotal.Mul(taxRate).Round(2)
	total := subtotal.Add(tax)
	estimatedTime := basePreparationMinutes + maxPrep

	var createdBy sql.NullString
	if identity != nil {
		createdBy = sql.NullString{String: identity.ID, Valid: identity.ID != ""}
	}

	var orderID string
	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		now := time.Now().UTC()
		orderNumber, err := s.nextOrderNumber(now)
		if err != nil {
			return nil, err
		}

		order := &database.Order{
			ID:            uuid.NewString(),
			OrderNumber:   orderNumber,
			TableID:       table.ID,
			Status:        database.StatusPending,
			Source:        source,
			CreatedBy:     createdBy,
			Subtotal:      subtotal,
			Tax:           tax,
			Total:         total,
			Notes:         sql.NullString{String: notes, Valid: notes != ""},
			CustomerName:  sql.NullString{String: customerName, Valid: customerName != ""},
			EstimatedTime: estimatedTime,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err = s.insertOrder(order, priced)
		if err == nil {
			orderID = order.ID
			lastErr = nil
			break
		}
		if !isNumberConflict(err) {
			return nil, err
		}
		// Another writer took the number. Reseed the counter from the
		// database and try again.
		logger.Debugf("Order number %s already taken, retrying", orderNumber)
		s.numbers.reset()
		lastErr = errors.Wrapf(ErrNumberConflict, "order number %s", orderNumber)
	}
	if lastErr != nil {
		return nil, lastErr
	}

	full, err := s.FindOne(orderID)
	if err != nil {
		return nil, err
	}

	logger.Infof("Order %s created for table %d, total %s", full.OrderNumber, full.Table.Number, full.Total.StringFixed(2))

	// Strictly downstream of the committed order; failures here never
	// roll anything back.
	s.notifyNewOrder(full)

	return full, nil
}

// insertOrder persists the order, its items and the table occupancy in one
// transaction. Readers never observe an order with a partial item set, and
// there is no window where a pending order sits on an available table.
func (s *Service) insertOrder(order *database.Order, items []pricedItem) error {

	tx, err := s.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "failed Beginx()")
	}

	_, err = tx.Exec(`INSERT INTO Orders (ID, OrderNumber, TableID, Status, Source, CreatedBy, Subtotal, Tax, Total, Notes, CustomerName, EstimatedTime, CreatedAt, UpdatedAt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`,
		order.ID, order.OrderNumber, order.TableID, order.Status, order.Source, order.CreatedBy,
		order.Subtotal, order.Tax, order.Total, order.Notes, order.CustomerName,
		order.EstimatedTime, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrapf(err, "failed INSERT into Orders; OrderNumber=%s", order.OrderNumber)
	}

	for _, item := range items {
		_, err = tx.Exec(`INSERT INTO OrderItems (ID, OrderID, ProductID, Quantity, UnitPrice, Subtotal, Notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7);`,
			uuid.NewString(), order.ID, item.product.ID, item.quantity, item.unitPrice, item.subtotal,
			sql.NullString{String: item.notes, Valid: item.notes != ""})
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed INSERT into OrderItems; OrderID=%s, ProductID=%s", order.ID, item.product.ID)
		}
	}

	if err := s.tables.OccupyTx(tx, order.TableID); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "failed Commit(); OrderNumber=%s", order.OrderNumber)
	}
	return nil
}

// FindOne loads the fully hydrated order.
func (s *Service) FindOne(id string) (*Order, error) {
	var order database.Order
	err := s.db.Get(&order, "SELECT * FROM Orders WHERE ID=$1;", id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(database.ErrNotFound, "order %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT from Orders; ID=%s", id)
	}
	return s.hydrate(&order)
}

func (s *Service) FindByNumber(orderNumber string) (*Order, error) {
	var order database.Order
	err := s.db.Get(&order, "SELECT * FROM Orders WHERE OrderNumber=$1;", orderNumber)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(database.ErrNotFound, "order %s", orderNumber)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT from Orders; OrderNumber=%s", orderNumber)
	}
	return s.hydrate(&order)
}

// Filters narrows FindAll. Zero values mean "no filter".
type Filters struct {
	Status  string
	Source  string
	TableID string
	Start   *time.Time
	End     *time.Time
}

func (s *Service) FindAll(f Filters) ([]*Order, error) {
	query := "SELECT * FROM Orders WHERE 1=1"
	var args []interface{}
	if f.Status != "" {
		query += " AND Status=?"
		args = append(args, f.Status)
	}
	if f.Source != "" {
		query += " AND Source=?"
		args = append(args, f.Source)
	}
	if f.TableID != "" {
		query += " AND TableID=?"
		args = append(args, f.TableID)
	}
	if f.Start != nil && f.End != nil {
		query += " AND CreatedAt BETWEEN ? AND ?"
		args = append(args, f.Start.UTC(), f.End.UTC())
	}
	query += " ORDER BY CreatedAt DESC;"

	return s.selectHydrated(query, args...)
}

// FindActive returns not-yet-finished orders oldest first, the order the
// kitchen serves them in.
func (s *Service) FindActive() ([]*Order, error) {
	query, args, err := sqlx.In("SELECT * FROM Orders WHERE Status IN (?) ORDER BY CreatedAt ASC;", activeStatuses)
	if err != nil {
		return nil, errors.Wrap(err, "failed sqlx.In()")
	}
	return s.selectHydrated(query, args...)
}

// FindToday returns orders created within the current calendar day (UTC,
// same clock the order numbers use), newest first.
func (s *Service) FindToday() ([]*Order, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	return s.selectHydrated("SELECT * FROM Orders WHERE CreatedAt >= $1 AND CreatedAt < $2 ORDER BY CreatedAt DESC;", start, end)
}

func (s *Service) FindByTable(tableID string) ([]*Order, error) {
	return s.selectHydrated("SELECT * FROM Orders WHERE TableID=$1 ORDER BY CreatedAt DESC;", tableID)
}

func (s *Service) FindActiveByTable(tableID string) ([]*Order, error) {
	query, args, err := sqlx.In("SELECT * FROM Orders WHERE TableID=? AND Status IN (?) ORDER BY CreatedAt ASC;", tableID, activeStatuses)
	if err != nil {
		return nil, errors.Wrap(err, "failed sqlx.In()")
	}
	return s.selectHydrated(query, args...)
}

func (s *Service) selectHydrated(query string, args ...interface{}) ([]*Order, error) {
	var rows []database.Order
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed SELECT from Orders; query:\n%s", query)
	}
	out := make([]*Order, 0, len(rows))
	for i := range rows {
		full, err := s.hydrate(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, full)
	}
	return out, nil
}

func (s *Service) hydrate(order *database.Order) (*Order, error) {

	table, err := s.tables.Resolve(order.TableID)
	if err != nil {
		return nil, err
	}

	var items []database.OrderItem
	err = s.db.Select(&items, "SELECT * FROM OrderItems WHERE OrderID=$1 ORDER BY rowid ASC;", order.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT from OrderItems; OrderID=%s", order.ID)
	}

	full := &Order{Order: *order, Table: table, Items: make([]Item, 0, len(items))}
	for _, item := range items {
		product, err := s.menu.ResolveProduct(item.ProductID)
		if err != nil {
			return nil, err
		}
		full.Items = append(full.Items, Item{OrderItem: item, Product: product})
	}

	if order.CreatedBy.Valid {
		var user database.User
		err := s.db.Get(&user, "SELECT * FROM Users WHERE ID=$1;", order.CreatedBy.String)
		if err == nil {
			full.Creator = &user
		} else if err != sql.ErrNoRows {
			return nil, errors.Wrapf(err, "failed SELECT from Users; ID=%s", order.CreatedBy.String)
		}
	}

	return full, nil
}
