package tables

import (
	"database/sql"
	"time"

	"MesaQR/internal/database"
	"MesaQR/pkg/logging"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// ErrNumberTaken is returned when creating or renumbering a table with a
// number another table already has.
var ErrNumberTaken = errors.New("table number already taken")

var validStatuses = map[string]bool{
	database.TableAvailable: true,
	database.TableOccupied:  true,
	database.TableReserved:  true,
}

// Statuses of orders that keep a table occupied.
var activeOrderStatuses = []string{
	database.StatusPending,
	database.StatusConfirmed,
	database.StatusPreparing,
	database.StatusReady,
}

type Service struct {
	db *sqlx.DB
}

func NewService(db *sqlx.DB) *Service {
	return &Service{db: db}
}

type CreateParams struct {
	Number   int
	Name     string
	Capacity int
	Location string
}

func (s *Service) Create(p CreateParams) (*database.Table, error) {

	logger := logging.GetLogger()
	logger.Debug("Start Tables.Create")
	defer logger.Debug("End Tables.Create")

	var existing database.Table
	err := s.db.Get(&existing, "SELECT * FROM Tables WHERE Number=$1;", p.Number)
	if err == nil {
		return nil, errors.Wrapf(ErrNumberTaken, "number %d", p.Number)
	}
	if err != sql.ErrNoRows {
		return nil, errors.Wrapf(err, "failed SELECT from Tables; Number=%d", p.Number)
	}

	if p.Capacity <= 0 {
		p.Capacity = 4
	}

	now := time.Now().UTC()
	table := &database.Table{
		ID:        uuid.NewString(),
		Number:    p.Number,
		Name:      toNullString(p.Name),
		Capacity:  p.Capacity,
		Status:    database.TableAvailable,
		Location:  toNullString(p.Location),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.Exec(`INSERT INTO Tables (ID, Number, Name, Capacity, Status, Location, IsActive, CreatedAt, UpdatedAt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`,
		table.ID, table.Number, table.Name, table.Capacity, table.Status, table.Location, table.IsActive, table.CreatedAt, table.UpdatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed INSERT into Tables; Number=%d", p.Number)
	}

	logger.Debugf("Table %d created, ID=%s", table.Number, table.ID)
	return table, nil
}

// Resolve loads a table by ID.
func (s *Service) Resolve(id string) (*database.Table, error) {
	var table database.Table
	err := s.db.Get(&table, "SELECT * FROM Tables WHERE ID=$1;", id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(database.ErrNotFound, "table %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT from Tables; ID=%s", id)
	}
	return &table, nil
}

func (s *Service) FindByNumber(number int) (*database.Table, error) {
	var table database.Table
	err := s.db.Get(&table, "SELECT * FROM Tables WHERE Number=$1;", number)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(database.ErrNotFound, "table number %d", number)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT from Tables; Number=%d", number)
	}
	return &table, nil
}

func (s *Service) FindAll(includeInactive bool) ([]database.Table, error) {
	var out []database.Table
	query := "SELECT * FROM Tables WHERE IsActive=1 ORDER BY Number ASC;"
	if includeInactive {
		query = "SELECT * FROM Tables ORDER BY Number ASC;"
	}
	if err := s.db.Select(&out, query); err != nil {
		return nil, errors.Wrap(err, "failed SELECT from Tables")
	}
	return out, nil
}

func (s *Service) FindByStatus(status string) ([]database.Table, error) {
	if !validStatuses[status] {
		return nil, errors.Errorf("unknown table status %q", status)
	}
	var out []database.Table
	err := s.db.Select(&out, "SELECT * FROM Tables WHERE Status=$1 AND IsActive=1 ORDER BY Number ASC;", status)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT from Tables; Status=%s", status)
	}
	return out, nil
}

func (s *Service) FindAvailable() ([]database.Table, error) {
	return s.FindByStatus(database.TableAvailable)
}

func (s *Service) FindOccupied() ([]database.Table, error) {
	return s.FindByStatus(database.TableOccupied)
}

type UpdateParams struct {
	Number   *int
	Name     *string
	Capacity *int
	Location *string
	IsActive *bool
}

func (s *Service) Update(id string, p UpdateParams) (*database.Table, error) {

	logger := logging.GetLogger()
	logger.Debug("Start Tables.Update")
	defer logger.Debug("End Tables.Update")

	table, err := s.Resolve(id)
	if err != nil {
		return nil, err
	}

	if p.Number != nil && *p.Number != table.Number {
		var existing database.Table
		err := s.db.Get(&existing, "SELECT * FROM Tables WHERE Number=$1;", *p.Number)
		if err == nil {
			return nil, errors.Wrapf(ErrNumberTaken, "number %d", *p.Number)
		}
		if err != sql.ErrNoRows {
			return nil, errors.Wrapf(err, "failed SELECT from Tables; Number=%d", *p.Number)
		}
		table.Number = *p.Number
	}
	if p.Name != nil {
		table.Name = toNullString(*p.Name)
	}
	if p.Capacity != nil && *p.Capacity > 0 {
		table.Capacity = *p.Capacity
	}
	if p.Location != nil {
		table.Location = toNullString(*p.Location)
	}
	if p.IsActive != nil {
		table.IsActive = *p.IsActive
	}
	table.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(`UPDATE Tables SET Number=$1, Name=$2, Capacity=$3, Location=$4, IsActive=$5, UpdatedAt=$6 WHERE ID=$7;`,
		table.Number, table.Name, table.Capacity, table.Location, table.IsActive, table.UpdatedAt, table.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed UPDATE Tables; ID=%s", id)
	}
	return table, nil
}

// SetStatus is the manual override used by staff (reserve a table, free it by
// hand). The order flow drives occupancy through Occupy and Release instead.
func (s *Service) SetStatus(id, status string) (*database.Table, error) {
	if !validStatuses[status] {
		return nil, errors.Errorf("unknown table status %q", status)
	}
	if _, err := s.Resolve(id); err != nil {
		return nil, err
	}
	_, err := s.db.Exec("UPDATE Tables SET Status=$1, UpdatedAt=$2 WHERE ID=$3;", status, time.Now().UTC(), id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed UPDATE Tables; ID=%s, Status=%s", id, status)
	}
	return s.Resolve(id)
}

// Occupy marks the table occupied. Idempotent if it already is.
func (s *Service) Occupy(id string) error {

	logger := logging.GetLogger()
	logger.Debugf("Tables.Occupy %s", id)

	res, err := s.db.Exec("UPDATE Tables SET Status=$1, UpdatedAt=$2 WHERE ID=$3;",
		database.TableOccupied, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE Tables; ID=%s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed RowsAffected()")
	}
	if n == 0 {
		return errors.Wrapf(database.ErrNotFound, "table %s", id)
	}
	return nil
}

// ActiveOrderCount reports how many orders on the table are still in an
// active state. Runs on the caller's tx so the release decision and the
// table write stay in one transaction.
func (s *Service) ActiveOrderCount(ext sqlx.Ext, tableID string) (int, error) {
	query, args, err := sqlx.In(
		"SELECT COUNT(*) FROM Orders WHERE TableID = ? AND Status IN (?);",
		tableID, activeOrderStatuses)
	if err != nil {
		return 0, errors.Wrap(err, "failed sqlx.In()")
	}
	var count int
	if err := sqlx.Get(ext, &count, query, args...); err != nil {
		return 0, errors.Wrapf(err, "failed SELECT COUNT active orders; TableID=%s", tableID)
	}
	return count, nil
}

// OccupyTx marks the table occupied inside the caller's transaction, so an
// order admission and its occupancy commit or fail together.
func (s *Service) OccupyTx(ext sqlx.Ext, id string) error {
	_, err := ext.Exec("UPDATE Tables SET Status=$1, UpdatedAt=$2 WHERE ID=$3;",
		database.TableOccupied, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE Tables; ID=%s", id)
	}
	return nil
}

// ReleaseTx frees the table inside the caller's transaction.
func (s *Service) ReleaseTx(ext sqlx.Ext, id string) error {
	_, err := ext.Exec("UPDATE Tables SET Status=$1, UpdatedAt=$2 WHERE ID=$3;",
		database.TableAvailable, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE Tables; ID=%s", id)
	}
	return nil
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
