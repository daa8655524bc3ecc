package qrcodes

import (
	"database/sql"
	"fmt"
	"time"

	"MesaQR/internal/database"
	"MesaQR/internal/tables"
	"MesaQR/pkg/logging"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// ErrExpired is returned when a qr code exists but is inactive or past its
// expiration date.
var ErrExpired = errors.New("qr code expired or inactive")

type Service struct {
	db      *sqlx.DB
	tables  *tables.Service
	baseURL string
}

func NewService(db *sqlx.DB, tablesSvc *tables.Service, baseURL string) *Service {
	return &Service{db: db, tables: tablesSvc, baseURL: baseURL}
}

// IsValid reports whether the code can still admit orders.
func IsValid(qr *database.QrCode, now time.Time) bool {
	return qr.IsActive && !now.After(qr.ExpirationDate)
}

// URL returns the address encoded into the printed qr image. Image rendering
// itself happens on the frontend.
func (s *Service) URL(code string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, code)
}

// Generate issues a qr code for the table. A still-valid existing code is
// returned as is; an expired one is deactivated and replaced.
func (s *Service) Generate(tableID string) (*database.QrCode, error) {

	logger := logging.GetLogger()
	logger.Debug("Start QrCodes.Generate")
	defer logger.Debug("End QrCodes.Generate")

	table, err := s.tables.Resolve(tableID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	existing, err := s.ByTable(table.ID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if IsValid(existing, now) {
			logger.Debugf("Table %d already has a valid qr code", table.Number)
			return existing, nil
		}
		_, err = s.db.Exec("UPDATE QrCodes SET IsActive=0 WHERE ID=$1;", existing.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed UPDATE QrCodes; ID=%s", existing.ID)
		}
		// One code per table: drop the stale row before inserting the fresh one.
		_, err = s.db.Exec("DELETE FROM QrCodes WHERE ID=$1;", existing.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed DELETE from QrCodes; ID=%s", existing.ID)
		}
	}

	qr := &database.QrCode{
		ID:             uuid.NewString(),
		TableID:        table.ID,
		Code:           uuid.NewString(),
		ExpirationDate: endOfMonth(now),
		IsActive:       true,
		CreatedAt:      now,
	}

	_, err = s.db.Exec(`INSERT INTO QrCodes (ID, TableID, Code, ExpirationDate, IsActive, CreatedAt)
		VALUES ($1, $2, $3, $4, $5, $6);`,
		qr.ID, qr.TableID, qr.Code, qr.ExpirationDate, qr.IsActive, qr.CreatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed INSERT into QrCodes; TableID=%s", table.ID)
	}

	logger.Infof("QR code issued for table %d, expires %s", table.Number, qr.ExpirationDate.Format("2006-01-02"))
	return qr, nil
}

// GenerateAll issues codes for every active table.
func (s *Service) GenerateAll() ([]database.QrCode, error) {

	logger := logging.GetLogger()
	logger.Info("Start QrCodes.GenerateAll")
	defer logger.Info("End QrCodes.GenerateAll")

	allTables, err := s.tables.FindAll(false)
	if err != nil {
		return nil, err
	}

	out := make([]database.QrCode, 0, len(allTables))
	for _, table := range allTables {
		qr, err := s.Generate(table.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed Generate(%s)", table.ID)
		}
		out = append(out, *qr)
	}
	return out, nil
}

// Validate resolves a scanned code. The code is the sole source of truth for
// which table a qr order belongs to.
func (s *Service) Validate(code string) (*database.QrCode, error) {

	var qr database.QrCode
	err := s.db.Get(&qr, "SELECT * FROM QrCodes WHERE Code=$1;", code)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(database.ErrNotFound, "qr code %s", code)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT from QrCodes; Code=%s", code)
	}

	if !IsValid(&qr, time.Now().UTC()) {
		return nil, errors.Wrapf(ErrExpired, "qr code %s", code)
	}
	return &qr, nil
}

func (s *Service) ByTable(tableID string) (*database.QrCode, error) {
	var qr database.QrCode
	err := s.db.Get(&qr, "SELECT * FROM QrCodes WHERE TableID=$1;", tableID)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(database.ErrNotFound, "qr code for table %s", tableID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT from QrCodes; TableID=%s", tableID)
	}
	return &qr, nil
}

func (s *Service) FindActive() ([]database.QrCode, error) {
	var out []database.QrCode
	err := s.db.Select(&out, "SELECT * FROM QrCodes WHERE IsActive=1 ORDER BY CreatedAt DESC;")
	if err != nil {
		return nil, errors.Wrap(err, "failed SELECT from QrCodes")
	}
	return out, nil
}

// RenewAll deactivates every current code and issues fresh ones. Meant to run
// monthly when the printed cards are replaced.
func (s *Service) RenewAll() ([]database.QrCode, error) {

	logger := logging.GetLogger()
	logger.Info("Start QrCodes.RenewAll")
	defer logger.Info("End QrCodes.RenewAll")

	_, err := s.db.Exec("UPDATE QrCodes SET IsActive=0 WHERE IsActive=1;")
	if err != nil {
		return nil, errors.Wrap(err, "failed UPDATE QrCodes")
	}
	return s.GenerateAll()
}

func (s *Service) Deactivate(tableID string) error {
	qr, err := s.ByTable(tableID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("UPDATE QrCodes SET IsActive=0 WHERE ID=$1;", qr.ID)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE QrCodes; ID=%s", qr.ID)
	}
	return nil
}

// endOfMonth is the expiry applied to new codes: last second of the current
// month, matching the monthly reprint cycle.
func endOfMonth(now time.Time) time.Time {
	firstOfNext := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.Add(-time.Second)
}
