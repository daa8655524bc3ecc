package orders

import (
	"database/sql"
	"time"

	"MesaQR/internal/database"
	"MesaQR/pkg/logging"

	"github.com/pkg/errors"
)

// ErrInvalidTransition is returned when a status change is not allowed by
// the transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions is the full state machine: pending → confirmed → preparing →
// ready → delivered, with cancellation possible from any non-terminal state.
// delivered and cancelled are terminal.
var transitions = map[string][]string{
	database.StatusPending:   {database.StatusConfirmed, database.StatusCancelled},
	database.StatusConfirmed: {database.StatusPreparing, database.StatusCancelled},
	database.StatusPreparing: {database.StatusReady, database.StatusCancelled},
	database.StatusReady:     {database.StatusDelivered, database.StatusCancelled},
	database.StatusDelivered: {},
	database.StatusCancelled: {},
}

var activeStatuses = []string{
	database.StatusPending,
	database.StatusConfirmed,
	database.StatusPreparing,
	database.StatusReady,
}

// ValidateTransition checks the transition table. Pure; no side effects.
func ValidateTransition(current, next string) error {
	allowed, ok := transitions[current]
	if !ok {
		return errors.Errorf("unknown order status %q", current)
	}
	for _, status := range allowed {
		if status == next {
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidTransition, "cannot change from %s to %s", current, next)
}

// UpdateStatus applies a validated status change plus its side effects, then
// fans the committed order out. The UPDATE carries the observed status in its
// WHERE clause, so two concurrent transitions on one order cannot interleave:
// the loser matches zero rows and fails cleanly.
func (s *Service) UpdateStatus(id, next, notes string) (*Order, error) {

	logger := logging.GetLogger()
	logger.Debug("Start Orders.UpdateStatus")
	defer logger.Debug("End Orders.UpdateStatus")

	order, err := s.FindOne(id)
	if err != nil {
		return nil, err
	}

	if err := ValidateTransition(order.Status, next); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	// Notes append, never replace.
	newNotes := order.Notes
	if notes != "" {
		if newNotes.Valid && newNotes.String != "" {
			newNotes = sql.NullString{String: newNotes.String + "\n" + notes, Valid: true}
		} else {
			newNotes = sql.NullString{String: notes, Valid: true}
		}
	}

	completedAt := order.CompletedAt
	if next == database.StatusDelivered {
		completedAt = sql.NullTime{Time: now, Valid: true}
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, errors.Wrap(err, "failed Beginx()")
	}

	res, err := tx.Exec(`UPDATE Orders SET Status=$1, Notes=$2, CompletedAt=$3, UpdatedAt=$4 WHERE ID=$5 AND Status=$6;`,
		next, newNotes, completedAt, now, id, order.Status)
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Wrapf(err, "failed UPDATE Orders; ID=%s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Wrap(err, "failed RowsAffected()")
	}
	if n == 0 {
		// Lost the compare-and-set: someone moved the order first.
		_ = tx.Rollback()
		fresh, ferr := s.FindOne(id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, errors.Wrapf(ErrInvalidTransition, "cannot change from %s to %s", fresh.Status, next)
	}

	if next == database.StatusDelivered {
		// Release the table only if nothing else keeps it busy. The
		// count and the table write share the transaction with the
		// status update, so a concurrent creation on the same table
		// cannot slip between the check and the release.
		count, err := s.tables.ActiveOrderCount(tx, order.TableID)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if count == 0 {
			if err := s.tables.ReleaseTx(tx, order.TableID); err != nil {
				_ = tx.Rollback()
				return nil, err
			}
			logger.Infof("Table %d released, no active orders left", order.Table.Number)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrapf(err, "failed Commit(); ID=%s", id)
	}

	full, err := s.FindOne(id)
	if err != nil {
		return nil, err
	}

	logger.Infof("Order %s moved %s -> %s", full.OrderNumber, order.Status, next)

	if next == database.StatusCancelled {
		s.notifyCancelled(full)
	} else {
		s.notifyStatusUpdate(full)
	}

	return full, nil
}

// Confirm moves a pending order into the kitchen queue.
func (s *Service) Confirm(id string) (*Order, error) {
	return s.UpdateStatus(id, database.StatusConfirmed, "")
}

func (s *Service) StartPreparing(id string) (*Order, error) {
	return s.UpdateStatus(id, database.StatusPreparing, "")
}

func (s *Service) MarkReady(id string) (*Order, error) {
	return s.UpdateStatus(id, database.StatusReady, "")
}

func (s *Service) MarkDelivered(id string) (*Order, error) {
	return s.UpdateStatus(id, database.StatusDelivered, "")
}

// Cancel voids the order, recording the reason in the notes.
func (s *Service) Cancel(id, reason string) (*Order, error) {
	note := "Pedido cancelado"
	if reason != "" {
		note = "Cancelado: " + reason
	}
	return s.UpdateStatus(id, database.StatusCancelled, note)
}
