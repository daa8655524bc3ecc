package orders

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ErrNumberConflict signals that order-number assignment kept colliding with
// concurrent writers. Creation retries internally; callers only see this
// after the attempts are exhausted.
var ErrNumberConflict = errors.New("order number conflict")

const maxNumberAttempts = 5

// numberSource hands out the per-day sequence behind ORD-YYYYMMDD-NNN.
//
// Computing "count of today's orders + 1" and then inserting is a
// read-then-write race: two concurrent requests observe the same count and
// generate the same number. Assignment is therefore serialized under a mutex
// and seeded from the highest persisted sequence of the day; the UNIQUE
// constraint on Orders.OrderNumber plus retry covers writers outside this
// process.
type numberSource struct {
	mu   sync.Mutex
	day  string
	next int
}

// reset forces a reseed from the database on the next allocation. Called
// after a unique-constraint conflict, when the in-memory counter is known to
// be stale.
func (n *numberSource) reset() {
	n.mu.Lock()
	n.day = ""
	n.mu.Unlock()
}

func (s *Service) nextOrderNumber(now time.Time) (string, error) {
	day := now.UTC().Format("20060102")

	s.numbers.mu.Lock()
	defer s.numbers.mu.Unlock()

	if s.numbers.day != day {
		// The sequence starts at character 14 (after "ORD-YYYYMMDD-"),
		// so numbers that grew past three digits still reseed correctly.
		var seq int
		err := s.db.Get(&seq,
			"SELECT COALESCE(MAX(CAST(substr(OrderNumber, 14) AS integer)), 0) FROM Orders WHERE OrderNumber LIKE $1;",
			fmt.Sprintf("ORD-%s-%%", day))
		if err != nil {
			return "", errors.Wrapf(err, "failed to seed order sequence for %s", day)
		}
		s.numbers.day = day
		s.numbers.next = seq
	}

	s.numbers.next++
	return fmt.Sprintf("ORD-%s-%03d", day, s.numbers.next), nil
}

// isNumberConflict reports whether err is the UNIQUE constraint violation on
// Orders.OrderNumber.
func isNumberConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.Code != sqlite3.ErrConstraint {
		return false
	}
	return strings.Contains(sqliteErr.Error(), "Orders.OrderNumber")
}
