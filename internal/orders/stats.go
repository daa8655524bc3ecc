package orders

import (
	"database/sql"
	"fmt"
	"time"

	"MesaQR/internal/database"
	"MesaQR/pkg/logging"

	"github.com/pkg/errors"
)

// Statistics is the aggregate snapshot for a date range. Pending, preparing
// and ready counts always reflect the current moment regardless of range.
type Statistics struct {
	TotalOrders       int    `json:"totalOrders"`
	CompletedOrders   int    `json:"completedOrders"`
	CancelledOrders   int    `json:"cancelledOrders"`
	PendingOrders     int    `json:"pendingOrders"`
	PreparingOrders   int    `json:"preparingOrders"`
	ReadyOrders       int    `json:"readyOrders"`
	TotalRevenue      string `json:"totalRevenue"`
	AverageOrderValue string `json:"averageOrderValue"`
	CompletionRate    string `json:"completionRate"`
}

type BestSeller struct {
	ProductID     string  `json:"productId" db:"ProductID"`
	ProductName   string  `json:"productName" db:"ProductName"`
	TotalQuantity int     `json:"totalQuantity" db:"TotalQuantity"`
	TotalRevenue  float64 `json:"-" db:"TotalRevenue"`
	Revenue       string  `json:"totalRevenue" db:"-"`
}

type DaySales struct {
	Date       string  `json:"date" db:"Date"`
	OrderCount int     `json:"orderCount" db:"OrderCount"`
	TotalSales float64 `json:"-" db:"TotalSales"`
	Sales      string  `json:"totalSales" db:"-"`
}

type SourceBreakdown struct {
	QrOrders         int    `json:"qrOrders"`
	WaiterOrders     int    `json:"waiterOrders"`
	AdminOrders      int    `json:"adminOrders"`
	Total            int    `json:"total"`
	QrPercentage     string `json:"qrPercentage"`
	WaiterPercentage string `json:"waiterPercentage"`
	AdminPercentage  string `json:"adminPercentage"`
}

type PreparationTime struct {
	AverageMinutes string `json:"averageMinutes"`
	TotalOrders    int    `json:"totalOrders"`
}

type Dashboard struct {
	Today                  *Statistics      `json:"today"`
	ActiveOrders           int              `json:"activeOrders"`
	BestSellingProducts    []BestSeller     `json:"bestSellingProducts"`
	SalesByDay             []DaySales       `json:"salesByDay"`
	OrdersBySource         *SourceBreakdown `json:"ordersBySource"`
	AveragePreparationTime *PreparationTime `json:"averagePreparationTime"`
}

// Statistics derives counts and revenue over the given range on demand.
// Nothing is cached; every call re-scans the ledger.
func (s *Service) Statistics(start, end *time.Time) (*Statistics, error) {

	logger := logging.GetLogger()
	logger.Debug("Start Orders.Statistics")
	defer logger.Debug("End Orders.Statistics")

	rangeCond := ""
	var rangeArgs []interface{}
	if start != nil && end != nil {
		rangeCond = " AND CreatedAt BETWEEN ? AND ?"
		rangeArgs = []interface{}{start.UTC(), end.UTC()}
	}

	countWhere := func(cond string, args ...interface{}) (int, error) {
		var n int
		err := s.db.Get(&n, "SELECT COUNT(*) FROM Orders WHERE "+cond+";", args...)
		if err != nil {
			return 0, errors.Wrapf(err, "failed SELECT COUNT from Orders; cond: %s", cond)
		}
		return n, nil
	}

	stats := &Statistics{}
	var err error

	if stats.TotalOrders, err = countWhere("1=1"+rangeCond, rangeArgs...); err != nil {
		return nil, err
	}
	if stats.CompletedOrders, err = countWhere("Status=?"+rangeCond, append([]interface{}{database.StatusDelivered}, rangeArgs...)...); err != nil {
		return nil, err
	}
	if stats.CancelledOrders, err = countWhere("Status=?"+rangeCond, append([]interface{}{database.StatusCancelled}, rangeArgs...)...); err != nil {
		return nil, err
	}
	if stats.PendingOrders, err = countWhere("Status=?", database.StatusPending); err != nil {
		return nil, err
	}
	if stats.PreparingOrders, err = countWhere("Status=?", database.StatusPreparing); err != nil {
		return nil, err
	}
	if stats.ReadyOrders, err = countWhere("Status=?", database.StatusReady); err != nil {
		return nil, err
	}

	var revenue float64
	err = s.db.Get(&revenue,
		"SELECT COALESCE(SUM(CAST(Total AS real)), 0) FROM Orders WHERE Status=?"+rangeCond+";",
		append([]interface{}{database.StatusDelivered}, rangeArgs...)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed SELECT SUM(Total) from Orders")
	}
	stats.TotalRevenue = fmt.Sprintf("%.2f", revenue)

	// Average over completed orders; defined as 0 when none completed
	// yet, so a day of only-cancelled orders does not divide by zero.
	average := 0.0
	if stats.CompletedOrders > 0 {
		average = revenue / float64(stats.CompletedOrders)
	}
	stats.AverageOrderValue = fmt.Sprintf("%.2f", average)

	rate := 0.0
	if stats.TotalOrders > 0 {
		rate = float64(stats.CompletedOrders) / float64(stats.TotalOrders) * 100
	}
	stats.CompletionRate = fmt.Sprintf("%.2f", rate)

	return stats, nil
}

// BestSellingProducts ranks products by quantity sold over delivered orders.
func (s *Service) BestSellingProducts(limit int) ([]BestSeller, error) {
	if limit <= 0 {
		limit = 10
	}

	var out []BestSeller
	err := s.db.Select(&out, `SELECT oi.ProductID AS ProductID, p.Name AS ProductName,
			SUM(oi.Quantity) AS TotalQuantity,
			COALESCE(SUM(CAST(oi.Subtotal AS real)), 0) AS TotalRevenue
		FROM OrderItems oi
		JOIN Products p ON p.ID = oi.ProductID
		JOIN Orders o ON o.ID = oi.OrderID
		WHERE o.Status = $1
		GROUP BY oi.ProductID, p.Name
		ORDER BY TotalQuantity DESC
		LIMIT $2;`, database.StatusDelivered, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed SELECT best sellers")
	}
	for i := range out {
		out[i].Revenue = fmt.Sprintf("%.2f", out[i].TotalRevenue)
	}
	return out, nil
}

// SalesByDay buckets delivered orders over the trailing window.
func (s *Service) SalesByDay(days int) ([]DaySales, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	var out []DaySales
	err := s.db.Select(&out, `SELECT DATE(CreatedAt) AS Date,
			COUNT(ID) AS OrderCount,
			COALESCE(SUM(CAST(Total AS real)), 0) AS TotalSales
		FROM Orders
		WHERE Status = $1 AND CreatedAt >= $2
		GROUP BY DATE(CreatedAt)
		ORDER BY Date DESC;`, database.StatusDelivered, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed SELECT sales by day")
	}
	for i := range out {
		out[i].Sales = fmt.Sprintf("%.2f", out[i].TotalSales)
	}
	return out, nil
}

// OrdersBySource splits the order count by origin.
func (s *Service) OrdersBySource() (*SourceBreakdown, error) {

	count := func(source string) (int, error) {
		var n int
		err := s.db.Get(&n, "SELECT COUNT(*) FROM Orders WHERE Source=$1;", source)
		if err != nil {
			return 0, errors.Wrapf(err, "failed SELECT COUNT from Orders; Source=%s", source)
		}
		return n, nil
	}

	var err error
	out := &SourceBreakdown{}
	if out.QrOrders, err = count(database.SourceQrClient); err != nil {
		return nil, err
	}
	if out.WaiterOrders, err = count(database.SourceWaiter); err != nil {
		return nil, err
	}
	if out.AdminOrders, err = count(database.SourceAdmin); err != nil {
		return nil, err
	}
	out.Total = out.QrOrders + out.WaiterOrders + out.AdminOrders

	percentage := func(n int) string {
		if out.Total == 0 {
			return "0.00"
		}
		return fmt.Sprintf("%.2f", float64(n)/float64(out.Total)*100)
	}
	out.QrPercentage = percentage(out.QrOrders)
	out.WaiterPercentage = percentage(out.WaiterOrders)
	out.AdminPercentage = percentage(out.AdminOrders)

	return out, nil
}

// AveragePreparationTime reports the mean creation-to-completion delta over
// delivered orders.
func (s *Service) AveragePreparationTime() (*PreparationTime, error) {

	var rows []struct {
		CreatedAt   time.Time    `db:"CreatedAt"`
		CompletedAt sql.NullTime `db:"CompletedAt"`
	}
	err := s.db.Select(&rows, "SELECT CreatedAt, CompletedAt FROM Orders WHERE Status=$1;", database.StatusDelivered)
	if err != nil {
		return nil, errors.Wrap(err, "failed SELECT preparation times")
	}

	if len(rows) == 0 {
		return &PreparationTime{AverageMinutes: "0.00", TotalOrders: 0}, nil
	}

	totalMinutes := 0.0
	for _, row := range rows {
		if row.CompletedAt.Valid {
			totalMinutes += row.CompletedAt.Time.Sub(row.CreatedAt).Minutes()
		}
	}

	return &PreparationTime{
		AverageMinutes: fmt.Sprintf("%.2f", totalMinutes/float64(len(rows))),
		TotalOrders:    len(rows),
	}, nil
}

// Dashboard bundles the live overview screens into one call.
func (s *Service) Dashboard() (*Dashboard, error) {

	logger := logging.GetLogger()
	logger.Debug("Start Orders.Dashboard")
	defer logger.Debug("End Orders.Dashboard")

	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	today, err := s.Statistics(&startOfDay, &now)
	if err != nil {
		return nil, err
	}
	active, err := s.FindActive()
	if err != nil {
		return nil, err
	}
	bestSelling, err := s.BestSellingProducts(5)
	if err != nil {
		return nil, err
	}
	salesByDay, err := s.SalesByDay(7)
	if err != nil {
		return nil, err
	}
	bySource, err := s.OrdersBySource()
	if err != nil {
		return nil, err
	}
	prepTime, err := s.AveragePreparationTime()
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Today:                  today,
		ActiveOrders:           len(active),
		BestSellingProducts:    bestSelling,
		SalesByDay:             salesByDay,
		OrdersBySource:         bySource,
		AveragePreparationTime: prepTime,
	}, nil
}
