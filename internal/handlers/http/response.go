package http

import (
	"encoding/json"
	"net/http"
	"time"

	"MesaQR/internal/database"
	"MesaQR/internal/menu"
	"MesaQR/internal/orders"
	"MesaQR/internal/qrcodes"
	"MesaQR/pkg/logging"

	"github.com/pkg/errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.GetLogger().Errorf("failed to encode response, error: %v", err)
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses. Numbering
// conflicts only reach here after the internal retries are exhausted, so
// they surface as a transient failure.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, menu.ErrUnavailable):
		status = http.StatusBadRequest
	case errors.Is(err, qrcodes.ErrExpired):
		status = http.StatusBadRequest
	case errors.Is(err, orders.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, orders.ErrNumberConflict):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

type itemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Subtotal  string `json:"subtotal"`
	Notes     string `json:"notes,omitempty"`
}

type tableResponse struct {
	ID       string `json:"id"`
	Number   int    `json:"number"`
	Name     string `json:"name,omitempty"`
	Capacity int    `json:"capacity"`
	Status   string `json:"status"`
	Location string `json:"location,omitempty"`
	IsActive bool   `json:"isActive"`
}

type orderResponse struct {
	ID            string         `json:"id"`
	OrderNumber   string         `json:"orderNumber"`
	Status        string         `json:"status"`
	Source        string         `json:"source"`
	Table         tableResponse  `json:"table"`
	CreatedBy     string         `json:"createdBy,omitempty"`
	Items         []itemResponse `json:"items"`
	Subtotal      string         `json:"subtotal"`
	Tax           string         `json:"tax"`
	Total         string         `json:"total"`
	Notes         string         `json:"notes,omitempty"`
	CustomerName  string         `json:"customerName,omitempty"`
	EstimatedTime int            `json:"estimatedTime"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func toTableResponse(table *database.Table) tableResponse {
	return tableResponse{
		ID:       table.ID,
		Number:   table.Number,
		Name:     table.Name.String,
		Capacity: table.Capacity,
		Status:   table.Status,
		Location: table.Location.String,
		IsActive: table.IsActive,
	}
}

func toOrderResponse(order *orders.Order) orderResponse {
	out := orderResponse{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		Source:        order.Source,
		Table:         toTableResponse(order.Table),
		CreatedBy:     order.CreatedBy.String,
		Items:         make([]itemResponse, 0, len(order.Items)),
		Subtotal:      order.Subtotal.StringFixed(2),
		Tax:           order.Tax.StringFixed(2),
		Total:         order.Total.StringFixed(2),
		Notes:         order.Notes.String,
		CustomerName:  order.CustomerName.String,
		EstimatedTime: order.EstimatedTime,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	if order.CompletedAt.Valid {
		completed := order.CompletedAt.Time
		out.CompletedAt = &completed
	}
	for _, item := range order.Items {
		out.Items = append(out.Items, itemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Product:   item.Product.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Subtotal:  item.Subtotal.StringFixed(2),
			Notes:     item.Notes.String,
		})
	}
	return out
}

func toOrderResponses(list []*orders.Order) []orderResponse {
	out := make([]orderResponse, 0, len(list))
	for _, order := range list {
		out = append(out, toOrderResponse(order))
	}
	return out
}

type productResponse struct {
	ID              string `json:"id"`
	CategoryID      string `json:"categoryId,omitempty"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Price           string `json:"price"`
	IsAvailable     bool   `json:"isAvailable"`
	PreparationTime int    `json:"preparationTime"`
}

func toProductResponse(product *database.Product) productResponse {
	return productResponse{
		ID:              product.ID,
		CategoryID:      product.CategoryID.String,
		Name:            product.Name,
		Description:     product.Desc.String,
		Price:           product.Price.StringFixed(2),
		IsAvailable:     product.IsAvailable,
		PreparationTime: product.PreparationTime,
	}
}

type qrResponse struct {
	ID             string    `json:"id"`
	TableID        string    `json:"tableId"`
	Code           string    `json:"code"`
	URL            string    `json:"url"`
	ExpirationDate time.Time `json:"expirationDate"`
	IsActive       bool      `json:"isActive"`
}
