package bus

import "time"

// Room names. Per-table rooms are built with TableRoom.
const (
	RoomKitchen = "kitchen"
	RoomWaiters = "waiters"
	RoomAdmin   = "admin"
)

// Event names kept wire-compatible with the dashboard clients.
const (
	EventNewOrder      = "order:new"
	EventOrderUpdated  = "order:updated"
	EventStatusChanged = "order:status-changed"
	EventConfirmed     = "order:confirmed"
	EventPreparing     = "order:preparing"
	EventReady         = "order:ready"
	EventCompleted     = "order:completed"
	EventCancelled     = "order:cancelled"
)

// TableRoom names the room watched by the clients sitting at one table.
func TableRoom(tableID string) string {
	return "table:" + tableID
}

// TableView is the table summary carried in event payloads.
type TableView struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name,omitempty"`
}

// ItemView is the order line summary carried in event payloads.
type ItemView struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// OrderView is a read-only projection of an order. Events never carry the
// persisted entity itself; the wire shape stays decoupled from storage.
type OrderView struct {
	ID            string     `json:"id"`
	OrderNumber   string     `json:"orderNumber"`
	Status        string     `json:"status"`
	Source        string     `json:"source"`
	Table         TableView  `json:"table"`
	Items         []ItemView `json:"items"`
	Total         string     `json:"total"`
	EstimatedTime int        `json:"estimatedTime"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Event is a single fan-out message.
type Event struct {
	Name    string    `json:"event"`
	Message string    `json:"message"`
	Order   OrderView `json:"order"`
}
