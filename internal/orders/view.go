package orders

import (
	"fmt"

	"MesaQR/internal/bus"
	"MesaQR/internal/database"
	"MesaQR/pkg/logging"
)

// statusPhrases are the client-facing descriptions pushed to the table room.
var statusPhrases = map[string]string{
	database.StatusPending:   "pendiente de confirmación",
	database.StatusConfirmed: "confirmado",
	database.StatusPreparing: "en preparación",
	database.StatusReady:     "listo para servir",
	database.StatusDelivered: "entregado",
	database.StatusCancelled: "cancelado",
}

func statusPhrase(status string) string {
	if phrase, ok := statusPhrases[status]; ok {
		return phrase
	}
	return status
}

// View builds the read-only projection published on the bus.
func View(order *Order) bus.OrderView {
	view := bus.OrderView{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		Source:        order.Source,
		Table:         bus.TableView{ID: order.Table.ID, Number: order.Table.Number, Name: order.Table.Name.String},
		Items:         make([]bus.ItemView, 0, len(order.Items)),
		Total:         order.Total.StringFixed(2),
		EstimatedTime: order.EstimatedTime,
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, bus.ItemView{
			Product:  item.Product.Name,
			Quantity: item.Quantity,
			Notes:    item.Notes.String,
		})
	}
	return view
}

// notifyNewOrder fans a freshly created order out to everyone, the kitchen
// and the waiters.
func (s *Service) notifyNewOrder(order *Order) {

	logger := logging.GetLogger()
	logger.Debugf("Notify new order %s", order.OrderNumber)

	view := View(order)

	s.bus.Broadcast(bus.Event{Name: bus.EventNewOrder, Message: "Nuevo pedido recibido", Order: view})
	s.bus.Publish(bus.RoomKitchen, bus.Event{Name: bus.EventNewOrder, Message: "Nuevo pedido para preparar", Order: view})
	s.bus.Publish(bus.RoomWaiters, bus.Event{Name: bus.EventNewOrder, Message: "Nuevo pedido en tu sección", Order: view})
}

// notifyStatusUpdate fans a non-cancellation transition out: everyone gets
// the generic update, the table gets a readable phrase, and the role that
// acts on the new status gets its dedicated event.
func (s *Service) notifyStatusUpdate(order *Order) {

	logger := logging.GetLogger()
	logger.Debugf("Notify status update %s -> %s", order.OrderNumber, order.Status)

	view := View(order)

	s.bus.Broadcast(bus.Event{
		Name:    bus.EventOrderUpdated,
		Message: fmt.Sprintf("Pedido %s actualizado", order.OrderNumber),
		Order:   view,
	})

	s.bus.Publish(bus.TableRoom(order.Table.ID), bus.Event{
		Name:    bus.EventStatusChanged,
		Message: fmt.Sprintf("Tu pedido está %s", statusPhrase(order.Status)),
		Order:   view,
	})

	switch order.Status {
	case database.StatusConfirmed:
		s.bus.Publish(bus.RoomKitchen, bus.Event{Name: bus.EventConfirmed, Message: "Pedido confirmado, listo para preparar", Order: view})
	case database.StatusPreparing:
		s.bus.Publish(bus.RoomWaiters, bus.Event{Name: bus.EventPreparing, Message: "Pedido en preparación", Order: view})
	case database.StatusReady:
		s.bus.Publish(bus.RoomWaiters, bus.Event{Name: bus.EventReady, Message: "Pedido listo para servir", Order: view})
	case database.StatusDelivered:
		s.bus.Publish(bus.RoomAdmin, bus.Event{Name: bus.EventCompleted, Message: "Pedido completado", Order: view})
	}
}

// notifyCancelled is the single event emitted for a cancellation.
func (s *Service) notifyCancelled(order *Order) {

	logger := logging.GetLogger()
	logger.Debugf("Notify cancelled %s", order.OrderNumber)

	s.bus.Broadcast(bus.Event{
		Name:    bus.EventCancelled,
		Message: fmt.Sprintf("Pedido %s cancelado", order.OrderNumber),
		Order:   View(order),
	})
}
