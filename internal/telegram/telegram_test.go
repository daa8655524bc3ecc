package telegram

import (
	"testing"

	"MesaQR/internal/bus"

	"github.com/stretchr/testify/assert"
)

func TestFormatEvent(t *testing.T) {
	order := bus.OrderView{
		OrderNumber: "ORD-20260305-001",
		Table:       bus.TableView{Number: 3},
		Total:       "21.45",
	}

	text := formatEvent(bus.Event{Name: bus.EventCompleted, Order: order})
	assert.Equal(t, "✅ Pedido ORD-20260305-001 completado, mesa 3, total 21.45 €", text)

	text = formatEvent(bus.Event{Name: bus.EventCancelled, Order: order})
	assert.Equal(t, "❌ Pedido ORD-20260305-001 cancelado, mesa 3", text)

	// Routine updates stay out of the ops chat.
	assert.Empty(t, formatEvent(bus.Event{Name: bus.EventOrderUpdated, Order: order}))
	assert.Empty(t, formatEvent(bus.Event{Name: bus.EventNewOrder, Order: order}))
}
