package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"MesaQR/internal/bus"
	"MesaQR/internal/database"
	"MesaQR/internal/menu"
	"MesaQR/internal/orders"
	"MesaQR/internal/qrcodes"
	"MesaQR/internal/tables"
	"MesaQR/internal/version"
	"MesaQR/pkg/logging"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Handler struct {
	Orders *orders.Service
	Tables *tables.Service
	Menu   *menu.Service
	Qr     *qrcodes.Service
	Bus    *bus.Bus
}

func (h *Handler) Router() *httprouter.Router {
	router := httprouter.New()

	router.GET("/", h.HandlerRoot)

	router.POST("/orders", h.HandlerCreateOrder)
	router.POST("/orders/qr", h.HandlerCreateOrderFromQr)
	router.GET("/orders", h.HandlerListOrders)
	router.GET("/orders/active", h.HandlerActiveOrders)
	router.GET("/orders/today", h.HandlerTodayOrders)
	router.GET("/orders/number/:number", h.HandlerOrderByNumber)
	router.GET("/orders/id/:id", h.HandlerOrder)
	router.PATCH("/orders/id/:id/status", h.HandlerUpdateStatus)
	router.POST("/orders/id/:id/confirm", h.HandlerConfirm)
	router.POST("/orders/id/:id/preparing", h.HandlerStartPreparing)
	router.POST("/orders/id/:id/ready", h.HandlerMarkReady)
	router.POST("/orders/id/:id/delivered", h.HandlerMarkDelivered)
	router.POST("/orders/id/:id/cancel", h.HandlerCancel)

	router.GET("/statistics", h.HandlerStatistics)
	router.GET("/statistics/best-sellers", h.HandlerBestSellers)
	router.GET("/statistics/sales-by-day", h.HandlerSalesByDay)
	router.GET("/statistics/by-source", h.HandlerOrdersBySource)
	router.GET("/statistics/preparation-time", h.HandlerPreparationTime)
	router.GET("/statistics/dashboard", h.HandlerDashboard)

	router.GET("/tables", h.HandlerListTables)
	router.POST("/tables", h.HandlerCreateTable)
	router.GET("/tables/:id", h.HandlerTable)
	router.PATCH("/tables/:id", h.HandlerUpdateTable)
	router.PATCH("/tables/:id/status", h.HandlerSetTableStatus)
	router.GET("/tables/:id/orders", h.HandlerOrdersByTable)
	router.GET("/tables/:id/qr", h.HandlerQrByTable)
	router.POST("/tables/:id/qr", h.HandlerGenerateQr)
	router.DELETE("/tables/:id/qr", h.HandlerDeactivateQr)

	router.GET("/products", h.HandlerListProducts)
	router.POST("/products", h.HandlerCreateProduct)
	router.PATCH("/products/:id", h.HandlerUpdateProduct)
	router.PATCH("/products/:id/availability", h.HandlerSetAvailability)
	router.GET("/categories", h.HandlerListCategories)
	router.POST("/categories", h.HandlerCreateCategory)

	router.POST("/qr/generate-all", h.HandlerGenerateAllQr)
	router.POST("/qr/renew-all", h.HandlerRenewAllQr)
	router.GET("/qr/:code/validate", h.HandlerValidateQr)

	router.GET("/events", h.HandlerEvents)

	return router
}

func (h *Handler) HandlerRoot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	v := version.GetVersion()
	if _, err := fmt.Fprintf(w, "Version %s", v.String()); err != nil {
		logging.GetLogger().Errorf("failed to send response, error: %v", err)
	}
}

// identity extracts the opaque acting identity supplied by the upstream
// authentication layer. The service only records it, never verifies it.
func identity(r *http.Request) *orders.Identity {
	id := r.Header.Get("X-Staff-Id")
	if id == "" {
		return nil
	}
	return &orders.Identity{ID: id, Role: r.Header.Get("X-Staff-Role")}
}

type createOrderRequest struct {
	TableID      string              `json:"tableId"`
	Source       string              `json:"source"`
	Items        []orderItemRequest  `json:"items"`
	Notes        string              `json:"notes"`
	CustomerName string              `json:"customerName"`
}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes"`
}

func toItemRequests(items []orderItemRequest) []orders.ItemRequest {
	out := make([]orders.ItemRequest, 0, len(items))
	for _, item := range items {
		out = append(out, orders.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity, Notes: item.Notes})
	}
	return out
}

func (h *Handler) HandlerCreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := logging.GetLogger()
	logger.Debug("Start HandlerCreateOrder")
	defer logger.Debug("End HandlerCreateOrder")

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, "failed to decode request body"))
		return
	}

	order, err := h.Orders.CreateOrder(orders.CreateRequest{
		TableID:      req.TableID,
		Source:       req.Source,
		Items:        toItemRequests(req.Items),
		Notes:        req.Notes,
		CustomerName: req.CustomerName,
	}, identity(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

type createOrderFromQrRequest struct {
	QrCode       string             `json:"qrCode"`
	Items        []orderItemRequest `json:"items"`
	Notes        string             `json:"notes"`
	CustomerName string             `json:"customerName"`
}

func (h *Handler) HandlerCreateOrderFromQr(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := logging.GetLogger()
	logger.Debug("Start HandlerCreateOrderFromQr")
	defer logger.Debug("End HandlerCreateOrderFromQr")

	var req createOrderFromQrRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, "failed to decode request body"))
		return
	}

	order, err := h.Orders.CreateOrderFromQr(orders.QrCreateRequest{
		QrCode:       req.QrCode,
		Items:        toItemRequests(req.Items),
		Notes:        req.Notes,
		CustomerName: req.CustomerName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) HandlerListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	filters := orders.Filters{
		Status:  query.Get("status"),
		Source:  query.Get("source"),
		TableID: query.Get("tableId"),
	}
	if startRaw, endRaw := query.Get("startDate"), query.Get("endDate"); startRaw != "" && endRaw != "" {
		start, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			writeError(w, errors.Wrapf(err, "invalid startDate %q", startRaw))
			return
		}
		end, err := time.Parse(time.RFC3339, endRaw)
		if err != nil {
			writeError(w, errors.Wrapf(err, "invalid endDate %q", endRaw))
			return
		}
		filters.Start, filters.End = &start, &end
	}

	list, err := h.Orders.FindAll(filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(list))
}

func (h *Handler) HandlerActiveOrders(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	list, err := h.Orders.FindActive()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(list))
}

func (h *Handler) HandlerTodayOrders(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	list, err := h.Orders.FindToday()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(list))
}

func (h *Handler) HandlerOrder(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	order, err := h.Orders.FindOne(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) HandlerOrderByNumber(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	order, err := h.Orders.FindByNumber(ps.ByName("number"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *Handler) HandlerUpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := logging.GetLogger()
	logger.Debug("Start HandlerUpdateStatus")
	defer logger.Debug("End HandlerUpdateStatus")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, "failed to decode request body"))
		return
	}

	order, err := h.Orders.UpdateStatus(ps.ByName("id"), req.Status, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) HandlerConfirm(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	h.writeTransition(w, ps.ByName("id"), h.Orders.Confirm)
}

func (h *Handler) HandlerStartPreparing(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	h.writeTransition(w, ps.ByName("id"), h.Orders.StartPreparing)
}

func (h *Handler) HandlerMarkReady(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	h.writeTransition(w, ps.ByName("id"), h.Orders.MarkReady)
}

func (h *Handler) HandlerMarkDelivered(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	h.writeTransition(w, ps.ByName("id"), h.Orders.MarkDelivered)
}

func (h *Handler) writeTransition(w http.ResponseWriter, id string, fn func(string) (*orders.Order, error)) {
	order, err := fn(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) HandlerCancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req cancelRequest
	if r.Body != nil {
		// Body is optional for cancellations.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	order, err := h.Orders.Cancel(ps.ByName("id"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) HandlerStatistics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var start, end *time.Time
	query := r.URL.Query()
	if startRaw, endRaw := query.Get("startDate"), query.Get("endDate"); startRaw != "" && endRaw != "" {
		s, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			writeError(w, errors.Wrapf(err, "invalid startDate %q", startRaw))
			return
		}
		e, err := time.Parse(time.RFC3339, endRaw)
		if err != nil {
			writeError(w, errors.Wrapf(err, "invalid endDate %q", endRaw))
			return
		}
		start, end = &s, &e
	}

	stats, err := h.Orders.Statistics(start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandlerBestSellers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.Orders.BestSellingProducts(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) HandlerSalesByDay(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	list, err := h.Orders.SalesByDay(days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) HandlerOrdersBySource(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	out, err := h.Orders.OrdersBySource()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandlerPreparationTime(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	out, err := h.Orders.AveragePreparationTime()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandlerDashboard(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	out, err := h.Orders.Dashboard()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandlerListTables(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var list []database.Table
	var err error
	if status := r.URL.Query().Get("status"); status != "" {
		list, err = h.Tables.FindByStatus(status)
	} else {
		list, err = h.Tables.FindAll(r.URL.Query().Get("includeInactive") == "1")
	}
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]tableResponse, 0, len(list))
	for i := range list {
		out = append(out, toTableResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type createTableRequest struct {
	Number   int    `json:"number"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Location string `json:"location"`
}

func (h *Handler) HandlerCreateTable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, "failed to decode request body"))
		return
	}
	table, err := h.Tables.Create(tables.CreateParams{
		Number:   req.Number,
		Name:     req.Name,
		Capacity: req.Capacity,
		Location: req.Location,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

func (h *Handler) HandlerTable(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	table, err := h.Tables.Resolve(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

type updateTableRequest struct {
	Number   *int    `json:"number"`
	Name     *string `json:"name"`
	Capacity *int    `json:"capacity"`
	Location *string `json:"location"`
	IsActive *bool   `json:"isActive"`
}

func (h *Handler) HandlerUpdateTable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req updateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, "failed to decode request body"))
		return
	}
	table, err := h.Tables.Update(ps.ByName("id"), tables.UpdateParams{
		Number:   req.Number,
		Name:     req.Name,
		Capacity: req.Capacity,
		Location: req.Location,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

type tableStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandlerSetTableStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req tableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, "failed to decode request body"))
		return
	}
	table, err := h.Tables.SetStatus(ps.ByName("id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

func (h *Handler) HandlerOrdersByTable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var list []*orders.Order
	var err error
	if r.URL.Query().Get("active") == "1" {
		list, err = h.Orders.FindActiveByTable(ps.ByName("id"))
	} else {
		list, err = h.Orders.FindByTable(ps.ByName("id"))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(list))
}

func (h *Handler) HandlerListProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var list []database.Product
	var err error
	if categoryID := r.URL.Query().Get("categoryId"); categoryID != "" {
		list, err = h.Menu.ProductsByCategory(categoryID)
	} else {
		list, err = h.Menu.Products(r.URL.Query().Get("available") == "1")
	}
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]productResponse, 0, len(list))
	for i := range list {
		out = append(out, toProductResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type productRequest struct {
	CategoryID      string `json:"categoryId"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	PreparationTime int    `json:"preparationTime"`
}

func (h *Handler) HandlerCreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, "failed to decode request body"))
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, errors.Wrapf(err, "invalid price %q", req.Price))
		return
	}
	product, err := h.Menu.CreateProduct(menu.ProductParams{
		CategoryID:      req.CategoryID,
		Name:            req.Name,
		Desc:            req.Description,
		Price:           price,
		PreparationTime: req.PreparationTime,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

type productUpdateRequest struct {
	CategoryID      *string `json:"categoryId"`
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Price           *string `json:"price"`
	PreparationTime *int    `json:"preparationTime"`
}

func (h *Handler) HandlerUpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req productUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, "failed to decode request body"))
		return
	}
	update := menu.ProductUpdate{
		CategoryID:      req.CategoryID,
		Name:            req.Name,
		Desc:            req.Description,
		PreparationTime: req.PreparationTime,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			writeError(w, errors.Wrapf(err, "invalid price %q", *req.Price))
			return
		}
		update.Price = &price
	}
	product, err := h.Menu.UpdateProduct(ps.ByName("id"), update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

type availabilityRequest struct {
	IsAvailable bool `json:"isAvailable"`
}

func (h *Handler) HandlerSetAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, "failed to decode request body"))
		return
	}
	product, err := h.Menu.SetAvailability(ps.ByName("id"), req.IsAvailable)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *Handler) HandlerListCategories(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	list, err := h.Menu.Categories()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) HandlerCreateCategory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, "failed to decode request body"))
		return
	}
	category, err := h.Menu.CreateCategory(req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) toQrResponse(qr *database.QrCode) qrResponse {
	return qrResponse{
		ID:             qr.ID,
		TableID:        qr.TableID,
		Code:           qr.Code,
		URL:            h.Qr.URL(qr.Code),
		ExpirationDate: qr.ExpirationDate,
		IsActive:       qr.IsActive,
	}
}

func (h *Handler) HandlerGenerateQr(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	qr, err := h.Qr.Generate(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toQrResponse(qr))
}

func (h *Handler) HandlerQrByTable(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	qr, err := h.Qr.ByTable(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toQrResponse(qr))
}

func (h *Handler) HandlerDeactivateQr(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	if err := h.Qr.Deactivate(ps.ByName("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandlerGenerateAllQr(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	list, err := h.Qr.GenerateAll()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]qrResponse, 0, len(list))
	for i := range list {
		out = append(out, h.toQrResponse(&list[i]))
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) HandlerRenewAllQr(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	list, err := h.Qr.RenewAll()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]qrResponse, 0, len(list))
	for i := range list {
		out = append(out, h.toQrResponse(&list[i]))
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) HandlerValidateQr(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	qr, err := h.Qr.Validate(ps.ByName("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	table, err := h.Tables.Resolve(qr.TableID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Qr    qrResponse    `json:"qr"`
		Table tableResponse `json:"table"`
	}{h.toQrResponse(qr), toTableResponse(table)})
}

// HandlerEvents bridges the in-process bus onto an SSE stream. Rooms come
// from the query string; delivery stays best-effort, a client that falls
// behind or disconnects simply misses events.
func (h *Handler) HandlerEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := logging.GetLogger()
	logger.Debug("Start HandlerEvents")
	defer logger.Debug("End HandlerEvents")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	var rooms []string
	if raw := r.URL.Query().Get("rooms"); raw != "" {
		rooms = strings.Split(raw, ",")
	}

	sub := h.Bus.Subscribe(32, rooms...)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				logger.Errorf("failed to marshal event, error: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, payload)
			flusher.Flush()
		}
	}
}
