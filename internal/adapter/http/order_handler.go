package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

type OrderHandler struct {
	service interfaces.OrderService
	logger  logger.Logger
}

func NewOrderHandler(service interfaces.OrderService, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

// credentialsBody is embedded by every employee-facing request body.
type credentialsBody struct {
	EmployeeID string `json:"employeeId"`
	Org        string `json:"org"`
	Token      string `json:"token"`
}

func (b credentialsBody) credentials(c *gin.Context) interfaces.Credentials {
	return interfaces.Credentials{
		EmployeeID: strings.TrimSpace(b.EmployeeID),
		OrgCode:    strings.TrimSpace(b.Org),
		Token:      b.Token,
		RequestID:  requestID(c),
	}
}

func queryCredentials(c *gin.Context) interfaces.Credentials {
	return credentialsBody{
		EmployeeID: c.Query("employeeId"),
		Org:        c.Query("org"),
		Token:      c.Query("token"),
	}.credentials(c)
}

type CreateOrderRequest struct {
	credentialsBody
	Date          string   `json:"date"`
	MainID        string   `json:"mainId"`
	SideID        string   `json:"sideId"`
	Extras        []string `json:"extras"`
	ForEmployeeID string   `json:"forEmployeeId"`
	ClientToken   string   `json:"clientToken"`
	PaymentMethod string   `json:"paymentMethod"`
}

type BoxRequest struct {
	MainID      string `json:"mainId"`
	SideID      string `json:"sideId"`
	StandardQty int    `json:"standardQty"`
	UpsizedQty  int    `json:"upsizedQty"`
}

type ExtraRequest struct {
	ItemID string `json:"itemId"`
	Qty    int    `json:"qty"`
}

type ManagerOrderRequest struct {
	credentialsBody
	Date          string         `json:"date"`
	Boxes         []BoxRequest   `json:"boxes"`
	Extras        []ExtraRequest `json:"extras"`
	ClientToken   string         `json:"clientToken"`
	PaymentMethod string         `json:"paymentMethod"`
}

// UpdateOrderRequest accepts either shape: extras is a list of item ids next
// to mainId, or a list of {itemId, qty} next to boxes.
type UpdateOrderRequest struct {
	credentialsBody
	MainID     string          `json:"mainId"`
	SideID     string          `json:"sideId"`
	Boxes      []BoxRequest    `json:"boxes"`
	Extras     json.RawMessage `json:"extras"`
	HardDelete bool            `json:"hardDelete"`
}

type CancelOrderRequest struct {
	credentialsBody
	Reason string `json:"reason"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request body")
		return
	}
	if errs := validateDate(req.Date); len(errs) > 0 {
		respondInvalid(c, "validation failed", errs...)
		return
	}

	res, err := h.service.CreateOrder(c.Request.Context(), interfaces.CreateOrderCommand{
		Credentials:   req.credentials(c),
		ForEmployeeID: strings.TrimSpace(req.ForEmployeeID),
		Date:          req.Date,
		MainID:        strings.TrimSpace(req.MainID),
		SideID:        strings.TrimSpace(req.SideID),
		Extras:        trimAll(req.Extras),
		ClientToken:   req.ClientToken,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondError(c, h.logger, "order_creation_failed", err)
		return
	}
	respondOK(c, createdStatus(res), createResultJSON(res))
}

func (h *OrderHandler) CreateManagerOrder(c *gin.Context) {
	var req ManagerOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request body")
		return
	}
	if errs := validateDate(req.Date); len(errs) > 0 {
		respondInvalid(c, "validation failed", errs...)
		return
	}

	res, err := h.service.CreateManagerOrder(c.Request.Context(), interfaces.ManagerOrderCommand{
		Credentials:   req.credentials(c),
		Date:          req.Date,
		Boxes:         toBoxes(req.Boxes),
		Extras:        toLines(req.Extras),
		ClientToken:   req.ClientToken,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondError(c, h.logger, "manager_order_failed", err)
		return
	}
	respondOK(c, createdStatus(res), createResultJSON(res))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	view, err := h.service.GetOrder(c.Request.Context(), interfaces.GetOrderCommand{
		Credentials:   queryCredentials(c),
		ForEmployeeID: strings.TrimSpace(c.Query("forEmployeeId")),
		Date:          c.Query("date"),
	})
	if err != nil {
		respondError(c, h.logger, "order_lookup_failed", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"order": orderViewJSON(*view)})
}

func (h *OrderHandler) ListOrganizationOrders(c *gin.Context) {
	views, err := h.service.ListOrganizationOrders(c.Request.Context(), interfaces.GetOrderCommand{
		Credentials: queryCredentials(c),
		Date:        c.Query("date"),
	})
	if err != nil {
		respondError(c, h.logger, "org_orders_failed", err)
		return
	}
	out := make([]gin.H, 0, len(views))
	for _, v := range views {
		out = append(out, orderViewJSON(v))
	}
	respondOK(c, http.StatusOK, gin.H{"date": c.Query("date"), "count": len(out), "orders": out})
}

func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request body")
		return
	}

	cmd := interfaces.UpdateOrderCommand{
		Credentials: req.credentials(c),
		OrderID:     c.Param("id"),
		MainID:      strings.TrimSpace(req.MainID),
		SideID:      strings.TrimSpace(req.SideID),
		Boxes:       toBoxes(req.Boxes),
		HardDelete:  req.HardDelete,
	}
	if len(req.Extras) > 0 && string(req.Extras) != "null" {
		var ids []string
		if err := json.Unmarshal(req.Extras, &ids); err == nil {
			cmd.ExtraIDs = trimAll(ids)
		} else {
			var lines []ExtraRequest
			if err := json.Unmarshal(req.Extras, &lines); err != nil {
				respondInvalid(c, "validation failed", ValidationError{
					Field:   "extras",
					Message: "extras must be a list of item ids or of {itemId, qty}",
				})
				return
			}
			cmd.Extras = toLines(lines)
		}
	}

	res, err := h.service.UpdateOrder(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, h.logger, "order_update_failed", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"orderId":             res.OrderID,
		"mealBoxIds":          nonNil(res.MealBoxIDs),
		"orderLineIds":        nonNil(res.OrderLineIDs),
		"deletedMealBoxIds":   nonNil(res.DeletedMealBoxIDs),
		"deletedOrderLineIds": nonNil(res.DeletedOrderLineIDs),
		"window":              windowJSON(res.Window),
		"writes":              res.Report.Writes,
	})
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request body")
		return
	}

	res, err := h.service.CancelOrder(c.Request.Context(), interfaces.CancelOrderCommand{
		Credentials: req.credentials(c),
		OrderID:     c.Param("id"),
		Reason:      strings.TrimSpace(req.Reason),
	})
	if err != nil {
		respondError(c, h.logger, "order_cancel_failed", err)
		return
	}

	body := gin.H{"orderId": res.OrderID, "status": res.Status}
	if res.Refund != nil {
		body["refund"] = gin.H{
			"paymentId": res.Refund.PaymentID,
			"amount":    res.Refund.Amount.String(),
			"succeeded": res.Refund.Succeeded,
			"message":   res.Refund.Message,
		}
	}
	respondOK(c, http.StatusOK, body)
}

func validateDate(date string) []ValidationError {
	date = strings.TrimSpace(date)
	if date == "" {
		return []ValidationError{{Field: "date", Message: "date is required"}}
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return []ValidationError{{Field: "date", Message: "date must be YYYY-MM-DD"}}
	}
	return nil
}

func createdStatus(res *interfaces.CreateOrderResult) int {
	if res.Idempotent || res.Duplicate {
		return http.StatusOK
	}
	return http.StatusCreated
}

func createResultJSON(res *interfaces.CreateOrderResult) gin.H {
	return gin.H{
		"orderId":      res.OrderID,
		"status":       res.Status,
		"idempotent":   res.Idempotent,
		"duplicate":    res.Duplicate,
		"mealBoxIds":   nonNil(res.MealBoxIDs),
		"orderLineIds": nonNil(res.OrderLineIDs),
		"window":       windowJSON(res.Window),
		"writes":       res.Report.Writes,
	}
}

func windowJSON(w domain.Window) gin.H {
	out := gin.H{"allowed": w.Allowed}
	if w.Mode != "" {
		out["mode"] = w.Mode
	}
	if w.Reason != "" {
		out["reason"] = w.Reason
	}
	if !w.Cutoff.IsZero() {
		out["cutoff"] = w.Cutoff.UTC().Format(time.RFC3339)
	}
	if w.PrivilegedCutoff != nil {
		out["privilegedCutoff"] = w.PrivilegedCutoff.UTC().Format(time.RFC3339)
	}
	return out
}

func orderViewJSON(v interfaces.OrderView) gin.H {
	boxes := make([]gin.H, 0, len(v.MealBoxes))
	for _, b := range v.MealBoxes {
		boxes = append(boxes, gin.H{
			"id":          b.ID,
			"mainId":      b.MainDishID,
			"sideId":      b.SideDishID,
			"quantity":    b.Quantity,
			"standardQty": b.StandardQty,
			"upsizedQty":  b.UpsizedQty,
		})
	}
	lines := make([]gin.H, 0, len(v.OrderLines))
	for _, l := range v.OrderLines {
		lines = append(lines, gin.H{"id": l.ID, "itemId": l.ItemID, "qty": l.Quantity})
	}
	o := v.Order
	return gin.H{
		"id":            o.ID,
		"date":          o.DeliveryDate,
		"type":          o.Type,
		"status":        o.Status,
		"employeeId":    o.OwnerID(),
		"paymentMethod": o.PaymentMethod,
		"payableAmount": o.PayableAmount.String(),
		"mealBoxes":     boxes,
		"orderLines":    lines,
	}
}

func toBoxes(in []BoxRequest) []domain.BoxInput {
	out := make([]domain.BoxInput, 0, len(in))
	for _, b := range in {
		out = append(out, domain.BoxInput{
			MainDishID:  strings.TrimSpace(b.MainID),
			SideDishID:  strings.TrimSpace(b.SideID),
			StandardQty: b.StandardQty,
			UpsizedQty:  b.UpsizedQty,
		})
	}
	return out
}

func toLines(in []ExtraRequest) []domain.LineSpec {
	out := make([]domain.LineSpec, 0, len(in))
	for _, l := range in {
		out = append(out, domain.LineSpec{ItemID: strings.TrimSpace(l.ItemID), Quantity: l.Qty})
	}
	return out
}

func trimAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strings.TrimSpace(id))
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
