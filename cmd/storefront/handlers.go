package main

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/kmaina-dev/storefront-core/internal/cart"
	"github.com/kmaina-dev/storefront-core/internal/checkout"
	"github.com/kmaina-dev/storefront-core/internal/events"
	"github.com/kmaina-dev/storefront-core/internal/httpx"
	"github.com/kmaina-dev/storefront-core/internal/metrics"
	"github.com/kmaina-dev/storefront-core/internal/mpesa"
	"github.com/kmaina-dev/storefront-core/internal/notify"
	"github.com/kmaina-dev/storefront-core/internal/order"
	"github.com/kmaina-dev/storefront-core/internal/wishlist"
)

// sessionHeader is the contract with the authentication slice; auth itself
// is out of scope here.
const sessionHeader = "X-Session-ID"

func sessionID(c *gin.Context) string {
	if sid := c.GetHeader(sessionHeader); sid != "" {
		return sid
	}
	return "anonymous"
}

type deps struct {
	carts    *cart.Manager
	wishes   *wishlist.Manager
	notifier *notify.Bus
	bus      *events.Bus
	orch     *checkout.Orchestrator
	orders   order.Repository
	metrics  *metrics.Checkout
}

func newRouter(d deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/cart", getCartHandler(d.carts))
	r.POST("/cart/items", addCartItemHandler(d.carts))
	r.DELETE("/cart/items/:id", removeCartItemHandler(d.carts))
	r.DELETE("/cart/items/:id/line", deleteCartLineHandler(d.carts))
	r.DELETE("/cart", clearCartHandler(d.carts))

	r.GET("/wishlist", getWishlistHandler(d.wishes))
	r.POST("/wishlist/items", addWishlistItemHandler(d.wishes))
	r.DELETE("/wishlist/items/:id", removeWishlistItemHandler(d.wishes))

	r.GET("/notifications/:channel", getNotificationHandler(d.notifier))
	r.DELETE("/notifications/:channel", dismissNotificationHandler(d.notifier))

	r.POST("/checkout", checkoutHandler(d.orch, d.carts))
	r.POST("/mpesa/callback", mpesaCallbackHandler(d.orders, d.metrics))

	r.GET("/orders", listOrdersHandler(d.orders))
	r.GET("/orders/:id", getOrderHandler(d.orders))
	r.GET("/orders/:id/progress", orderProgressHandler(d.orders))
	r.GET("/orders/:id/invoice", orderInvoiceHandler(d.orders))
	r.PATCH("/orders/:id/status", updateOrderStatusHandler(d.orders, d.metrics))

	r.POST("/session/end", endSessionHandler(d.bus))

	return r
}

// ---- cart ----

type addCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	UnitPrice string `json:"unit_price" binding:"required"`
}

func getCartHandler(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, carts.Get(sessionID(c)).Snapshot())
	}
}

func addCartItemHandler(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		price, err := decimal.NewFromString(req.UnitPrice)
		if err != nil || price.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_price"})
			return
		}
		store := carts.Get(sessionID(c))
		store.AddItem(cart.Product{ID: req.ProductID, Name: req.Name, UnitPrice: price})
		c.JSON(http.StatusCreated, store.Snapshot())
	}
}

func removeCartItemHandler(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		store := carts.Get(sessionID(c))
		store.RemoveOneUnit(c.Param("id"))
		c.JSON(http.StatusOK, store.Snapshot())
	}
}

func deleteCartLineHandler(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		store := carts.Get(sessionID(c))
		store.DeleteItem(c.Param("id"))
		c.JSON(http.StatusOK, store.Snapshot())
	}
}

func clearCartHandler(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		store := carts.Get(sessionID(c))
		store.Clear()
		c.JSON(http.StatusOK, store.Snapshot())
	}
}

// ---- wishlist ----

func getWishlistHandler(wishes *wishlist.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"items": wishes.Get(sessionID(c)).Items()})
	}
}

func addWishlistItemHandler(wishes *wishlist.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		price, err := decimal.NewFromString(req.UnitPrice)
		if err != nil || price.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_price"})
			return
		}
		w := wishes.Get(sessionID(c))
		w.Add(cart.Product{ID: req.ProductID, Name: req.Name, UnitPrice: price})
		c.JSON(http.StatusCreated, gin.H{"items": w.Items()})
	}
}

func removeWishlistItemHandler(wishes *wishlist.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		w := wishes.Get(sessionID(c))
		w.Remove(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"items": w.Items()})
	}
}

// ---- notifications ----

func getNotificationHandler(n *notify.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := n.Current(notify.Channel(c.Param("channel")))
		if !ok {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func dismissNotificationHandler(n *notify.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		n.Dismiss(notify.Channel(c.Param("channel")))
		c.Status(http.StatusNoContent)
	}
}

// ---- checkout ----

type checkoutRequest struct {
	Phone    string                 `json:"phone" binding:"required"`
	Customer order.CustomerSnapshot `json:"customer"`
}

func checkoutHandler(orch *checkout.Orchestrator, carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}

		sid := sessionID(c)
		store := carts.Get(sid)
		rc, err := orch.Checkout(c.Request.Context(), checkout.Request{
			CartID:   sid,
			Customer: req.Customer,
			Phone:    req.Phone,
			Cart:     store.Snapshot(),
		})
		if err != nil {
			writeCheckoutError(c, err)
			return
		}

		// Order confirmed; only now does the caller release the cart.
		store.Clear()
		c.JSON(http.StatusCreated, rc)
	}
}

func writeCheckoutError(c *gin.Context, err error) {
	var (
		gwErr *checkout.GatewayError
		trErr *checkout.TransportError
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidPhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrInvalidCustomer):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &gwErr):
		// The gateway's message goes to the shopper verbatim.
		c.JSON(http.StatusPaymentRequired, gin.H{"error": gwErr.Reason})
	case errors.Is(err, checkout.ErrUnexpectedResponse):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.As(err, &trErr):
		// Indeterminate outcome: do not report a hard failure.
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":  "payment status unknown, contact support",
			"detail": trErr.Detail,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout failed"})
	}
}

// mpesaCallbackHandler is the reconciliation channel: Daraja posts the
// final debit result here once the payer acted on the prompt.
func mpesaCallbackHandler(orders order.Repository, m *metrics.Checkout) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "unreadable body"})
			return
		}
		res, err := mpesa.ParseCallback(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "malformed callback"})
			return
		}

		logger := log.WithFields(log.Fields{
			"checkout_request_id": res.CheckoutRequestID,
			"result_code":         res.ResultCode,
		})

		if !res.Successful() {
			// The push was not completed (cancelled, timed out, wrong PIN).
			// The order stays paid_pending_confirmation for support follow-up.
			logger.WithField("desc", res.ResultDesc).Warn("mpesa payment not completed")
			c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
			return
		}

		id, err := orders.ConfirmPayment(c.Request.Context(), res.CheckoutRequestID, res.Receipt)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				logger.Warn("callback for unknown or already confirmed order")
				c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
				return
			}
			logger.WithError(err).Error("payment confirmation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"ResultCode": 1, "ResultDesc": "internal error"})
			return
		}

		m.ObserveTransition(string(order.StatusPaidPendingConfirmation), string(order.StatusProcessing))
		logger.WithField("order_id", id).Info("payment confirmed")
		c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Payment received successfully"})
	}
}

// ---- orders ----

func getOrderHandler(orders order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := orders.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeOrderError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func listOrdersHandler(orders order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := intQuery(c, "limit", 20)
		offset := intQuery(c, "offset", 0)
		out, err := orders.ListRecent(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
			return
		}
		if out == nil {
			out = []order.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset, "orders": out})
	}
}

func orderProgressHandler(orders order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := orders.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeOrderError(c, err)
			return
		}
		c.JSON(http.StatusOK, order.Progress(*o))
	}
}

func orderInvoiceHandler(orders order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := orders.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeOrderError(c, err)
			return
		}
		c.JSON(http.StatusOK, order.Invoice(*o))
	}
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func updateOrderStatusHandler(orders order.Repository, m *metrics.Checkout) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}

		o, err := orders.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeOrderError(c, err)
			return
		}

		prev := o.Status
		if err := order.SetStatus(o, order.Status(req.Status)); err != nil {
			writeOrderError(c, err)
			return
		}
		if err := orders.UpdateStatus(c.Request.Context(), o.ID, o.Status); err != nil {
			writeOrderError(c, err)
			return
		}

		m.ObserveTransition(string(prev), string(o.Status))
		c.JSON(http.StatusOK, o)
	}
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, order.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// ---- session ----

func endSessionHandler(bus *events.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := sessionID(c)
		bus.Publish(events.SessionEnded{SessionID: sid})
		c.Status(http.StatusNoContent)
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	s := c.Query(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
