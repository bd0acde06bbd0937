package storeapi

import (
	"net/http"
	"strings"

	"github.com/elbrussoft/webstore/internal/commerce"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	sessionName          = "session"
	sessionPendingPayKey = "pending_payment_id"
	sessionPendingOrdKey = "pending_order_id"
)

// checkoutRequest is the flat form a buyer submits. JSON clients send the
// same keys.
type checkoutRequest struct {
	ProductID    int64  `json:"product_id" form:"product_id" validate:"required"`
	Email        string `json:"email" form:"email" validate:"required,email,max=120"`
	FirstName    string `json:"first_name" form:"first_name" validate:"required,max=50"`
	LastName     string `json:"last_name" form:"last_name" validate:"required,max=50"`
	Phone        string `json:"phone" form:"phone" validate:"omitempty,max=20"`
	AddressLine1 string `json:"address_line1" form:"address_line1" validate:"required,max=120"`
	AddressLine2 string `json:"address_line2" form:"address_line2" validate:"omitempty,max=120"`
	City         string `json:"city" form:"city" validate:"required,max=50"`
	State        string `json:"state" form:"state" validate:"omitempty,max=50"`
	PostalCode   string `json:"postal_code" form:"postal_code" validate:"required,max=20"`
	Country      string `json:"country" form:"country" validate:"required,max=50"`
}

func registerCheckoutRoutes() {
	webserver.StorePOST("/checkout", checkout)
	webserver.StoreGET("/checkout/pending", pendingCheckout)
	webserver.StoreGET("/payment/return", paymentReturn)
	webserver.StoreGET("/payment/cancel", paymentCancel)
}

// checkout runs the purchase and parks the provider handles in the buyer
// session so the return leg can find them again.
func checkout(c echo.Context) error {
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse checkout request", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return handleValidationError(c, err)
	}

	receipt, err := GetAppContext(c).Checkout().Purchase(c.Request().Context(), commerce.PurchaseInput{
		ProductID: req.ProductID,
		Customer: commerce.CustomerInput{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
		},
		Shipping: commerce.ShippingInput{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			AddressLine1: req.AddressLine1,
			AddressLine2: req.AddressLine2,
			City:         req.City,
			State:        req.State,
			PostalCode:   req.PostalCode,
			Country:      req.Country,
		},
	})
	if err != nil {
		return commerceFail(c, err)
	}

	if err := storePendingCheckout(c, receipt); err != nil {
		zap.L().Error("save checkout session failed", zap.Error(err))
	}

	return ok(c, receipt)
}

func storePendingCheckout(c echo.Context, receipt *commerce.CheckoutReceipt) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
	}
	sess.Values[sessionPendingPayKey] = receipt.PaymentID
	sess.Values[sessionPendingOrdKey] = receipt.OrderID
	return sess.Save(c.Request(), c.Response())
}

func clearPendingCheckout(c echo.Context) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return
	}
	delete(sess.Values, sessionPendingPayKey)
	delete(sess.Values, sessionPendingOrdKey)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		zap.L().Error("clear checkout session failed", zap.Error(err))
	}
}

// paymentReturn is the provider redirect target after the buyer approves.
// The sandbox flow has no real payer, so a missing PayerID is synthesized
// from the payment handle the way the demo provider does.
func paymentReturn(c echo.Context) error {
	paymentID := strings.TrimSpace(c.QueryParam("paymentId"))
	payerID := strings.TrimSpace(c.QueryParam("PayerID"))
	if payerID == "" && len(paymentID) >= 8 {
		payerID = "PAYER" + paymentID[len(paymentID)-8:]
	}

	payment, err := GetAppContext(c).Payments().Complete(c.Request().Context(), paymentID, payerID)
	if err != nil {
		return commerceFail(c, err)
	}

	clearPendingCheckout(c)
	return ok(c, payment)
}

// paymentCancel is the provider redirect target when the buyer backs out.
func paymentCancel(c echo.Context) error {
	paymentID := strings.TrimSpace(c.QueryParam("paymentId"))

	payment, err := GetAppContext(c).Payments().Cancel(c.Request().Context(), paymentID)
	if err != nil {
		return commerceFail(c, err)
	}

	clearPendingCheckout(c)
	return ok(c, payment)
}

// pendingCheckout reports the in-flight purchase parked in the session, if
// any, so a returning buyer can resume or abandon it.
func pendingCheckout(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ok(c, map[string]interface{}{"pending": false})
	}

	paymentID, _ := sess.Values[sessionPendingPayKey].(string)
	orderID, _ := sess.Values[sessionPendingOrdKey].(int64)
	if paymentID == "" {
		return ok(c, map[string]interface{}{"pending": false})
	}

	ctx := c.Request().Context()
	appCtx := GetAppContext(c)

	payment, err := appCtx.Payments().GetByProviderID(ctx, paymentID)
	if err != nil {
		// Stale session pointing at a purged payment
		clearPendingCheckout(c)
		return ok(c, map[string]interface{}{"pending": false})
	}

	result := map[string]interface{}{
		"pending":        true,
		"payment_id":     payment.ProviderPaymentID,
		"payment_status": payment.Status,
	}
	if order, err := appCtx.Orders().GetByID(ctx, orderID); err == nil {
		result["order_id"] = order.ID
		result["order_number"] = order.OrderNumber
		result["order_status"] = order.Status
	}
	return ok(c, result)
}
