// Package notify delivers customer and operator notifications for payment
// events. Delivery channels (SMTP mail, webhook) are switched on through
// system settings so a fresh install runs silent.
package notify

import (
	"fmt"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/elbrussoft/webstore/internal/commerce"
	"github.com/guonaihong/gout"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/gomail.v2"
)

const notifyWorkers = 8

// SettingsSource supplies runtime settings. Declared here so the package
// does not depend on the application container.
type SettingsSource interface {
	GetSettingsStringValue(category, key string) string
	GetSettingsInt64Value(category, key string) int64
	GetSettingsBoolValue(category, key string) bool
}

// Notifier listens on the event bus and fans deliveries out to a bounded
// worker pool so slow SMTP servers never block a checkout.
type Notifier struct {
	settings SettingsSource
	bus      EventBus.Bus
	pool     *ants.Pool
}

func NewNotifier(settings SettingsSource, bus EventBus.Bus) *Notifier {
	pool, err := ants.NewPool(notifyWorkers)
	if err != nil {
		zap.S().Errorf("notify pool init error %s", err.Error())
	}
	return &Notifier{
		settings: settings,
		bus:      bus,
		pool:     pool,
	}
}

// Start subscribes the notifier to the payment topics.
func (n *Notifier) Start() {
	if n.bus == nil {
		return
	}
	subscribe := func(topic string, fn interface{}) {
		if err := n.bus.Subscribe(topic, fn); err != nil {
			zap.L().Error("notify subscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}
	subscribe(commerce.EventPaymentCompleted, n.onPaymentCompleted)
	subscribe(commerce.EventPaymentCancelled, n.onPaymentCancelled)
	subscribe(commerce.EventPaymentFailed, n.onPaymentFailed)
}

// Stop detaches from the bus and drains the worker pool.
func (n *Notifier) Stop() {
	if n.bus != nil {
		_ = n.bus.Unsubscribe(commerce.EventPaymentCompleted, n.onPaymentCompleted)
		_ = n.bus.Unsubscribe(commerce.EventPaymentCancelled, n.onPaymentCancelled)
		_ = n.bus.Unsubscribe(commerce.EventPaymentFailed, n.onPaymentFailed)
	}
	if n.pool != nil {
		n.pool.Release()
	}
}

func (n *Notifier) submit(task func()) {
	if n.pool == nil {
		task()
		return
	}
	if err := n.pool.Submit(task); err != nil {
		task()
	}
}

func (n *Notifier) onPaymentCompleted(evt commerce.OrderEvent) {
	subject := fmt.Sprintf("Order %s confirmed", evt.OrderNumber)
	body := fmt.Sprintf(
		"<p>Thank you for your purchase.</p>"+
			"<p>Order <b>%s</b> for <b>%s</b> is confirmed.</p>"+
			"<p>Amount charged: <b>%s</b><br>Transaction: %s</p>",
		evt.OrderNumber, evt.ProductName, n.formatAmount(evt.Amount, evt.Currency), evt.TransactionID)
	n.deliver(commerce.EventPaymentCompleted, evt, subject, body)
}

func (n *Notifier) onPaymentCancelled(evt commerce.OrderEvent) {
	subject := fmt.Sprintf("Order %s cancelled", evt.OrderNumber)
	body := fmt.Sprintf(
		"<p>Your payment was cancelled and order <b>%s</b> has been closed.</p>"+
			"<p>No charge was made. Reserved stock has been released.</p>",
		evt.OrderNumber)
	n.deliver(commerce.EventPaymentCancelled, evt, subject, body)
}

func (n *Notifier) onPaymentFailed(evt commerce.OrderEvent) {
	subject := fmt.Sprintf("Payment for order %s failed", evt.OrderNumber)
	body := fmt.Sprintf(
		"<p>The payment for order <b>%s</b> could not be completed.</p>"+
			"<p>You can retry the checkout at any time.</p>",
		evt.OrderNumber)
	n.deliver(commerce.EventPaymentFailed, evt, subject, body)
}

// deliver fans a payment event out to every enabled channel.
func (n *Notifier) deliver(topic string, evt commerce.OrderEvent, subject, body string) {
	if n.settings.GetSettingsBoolValue("notify", "email_enabled") && evt.CustomerEmail != "" {
		to := evt.CustomerEmail
		n.submit(func() {
			if err := n.sendMail(to, subject, body); err != nil {
				zap.L().Error("notification mail failed",
					zap.String("topic", topic),
					zap.String("to", to),
					zap.Error(err))
			}
		})
	}

	if n.settings.GetSettingsBoolValue("notify", "webhook_enabled") {
		n.submit(func() {
			if err := n.postWebhook(topic, evt); err != nil {
				zap.L().Error("notification webhook failed",
					zap.String("topic", topic),
					zap.Error(err))
			}
		})
	}
}

func (n *Notifier) sendMail(to, subject, body string) error {
	host := n.settings.GetSettingsStringValue("notify", "smtp_host")
	if host == "" {
		return errors.New("smtp host not configured")
	}
	port := int(n.settings.GetSettingsInt64Value("notify", "smtp_port"))
	if port == 0 {
		port = 25
	}
	username := n.settings.GetSettingsStringValue("notify", "smtp_username")
	password := n.settings.GetSettingsStringValue("notify", "smtp_password")
	from := n.settings.GetSettingsStringValue("notify", "smtp_from")
	if from == "" {
		from = username
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	dialer := gomail.NewDialer(host, port, username, password)
	if err := dialer.DialAndSend(m); err != nil {
		return errors.Wrap(err, "send mail")
	}
	return nil
}

func (n *Notifier) postWebhook(topic string, evt commerce.OrderEvent) error {
	url := n.settings.GetSettingsStringValue("notify", "webhook_url")
	if url == "" {
		return errors.New("webhook url not configured")
	}

	var code int
	err := gout.POST(url).
		SetJSON(gout.H{
			"event":          topic,
			"order_id":       evt.OrderID,
			"order_number":   evt.OrderNumber,
			"product_name":   evt.ProductName,
			"payment_id":     evt.PaymentID,
			"transaction_id": evt.TransactionID,
			"amount":         evt.Amount.StringFixed(2),
			"currency":       evt.Currency,
			"occurred_at":    evt.OccurredAt.Format(time.RFC3339),
		}).
		SetTimeout(10 * time.Second).
		Code(&code).
		Do()
	if err != nil {
		return errors.Wrap(err, "post webhook")
	}
	if code >= 300 {
		return errors.Errorf("webhook returned status %d", code)
	}
	return nil
}

// SendDailySalesReport mails the previous day's sales summary to the
// configured recipient. Called synchronously by the scheduler so the run
// outcome can be recorded.
func (n *Notifier) SendDailySalesReport(to string, report commerce.DailySalesReport) error {
	subject := fmt.Sprintf("Daily sales report %s", report.Date)
	body := fmt.Sprintf(
		"<h3>Sales report for %s</h3>"+
			"<table border=\"1\" cellpadding=\"4\">"+
			"<tr><td>Orders placed</td><td>%d</td></tr>"+
			"<tr><td>Payments completed</td><td>%d</td></tr>"+
			"<tr><td>Revenue</td><td>%s</td></tr>"+
			"</table>",
		report.Date, report.Orders, report.Completed, report.Revenue)
	return n.sendMail(to, subject, body)
}

// formatAmount renders a money value with the currency symbol for the
// configured locale, falling back to a plain "12.34 USD" form.
func (n *Notifier) formatAmount(amount decimal.Decimal, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return amount.StringFixed(2) + " " + code
	}
	locale := n.settings.GetSettingsStringValue("notify", "locale")
	if locale == "" {
		locale = "en"
	}
	printer := message.NewPrinter(language.Make(locale))
	return printer.Sprintf("%v", currency.Symbol(unit.Amount(amount.InexactFloat64())))
}
