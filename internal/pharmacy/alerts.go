package pharmacy

import (
	"fmt"
	"time"
)

// ExpiryWarningWindow is how far ahead the expiry warning looks.
const ExpiryWarningWindow = 30 * 24 * time.Hour

// EvaluateAlerts derives the warnings for a medicine's current state. Out of
// stock wins over low stock; the expiry warning is independent.
func EvaluateAlerts(m *Medicine, now time.Time, horizon time.Duration) []Alert {
	var alerts []Alert

	switch {
	case m.StockOnHand == 0:
		alerts = append(alerts, Alert{
			Kind:       AlertOutOfStock,
			MedicineID: m.ID,
			SKU:        m.SKU,
			Message:    fmt.Sprintf("%s (%s) is out of stock", m.Name, m.SKU),
		})
	case m.StockOnHand <= m.ReorderLevel:
		alerts = append(alerts, Alert{
			Kind:       AlertLowStock,
			MedicineID: m.ID,
			SKU:        m.SKU,
			Message: fmt.Sprintf("%s (%s) is at or below reorder level: %d on hand, reorder at %d",
				m.Name, m.SKU, m.StockOnHand, m.ReorderLevel),
		})
	}

	if m.ExpiryDate != nil && !m.ExpiryDate.After(now.Add(horizon)) {
		days := int(m.ExpiryDate.Sub(now).Hours() / 24)
		msg := fmt.Sprintf("%s (%s) expires in %d days", m.Name, m.SKU, days)
		if days < 0 {
			msg = fmt.Sprintf("%s (%s) expired %d days ago", m.Name, m.SKU, -days)
		}
		alerts = append(alerts, Alert{
			Kind:       AlertExpiryWarning,
			MedicineID: m.ID,
			SKU:        m.SKU,
			Message:    msg,
		})
	}

	return alerts
}
