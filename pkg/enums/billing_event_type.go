package enums

// BillingEventType names the billing provider webhook events we react to.
type BillingEventType string

const (
	BillingEventOrderCreated        BillingEventType = "order_created"
	BillingEventSubscriptionCreated BillingEventType = "subscription_created"
	BillingEventSubscriptionUpdated BillingEventType = "subscription_updated"
)

// ActivatesSubscription reports whether the event flips a profile to subscriber state.
func (t BillingEventType) ActivatesSubscription() bool {
	switch t {
	case BillingEventOrderCreated, BillingEventSubscriptionCreated, BillingEventSubscriptionUpdated:
		return true
	}
	return false
}
