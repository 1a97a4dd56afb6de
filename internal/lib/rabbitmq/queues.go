package rabbitmq

// Очереди и ключи маршрутизации уведомлений.
const (
	QueuePaymentReceipt       = "notification.payment_receipt"
	QueueMembershipExpiring   = "notification.membership_expiring"
	RoutingPaymentPaid        = "payment.paid"
	RoutingMembershipExpiring = "membership.expiring"
)

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые читает воркер рассылки.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueuePaymentReceipt, RoutingKey: RoutingPaymentPaid},
		{QueueName: QueueMembershipExpiring, RoutingKey: RoutingMembershipExpiring},
	}
}
