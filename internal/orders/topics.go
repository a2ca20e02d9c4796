package orders

const (
	TopicOrderCreated   = "order.created"
	TopicOrderApproved  = "order.approved"
	TopicOrderCancelled = "order.cancelled"
	TopicOrderDeleted   = "order.deleted"
	TopicPackerStatus   = "order.packer_status"
)

// AllTopics urutan topic yg dikonsumsi reconciler.
func AllTopics() []string {
	return []string{TopicOrderCreated, TopicOrderApproved, TopicOrderCancelled, TopicOrderDeleted, TopicPackerStatus}
}

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
