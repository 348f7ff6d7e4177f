package kafka

import "time"

const (
	TopicScanRequest  = "ledger.scan.req"
	TopicBatchRequest = "ledger.batch.req"
	TopicClearRequest = "ledger.clear.req"
	TopicGetRequest   = "ledger.get.req"
	TopicReplyPrefix  = "ledger.reply."
	TopicSnapshot     = "ledger.snapshot"
	TopicNotification = "ledger.notification"
	TopicDLQSuffix    = ".dlq"

	SchemaVersion  = 1
	RequestTimeout = 5 * time.Second

	ErrorHeaderKey = "x-error"
)

// RequestTopics are consumed by the ledger consumer group. Records are keyed
// by user so one user's requests are handled in order by one consumer.
var RequestTopics = []string{
	TopicScanRequest,
	TopicBatchRequest,
	TopicClearRequest,
	TopicGetRequest,
}
