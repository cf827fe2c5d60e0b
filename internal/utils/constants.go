package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// BatchForecastTimeout bounds a whole batch of grouped forecasts
const BatchForecastTimeout = 2 * time.Minute

// =============================================================================
// Forecast Constants
// =============================================================================

const (
	// DefaultWorkerCount is the default number of concurrent group forecasts
	DefaultWorkerCount = 4

	// MaxGroupsPerRequest caps how many groups a batch request may forecast
	MaxGroupsPerRequest = 500

	// DefaultMaxUploadSize is the largest accepted CSV body in bytes
	DefaultMaxUploadSize = 32 << 20

	// AccuracyDecimals is the rounding applied to accuracy metrics
	AccuracyDecimals = 2
)

// =============================================================================
// Retry Constants
// =============================================================================

const (
	// DefaultMaxRetries is the default number of retries for failed operations
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the pause between retries
	DefaultRetryBackoff = 100 * time.Millisecond
)

// =============================================================================
// Queue Type Constants
// =============================================================================

// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"
)

// Queue subjects used by the forecast worker
const (
	// SubjectForecastRequests carries compressed forecast jobs
	SubjectForecastRequests = "forecast.requests"

	// SubjectForecastResults carries compressed forecast job results
	SubjectForecastResults = "forecast.results"
)
