// Package history stores the outcome of every scenario run. The primary store is a CSV file that
// is only ever appended to; the same records can also be mirrored to SQLite, Redis, DynamoDB,
// Consul, or NATS JetStream, each of which is configured so that existing records cannot be
// changed or removed through it.
package history
