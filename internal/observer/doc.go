// Package observer provides ringbuf.Observer implementations: an in-memory collector, a logrus
// forwarder, a per-kind counter backed by metrics.Count, a Kafka forwarder, and a fan-out.
//
// A Buffer calls its observer synchronously, so every sink here returns promptly and swallows
// its own failures rather than reporting them to the buffer.
package observer
