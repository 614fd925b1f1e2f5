// Package readings accepts signed sensor readings into the pending anchor
// queue.
//
// A device signs SHA-256 of the canonical JSON of its payload (object keys
// sorted, no whitespace). When the payload carries a numeric "timestamp" it
// must be strictly greater than the last accepted one for that device.
package readings
