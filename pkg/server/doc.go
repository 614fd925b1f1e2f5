// Package server exposes device registration, ownership claims, reading
// ingestion, anchoring and proof lookup as a JSON HTTP API.
package server
