// Package cachestore is the expiring hot cache in front of the durable proof
// store. Each Cache owns its own map and eviction loop; there is no package
// level instance.
package cachestore
