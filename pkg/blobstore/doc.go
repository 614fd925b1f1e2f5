// Package blobstore is the durable, non-expiring object store. Objects are
// addressed by path, kept brotli-compressed in the blob pool of the shared
// database, and located by blob:// URLs.
package blobstore
