// Package devices is the device directory: the record of every sensor key
// pair that asked for a challenge, keyed by its public key and indexed by
// identity-token address and by outstanding claim token.
//
// The directory enforces storage invariants (uniqueness of the identity
// token and the claim token across devices, serialized read-modify-write);
// the registration and claim state machines live in package identity.
package devices
