// Package identity implements device registration and the ownership claim
// handoff.
//
// Registration is challenge-response: the service issues a random nonce, the
// device signs SHA-256 of it with its secp256k1 key, and the first successful
// verification mints an identity token into custody together with a single
// use claim token. Later verifications only re-authenticate.
//
// Claiming transfers the identity token from custody to the owner wallet and
// burns the claim token. Revocation is authorized by a device signature over
// "revoke:<identityTokenAddress>" and blocks re-authentication, claim and
// reading submission from then on.
//
// All mutations of one device are serialized, so a replayed challenge or a
// concurrent claim can never mint or transfer twice.
package identity
