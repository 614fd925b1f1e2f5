// Package mirror reads anchor messages and transactions back from a Hedera
// mirror node, so a proof can be checked against the ledger without trusting
// the service that issued it.
package mirror
