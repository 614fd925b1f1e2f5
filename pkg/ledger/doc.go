// Package ledger is the narrow ledger surface the pipeline needs: minting an
// identity token into custody, transferring it to an owner, and submitting an
// anchor memo with confirmation.
//
// HederaClient implements it with hedera-sdk-go. Identity tokens are NFT
// serials of one pre-created collection; a token address is the NFT ID
// string "<serial>@<tokenID>". Anchors are consensus topic messages, and the
// transaction signature reported upward is the Hedera transaction ID.
//
// MemoryClient keeps the same contract in process for local runs and tests.
package ledger
