// Package shared holds the pieces every other package of the device anchoring
// service depends on: network normalization and Hedera client construction,
// service configuration loaded from environment variables or a .env file,
// the error taxonomy shared by the identity and anchoring protocols, and the
// zerolog logger constructor.
//
// # Environment Variables
//
// ServiceConfigFromEnv reads the custody operator credentials
// (HEDERA_ACCOUNT_ID, HEDERA_PRIVATE_KEY, with TESTNET_/MAINNET_ scoped
// overrides), the identity collection (IDENTITY_TOKEN_ID,
// IDENTITY_SUPPLY_KEY), the anchor topic (ANCHOR_TOPIC_ID) and the runtime
// settings of the anchor service. Variables already present in the process
// environment always win over values from .env.
package shared
