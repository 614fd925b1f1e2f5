package shared

import (
	"fmt"
	"strings"
	"time"
)

const (
	LedgerModeHedera = "hedera"
	LedgerModeMemory = "memory"

	DefaultAnchorInterval = 10 * time.Minute
	DefaultConfirmTimeout = 2 * time.Minute
	DefaultProofCacheTTL  = 30 * 24 * time.Hour
	DefaultListenAddr     = ":8080"
	DefaultDataDir        = "./data"
)

type ServiceConfig struct {
	Network            string
	OperatorAccountID  string
	OperatorPrivateKey string
	IdentityTokenID    string
	SupplyKey          string
	AnchorTopicID      string
	MirrorBaseURL      string
	LedgerMode         string
	DataDir            string
	ListenAddr         string
	OperatorSecret     string
	AnchorInterval     time.Duration
	ConfirmTimeout     time.Duration
	ProofCacheTTL      time.Duration
	LogLevel           string
}

// ServiceConfigFromEnv loads the anchor service configuration.
func ServiceConfigFromEnv() (ServiceConfig, error) {
	loadDotEnvIfPresent()

	network, err := NormalizeNetwork(firstNonEmptyEnv("HEDERA_NETWORK", "NETWORK"))
	if err != nil {
		return ServiceConfig{}, err
	}

	config := ServiceConfig{
		Network:         network,
		IdentityTokenID: firstNonEmptyEnv("IDENTITY_TOKEN_ID"),
		SupplyKey:       firstNonEmptyEnv("IDENTITY_SUPPLY_KEY"),
		AnchorTopicID:   firstNonEmptyEnv("ANCHOR_TOPIC_ID"),
		MirrorBaseURL:   firstNonEmptyEnv("MIRROR_BASE_URL"),
		LedgerMode:      strings.ToLower(firstNonEmptyEnv("LEDGER_MODE")),
		DataDir:         firstNonEmptyEnv("DATA_DIR"),
		ListenAddr:      firstNonEmptyEnv("LISTEN_ADDR"),
		OperatorSecret:  firstNonEmptyEnv("ANCHOR_OPERATOR_SECRET", "CRON_SECRET"),
		LogLevel:        firstNonEmptyEnv("LOG_LEVEL"),
	}
	config.OperatorAccountID, config.OperatorPrivateKey = operatorCredentialsFromEnv(network)

	if config.LedgerMode == "" {
		config.LedgerMode = LedgerModeHedera
	}
	if config.DataDir == "" {
		config.DataDir = DefaultDataDir
	}
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultListenAddr
	}

	if config.AnchorInterval, err = durationFromEnv("ANCHOR_INTERVAL", DefaultAnchorInterval); err != nil {
		return ServiceConfig{}, err
	}
	if config.ConfirmTimeout, err = durationFromEnv("ANCHOR_CONFIRM_TIMEOUT", DefaultConfirmTimeout); err != nil {
		return ServiceConfig{}, err
	}
	if config.ProofCacheTTL, err = durationFromEnv("PROOF_CACHE_TTL", DefaultProofCacheTTL); err != nil {
		return ServiceConfig{}, err
	}

	if err := config.Validate(); err != nil {
		return ServiceConfig{}, err
	}

	return config, nil
}

// Validate checks that the settings required by the selected ledger mode
// are present.
func (c ServiceConfig) Validate() error {
	switch c.LedgerMode {
	case LedgerModeMemory:
	case LedgerModeHedera:
		if c.OperatorAccountID == "" {
			return NewConfigurationError("HEDERA_ACCOUNT_ID is required", nil)
		}
		if c.OperatorPrivateKey == "" {
			return NewConfigurationError("HEDERA_PRIVATE_KEY is required", nil)
		}
		if c.IdentityTokenID == "" {
			return NewConfigurationError("IDENTITY_TOKEN_ID is required", nil)
		}
		if c.AnchorTopicID == "" {
			return NewConfigurationError("ANCHOR_TOPIC_ID is required", nil)
		}
	default:
		return NewConfigurationError(fmt.Sprintf("unsupported ledger mode %q", c.LedgerMode), nil)
	}

	if c.OperatorSecret == "" {
		return NewConfigurationError("ANCHOR_OPERATOR_SECRET is required", nil)
	}
	if c.AnchorInterval <= 0 || c.ConfirmTimeout <= 0 || c.ProofCacheTTL <= 0 {
		return NewConfigurationError("durations must be positive", nil)
	}

	return nil
}

func operatorCredentialsFromEnv(network string) (string, string) {
	accountID := firstNonEmptyEnv("HEDERA_ACCOUNT_ID", "HEDERA_OPERATOR_ID", "OPERATOR_ID")
	privateKey := firstNonEmptyEnv("HEDERA_PRIVATE_KEY", "HEDERA_OPERATOR_KEY", "OPERATOR_KEY")

	prefix := strings.ToUpper(network) + "_"
	if scopedAccount := firstNonEmptyEnv(
		prefix+"HEDERA_ACCOUNT_ID",
		prefix+"HEDERA_OPERATOR_ID",
		prefix+"OPERATOR_ID",
	); scopedAccount != "" {
		accountID = scopedAccount
	}
	if scopedKey := firstNonEmptyEnv(
		prefix+"HEDERA_PRIVATE_KEY",
		prefix+"HEDERA_OPERATOR_KEY",
		prefix+"OPERATOR_KEY",
	); scopedKey != "" {
		privateKey = scopedKey
	}

	return accountID, privateKey
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := firstNonEmptyEnv(key)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, NewConfigurationError(fmt.Sprintf("invalid duration in %s", key), err)
	}
	return parsed, nil
}
