package mirror

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
)

type Config struct {
	Network    string
	BaseURL    string
	HTTPClient *http.Client
	APIKey     string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

func NewClient(config Config) (*Client, error) {
	network, err := shared.NormalizeNetwork(config.Network)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		switch network {
		case shared.NetworkMainnet:
			baseURL = "https://mainnet-public.mirrornode.hedera.com"
		case shared.NetworkPreviewnet:
			baseURL = "https://previewnet.mirrornode.hedera.com"
		default:
			baseURL = "https://testnet.mirrornode.hedera.com"
		}
	}
	parsedBaseURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, shared.NewConfigurationError("invalid mirror base URL", err)
	}
	if parsedBaseURL.Scheme != "http" && parsedBaseURL.Scheme != "https" {
		return nil, shared.NewConfigurationError("invalid mirror base URL: scheme must be http or https", nil)
	}
	if strings.TrimSpace(parsedBaseURL.Host) == "" {
		return nil, shared.NewConfigurationError("invalid mirror base URL: host is required", nil)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(parsedBaseURL.String(), "/"),
		httpClient: httpClient,
		apiKey:     strings.TrimSpace(config.APIKey),
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetTopicMessage returns one message by sequence number.
func (c *Client) GetTopicMessage(ctx context.Context, topicID string, sequenceNumber uint64) (TopicMessage, error) {
	var message TopicMessage
	if strings.TrimSpace(topicID) == "" {
		return message, shared.NewValidationError("topic ID is required")
	}
	if sequenceNumber == 0 {
		return message, shared.NewValidationError("sequence number must be positive")
	}

	path := fmt.Sprintf("/api/v1/topics/%s/messages/%d", url.PathEscape(strings.TrimSpace(topicID)), sequenceNumber)
	if err := c.getJSON(ctx, path, &message); err != nil {
		return TopicMessage{}, err
	}
	return message, nil
}

// TopicMessage returns the decoded payload of one message.
func (c *Client) TopicMessage(ctx context.Context, topicID string, sequenceNumber uint64) ([]byte, error) {
	message, err := c.GetTopicMessage(ctx, topicID, sequenceNumber)
	if err != nil {
		return nil, err
	}
	return DecodeMessageData(message)
}

// GetTransaction looks up a transaction by SDK-style ("0.0.1@1.2") or
// mirror-style ("0.0.1-1-2") ID.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (Transaction, error) {
	normalized, err := NormalizeTransactionID(transactionID)
	if err != nil {
		return Transaction{}, err
	}

	var response transactionsResponse
	if err := c.getJSON(ctx, "/api/v1/transactions/"+normalized, &response); err != nil {
		return Transaction{}, err
	}
	if len(response.Transactions) == 0 {
		return Transaction{}, shared.NewNotFoundError(fmt.Sprintf("transaction %s not found", normalized))
	}
	return response.Transactions[0], nil
}

func DecodeMessageData(message TopicMessage) ([]byte, error) {
	if strings.TrimSpace(message.Message) == "" {
		return nil, fmt.Errorf("message payload is empty")
	}
	decoded, err := base64.StdEncoding.DecodeString(message.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to decode topic message: %w", err)
	}
	return decoded, nil
}

// NormalizeTransactionID converts "<account>@<seconds>.<nanos>" to the
// mirror node's "<account>-<seconds>-<nanos>" form.
func NormalizeTransactionID(transactionID string) (string, error) {
	trimmed := strings.TrimSpace(transactionID)
	if trimmed == "" {
		return "", shared.NewValidationError("transaction ID is required")
	}
	account, validStart, ok := strings.Cut(trimmed, "@")
	if !ok {
		return trimmed, nil
	}
	seconds, nanos, ok := strings.Cut(validStart, ".")
	if !ok || account == "" || seconds == "" || nanos == "" {
		return "", shared.NewValidationError(fmt.Sprintf("malformed transaction ID %q", transactionID))
	}
	return fmt.Sprintf("%s-%s-%s", account, seconds, nanos), nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		request.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return shared.NewTransientError("mirror node request failed", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return shared.NewTransientError("failed to read mirror node response", err)
	}

	switch {
	case response.StatusCode == http.StatusNotFound:
		return shared.NewNotFoundError(fmt.Sprintf("mirror node has no record at %s", path))
	case response.StatusCode >= 500:
		return shared.NewTransientError(
			fmt.Sprintf("mirror node request failed with status %d", response.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(body))),
		)
	case response.StatusCode < 200 || response.StatusCode >= 300:
		return fmt.Errorf(
			"mirror node request failed with status %d: %s",
			response.StatusCode,
			strings.TrimSpace(string(body)),
		)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode mirror node response: %w", err)
	}

	return nil
}
