package shared

import "testing"

func TestNormalizeNetwork(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"", NetworkTestnet},
		{"  ", NetworkTestnet},
		{"MAINNET", NetworkMainnet},
		{" testnet ", NetworkTestnet},
		{"Previewnet", NetworkPreviewnet},
	}
	for _, tc := range cases {
		result, err := NormalizeNetwork(tc.input)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.input, err)
		}
		if result != tc.expected {
			t.Fatalf("expected %q for input %q, got %q", tc.expected, tc.input, result)
		}
	}
}

func TestNormalizeNetworkUnsupported(t *testing.T) {
	_, err := NormalizeNetwork("devnet")
	if !IsCode(err, ErrorCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewHederaClient(t *testing.T) {
	for _, network := range []string{"mainnet", "testnet", "previewnet"} {
		client, err := NewHederaClient(network)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", network, err)
		}
		if client == nil {
			t.Fatalf("expected client for %s", network)
		}
	}
}

func TestNewOperatorClient(t *testing.T) {
	client, accountID, _, err := NewOperatorClient("testnet", "0.0.1234", testPrivateKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil || accountID.String() != "0.0.1234" {
		t.Fatalf("unexpected operator client result: %v", accountID)
	}

	if _, _, _, err := NewOperatorClient("testnet", "", testPrivateKey); err == nil {
		t.Fatal("expected error for missing account ID")
	}
	if _, _, _, err := NewOperatorClient("testnet", "not-an-account", testPrivateKey); err == nil {
		t.Fatal("expected error for invalid account ID")
	}
}

func TestParsePrivateKeyEdge(t *testing.T) {
	if _, err := ParsePrivateKey(""); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := ParsePrivateKey("0xinvalidhex"); err == nil {
		t.Fatal("expected error for invalid hex")
	}
	if _, err := ParsePrivateKey(testPrivateKey); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
