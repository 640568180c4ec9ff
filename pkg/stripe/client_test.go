package stripe

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/packfinderz-settlement/pkg/config"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
)

func TestCheckKey(t *testing.T) {
	cases := []struct {
		name    string
		env     string
		key     string
		wantErr bool
	}{
		{name: "test secret key", env: EnvTest, key: "sk_test_123"},
		{name: "live restricted key", env: EnvLive, key: "rk_live_123"},
		{name: "missing key", env: EnvTest, wantErr: true},
		{name: "live key in test", env: EnvTest, key: "sk_live_123", wantErr: true},
		{name: "publishable key", env: EnvTest, key: "pk_test_123", wantErr: true},
		{name: "unknown env", env: "staging", key: "sk_test_123", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkKey(tc.env, tc.key)
			if tc.wantErr != (err != nil) {
				t.Fatalf("checkKey(%q, %q) err=%v, wantErr=%v", tc.env, tc.key, err, tc.wantErr)
			}
		})
	}
}

func TestNewClientInstallsKey(t *testing.T) {
	previous := stripe.Key
	t.Cleanup(func() { stripe.Key = previous })

	client, err := NewClient(context.Background(), config.StripeConfig{
		APIKey:            " rk_live_abc ",
		Env:               "LIVE",
		MaxNetworkRetries: 1,
		Timeout:           5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if !client.Live() || client.Environment() != EnvLive {
		t.Fatalf("expected live environment, got %q", client.Environment())
	}
	if stripe.Key != "rk_live_abc" {
		t.Fatalf("expected trimmed key installed, got %q", stripe.Key)
	}

	if _, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_live_abc", Env: "test"}, nil); err == nil {
		t.Fatal("expected mismatched key to fail")
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if c.Environment() != "" || c.Live() {
		t.Fatal("expected zero values from nil client")
	}
}

func TestLeveledLoggerDemotesInfo(t *testing.T) {
	var buf bytes.Buffer
	l := &leveledLogger{logg: logger.New(logger.Options{ServiceName: "test", Output: &buf})}

	l.Infof("Request completed with status %d", 200)
	if buf.Len() != 0 {
		t.Fatalf("info should be logged at debug, got %s", buf.String())
	}
	l.Warnf("retrying after %s", "connection reset")
	if !strings.Contains(buf.String(), "stripe: retrying after connection reset") {
		t.Fatalf("expected warn forwarded, got %s", buf.String())
	}
}
