package licensing

import (
	"context"
	"fmt"
	"time"

	resty "github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/infra/config"
	"github.com/kiwitweaks/commerce-api/internal/infra/logger"
)

// KeyAuthClient talks to the KeyAuth seller API. Every call carries an
// explicit timeout and a small bounded retry count.
type KeyAuthClient struct {
	http      *resty.Client
	sellerKey string
	ownerID   string
	log       *zap.Logger
}

type keyAuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Key     string `json:"key"`
	Expiry  string `json:"expiry"`
	HWID    string `json:"hwid"`
}

// NewKeyAuthClient builds the HTTP client against the configured base URL.
func NewKeyAuthClient(cfg config.KeyAuthSettings, log *zap.Logger) *KeyAuthClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)

	return &KeyAuthClient{
		http:      http,
		sellerKey: cfg.SellerKey,
		ownerID:   cfg.OwnerID,
		log:       log,
	}
}

func (c *KeyAuthClient) call(ctx context.Context, params map[string]string) (*keyAuthResponse, error) {
	query := map[string]string{
		"sellerkey": c.sellerKey,
		"ownerid":   c.ownerID,
	}
	for k, v := range params {
		query[k] = v
	}

	var out keyAuthResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(&out).
		Post("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrLicensingUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", port.ErrLicensingUnavailable, resp.StatusCode())
	}

	return &out, nil
}

// RegisterKey records a locally generated key with the provider.
func (c *KeyAuthClient) RegisterKey(ctx context.Context, key string, productID string) error {
	resp, err := c.call(ctx, map[string]string{
		"type":   "addkey",
		"key":    key,
		"level":  levelFor(productID),
		"expiry": expiryFor(productID),
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("keyauth addkey rejected: %s", resp.Message)
	}

	c.log.Info("license key registered",
		zap.String("key", logger.MaskString(key)),
		zap.String("product", productID),
	)
	return nil
}

// VerifyKey validates a key with the provider.
func (c *KeyAuthClient) VerifyKey(ctx context.Context, key string) (*port.LicenseStatus, error) {
	resp, err := c.call(ctx, map[string]string{
		"type": "verify",
		"key":  key,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, port.ErrLicenseInvalid
	}

	return &port.LicenseStatus{
		Key:       key,
		Valid:     true,
		ExpiresAt: resp.Expiry,
		HWID:      resp.HWID,
	}, nil
}

// BindHWID associates a hardware id with a key.
func (c *KeyAuthClient) BindHWID(ctx context.Context, key string, hwid string) error {
	resp, err := c.call(ctx, map[string]string{
		"type": "setnote", // hwid travels as the key note in the seller API
		"key":  key,
		"note": hwid,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("keyauth hwid bind rejected: %s", resp.Message)
	}
	return nil
}

func levelFor(productID string) string {
	if productID == "lifetime" {
		return "2"
	}
	return "1"
}

func expiryFor(productID string) string {
	// Expiry in days; lifetime keys effectively never lapse.
	if productID == "lifetime" {
		return "36500"
	}
	return "365"
}

var _ port.LicenseProvider = (*KeyAuthClient)(nil)
