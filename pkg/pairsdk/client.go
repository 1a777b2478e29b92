package pairsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the SlideTab pairing service. The zero value is not
// usable; create one with NewClient.
//
// Unauthenticated calls (Register, Exchange) carry no credential.
// Authenticated calls take the bearer explicitly: Link wants the user's
// identity-provider credential, the token-lifecycle calls want the
// device token.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a pairing service client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// doJSON performs a request with an optional JSON body and optional
// bearer, decoding a 2xx response into target. Non-2xx responses come
// back as *PairingError.
func (c *Client) doJSON(
	ctx context.Context,
	method, path, bearer string,
	reqBody, target any,
	expectedStatus int,
) error {
	var body io.Reader
	if reqBody != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(reqBody); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Register starts a pairing attempt and returns the code the user must
// approve. deviceID is empty on first pairing; pass the previously
// minted ID when re-pairing an existing device.
func (c *Client) Register(ctx context.Context, deviceID, deviceName string) (*RegisterResponse, error) {
	var out RegisterResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/pairing/register", "",
		RegisterRequest{DeviceID: deviceID, DeviceName: deviceName}, &out, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Link approves a pairing code on behalf of the user whose identity
// provider credential is given as the bearer.
func (c *Client) Link(ctx context.Context, userCredential, code string) (*LinkResponse, error) {
	var out LinkResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/pairing/link", userCredential,
		LinkRequest{Code: code}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Exchange redeems an approved code for a device token. Returns
// ErrNotReady (check with IsNotReady) while the code awaits approval.
func (c *Client) Exchange(ctx context.Context, deviceID, code string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/pairing/exchange", "",
		ExchangeRequest{DeviceID: deviceID, Code: code}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates the device token. The old token is revoked the moment
// the new one is issued.
func (c *Client) Refresh(ctx context.Context, deviceToken string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/tokens/refresh", deviceToken,
		nil, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Unlink revokes every token for the device. Recovery requires a fresh
// pairing ceremony.
func (c *Client) Unlink(ctx context.Context, deviceToken string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/pairing/unlink", deviceToken,
		nil, nil, http.StatusNoContent)
}

// Device fetches the authenticated device view.
func (c *Client) Device(ctx context.Context, deviceToken string) (*DeviceResponse, error) {
	var out DeviceResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/device", deviceToken,
		nil, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
