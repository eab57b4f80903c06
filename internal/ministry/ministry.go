// Package ministry - клиент реестра Министерства промышленности и торговли.
// Сервис используется ровно один раз, при регистрации компании.
package ministry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Verifier проверяет национальный идентификатор компании в реестре.
type Verifier interface {
	VerifyCompany(ctx context.Context, nationalID string) (bool, error)
}

// Client ходит в HTTP API реестра с повторами на сетевых сбоях.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) VerifyCompany(ctx context.Context, nationalID string) (bool, error) {
	var verified bool

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/companies/%s/verification", c.baseURL, nationalID), nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("ministry service returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("ministry service returned %d", resp.StatusCode))
		}

		var body struct {
			Verified bool `json:"verified"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return backoff.Permanent(fmt.Errorf("decode ministry response: %w", err))
		}
		verified = body.Verified
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return false, err
	}
	return verified, nil
}

// MockVerifier - заглушка реестра для локального запуска и тестов.
type MockVerifier struct{}

var mockVerifiedCompanies = map[string]bool{
	"1234567890": true,
	"9876543210": true,
	"5555555555": true,
	"1111111111": true,
	"9999999999": true,
}

func (MockVerifier) VerifyCompany(_ context.Context, nationalID string) (bool, error) {
	return mockVerifiedCompanies[nationalID], nil
}
