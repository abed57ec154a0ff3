package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qs3c/aipara_account_server/config"
)

var ErrMissingToken = errors.New("identity: empty token in response")

// HTTPProvider 通过 REST 接口调用托管身份服务
type HTTPProvider struct {
	baseURL  string
	clientID string
	client   *http.Client
}

func NewHTTPProvider(cfg *config.IdentityConfig) *HTTPProvider {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		clientID: cfg.ClientID,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) RequestVerification(ctx context.Context, target Target) (*Verification, error) {
	body := map[string]string{"target": "ANY"}
	if target.Email != "" {
		body["email"] = target.Email
	} else {
		body["phone_number"] = target.Phone
	}

	var out Verification
	if err := p.do(ctx, http.MethodPost, "/auth/v1/verification", "", body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, ErrMissingToken
	}
	return &out, nil
}

func (p *HTTPProvider) ExchangeVerification(ctx context.Context, verificationID, code string) (string, error) {
	var out struct {
		Token string `json:"verification_token"`
	}
	body := map[string]string{
		"verification_id":   verificationID,
		"verification_code": strings.TrimSpace(code),
	}
	if err := p.do(ctx, http.MethodPost, "/auth/v1/verification/verify", "", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", ErrMissingToken
	}
	return out.Token, nil
}

func (p *HTTPProvider) Elevate(ctx context.Context, accessToken string, cred Credential) (string, error) {
	var out struct {
		Token string `json:"sudo_token"`
	}
	if err := p.do(ctx, http.MethodPost, "/auth/v1/user/sudo", accessToken, cred, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", ErrMissingToken
	}
	return out.Token, nil
}

func (p *HTTPProvider) SetPassword(ctx context.Context, accessToken, sudoToken, newPassword string) error {
	body := map[string]string{
		"sudo_token":   sudoToken,
		"new_password": newPassword,
	}
	return p.do(ctx, http.MethodPatch, "/auth/v1/user/password", accessToken, body, nil)
}

func (p *HTTPProvider) BindEmail(ctx context.Context, accessToken, sudoToken, email, verificationToken string) error {
	body := map[string]string{
		"email":              email,
		"sudo_token":         sudoToken,
		"verification_token": verificationToken,
	}
	return p.do(ctx, http.MethodPatch, "/auth/v1/user/email", accessToken, body, nil)
}

func (p *HTTPProvider) BindPhone(ctx context.Context, accessToken, sudoToken, phone, verificationToken string) error {
	body := map[string]string{
		"phone_number":        phone,
		"sudo_token":          sudoToken,
		"verification_token":  verificationToken,
		"conflict_resolution": "DEFAULT",
	}
	return p.do(ctx, http.MethodPatch, "/auth/v1/user/phone", accessToken, body, nil)
}

func (p *HTTPProvider) do(ctx context.Context, method, path, accessToken string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.clientID != "" {
		req.Header.Set("X-Client-Id", p.clientID)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
