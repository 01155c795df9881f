package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailworker/backend/internal/config"
	"mailworker/backend/internal/domain"
)

// ErrTurnstileNotConfigured 需要人机验证但未配置密钥
var ErrTurnstileNotConfigured = errors.New("turnstile secret key not configured")

// TurnstileVerifier 调用 Cloudflare Turnstile siteverify 校验人机验证令牌
type TurnstileVerifier struct {
	secretKey  string
	verifyURL  string
	httpClient *http.Client
	logger     *zap.Logger
}

type turnstileResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
}

// NewTurnstileVerifier 创建人机验证客户端
func NewTurnstileVerifier(cfg config.TurnstileConfig, logger *zap.Logger) *TurnstileVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TurnstileVerifier{
		secretKey: cfg.SecretKey,
		verifyURL: cfg.VerifyURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Verify 校验令牌。令牌为空或校验未通过返回 domain.ErrBotVerifyFailed，网络错误原样包装返回。
func (v *TurnstileVerifier) Verify(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrBotVerifyFailed
	}
	if v.secretKey == "" {
		return ErrTurnstileNotConfigured
	}

	form := url.Values{}
	form.Set("secret", v.secretKey)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build turnstile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("turnstile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("turnstile returned status %d", resp.StatusCode)
	}

	var result turnstileResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode turnstile response: %w", err)
	}

	if !result.Success {
		v.logger.Info("turnstile verification failed", zap.Strings("error_codes", result.ErrorCodes))
		return domain.ErrBotVerifyFailed
	}
	return nil
}
