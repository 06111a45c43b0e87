package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/example/zinco/internal/apperrors"
	"github.com/example/zinco/internal/config"
	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/phone"
)

const (
	otpRequestPath = "otp/request"
	otpVerifyPath  = "otp/verify"
	smsSendPath    = "SMSWebService"

	statusSuccess = "success"

	defaultVerifyError = "Invalid OTP code"
	defaultSendError   = "Failed to send SMS"
)

// OTPService wraps the SMS/OTP provider HTTP API. It is stateless and
// never retries.
type OTPService struct {
	cfg    config.OTP
	client *http.Client
	log    *logger.Logger
}

// NewOTPService creates an OTPService.
func NewOTPService(cfg config.OTP, log *logger.Logger) *OTPService {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OTPService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// OTPRequest asks the provider to send a one-time code to To.
type OTPRequest struct {
	To      string
	Lang    string
	Sender  string
	HideRef bool
}

// OTPResult is a successful OTP request.
type OTPResult struct {
	Status  string `json:"status"`
	Token   string `json:"token"`
	Ref     string `json:"ref,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// VerifyRequest checks Pin against the continuation Token.
type VerifyRequest struct {
	Token string
	Pin   string
}

// VerifyResult is a successful verification.
type VerifyResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// SMSRequest is a free-text SMS.
type SMSRequest struct {
	To      string
	Message string
	Sender  string
}

// RequestOTP sends an OTP to req.To.
func (s *OTPService) RequestOTP(ctx context.Context, req OTPRequest) (*OTPResult, error) {
	to, err := phone.Normalize(req.To)
	if err != nil {
		return nil, err
	}

	showRef := "1"
	if req.HideRef {
		showRef = "0"
	}

	resp, err := s.post(ctx, otpRequestPath, map[string]string{
		"secretKey": s.cfg.SecretKey,
		"apiKey":    s.cfg.APIKey,
		"to":        to,
		"sender":    firstNonEmpty(req.Sender, s.cfg.SenderName),
		"lang":      firstNonEmpty(req.Lang, s.cfg.Lang, "th"),
		"isShowRef": showRef,
	})
	if err != nil {
		return nil, err
	}

	out := interpretResponse(resp)
	if !out.ok {
		s.log.Info("otp request rejected", "phone", to, "code", out.code, "message", out.message)
		return nil, apperrors.NewProviderError(out.message, out.code, "API Error: "+out.code)
	}

	token, ref := resp.payload()
	return &OTPResult{
		Status:  statusSuccess,
		Token:   token,
		Ref:     ref,
		Message: out.message,
		Code:    out.code,
	}, nil
}

// RequestOTPForPhone is RequestOTP for a bare phone number.
func (s *OTPService) RequestOTPForPhone(ctx context.Context, phoneNumber string) (*OTPResult, error) {
	return s.RequestOTP(ctx, OTPRequest{To: phoneNumber})
}

// VerifyOTP checks a code against the provider.
func (s *OTPService) VerifyOTP(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if req.Token == "" || req.Pin == "" {
		return nil, apperrors.Wrap(apperrors.ErrMissingInput, "OTP code and token are required")
	}

	resp, err := s.post(ctx, otpVerifyPath, map[string]string{
		"secretKey": s.cfg.SecretKey,
		"apiKey":    s.cfg.APIKey,
		"token":     req.Token,
		"pin":       req.Pin,
	})
	if err != nil {
		return nil, err
	}

	out := interpretResponse(resp)
	if !out.ok {
		return nil, apperrors.NewProviderError(out.message, out.code, defaultVerifyError)
	}

	return &VerifyResult{Status: statusSuccess, Message: out.message, Code: out.code}, nil
}

// VerifyOTPCode is VerifyOTP in positional form; phone, code and token
// are all required.
func (s *OTPService) VerifyOTPCode(ctx context.Context, phoneNumber, code, token string) (*VerifyResult, error) {
	if phoneNumber == "" || code == "" || token == "" {
		return nil, apperrors.Wrap(apperrors.ErrMissingInput, "phone, OTP code and token are required")
	}
	return s.VerifyOTP(ctx, VerifyRequest{Token: token, Pin: code})
}

// SendSMS delivers a free-text message.
func (s *OTPService) SendSMS(ctx context.Context, req SMSRequest) error {
	to, err := phone.Normalize(req.To)
	if err != nil {
		return err
	}

	resp, err := s.post(ctx, smsSendPath, map[string]string{
		"secretKey": s.cfg.SecretKey,
		"apiKey":    s.cfg.APIKey,
		"to":        to,
		"sender":    firstNonEmpty(req.Sender, s.cfg.SenderName),
		"msg":       req.Message,
	})
	if err != nil {
		return err
	}

	if out := interpretResponse(resp); !out.ok {
		return apperrors.NewProviderError(out.message, out.code, defaultSendError)
	}
	return nil
}

func (s *OTPService) post(ctx context.Context, path string, body map[string]string) (*providerResponse, error) {
	url := s.cfg.BaseURL + "/" + path

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("otp request marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("otp request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrNetwork, "post %s: %v", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrNetwork, "read %s: %v", path, err)
	}

	var decoded providerResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrNetwork, "decode %s (status %d): %v", path, resp.StatusCode, err)
	}

	s.log.Debug("otp provider response", "path", path, "http_status", resp.StatusCode,
		"status", string(decoded.Status), "code", string(decoded.Code))
	return &decoded, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
