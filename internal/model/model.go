package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"roast-backend/internal/config"
	"roast-backend/internal/utils"
	"roast-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/sirupsen/logrus"
)

// NewChatModel builds the client for the configured upstream provider.
// Every provider shares one HTTP client carrying the timeout, the
// referer/title metadata and, when enabled, request debugging.
func NewChatModel(ctx context.Context, cfg config.UpstreamConfig) (einoModel.BaseChatModel, error) {
	httpClient := utils.NewHTTPClient(cfg.Timeout)
	httpClient.Transport = NewMetadataTransport(
		NewDebugTransport(httpClient.Transport, cfg.DebugRequest),
		cfg.SiteURL,
		cfg.SiteName,
	)

	switch cfg.Provider {
	case config.ProviderOpenRouter:
		logger.Infof("Using OpenRouter model %s at %s", cfg.Model, cfg.BaseURL)
		return newOpenRouterChatModel(cfg, httpClient), nil
	case config.ProviderQwen:
		return createQwenModel(ctx, cfg, httpClient)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}
}

func createQwenModel(ctx context.Context, cfg config.UpstreamConfig, httpClient *http.Client) (einoModel.BaseChatModel, error) {
	logger.Infof("Using Qwen model %s at %s", cfg.Model, cfg.BaseURL)

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create qwen model: %w", err)
	}
	return chatModel, nil
}

// MetadataTransport stamps the OpenRouter attribution headers on every
// outgoing request. Empty values are not sent.
type MetadataTransport struct {
	base     http.RoundTripper
	siteURL  string
	siteName string
}

func NewMetadataTransport(base http.RoundTripper, siteURL, siteName string) *MetadataTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &MetadataTransport{base: base, siteURL: siteURL, siteName: siteName}
}

func (t *MetadataTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.siteURL == "" && t.siteName == "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	if t.siteURL != "" {
		req.Header.Set("HTTP-Referer", t.siteURL)
	}
	if t.siteName != "" {
		req.Header.Set("X-Title", t.siteName)
	}
	return t.base.RoundTrip(req)
}

// DebugTransport logs outgoing POST requests with credentials redacted.
type DebugTransport struct {
	base         http.RoundTripper
	debugEnabled bool
}

func NewDebugTransport(base http.RoundTripper, debugEnabled bool) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base, debugEnabled: debugEnabled}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.debugEnabled && req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if t.debugEnabled {
		if err != nil {
			logger.Errorf("[upstream debug] request failed: %v", err)
		} else {
			logger.WithFields(logrus.Fields{"status": resp.StatusCode, "url": req.URL.String()}).Debug("[upstream debug] response")
		}
	}
	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	headers := make([]string, 0, len(req.Header))
	for name, values := range req.Header {
		if isSensitiveHeader(name) {
			headers = append(headers, name+": [REDACTED]")
		} else {
			headers = append(headers, name+": "+strings.Join(values, ", "))
		}
	}

	fields := logrus.Fields{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": strings.Join(headers, "; "),
	}

	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			logger.Errorf("[upstream debug] failed to read request body: %v", err)
			return
		}
		// restore the body for the real round trip
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		fields["body_bytes"] = len(bodyBytes)
		fields["body"] = string(bodyBytes)
	}

	logger.WithFields(fields).Debug("[upstream debug] request")
}

func isSensitiveHeader(name string) bool {
	for _, sensitive := range []string{"Authorization", "X-Api-Key", "X-Auth-Token", "Cookie"} {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}
