package extract

import (
	"context"
	"log/slog"
)

// FallbackLLMClient tries a primary completion backend and, when it fails,
// retries the request against a secondary backend. The secondary usually
// speaks a different model family, so the request's model is rewritten with
// fallbackModel before the retry.
type FallbackLLMClient struct {
	primary       LLMClient
	fallback      LLMClient
	fallbackModel string
	logger        *slog.Logger
}

var _ LLMClient = (*FallbackLLMClient)(nil)

// NewFallbackLLMClient pairs a primary client with a fallback. A nil
// fallback leaves the primary's errors untouched.
func NewFallbackLLMClient(primary, fallback LLMClient, fallbackModel string, logger *slog.Logger) *FallbackLLMClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackLLMClient{
		primary:       primary,
		fallback:      fallback,
		fallbackModel: fallbackModel,
		logger:        logger,
	}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if c.fallback == nil {
		return LLMResponse{}, err
	}

	c.logger.Warn("primary completion backend failed, retrying with fallback",
		"error", err.Error(),
		"fallback_model", c.fallbackModel,
	)

	if c.fallbackModel != "" {
		req.Model = c.fallbackModel
	}
	resp, ferr := c.fallback.Complete(ctx, req)
	if ferr != nil {
		c.logger.Error("fallback completion backend failed as well",
			"primary_error", err.Error(),
			"fallback_error", ferr.Error(),
		)
		return LLMResponse{}, ferr
	}
	return resp, nil
}
