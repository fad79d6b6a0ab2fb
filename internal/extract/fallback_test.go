package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	resp LLMResponse
	err  error
	got  []LLMRequest
}

func (s *scriptedLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.got = append(s.got, req)
	return s.resp, s.err
}

func TestFallbackClientPrimarySuccessSkipsFallback(t *testing.T) {
	primary := &scriptedLLM{resp: LLMResponse{Text: "ok"}}
	secondary := &scriptedLLM{}
	c := NewFallbackLLMClient(primary, secondary, "anthropic.claude-3-haiku", nil)

	resp, err := c.Complete(context.Background(), LLMRequest{Model: "gemini-2.0-flash"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Empty(t, secondary.got)
}

func TestFallbackClientRewritesModelOnRetry(t *testing.T) {
	primary := &scriptedLLM{err: errors.New("quota exceeded")}
	secondary := &scriptedLLM{resp: LLMResponse{Text: "from fallback"}}
	c := NewFallbackLLMClient(primary, secondary, "anthropic.claude-3-haiku", nil)

	resp, err := c.Complete(context.Background(), LLMRequest{Model: "gemini-2.0-flash"})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Text)
	require.Len(t, secondary.got, 1)
	assert.Equal(t, "anthropic.claude-3-haiku", secondary.got[0].Model)
}

func TestFallbackClientReturnsLastErrorWhenBothFail(t *testing.T) {
	primary := &scriptedLLM{err: errors.New("primary down")}
	secondary := &scriptedLLM{err: errors.New("fallback down")}
	c := NewFallbackLLMClient(primary, secondary, "", nil)

	_, err := c.Complete(context.Background(), LLMRequest{})
	require.Error(t, err)
	assert.EqualError(t, err, "fallback down")
}

func TestFallbackClientWithoutFallbackKeepsPrimaryError(t *testing.T) {
	primary := &scriptedLLM{err: errors.New("primary down")}
	c := NewFallbackLLMClient(primary, nil, "", nil)

	_, err := c.Complete(context.Background(), LLMRequest{})
	assert.EqualError(t, err, "primary down")
}
