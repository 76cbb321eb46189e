package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is a test double with injectable behavior.
type fakeClient struct {
	ChatFunc func(ctx context.Context, messages []Message) (*Response, error)
	calls    int
}

func (f *fakeClient) Chat(ctx context.Context, messages []Message) (*Response, error) {
	f.calls++
	return f.ChatFunc(ctx, messages)
}

func (f *fakeClient) Close() error { return nil }

func fastRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:        maxRetries,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetryClientSucceedsAfterTransientFailures(t *testing.T) {
	fake := &fakeClient{}
	fake.ChatFunc = func(ctx context.Context, messages []Message) (*Response, error) {
		if fake.calls < 3 {
			return nil, errors.New("connection reset")
		}
		return &Response{Content: "ok"}, nil
	}

	client := NewRetryClient(fake, fastRetryConfig(3))
	resp, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, fake.calls)
}

func TestRetryClientExhaustsBudget(t *testing.T) {
	fake := &fakeClient{}
	fake.ChatFunc = func(ctx context.Context, messages []Message) (*Response, error) {
		return nil, errors.New("still down")
	}

	client := NewRetryClient(fake, fastRetryConfig(2))
	_, err := client.Chat(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 3, fake.calls) // initial call + 2 retries
}

func TestRetryClientDoesNotRetryClientErrors(t *testing.T) {
	fake := &fakeClient{}
	fake.ChatFunc = func(ctx context.Context, messages []Message) (*Response, error) {
		return nil, &openai.APIError{HTTPStatusCode: 400}
	}

	client := NewRetryClient(fake, fastRetryConfig(3))
	_, err := client.Chat(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, fake.calls)
}

func TestRetryClientRetriesServerErrors(t *testing.T) {
	fake := &fakeClient{}
	fake.ChatFunc = func(ctx context.Context, messages []Message) (*Response, error) {
		return nil, &openai.APIError{HTTPStatusCode: 503}
	}

	client := NewRetryClient(fake, fastRetryConfig(1))
	_, err := client.Chat(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 2, fake.calls)
}

func TestRetryClientHonorsCancellation(t *testing.T) {
	fake := &fakeClient{}
	fake.ChatFunc = func(ctx context.Context, messages []Message) (*Response, error) {
		return nil, errors.New("transient")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewRetryClient(fake, &RetryConfig{
		MaxRetries:        5,
		InitialDelay:      time.Hour,
		MaxDelay:          time.Hour,
		BackoffMultiplier: 2.0,
	})
	_, err := client.Chat(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.calls)
}
