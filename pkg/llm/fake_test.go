package llm_test

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// fakeModel answers GenerateContent with canned replies and records what it was asked.
type fakeModel struct {
	replies []string
	err     error

	prompts []string
	options []llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	f.options = append(f.options, opts)

	var b strings.Builder
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				b.WriteString(tc.Text)
			}
		}
	}
	f.prompts = append(f.prompts, b.String())

	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return &llms.ContentResponse{}, nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

type fakeEmbedClient struct {
	dim    int
	err    error
	inputs []string
}

func (f *fakeEmbedClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.inputs = append(f.inputs, texts...)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
		for j := range out[i] {
			out[i][j] = float32(j) / float32(f.dim)
		}
	}
	return out, nil
}
