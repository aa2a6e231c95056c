// Package mock provides a scripted llm.LLMProvider for tests.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"finagent-be/pkg/llm"
)

// Request is what the provider saw on one call.
type Request struct {
	System string
	User   string
	Schema map[string]interface{}
}

// Rule answers a request when Match returns true. The first matching rule wins.
type Rule struct {
	Match func(Request) bool
	Reply func(Request) (string, error)
}

type Provider struct {
	mu       sync.Mutex
	rules    []Rule
	fallback string
	delay    time.Duration
	requests []Request
}

var _ llm.LLMProvider = (*Provider)(nil)

func New(rules ...Rule) *Provider {
	return &Provider{rules: rules, fallback: "ok"}
}

// WithFallback sets the reply used when no rule matches.
func (p *Provider) WithFallback(reply string) *Provider {
	p.fallback = reply
	return p
}

// WithDelay makes every call block for d or until ctx is done.
func (p *Provider) WithDelay(d time.Duration) *Provider {
	p.delay = d
	return p
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.ApplyOptions(llm.Options{}, options...)

	req := Request{Schema: opts.Schema}
	for _, m := range history {
		switch m.Role {
		case llm.RoleSystem:
			req.System += m.Content
		default:
			req.User = m.Content
		}
	}

	p.mu.Lock()
	p.requests = append(p.requests, req)
	rules := p.rules
	fallback := p.fallback
	delay := p.delay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	for _, r := range rules {
		if r.Match(req) {
			return r.Reply(req)
		}
	}
	return fallback, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

// Calls returns the number of requests seen so far.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// CallsWhereSystemContains counts requests whose system prompt contains substr.
func (p *Provider) CallsWhereSystemContains(substr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, r := range p.requests {
		if strings.Contains(r.System, substr) {
			n++
		}
	}
	return n
}

func (p *Provider) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// SystemContains answers reply whenever the system prompt contains substr.
func SystemContains(substr, reply string) Rule {
	return Rule{
		Match: func(r Request) bool { return strings.Contains(r.System, substr) },
		Reply: func(Request) (string, error) { return reply, nil },
	}
}

// SystemContainsErr fails every request whose system prompt contains substr.
func SystemContainsErr(substr string, err error) Rule {
	return Rule{
		Match: func(r Request) bool { return strings.Contains(r.System, substr) },
		Reply: func(Request) (string, error) { return "", err },
	}
}

// SystemContainsFunc computes the reply from the request.
func SystemContainsFunc(substr string, reply func(Request) (string, error)) Rule {
	return Rule{
		Match: func(r Request) bool { return strings.Contains(r.System, substr) },
		Reply: reply,
	}
}
