package levels

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skosovsky/agentcore"
	"github.com/skosovsky/agentcore/llm"
)

// NoToolCalled is the answer when the model selects no known tool.
const NoToolCalled = "No appropriate function was called."

// DatabaseQuery is the argument of query_database.
type DatabaseQuery struct {
	CustomerID int    `json:"customer_id" description:"Customer ID to fetch relevant data."`
	QueryType  string `json:"query_type" description:"Type of query, e.g., 'billing' or 'subscription'."`
	Details    string `json:"details" description:"Detailed information about the query."`
}

// FAQQuery is the argument of query_faq.
type FAQQuery struct {
	Topic    string `json:"topic" description:"FAQ topic, such as 'billing' or 'account'."`
	Question string `json:"question" description:"The full question asked by the customer."`
}

// Selection is the outcome of one tool selection.
type Selection struct {
	Tool   string
	Args   []byte
	Answer string
}

// ToolSelector makes one completion over the query_database and query_faq
// catalog and runs the first known tool the model picks.
type ToolSelector struct {
	model    llm.Completer
	registry *agentcore.Registry
	logger   *slog.Logger
}

// NewToolSelector builds the selector and its two-tool registry.
func NewToolSelector(model llm.Completer, logger *slog.Logger) (*ToolSelector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := agentcore.NewTool("query_database", "Fetch customer-specific information from the database.",
		func(ctx context.Context, q DatabaseQuery) (string, error) {
			logger.InfoContext(ctx, "database query",
				"customer_id", q.CustomerID, "query_type", q.QueryType, "details", q.Details)
			return "This answer came from the database.", nil
		}, agentcore.WithStrict())
	if err != nil {
		return nil, err
	}
	faq, err := agentcore.NewTool("query_faq", "Retrieve predefined answers from the FAQ system.",
		func(ctx context.Context, q FAQQuery) (string, error) {
			logger.InfoContext(ctx, "faq query", "topic", q.Topic, "question", q.Question)
			return "This answer came from the FAQ.", nil
		}, agentcore.WithStrict())
	if err != nil {
		return nil, err
	}
	reg := agentcore.NewRegistry(agentcore.WithRegistryLogger(logger))
	if err := registerAll(reg, db, faq); err != nil {
		return nil, err
	}
	return &ToolSelector{model: model, registry: reg, logger: logger}, nil
}

// Registry exposes the selector's tools.
func (s *ToolSelector) Registry() *agentcore.Registry { return s.registry }

// Select asks the model to pick a tool for question and runs it. Unknown tool
// names are skipped; invalid arguments fail with agentcore.ErrValidation.
func (s *ToolSelector) Select(ctx context.Context, question string) (Selection, error) {
	resp, err := s.model.Complete(ctx, llm.Request{
		Messages: []llm.Message{llm.UserMessage(question)},
		Tools:    s.registry.ToolSpecs(),
	})
	if err != nil {
		return Selection{}, fmt.Errorf("%w: %w", agentcore.ErrUpstreamService, err)
	}
	for _, call := range resp.ToolCalls {
		if _, err := s.registry.Lookup(call.Name); err != nil {
			s.logger.WarnContext(ctx, "unknown tool selected", "tool", call.Name)
			continue
		}
		s.logger.InfoContext(ctx, "tool selected", "tool", call.Name)
		res := s.registry.Invoke(ctx, agentcore.ToolCall{ID: call.ID, ToolName: call.Name, Args: call.Arguments})
		sel := Selection{Tool: call.Name, Args: call.Arguments}
		if res.Error != nil {
			return sel, res.Error
		}
		sel.Answer = res.Text()
		return sel, nil
	}
	return Selection{Answer: NoToolCalled}, nil
}
