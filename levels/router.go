package levels

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skosovsky/agentcore"
	"github.com/skosovsky/agentcore/llm"
)

// Routes of RoutingDecision.
const (
	RouteDatabase = 1
	RouteFAQ      = 2
)

const routerSystemPrompt = "You are an Intelligent Routing Agent. Choose 1 if we need to extract data for this " +
	"query from the DB (only when user_specific question), if it's something we can find in the FAQ, return 2"

// RoutingDecision is the constrained reply of the router.
type RoutingDecision struct {
	Route int `json:"route" enum:"1,2" description:"1 for a user-specific database lookup, 2 for the FAQ"`
}

// RouteHandler answers a routed question.
type RouteHandler func(ctx context.Context, question string) (string, error)

// Routed is the outcome of Route.
type Routed struct {
	Decision RoutingDecision
	Answer   string
}

// Router classifies a question into a route and calls that route's handler.
type Router struct {
	model    llm.Completer
	ext      *agentcore.Extractor[RoutingDecision]
	database RouteHandler
	faq      RouteHandler
	logger   *slog.Logger
}

// RouterOption configures NewRouter.
type RouterOption func(*Router)

// WithDatabaseHandler replaces the handler of RouteDatabase.
func WithDatabaseHandler(h RouteHandler) RouterOption {
	return func(r *Router) { r.database = h }
}

// WithFAQHandler replaces the handler of RouteFAQ.
func WithFAQHandler(h RouteHandler) RouterOption {
	return func(r *Router) { r.faq = h }
}

// WithRouterLogger sets the logger.
func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// NewRouter builds a router over model.
func NewRouter(model llm.Completer, opts ...RouterOption) (*Router, error) {
	ext, err := agentcore.NewExtractor[RoutingDecision](true)
	if err != nil {
		return nil, fmt.Errorf("routing schema: %w", err)
	}
	r := &Router{
		model: model,
		ext:   ext,
		database: func(context.Context, string) (string, error) {
			return "This data is retrieved from the database", nil
		},
		faq: func(context.Context, string) (string, error) {
			return "This data is retrieved from the FAQ", nil
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// Route extracts a RoutingDecision for question and dispatches on it. A reply
// outside the declared routes fails with agentcore.ErrValidation.
func (r *Router) Route(ctx context.Context, question string) (Routed, error) {
	decision, err := r.ext.Extract(ctx, r.model, question,
		agentcore.WithExtractSystem(routerSystemPrompt),
		agentcore.WithInstruction("Route the following customer query."),
		agentcore.WithSchemaName("RoutingDecision"),
	)
	if err != nil {
		return Routed{}, err
	}
	r.logger.InfoContext(ctx, "query routed", "route", decision.Route)

	handler := r.faq
	if decision.Route == RouteDatabase {
		handler = r.database
	}
	answer, err := handler(ctx, question)
	if err != nil {
		return Routed{Decision: decision}, err
	}
	return Routed{Decision: decision, Answer: answer}, nil
}
