package levels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skosovsky/agentcore"
	"github.com/skosovsky/agentcore/agent"
	"github.com/skosovsky/agentcore/llm"
)

const eventSystemPrompt = "You are a fully autonomous event processing agent. When given an incoming email message " +
	"related to an event, you must decide whether the message is a signup request or a generic FAQ query. If it's a " +
	"signup, extract the applicant's details (such as name, email, company, company description, and event name if " +
	"provided), then use your own reasoning to classify the signup as 'VIP Attendee', 'Standard Attendee', or " +
	"'Rejected', and generate a personalized email that explains your decision (with specific reasons). Finally, " +
	"send that email. If the email is a FAQ query, answer the question concisely. Plan and execute the necessary " +
	"steps autonomously. Your final output should be either a confirmation that the signup email has been sent or " +
	"the FAQ answer."

const classifyInstruction = "You are an event message classifier. Analyze the following email and determine " +
	"whether it is a signup request or a FAQ query. If it is a signup, extract the applicant's name, email, company, " +
	"company description, and event name (if provided). If it is a FAQ query, extract the question. For example:\n\n" +
	`{"type": "signup", "details": {"customer_name": "Alice Johnson", "customer_email": "alice@example.com", ` +
	`"company": "Acme Innovations", "company_description": "Leading provider of cutting-edge AI solutions.", ` +
	`"event": "Tech Expo 2025"}}` + "\nor\n" + `{"type": "faq", "question": "What is the event schedule?"}` +
	"\n\nEmail Message:"

const decideInstruction = "You are an event signup classifier. Analyze the following signup details and, using " +
	"your own reasoning, classify the signup as 'VIP Attendee', 'Standard Attendee', or 'Rejected'. Provide a brief " +
	"explanation for your decision. Return your answer in the format: <Classification>: <Explanation>.\n\n"

// EventDocumentation is the knowledge faq_lookup answers from.
const EventDocumentation = "Event Documentation:\n" +
	"Tech Expo 2025 is an annual technology event that showcases the latest innovations in technology and " +
	"enterprise automation. It will be held at the San Francisco Convention Center from June 5 to June 7, 2025. " +
	"The event features keynote speakers from leading tech companies, interactive workshops, and an exhibition " +
	"hall with hundreds of vendors. Registration is required, and early bird discounts are available until " +
	"March 31, 2025. The schedule includes keynote sessions, breakout sessions, and networking events. " +
	"Additional amenities include free Wi-Fi, food trucks, and VIP lounges for registered VIP attendees."

// Attendance classifications produced by decide_attendance.
const (
	AttendanceVIP      = "VIP Attendee"
	AttendanceStandard = "Standard Attendee"
	AttendanceRejected = "Rejected"
)

const (
	vipEmail = "Dear valued attendee,\n\n" +
		"Congratulations! Based on your impressive company profile and innovative business, you have been " +
		"selected as a VIP attendee for our upcoming event. We look forward to welcoming you.\n\n" +
		"Best regards,\nEvent Team"
	rejectedEmail = "Dear applicant,\n\n" +
		"Thank you for your interest in our event. Unfortunately, after reviewing your signup details, we are " +
		"unable to offer you a spot at this time. Please consider providing additional business details in the " +
		"future.\n\nBest regards,\nEvent Team"
	standardEmail = "Dear attendee,\n\n" +
		"Thank you for signing up for our event. We are pleased to confirm your attendance and look forward to " +
		"seeing you there.\n\nBest regards,\nEvent Team"
)

// Message types of Classification.
const (
	MessageSignup = "signup"
	MessageFAQ    = "faq"
)

// SignupDetails are the applicant fields extracted from a signup email.
type SignupDetails struct {
	CustomerName       string `json:"customer_name" validate:"required"`
	CustomerEmail      string `json:"customer_email,omitempty" validate:"omitempty,email"`
	Company            string `json:"company,omitempty"`
	CompanyDescription string `json:"company_description,omitempty"`
	Event              string `json:"event,omitempty"`
}

// Classification is the free-text-then-parse result of classify_message.
type Classification struct {
	Type     string         `json:"type" enum:"signup,faq" description:"signup for registrations, faq for questions"`
	Details  *SignupDetails `json:"details,omitempty"`
	Question string         `json:"question,omitempty"`
}

// Validate requires the payload matching Type.
func (c Classification) Validate() error {
	switch {
	case c.Type == MessageSignup && c.Details == nil:
		return errors.New("signup classification without details")
	case c.Type == MessageFAQ && strings.TrimSpace(c.Question) == "":
		return errors.New("faq classification without question")
	}
	return nil
}

// Email is an outgoing message.
type Email struct {
	To   string
	Body string
}

// Mailer delivers emails produced by the event agent.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// LogMailer records emails in the log instead of delivering them.
type LogMailer struct {
	Logger *slog.Logger
}

// Send implements Mailer.
func (m LogMailer) Send(ctx context.Context, email Email) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "email sent", "to", email.To, "bytes", len(email.Body))
	return nil
}

type messageArgs struct {
	Message string `json:"message" description:"The full incoming email"`
}

type signupArgs struct {
	SignupDetails string `json:"signup_details" description:"The applicant's details as text or JSON"`
}

type decisionArgs struct {
	Decision string `json:"decision" description:"Output of decide_attendance"`
}

// sendEmailSchema is written by hand so the recipient is checked as an email address.
var sendEmailSchema = []byte(`{
	"type": "object",
	"properties": {
		"email_content": {"type": "string", "minLength": 1, "description": "The email to send"},
		"to": {"type": "string", "format": "email", "description": "Recipient address, when known"}
	},
	"required": ["email_content"],
	"additionalProperties": false
}`)

type sendArgs struct {
	EmailContent string `json:"email_content" description:"The email to send"`
	To           string `json:"to,omitempty" description:"Recipient address, when known"`
}

type questionArgs struct {
	Question string `json:"question" description:"The question to answer"`
}

// GenerateEmail picks the reply template matching decision.
func GenerateEmail(decision string) string {
	body := standardEmail
	switch {
	case strings.Contains(decision, AttendanceVIP):
		body = vipEmail
	case strings.Contains(decision, AttendanceRejected):
		body = rejectedEmail
	}
	return "Generated Email:\n" + body
}

// EventTools returns the event processing tools. Nested model calls go to model;
// send_email delivers through mailer.
func EventTools(model llm.Completer, mailer Mailer) ([]agentcore.Tool, error) {
	if mailer == nil {
		mailer = LogMailer{}
	}
	classifier, err := agentcore.NewExtractor[Classification](false)
	if err != nil {
		return nil, fmt.Errorf("classification schema: %w", err)
	}

	classify, err := agentcore.NewTool("classify_message",
		"Analyze the incoming email message and determine whether it is a signup request or a FAQ query.",
		func(ctx context.Context, a messageArgs) (Classification, error) {
			return classifier.Extract(ctx, model, a.Message,
				agentcore.WithMode(agentcore.ModeFreeText),
				agentcore.WithInstruction(classifyInstruction))
		})
	if err != nil {
		return nil, err
	}
	decide, err := agentcore.NewTool("decide_attendance",
		"Classify the signup as 'VIP Attendee', 'Standard Attendee', or 'Rejected' with a brief explanation, "+
			"in the format <Classification>: <Explanation>.",
		func(ctx context.Context, a signupArgs) (string, error) {
			return complete(ctx, model, decideInstruction+a.SignupDetails)
		})
	if err != nil {
		return nil, err
	}
	generate, err := agentcore.NewTool("generate_email",
		"Generate a personalized email based on the signup decision.",
		func(_ context.Context, a decisionArgs) (string, error) { return GenerateEmail(a.Decision), nil })
	if err != nil {
		return nil, err
	}
	send, err := agentcore.NewDynamicTool("send_email", "Send the email to the applicant.", sendEmailSchema,
		func(ctx context.Context, argsJSON []byte) ([]byte, error) {
			var a sendArgs
			if err := json.Unmarshal(argsJSON, &a); err != nil {
				return nil, err
			}
			if err := mailer.Send(ctx, Email{To: a.To, Body: a.EmailContent}); err != nil {
				return nil, fmt.Errorf("send email: %w", err)
			}
			return json.Marshal("Email sent with content:\n" + a.EmailContent)
		})
	if err != nil {
		return nil, err
	}
	faq, err := agentcore.NewTool("faq_lookup",
		"Answer the FAQ question about the event using the event documentation.",
		func(ctx context.Context, a questionArgs) (string, error) {
			return complete(ctx, model, "You are an event FAQ assistant. Use the following event documentation "+
				"to answer the FAQ question clearly and concisely:\n\n"+EventDocumentation+
				"\n\nQuestion: "+a.Question+"\n\nAnswer:")
		})
	if err != nil {
		return nil, err
	}
	return []agentcore.Tool{classify, decide, generate, send, faq}, nil
}

// NewEventAgent registers the event tools in reg and returns the autonomous
// event processing planner.
func NewEventAgent(model llm.Completer, reg *agentcore.Registry, mailer Mailer, opts ...agent.Option) (*agent.Agent, error) {
	tools, err := EventTools(model, mailer)
	if err != nil {
		return nil, err
	}
	if err := registerAll(reg, tools...); err != nil {
		return nil, err
	}
	return agent.New(model, reg, append([]agent.Option{agent.WithSystemPrompt(eventSystemPrompt)}, opts...)...)
}
