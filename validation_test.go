package agentcore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatable_NotImplemented(t *testing.T) {
	type Args struct {
		Low  int `json:"low"`
		High int `json:"high"`
	}
	// Args does not implement Validatable; validateCustom should no-op
	assert.NoError(t, validateCustom(&Args{Low: 10, High: 5}))
}

// validatableArgs implements Validatable for tests.
type validatableArgs struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

func (a validatableArgs) Validate() error {
	if a.Low > a.High {
		return errors.New("low must be <= high")
	}
	return nil
}

// pointerValidatableArgs implements Validatable with a pointer receiver.
type pointerValidatableArgs struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (a *pointerValidatableArgs) Validate() error {
	if a.Min > a.Max {
		return errors.New("min must be <= max")
	}
	return nil
}

func TestValidatable_Implemented(t *testing.T) {
	tool, err := NewTool("validatable_tool", "desc", func(_ context.Context, _ validatableArgs) (struct{ Ok bool }, error) {
		return struct{ Ok bool }{Ok: true}, nil
	})
	require.NoError(t, err)
	res, err := tool.Execute(context.Background(), []byte(`{"low":1,"high":10}`))
	require.NoError(t, err)
	require.NotNil(t, res)
	_, err = tool.Execute(context.Background(), []byte(`{"low":10,"high":5}`))
	require.Error(t, err)
	assert.True(t, IsClientError(err))
}

func TestValidateTags(t *testing.T) {
	type Query struct {
		CustomerID int    `json:"customer_id" validate:"gt=0"`
		QueryType  string `json:"query_type" validate:"required,oneof=phone address"`
		Hidden     string `json:"-"`
	}
	tests := []struct {
		name    string
		args    any
		wantErr string
	}{
		{"valid", Query{CustomerID: 1, QueryType: "phone"}, ""},
		{"valid pointer", &Query{CustomerID: 1, QueryType: "address"}, ""},
		{"nil pointer", (*Query)(nil), ""},
		{"not a struct", 42, ""},
		{"gt", Query{CustomerID: 0, QueryType: "phone"}, "customer_id: failed gt=0"},
		{"oneof", Query{CustomerID: 3, QueryType: "email"}, "query_type: failed oneof=phone address"},
		{"multiple", Query{}, "customer_id: failed gt=0; query_type: failed required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTags(tt.args)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			var ce *ClientError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantErr, ce.Reason)
		})
	}
}

func TestValidateAgainstSchema(t *testing.T) {
	ext, err := NewExtractor[xArgs](false)
	require.NoError(t, err)
	require.NoError(t, validateAgainstSchema(ext.resolved, map[string]any{"x": 1.0}))
	err = validateAgainstSchema(ext.resolved, map[string]any{})
	require.ErrorIs(t, err, ErrValidation)
}
