package mcp

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantMethod string
		wantID     string
		wantHasID  bool
		wantParams string
		wantTag    string
		wantErr    error
		anyErr     bool
	}{
		{
			name:       "request with numeric id",
			line:       `{"jsonrpc":"2.0","method":"initialize","id":1,"params":{"protocolVersion":"2024-11-05"}}`,
			wantMethod: "initialize",
			wantID:     "1",
			wantHasID:  true,
			wantParams: `{"protocolVersion":"2024-11-05"}`,
			wantTag:    "2.0",
		},
		{
			name:       "non-string version tag kept raw",
			line:       `{"jsonrpc":2,"method":"tools/list","id":1}`,
			wantMethod: "tools/list",
			wantID:     "1",
			wantHasID:  true,
			wantTag:    "2",
		},
		{
			name:       "string id kept verbatim",
			line:       `{"method":"tools/list","id":"abc-1"}`,
			wantMethod: "tools/list",
			wantID:     `"abc-1"`,
			wantHasID:  true,
		},
		{
			name:       "null id is present",
			line:       `{"method":"tools/list","id":null}`,
			wantMethod: "tools/list",
			wantID:     "null",
			wantHasID:  true,
		},
		{
			name:       "notification has no id",
			line:       `{"method":"notifications/initialized"}`,
			wantMethod: "notifications/initialized",
		},
		{
			name:       "null params dropped",
			line:       `{"method":"tools/call","id":2,"params":null}`,
			wantMethod: "tools/call",
			wantID:     "2",
			wantHasID:  true,
		},
		{
			name:    "missing method",
			line:    `{"id":1,"result":{}}`,
			wantErr: ErrMissingMethod,
		},
		{
			name:    "empty method",
			line:    `{"id":1,"method":""}`,
			wantErr: ErrMissingMethod,
		},
		{
			name:   "method is not a string",
			line:   `{"id":1,"method":42}`,
			anyErr: true,
		},
		{
			name:   "not json",
			line:   `hello`,
			anyErr: true,
		},
		{
			name:   "json array",
			line:   `[{"method":"initialize"}]`,
			anyErr: true,
		},
		{
			name:   "json null",
			line:   `null`,
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tt.line))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			if tt.anyErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, req.Method)
			assert.Equal(t, tt.wantHasID, req.HasID)
			assert.Equal(t, tt.wantID, string(req.ID))
			assert.Equal(t, tt.wantParams, string(req.Params))
			assert.Equal(t, tt.wantTag, req.JSONRPC)
		})
	}
}

func TestResponseEncoding(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		want string
	}{
		{
			name: "result",
			resp: NewResultResponse(json.RawMessage(`7`), map[string]string{"ok": "yes"}),
			want: `{"jsonrpc":"2.0","id":7,"result":{"ok":"yes"}}`,
		},
		{
			name: "error",
			resp: NewErrorResponse(json.RawMessage(`"a"`), ErrorCodeInternal, "Server not initialized", nil),
			want: `{"jsonrpc":"2.0","id":"a","error":{"code":-32603,"message":"Server not initialized"}}`,
		},
		{
			name: "null id echoed",
			resp: NewResultResponse(json.RawMessage(`null`), struct{}{}),
			want: `{"jsonrpc":"2.0","id":null,"result":{}}`,
		},
		{
			name: "absent id omitted",
			resp: NewErrorResponse(nil, ErrorCodeInternal, "x", nil),
			want: `{"jsonrpc":"2.0","error":{"code":-32603,"message":"x"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.resp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
		})
	}
}

func TestAsError(t *testing.T) {
	rpcErr := &Error{Code: ErrorCodeInvalidParams, Message: "bad"}
	assert.Same(t, rpcErr, asError(rpcErr))

	got := asError(errors.New("disk on fire"))
	assert.Equal(t, ErrorCodeInternal, got.Code)
	assert.Equal(t, "disk on fire", got.Message)
}
