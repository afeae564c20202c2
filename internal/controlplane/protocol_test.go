package controlplane

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property 6: for any valid request object q, parse(serialize(q)) == q.
func TestRequestRoundTrip(t *testing.T) {
	params, err := json.Marshal(OutputSetParams{OutputName: "WL-1"})
	require.NoError(t, err)

	want := Request{Method: MethodOutputSet, Params: params, ID: "7"}
	b, err := json.Marshal(want)
	require.NoError(t, err)

	var got Request
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, want.Method, got.Method)
	assert.Equal(t, want.ID, got.ID)
	assert.JSONEq(t, string(want.Params), string(got.Params))
}

// Property 6 (response side).
func TestResponseRoundTrip(t *testing.T) {
	want := Response{Code: CodeOK, Data: newErrorData("nope"), ID: float64(7)}
	b, err := json.Marshal(want)
	require.NoError(t, err)

	var got Response
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, want.Code, got.Code)
	assert.Equal(t, want.ID, got.ID)
	assert.JSONEq(t, string(want.Data), string(got.Data))
}

func TestEventHasNoID(t *testing.T) {
	ev := Event{Method: EventDetached}
	b, err := json.Marshal(ev)
	require.NoError(t, err)

	var asMap map[string]any
	require.NoError(t, json.Unmarshal(b, &asMap))
	_, hasID := asMap["id"]
	assert.False(t, hasID, "events must not carry an id field")
}

func TestAllMethodsMatchesSpecTable(t *testing.T) {
	assert.Len(t, AllMethods, 11)
	assert.Contains(t, AllMethods, MethodWayvncExit)
	assert.Contains(t, AllMethods, MethodOutputCycle)
}
