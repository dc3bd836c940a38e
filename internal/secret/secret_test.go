package secret

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_NeverRendered(t *testing.T) {
	s := New("hunter2")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))

	b, err := json.Marshal(struct {
		Password Secret `json:"password"`
	}{s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"password":"[REDACTED]"}`, string(b))

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("login", "password", s)
	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestSecret_Decode(t *testing.T) {
	var body struct {
		Password Secret `json:"password"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"password":"p1"}`), &body))
	assert.Equal(t, "p1", body.Password.Expose())

	var fromEnv Secret
	require.NoError(t, fromEnv.UnmarshalText([]byte("terminal")))
	assert.Equal(t, "terminal", fromEnv.Expose())
}

func TestSecret_Equal(t *testing.T) {
	assert.True(t, New("abc").Equal(New("abc")))
	assert.False(t, New("abc").Equal(New("abd")))
	assert.False(t, New("abc").Equal(New("")))
	assert.True(t, New("").IsEmpty())
}
