package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutsideLocal(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Environment: "production", Output: &buf})

	log.Component("aggregator").WithField("records", 3).Info("pass done")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "aggregator", line["component"])
	assert.Equal(t, "pass done", line["msg"])
	assert.EqualValues(t, 3, line["records"])
}

func TestLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Environment: "prod", Level: "warn", Output: &buf})
	log.Info("dropped")
	assert.Empty(t, buf.String())
	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Environment: "prod", Output: &buf})

	assert.Same(t, log.Entry, log.WithError(nil))

	log.WithError(errors.New("boom")).Error("failed")
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestRequestID(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/summary?top=5", nil)
	id := RequestID(r)
	assert.Len(t, id, 36)

	r.Header.Set(RequestIDHeader, "abc")
	assert.Equal(t, "abc", RequestID(r))

	var buf bytes.Buffer
	log := NewWithOptions(Options{Environment: "prod", Output: &buf})
	log.WithRequest(r).Info("hit")
	assert.Contains(t, buf.String(), `"req_id":"abc"`)
	assert.Contains(t, buf.String(), `"query":"top=5"`)
}
