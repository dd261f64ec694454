package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.WithField("component", "anthem").Warn("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "anthem", line["component"])
	assert.Equal(t, "warning", line["level"])
}

func TestNew_Defaults(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())

	l.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Config{Level: "loud"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, `unknown level "loud"`)

	_, err = New(Config{Format: "xml"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, `unknown format "xml"`)
}

func TestNew_PanicLevelClamped(t *testing.T) {
	l, err := New(Config{Level: "panic"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, logrus.ErrorLevel, l.GetLevel())
}
