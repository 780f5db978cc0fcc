package cmd

import (
	"bytes"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleWriterStepPrefix(t *testing.T) {
	buffer := bytes.Buffer{}
	writer := &ConsoleWriter{out: &buffer}

	_, err := writer.Write([]byte(`{"level":"info","plan":"dev","step":"clone Vlsir","message":"finished"}`))
	require.NoError(t, err)

	assert.Contains(t, buffer.String(), "clone Vlsir: finished")
	assert.NotContains(t, buffer.String(), "dev:")
}

func TestConsoleWriterPlanPrefix(t *testing.T) {
	buffer := bytes.Buffer{}
	writer := &ConsoleWriter{out: &buffer}

	_, err := writer.Write([]byte(`{"level":"info","plan":"dev","message":"Plan dev finished"}`))
	require.NoError(t, err)

	assert.Contains(t, buffer.String(), "dev: Plan dev finished")
}

func TestConsoleWriterErrorDetails(t *testing.T) {
	buffer := bytes.Buffer{}
	writer := &ConsoleWriter{out: &buffer}

	_, err := writer.Write([]byte(`{"level":"error","step":"configure","message":"Failed plan pdk","error":"exit code 2"}`))
	require.NoError(t, err)

	assert.Contains(t, buffer.String(), "configure: Error: Failed plan pdk")
	assert.Contains(t, buffer.String(), "exit code 2")
}

func TestConsoleWriterInvalidEvent(t *testing.T) {
	writer := &ConsoleWriter{out: &bytes.Buffer{}}

	_, err := writer.Write([]byte("not json"))
	require.Error(t, err)
}

func TestConsoleWriterWithZerolog(t *testing.T) {
	buffer := bytes.Buffer{}
	logger := zerolog.New(&ConsoleWriter{out: &buffer})

	logger.Info().Str("plan", "dev").Str("step", "install Hdl21").Msg("pip install -e .[dev]")
	logger.Error().Err(eris.New("exit status 128")).Str("plan", "dev").Msg("Failed plan dev")

	output := buffer.String()
	assert.Contains(t, output, "install Hdl21: pip install -e .[dev]")
	assert.Contains(t, output, "dev: Error: Failed plan dev")
	assert.Contains(t, output, "exit status 128")
}
