package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"top_k=3", "pull=true", "mar_url=https://example.com/a.mar?x=1", "conf=0.4"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"top_k":   3.0,
		"pull":    true,
		"mar_url": "https://example.com/a.mar?x=1",
		"conf":    0.4,
	}, opts)

	_, err = parseOptions([]string{"novalue"})
	assert.Error(t, err)

	_, err = parseOptions([]string{"=1"})
	assert.Error(t, err)
}

func TestListCommand(t *testing.T) {
	var out bytes.Buffer
	cli := NewCLI()
	cli.SetOut(&out)
	cli.SetArgs([]string{"list", "--backend", "timm"})
	require.NoError(t, cli.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "MODEL")
	assert.Contains(t, out.String(), "resnet50.a1_in1k")
	assert.NotContains(t, out.String(), "yolov8n")
}

func TestListCommandFilter(t *testing.T) {
	var out bytes.Buffer
	cli := NewCLI()
	cli.SetOut(&out)
	cli.SetArgs([]string{"list", "yolo11", "--io", "image --> boxes"})
	require.NoError(t, cli.Execute())

	assert.Contains(t, out.String(), "yolo11n")
	assert.NotContains(t, out.String(), "yolov8n")
}

func TestInferCommandUnknownModel(t *testing.T) {
	cli := NewCLI()
	cli.SetOut(&bytes.Buffer{})
	cli.SetArgs([]string{"infer", "nonexistent-id", "cat.jpg"})

	err := cli.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model 'nonexistent-id'")
}

func TestVersionFlag(t *testing.T) {
	var out bytes.Buffer
	cli := NewCLI()
	cli.SetOut(&out)
	cli.SetArgs([]string{"--version"})
	require.NoError(t, cli.Execute())
	assert.Contains(t, out.String(), "xinfer version is")
}
