package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"

	"botfleet/internal/api"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newPrinter(format OutputFormat) (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Printer{Format: format, Out: &buf, Now: func() time.Time { return now }}, &buf
}

func sampleBot() api.Bot {
	return api.Bot{
		ID:            "bot-echo",
		Name:          "Echo",
		Language:      "python",
		Version:       "3.12",
		Status:        api.BotStatusRunning,
		Image:         "python:3.12-slim",
		Replicas:      1,
		UserID:        "alice",
		CreatedAt:     now.Add(-2 * time.Hour),
		UptimeSeconds: ptr.To[int64](90),
		Pods:          api.PodSummary{Ready: 1, Total: 1},
	}
}

func TestValidateOutputFormat(t *testing.T) {
	for _, f := range []string{"table", "wide", "json", "yaml"} {
		assert.NoError(t, ValidateOutputFormat(f))
	}
	assert.Error(t, ValidateOutputFormat("xml"))
}

func TestPrinter_BotsTable(t *testing.T) {
	p, buf := newPrinter(OutputFormatTable)
	require.NoError(t, p.Bots([]api.Bot{sampleBot()}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"ID", "NAME", "STATUS", "READY", "REPLICAS", "LANGUAGE", "UPTIME"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"bot-echo", "Echo", "running", "1/1", "1", "python-3.12", "90s"}, strings.Fields(lines[1]))
}

func TestPrinter_BotsWide(t *testing.T) {
	p, buf := newPrinter(OutputFormatWide)
	p.NoHeaders = true
	require.NoError(t, p.Bots([]api.Bot{sampleBot()}))

	fields := strings.Fields(buf.String())
	assert.Equal(t, []string{"bot-echo", "Echo", "running", "1/1", "1", "python-3.12", "90s", "python:3.12-slim", "alice", "-", "120m"}, fields)
}

func TestPrinter_EmptyList(t *testing.T) {
	p, buf := newPrinter(OutputFormatTable)
	require.NoError(t, p.Bots(nil))
	assert.Equal(t, "No bots found\n", buf.String())

	p, buf = newPrinter(OutputFormatJSON)
	require.NoError(t, p.Bots([]api.Bot{}))
	assert.Equal(t, "[]\n", buf.String())
}

func TestPrinter_Structured(t *testing.T) {
	bot := sampleBot()

	p, buf := newPrinter(OutputFormatJSON)
	require.NoError(t, p.Bot(&bot))
	var decoded api.Bot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "bot-echo", decoded.ID)

	p, buf = newPrinter(OutputFormatYAML)
	require.NoError(t, p.Bot(&bot))
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "bot-echo", doc["id"])
	assert.Equal(t, "alice", doc["userId"], "YAML keys follow the JSON names")
}

func TestPrinter_Detail(t *testing.T) {
	p, buf := newPrinter(OutputFormatTable)
	require.NoError(t, p.Detail(&api.BotDetail{
		Bot:   sampleBot(),
		Stage: api.StageComplete,
		Pods: []api.PodDetail{
			{Name: "bot-echo-abc", Phase: "Running", Ready: true, Restarts: 2, ContainerState: "running"},
		},
		Code: api.CodeFreshness{HasCode: true, Exists: true, Current: true, Checksum: "0123456789abcdef"},
	}))

	out := buf.String()
	for _, want := range []string{"bot-echo", "Echo", "running", "complete", "python:3.12-slim", "current (0123456789ab)", "bot-echo-abc", "RESTARTS"} {
		assert.Contains(t, out, want)
	}
}

func TestPrinter_Exec(t *testing.T) {
	p, buf := newPrinter(OutputFormatTable)
	require.NoError(t, p.Exec(&api.ExecResult{Status: api.ExecStatusOK, Stdout: "bot.py\n"}))
	assert.Equal(t, "bot.py\n", buf.String())

	p, buf = newPrinter(OutputFormatTable)
	require.NoError(t, p.Exec(&api.ExecResult{Status: api.ExecStatusNoRunningPods}))
	assert.Equal(t, "No running pods\n", buf.String())

	p, _ = newPrinter(OutputFormatTable)
	err := p.Exec(&api.ExecResult{Status: api.ExecStatusFailed, Pod: "bot-echo-a", Error: "exit code 2"})
	assert.ErrorContains(t, err, "exit code 2")
}

func TestPrinter_Metrics(t *testing.T) {
	p, buf := newPrinter(OutputFormatTable)
	require.NoError(t, p.Metrics(&api.MetricsSnapshot{BotID: "bot-echo", Pods: 2, CPUMillis: 350, MemoryMiB: 96, WindowSecs: 30}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"bot-echo", "2", "350m", "96.0Mi", "30s"}, strings.Fields(lines[1]))
}

func TestPrinter_LogsAddsTrailingNewline(t *testing.T) {
	p, buf := newPrinter(OutputFormatTable)
	require.NoError(t, p.Logs(&api.LogsResult{Logs: "started"}))
	assert.Equal(t, "started\n", buf.String())
}

func TestPlainTableWriter_Alignment(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlainTableWriter(&buf, "a", "bb")
	w.AppendRow("long-value", "x")
	w.AppendRow("s")
	w.Render()

	assert.Equal(t, "A            BB\nlong-value   x\ns\n", buf.String())
}
