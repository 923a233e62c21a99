package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/duration"

	"botfleet/internal/api"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable formats output as a kubectl-style plain table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatWide formats output as a table with additional columns
	OutputFormatWide OutputFormat = "wide"
	// OutputFormatJSON formats output as raw JSON data
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML formats output as YAML data converted from JSON
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatWide, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, wide, json, yaml)", format)
	}
}

// Printer renders API results.
type Printer struct {
	Format    OutputFormat
	NoHeaders bool
	Out       io.Writer

	// Now is used for relative times; time.Now when nil.
	Now func() time.Time
}

func (p *Printer) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Printer) structured() bool {
	return p.Format == OutputFormatJSON || p.Format == OutputFormatYAML
}

// encode writes v as JSON or YAML. YAML goes through JSON first so keys keep
// their JSON names.
func (p *Printer) encode(v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if p.Format == OutputFormatJSON {
		_, err = fmt.Fprintln(p.Out, string(raw))
		return err
	}

	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to convert to YAML: %w", err)
	}
	_, err = p.Out.Write(out)
	return err
}

// Bots prints a list of bots.
func (p *Printer) Bots(bots []api.Bot) error {
	if p.structured() {
		return p.encode(bots)
	}
	if len(bots) == 0 {
		fmt.Fprintln(p.Out, "No bots found")
		return nil
	}

	headers := []string{"id", "name", "status", "ready", "replicas", "language", "uptime"}
	if p.Format == OutputFormatWide {
		headers = append(headers, "image", "user", "workflow", "age")
	}
	w := NewPlainTableWriter(p.Out, headers...)
	w.SetNoHeaders(p.NoHeaders)
	for _, b := range bots {
		row := []string{
			b.ID,
			b.Name,
			string(b.Status),
			fmt.Sprintf("%d/%d", b.Pods.Ready, b.Pods.Total),
			strconv.Itoa(int(b.Replicas)),
			languageCell(b.Language, b.Version),
			uptimeCell(b.UptimeSeconds),
		}
		if p.Format == OutputFormatWide {
			row = append(row, b.Image, b.UserID, dash(b.WorkflowID), p.age(b.CreatedAt))
		}
		w.AppendRow(row...)
	}
	w.Render()
	return nil
}

// Bot prints a single bot.
func (p *Printer) Bot(b *api.Bot) error {
	if p.structured() {
		return p.encode(b)
	}
	return p.Bots([]api.Bot{*b})
}

// Detail prints the detailed status of a bot.
func (p *Printer) Detail(d *api.BotDetail) error {
	if p.structured() {
		return p.encode(d)
	}

	box := newBox(d.Bot.ID)
	box.AppendRows([]table.Row{
		{keyCell("Name"), d.Bot.Name},
		{keyCell("Status"), statusColor(d.Bot.Status).Sprint(string(d.Bot.Status))},
		{keyCell("Stage"), stageColor(d.Stage).Sprint(string(d.Stage))},
		{keyCell("Language"), languageCell(d.Bot.Language, d.Bot.Version)},
		{keyCell("Image"), d.Bot.Image},
		{keyCell("Replicas"), fmt.Sprintf("%d (%d/%d ready)", d.Bot.Replicas, d.Bot.Pods.Ready, d.Bot.Pods.Total)},
		{keyCell("Owner"), d.Bot.UserID},
		{keyCell("Uptime"), uptimeCell(d.Bot.UptimeSeconds)},
		{keyCell("Created"), p.age(d.Bot.CreatedAt) + " ago"},
	})
	if d.Bot.WorkflowID != "" {
		box.AppendRow(table.Row{keyCell("Workflow"), d.Bot.WorkflowID})
	}
	if d.Code.HasCode {
		box.AppendSeparator()
		box.AppendRow(table.Row{keyCell("Code"), codeCell(d.Code)})
	}
	fmt.Fprintln(p.Out, box.Render())

	if len(d.Pods) == 0 {
		fmt.Fprintln(p.Out, "No pods")
		return nil
	}
	w := NewPlainTableWriter(p.Out, "pod", "phase", "ready", "restarts", "state", "reason")
	w.SetNoHeaders(p.NoHeaders)
	for _, pod := range d.Pods {
		w.AppendRow(pod.Name, pod.Phase, strconv.FormatBool(pod.Ready), strconv.Itoa(int(pod.Restarts)), pod.ContainerState, dash(pod.Reason))
	}
	w.Render()
	return nil
}

// Metrics prints a resource usage snapshot.
func (p *Printer) Metrics(m *api.MetricsSnapshot) error {
	if p.structured() {
		return p.encode(m)
	}
	w := NewPlainTableWriter(p.Out, "bot", "pods", "cpu", "memory", "window")
	w.SetNoHeaders(p.NoHeaders)
	w.AppendRow(
		m.BotID,
		strconv.Itoa(m.Pods),
		fmt.Sprintf("%dm", m.CPUMillis),
		fmt.Sprintf("%.1fMi", m.MemoryMiB),
		(time.Duration(m.WindowSecs * float64(time.Second))).String(),
	)
	w.Render()
	return nil
}

// Exec prints the output of a command run in a bot pod.
func (p *Printer) Exec(r *api.ExecResult) error {
	if p.structured() {
		return p.encode(r)
	}
	switch r.Status {
	case api.ExecStatusNoRunningPods:
		fmt.Fprintln(p.Out, "No running pods")
		return nil
	case api.ExecStatusFailed:
		fmt.Fprint(p.Out, r.Stdout)
		fmt.Fprint(p.Out, r.Stderr)
		return fmt.Errorf("command failed in pod %s: %s", r.Pod, r.Error)
	}
	fmt.Fprint(p.Out, r.Stdout)
	fmt.Fprint(p.Out, r.Stderr)
	return nil
}

// Logs prints log output verbatim.
func (p *Printer) Logs(l *api.LogsResult) error {
	if p.structured() {
		return p.encode(l)
	}
	fmt.Fprint(p.Out, l.Logs)
	if l.Logs != "" && !strings.HasSuffix(l.Logs, "\n") {
		fmt.Fprintln(p.Out)
	}
	return nil
}

func (p *Printer) age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return duration.HumanDuration(p.now().Sub(t))
}

func languageCell(language, version string) string {
	if version == "" {
		return language
	}
	return language + "-" + version
}

func uptimeCell(seconds *int64) string {
	if seconds == nil {
		return "-"
	}
	return duration.HumanDuration(time.Duration(*seconds) * time.Second)
}

func codeCell(c api.CodeFreshness) string {
	switch {
	case !c.Exists:
		return "bundle missing"
	case c.Current:
		return "current (" + shortChecksum(c.Checksum) + ")"
	default:
		return "stale, pods run an older bundle"
	}
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
