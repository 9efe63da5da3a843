package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mrzor/ci-telemetry/internal/eventprocessor"
	"github.com/mrzor/ci-telemetry/internal/proctrace"
)

const startTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// MarkdownWriter writes a job summary in GitHub flavored markdown.
type MarkdownWriter struct {
	W io.Writer
	// Title, when set, is written as a top level heading.
	Title string
}

// HandleResult implements eventprocessor.ResultHandler.
func (m *MarkdownWriter) HandleResult(_ context.Context, res *eventprocessor.Result) error {
	var b strings.Builder

	if m.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", m.Title)
	}
	if res.ProcessTraced {
		writeProcessSection(&b, res.Commands)
	}
	if res.FileTraced {
		writeFileSection(&b, res)
	}

	if _, err := io.WriteString(m.W, b.String()); err != nil {
		return fmt.Errorf("writing markdown report: %w", err)
	}
	return nil
}

func writeProcessSection(b *strings.Builder, commands []proctrace.CompletedCommand) {
	b.WriteString("## Process Trace\n\n")
	if len(commands) == 0 {
		b.WriteString("No commands were recorded.\n\n")
		return
	}

	b.WriteString("```mermaid\ngantt\n")
	b.WriteString("    title Process Trace\n")
	b.WriteString("    dateFormat x\n")
	b.WriteString("    axisFormat %H:%M:%S\n")
	for _, cmd := range commands {
		status := "done"
		if cmd.ExitCode != 0 {
			status = "crit"
		}
		fmt.Fprintf(b, "    %s :%s, %d, %d\n", ganttLabel(cmd.Name), status, cmd.StartTime, cmd.EndTime())
	}
	b.WriteString("```\n\n")

	b.WriteString("| Name | Start Time | Duration (ms) | Exit Code | File Name | Args |\n")
	b.WriteString("| --- | --- | ---: | ---: | --- | --- |\n")
	for _, cmd := range commands {
		fmt.Fprintf(b, "| %s | %s | %d | %d | %s | %s |\n",
			tableCell(cmd.Name),
			time.UnixMilli(cmd.StartTime).UTC().Format(startTimeLayout),
			cmd.Duration,
			cmd.ExitCode,
			tableCell(cmd.FileName),
			tableCell(strings.Join(cmd.Args, " ")),
		)
	}
	b.WriteString("\n")
}

func writeFileSection(b *strings.Builder, res *eventprocessor.Result) {
	b.WriteString("## File Access\n\n")
	if len(res.FileAccess) == 0 {
		fmt.Fprintf(b, "No workspace reads among %d file events.\n\n", res.FileEvents)
		return
	}

	b.WriteString("| File | Count |\n")
	b.WriteString("| --- | ---: |\n")
	for _, pc := range res.FileAccess {
		fmt.Fprintf(b, "| %s | %d |\n", tableCell(pc.Path), pc.Count)
	}
	b.WriteString("\n")
}

// ganttLabel strips the characters mermaid treats as task syntax.
func ganttLabel(name string) string {
	label := strings.Map(func(r rune) rune {
		switch r {
		case ':', ';', '#', '\n', '\r':
			return ' '
		}
		return r
	}, name)
	label = strings.TrimSpace(label)
	if label == "" {
		return "(unnamed)"
	}
	return label
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
