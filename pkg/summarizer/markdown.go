package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	b.WriteString("# Playback Summary\n\n")
	fmt.Fprintf(&b, "Generated at %s\n\n", s.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Source\n\n")
	b.WriteString("| Item | Value |\n|---|---|\n")
	row(&b, "Path", s.Source.Path)
	row(&b, "Backend", orNA(s.Source.Backend))
	row(&b, "Codec", orNA(s.Source.Codec))
	if s.Source.Width > 0 && s.Source.Height > 0 {
		row(&b, "Size", fmt.Sprintf("%dx%d", s.Source.Width, s.Source.Height))
	} else {
		row(&b, "Size", "N/A")
	}
	row(&b, "Time Base", orNA(s.Source.TimeBase))
	b.WriteString("\n")

	p := s.Playback
	b.WriteString("## Playback\n\n")
	b.WriteString("| Item | Value |\n|---|---|\n")
	row(&b, "Session", orNA(p.SessionID))
	row(&b, "Frames Published", fmt.Sprintf("%d", p.FramesPublished))
	row(&b, "Loops", fmt.Sprintf("%d", p.Loops))
	row(&b, "Reloads", fmt.Sprintf("%d", p.Reloads))
	row(&b, "Run Time", formatDuration(p.Duration))
	row(&b, "Last Position", formatDuration(p.LastPosition))
	if p.Duration > 0 && p.FramesPublished > 0 {
		row(&b, "Average Rate", fmt.Sprintf("%.2f fps", float64(p.FramesPublished)/p.Duration.Seconds()))
	}
	b.WriteString("\n")

	if sn := s.Snapshots; sn != nil {
		b.WriteString("## Snapshots\n\n")
		b.WriteString("| Item | Value |\n|---|---|\n")
		row(&b, "Directory", sn.Dir)
		row(&b, "Format", sn.Format)
		row(&b, "Interval", formatDuration(sn.Interval))
		if sn.Count > 0 {
			row(&b, "Count", fmt.Sprintf("%d", sn.Count))
		} else {
			row(&b, "Count", "Unlimited")
		}
		b.WriteString("\n")
	}

	if s.Err != "" {
		b.WriteString("## Error\n\n")
		fmt.Fprintf(&b, "```\n%s\n```\n", s.Err)
	}

	return b.String()
}

func row(b *strings.Builder, item, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", item, strings.ReplaceAll(value, "|", "\\|"))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// formatDuration prints durations as mm:ss.mmm.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}

var _ Formatter = (*MarkdownFormatter)(nil)
