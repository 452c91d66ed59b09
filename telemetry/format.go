package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/Eudes8/Compta/output"
)

// formatTimingTree writes one tree of timers:
//
//	session.save: 125ms
//	├─ port.save_document: 85ms
//	│  └─ store.insert_lines: 40ms
//	└─ session.suggest_number: 5ms
func formatTimingTree(w io.Writer, root *timerNode, slow time.Duration, styles *output.Styles) {
	timing := formatDuration(root.duration())
	if styles != nil {
		_, _ = fmt.Fprintf(w, "%s: %s\n", styles.Keyword(root.name), styles.Timing(timing, root.duration() >= slow))
	} else {
		_, _ = fmt.Fprintf(w, "%s: %s\n", root.name, timing)
	}

	for i, child := range root.children {
		formatNode(w, child, "", i == len(root.children)-1, slow, styles)
	}
}

func formatNode(w io.Writer, node *timerNode, prefix string, isLast bool, slow time.Duration, styles *output.Styles) {
	branch, extension := "├─ ", "│  "
	if isLast {
		branch, extension = "└─ ", "   "
	}

	timing := formatDuration(node.duration())
	if styles != nil {
		_, _ = fmt.Fprintf(w, "%s%s: %s\n", styles.Dim(prefix+branch), node.name, styles.Timing(timing, node.duration() >= slow))
	} else {
		_, _ = fmt.Fprintf(w, "%s%s%s: %s\n", prefix, branch, node.name, timing)
	}

	for i, child := range node.children {
		formatNode(w, child, prefix+extension, i == len(node.children)-1, slow, styles)
	}
}

// formatDuration shows milliseconds below one second and seconds above.
// Unfinished timers print as "…".
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "…"
	case d < time.Second:
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", float64(d)/float64(time.Second))
	}
}
