package tui

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// Column widths in terminal cells. Subject takes whatever is left.
const (
	numberWidth = 6
	ownerWidth  = 9
	idWidth     = 7
	countWidth  = 4

	// five single-space separators
	fixedWidth = numberWidth + ownerWidth + idWidth + 2*countWidth + 5
)

const (
	headingRow      = 0
	columnHeaderRow = 2
	firstChangeRow  = 3
)

const noChanges = "No changes"

// Lines lays out a frame as plain text: heading, blank line, column header,
// then one line per change (or the "No changes" placeholder). Lines are cut
// to width cells and the frame to height lines; zero or negative means no
// limit.
func Lines(snap Snapshot, width, height int) []string {
	lines := make([]string, 0, firstChangeRow+max(1, len(snap.Changes)))
	lines = append(lines, heading(snap), "", columnHeader(width))

	if len(snap.Changes) == 0 {
		lines = append(lines, noChanges)
	} else {
		for _, c := range snap.Changes {
			lines = append(lines, changeLine(c, width))
		}
	}

	if height > 0 && len(lines) > height {
		lines = lines[:height]
	}
	if width > 0 {
		for i, l := range lines {
			lines[i] = runewidth.Truncate(l, width, "")
		}
	}
	return lines
}

func renderView(snap Snapshot, width, height int) string {
	lines := Lines(snap, width, height)

	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case i == headingRow:
			b.WriteString(headingStyle.Render(l))
		case i == columnHeaderRow:
			b.WriteString(columnHeaderStyle.Render(l))
		case i == firstChangeRow && len(snap.Changes) == 0:
			b.WriteString(emptyStyle.Render(l))
		case i >= firstChangeRow:
			b.WriteString(rowStyle.Render(l))
		default:
			b.WriteString(l)
		}
	}
	return b.String()
}

func heading(snap Snapshot) string {
	plural := "s"
	if snap.ProjectCount == 1 {
		plural = ""
	}
	return fmt.Sprintf("%s Gerrit %s, %s, %d project%s",
		snap.Timestamp.Format("15:04:05"),
		sanitize(snap.Version),
		sanitize(snap.Hostname),
		snap.ProjectCount,
		plural)
}

func columnHeader(width int) string {
	return formatColumns("Chg #", "Owner", "Chg ID", "+", "-", "Subject", width)
}

func changeLine(c ChangeRow, width int) string {
	return formatColumns(
		strconv.Itoa(c.Number),
		sanitize(c.Owner),
		sanitize(c.ChangeID),
		count(c.Insertions),
		count(c.Deletions),
		sanitize(c.Subject),
		width)
}

func formatColumns(number, owner, id, ins, del, subject string, width int) string {
	subjectWidth := width - fixedWidth
	if width <= 0 {
		subjectWidth = runewidth.StringWidth(subject)
	}
	return strings.Join([]string{
		runewidth.FillLeft(number, numberWidth),
		left(owner, ownerWidth),
		left(id, idWidth),
		right(ins, countWidth),
		right(del, countWidth),
		left(subject, max(0, subjectWidth)),
	}, " ")
}

// left truncates or pads s to exactly w cells.
func left(s string, w int) string {
	return runewidth.FillRight(runewidth.Truncate(s, w, ""), w)
}

func right(s string, w int) string {
	return runewidth.FillLeft(runewidth.Truncate(s, w, ""), w)
}

// count renders a line count in at most countWidth cells. Larger values are
// rounded down to k or M so the leading digits stay meaningful.
func count(n *int) string {
	if n == nil {
		return "-"
	}
	switch v := *n; {
	case v < 10_000:
		return strconv.Itoa(v)
	case v < 1_000_000:
		return strconv.Itoa(v/1_000) + "k"
	case v < 1_000_000_000:
		return strconv.Itoa(v/1_000_000) + "M"
	default:
		return "1G+"
	}
}

// sanitize replaces control characters so server text cannot move the cursor.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}
