package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"taskboard/internal/board"
	"taskboard/internal/model"
)

type boardSelection struct {
	Col  int
	Card int
	// TaskID is the stable selection; it wins over Col/Card so focus follows a
	// card when it changes column.
	TaskID string
}

type boardColumn struct {
	bucket model.Bucket
	label  string
	tasks  []model.Task
}

type boardModel struct {
	cols []boardColumn
}

// buildBoard groups the displayed collection into one column per bucket, in
// server order.
func buildBoard(view board.Collection) boardModel {
	buckets := model.Buckets()
	cols := make([]boardColumn, 0, len(buckets))
	for _, b := range buckets {
		cols = append(cols, boardColumn{bucket: b, label: b.Label(), tasks: view.InBucket(b)})
	}
	return boardModel{cols: cols}
}

func (b boardModel) indexOf(taskID string) (int, int, bool) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return 0, 0, false
	}
	for ci := range b.cols {
		for ii := range b.cols[ci].tasks {
			if b.cols[ci].tasks[ii].ID == taskID {
				return ci, ii, true
			}
		}
	}
	return 0, 0, false
}

func (b boardModel) clamp(sel boardSelection) boardSelection {
	if len(b.cols) == 0 {
		return boardSelection{Card: -1}
	}
	if ci, ii, ok := b.indexOf(sel.TaskID); ok {
		sel.Col, sel.Card = ci, ii
	} else {
		sel.TaskID = ""
	}

	if sel.Col < 0 {
		sel.Col = 0
	}
	if sel.Col >= len(b.cols) {
		sel.Col = len(b.cols) - 1
	}
	n := len(b.cols[sel.Col].tasks)
	if n == 0 {
		sel.Card = -1
		return sel
	}
	if sel.Card < 0 {
		sel.Card = 0
	}
	if sel.Card >= n {
		sel.Card = n - 1
	}
	sel.TaskID = b.cols[sel.Col].tasks[sel.Card].ID
	return sel
}

func (b boardModel) selected(sel boardSelection) (model.Task, bool) {
	sel = b.clamp(sel)
	if len(b.cols) == 0 || sel.Card < 0 {
		return model.Task{}, false
	}
	return b.cols[sel.Col].tasks[sel.Card], true
}

// cardState is the per-render decoration input.
type cardState struct {
	pending  map[string]bool
	dragging string
	hover    model.Bucket
	spinner  string
	now      time.Time
}

type cardSlot struct {
	id       string
	top      int
	height   int
	rendered string
}

type columnSlot struct {
	bucket model.Bucket
	x      int
	header string
	body   []string
	cards  []cardSlot
}

// boardLayout is a rendered board plus the geometry needed to hit-test mouse
// events against it. Rows are relative to the top of the board.
type boardLayout struct {
	cols   []columnSlot
	colW   int
	gap    int
	width  int
	height int
}

const (
	columnGap      = 2
	cardsTopOffset = 2 // header + spacer
)

func layoutBoard(b boardModel, sel boardSelection, st cardState, width, height int) boardLayout {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	l := boardLayout{gap: columnGap, width: width, height: height}
	n := len(b.cols)
	if n == 0 {
		return l
	}
	sel = b.clamp(sel)

	avail := width - columnGap*(n-1)
	if avail < n {
		avail = n
	}
	l.colW = avail / n
	if l.colW < 10 {
		l.colW = 10
	}

	ss := newBoardStyles()

	for ci, c := range b.cols {
		cs := columnSlot{bucket: c.bucket, x: ci * (l.colW + columnGap)}

		head := fmt.Sprintf("%s (%d)", c.label, len(c.tasks))
		drop := st.dragging != "" && st.hover == c.bucket
		if drop {
			head = glyphArrow() + " " + head
		}
		hs := ss.columnHeader(c.bucket, ci == sel.Col, drop)
		cs.header = hs.Width(l.colW).Render(truncateToWidth(head, l.colW))

		if len(c.tasks) == 0 {
			cs.body = []string{"", ss.muted.Render(" No tasks")}
			l.cols = append(l.cols, cs)
			continue
		}

		rendered := make([]string, len(c.tasks))
		heights := make([]int, len(c.tasks))
		for i, t := range c.tasks {
			selected := ci == sel.Col && i == sel.Card
			rendered[i] = renderCard(ss, t, c.bucket, selected, st, l.colW)
			heights[i] = lineCount(rendered[i])
		}

		// Scroll so the selected card is fully visible.
		first := 0
		if ci == sel.Col && sel.Card >= 0 {
			for first < sel.Card {
				bottom := cardsTopOffset
				for i := first; i <= sel.Card; i++ {
					bottom += heights[i] + 1
				}
				if bottom-1 <= height {
					break
				}
				first++
			}
		}

		body := []string{""}
		row := cardsTopOffset
		for i := first; i < len(c.tasks); i++ {
			if row >= height {
				break
			}
			cs.cards = append(cs.cards, cardSlot{id: c.tasks[i].ID, top: row, height: heights[i], rendered: rendered[i]})
			body = append(body, strings.Split(rendered[i], "\n")...)
			row += heights[i]
			if i < len(c.tasks)-1 {
				sepW := l.colW - 2
				if sepW < 0 {
					sepW = 0
				}
				body = append(body, ss.muted.Render(" "+strings.Repeat(glyphHRule(), sepW)+" "))
				row++
			}
		}
		cs.body = body
		l.cols = append(l.cols, cs)
	}
	return l
}

func (l boardLayout) render() string {
	if len(l.cols) == 0 {
		return normalizePane("", l.width, l.height)
	}
	rendered := make([]string, 0, len(l.cols))
	for _, c := range l.cols {
		lines := append([]string{c.header}, c.body...)
		rendered = append(rendered, normalizePane(strings.Join(lines, "\n"), l.colW, l.height))
	}
	// JoinHorizontal has no inter-column spacing; insert gaps manually.
	out := rendered[0]
	sep := strings.Repeat(" ", l.gap)
	for i := 1; i < len(rendered); i++ {
		out = lipgloss.JoinHorizontal(lipgloss.Top, out, sep, rendered[i])
	}
	return normalizePane(out, l.width, l.height)
}

// targetAt maps a board-relative cell to a drop target: a card, else the column
// under it, else nothing.
func (l boardLayout) targetAt(x, y int) board.Target {
	if y < 0 || y >= l.height || x < 0 {
		return board.NoTarget()
	}
	for _, c := range l.cols {
		if x < c.x || x >= c.x+l.colW {
			continue
		}
		for _, card := range c.cards {
			if y >= card.top && y < card.top+card.height {
				return board.TaskTarget(card.id)
			}
		}
		return board.BucketTarget(c.bucket)
	}
	return board.NoTarget()
}

func renderCard(ss boardStyles, t model.Task, col model.Bucket, selected bool, st cardState, colW int) string {
	innerW := colW - 2
	if innerW < 1 {
		innerW = 1
	}
	itemStyle := lipgloss.NewStyle().Width(colW).Padding(0, 1)

	title := strings.TrimSpace(t.Title)
	if title == "" {
		title = "(untitled)"
	}
	prefix := "  "
	switch {
	case st.dragging == t.ID:
		prefix = glyphGrab() + " "
	case st.pending[t.ID]:
		prefix = st.spinner + " "
	}
	if xansi.StringWidth(prefix) != 2 {
		prefix = truncateToWidth(prefix, 1) + " "
	}
	titleLines := wrapPlainTextWithPrefix(title, innerW, prefix, "  ")

	titleStyle := ss.bold
	switch {
	case st.dragging == t.ID:
		titleStyle = ss.cardGrabbed
	case selected:
		titleStyle = ss.cardSelected
	case col == model.BucketDone:
		titleStyle = ss.cardDone
	}

	content := make([]string, 0, len(titleLines)+2)
	for _, ln := range titleLines {
		content = append(content, titleStyle.Render(ln))
	}
	for _, ln := range wrapTokens(cardMetaTokens(ss, t, selected, st.now), innerW-2) {
		content = append(content, "  "+ln)
	}

	inner := normalizePane(strings.Join(content, "\n"), innerW, 0)
	if selected {
		return itemStyle.Background(colorSelectedBg).Render(inner)
	}
	return itemStyle.Render(inner)
}

type token struct {
	s string
	w int
}

func cardMetaTokens(ss boardStyles, t model.Task, selected bool, now time.Time) []token {
	tokens := make([]token, 0, 5)
	add := func(st lipgloss.Style, s string) {
		if strings.TrimSpace(s) == "" {
			return
		}
		if selected {
			st = st.Background(colorSelectedBg)
		}
		seg := st.Render(s)
		tokens = append(tokens, token{s: seg, w: xansi.StringWidth(seg)})
	}

	meta := ss.meta
	if pst, label, ok := ss.priority(t.Priority); ok {
		add(pst, label)
	}
	if t.DueDate != nil {
		add(ss.due, formatDueLabel(*t.DueDate, now))
	}
	if a := strings.TrimSpace(t.Assignee); a != "" {
		add(meta, "@"+a)
	}
	if p := strings.TrimSpace(t.ProjectName); p != "" {
		add(meta, "#"+p)
	}
	if t.Comments > 0 {
		label := fmt.Sprintf("%d comments", t.Comments)
		if t.Comments == 1 {
			label = "1 comment"
		}
		add(meta, label)
	}
	return tokens
}

func formatDueLabel(due, now time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	d := due.UTC()
	today := now.UTC().Truncate(24 * time.Hour)
	days := int(d.Truncate(24*time.Hour).Sub(today).Hours() / 24)
	switch {
	case days == 0:
		return "due today"
	case days == 1:
		return "due tomorrow"
	case days < 0:
		return "overdue " + d.Format("Jan 2")
	default:
		return "due " + d.Format("Jan 2")
	}
}

func wrapTokens(tokens []token, maxW int) []string {
	if len(tokens) == 0 {
		return nil
	}
	if maxW <= 0 {
		maxW = 1
	}
	lines := make([]string, 0, 2)
	cur := make([]string, 0, 4)
	used := 0
	flush := func() {
		lines = append(lines, strings.Join(cur, " "))
		cur = nil
		used = 0
	}
	for _, tok := range tokens {
		next := tok.w
		if used > 0 {
			next++
		}
		if used+next <= maxW {
			cur = append(cur, tok.s)
			used += next
			continue
		}
		if len(cur) > 0 {
			flush()
		}
		// A single token wider than maxW is hard-cut.
		if tok.w > maxW {
			lines = append(lines, xansi.Cut(tok.s, 0, maxW))
			continue
		}
		cur = append(cur, tok.s)
		used = tok.w
	}
	if len(cur) > 0 {
		flush()
	}
	return lines
}

func wrapPlainTextWithPrefix(s string, maxW int, firstPrefix, contPrefix string) []string {
	if maxW <= 0 {
		return []string{""}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{firstPrefix}
	}
	firstAvail := maxW - xansi.StringWidth(firstPrefix)
	contAvail := maxW - xansi.StringWidth(contPrefix)
	if firstAvail < 1 {
		firstAvail = 1
	}
	if contAvail < 1 {
		contAvail = 1
	}

	lines := make([]string, 0, 4)
	linePrefix := firstPrefix
	avail := firstAvail
	cur := ""
	curW := 0
	flush := func() {
		lines = append(lines, linePrefix+cur)
		linePrefix = contPrefix
		avail = contAvail
		cur = ""
		curW = 0
	}
	// hardCut splits a word longer than the line and returns the remainder.
	hardCut := func(w string) string {
		for xansi.StringWidth(w) > avail {
			lines = append(lines, linePrefix+xansi.Cut(w, 0, avail))
			w = xansi.Cut(w, avail, xansi.StringWidth(w))
			linePrefix = contPrefix
			avail = contAvail
		}
		return w
	}

	for _, w := range strings.Fields(s) {
		wordW := xansi.StringWidth(w)
		if cur != "" && curW+1+wordW <= avail {
			cur += " " + w
			curW += 1 + wordW
			continue
		}
		if cur != "" {
			flush()
		}
		cur = hardCut(w)
		curW = xansi.StringWidth(cur)
	}
	if cur != "" || len(lines) == 0 {
		lines = append(lines, linePrefix+cur)
	}
	return lines
}
