package tui

import (
	"fmt"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"

	"taskboard/internal/model"
)

func (m appModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	lower := m.renderLowerPane()
	footer := m.renderFooter()
	l := m.layoutWith(lower, footer)

	parts := []string{m.renderTitleBar(), "", l.render()}
	if lower != "" {
		parts = append(parts, lower)
	}
	parts = append(parts, footer)
	return normalizePane(strings.Join(parts, "\n"), m.width, m.height)
}

// layout recomputes the board geometry the same way View does, for mouse
// hit-testing.
func (m appModel) layout() boardLayout {
	return m.layoutWith(m.renderLowerPane(), m.renderFooter())
}

func (m appModel) layoutWith(lower, footer string) boardLayout {
	boardH := m.height - boardTop - lineCount(footer) - lineCount(lower)
	if boardH < 3 {
		boardH = 3
	}
	return layoutBoard(m.board(), m.sel, m.cardState(), m.width, boardH)
}

func (m appModel) renderLowerPane() string {
	switch {
	case m.mode == modeNewTask:
		return m.renderNewTaskForm()
	case m.showDetail:
		return m.renderDetail(m.detailHeight())
	}
	return ""
}

func (m appModel) cardState() cardState {
	st := cardState{
		pending: map[string]bool{},
		spinner: m.spinner.View(),
		now:     m.now(),
	}
	for _, id := range m.ctl.PendingIDs() {
		st.pending[id] = true
	}
	if id, ok := m.drag.Active(); ok {
		st.dragging = id
		if b, ok := m.drag.HoverBucket(); ok {
			st.hover = b
		}
	}
	return st
}

func (m appModel) renderTitleBar() string {
	ss := newBoardStyles()
	left := ss.bold.Render("Task Board")
	if name := m.projectLabel(); name != "" {
		left += ss.muted.Render(" " + glyphDot() + " " + name)
	}

	var right string
	if id, ok := m.drag.Active(); ok {
		t, _ := m.ctl.View().Get(id)
		label := "(no column)"
		if b, ok := m.drag.HoverBucket(); ok {
			label = b.Label()
		}
		right = ss.overlay.Render(fmt.Sprintf("Moving: %s %s %s", displayTitle(t), glyphArrow(), label))
	} else {
		right = m.renderStatus(ss)
	}

	gap := m.width - xansi.StringWidth(left) - xansi.StringWidth(right)
	if gap < 1 {
		return truncateToWidth(left+" "+right, m.width)
	}
	return left + strings.Repeat(" ", gap) + right
}

// projectLabel names the board's project: the project name carried by its
// tasks, or the bare id until one is loaded.
func (m appModel) projectLabel() string {
	if m.project == "" {
		return ""
	}
	for _, t := range m.ctl.Store().Snapshot().Tasks() {
		if t.ProjectID == m.project && strings.TrimSpace(t.ProjectName) != "" {
			return strings.TrimSpace(t.ProjectName)
		}
	}
	return m.project
}

func (m appModel) renderStatus(ss boardStyles) string {
	muted := ss.muted
	parts := make([]string, 0, 3)
	switch {
	case m.loading:
		parts = append(parts, m.spinner.View()+" Loading tasks…")
	case m.fetching:
		parts = append(parts, m.spinner.View()+" Refreshing…")
	}
	if n := len(m.ctl.PendingIDs()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d saving", n))
	}
	if m.fetchErr != nil && !m.fetching {
		parts = append(parts, ss.offline.Render("offline: "+truncateToWidth(m.fetchErr.Error(), 40)))
	} else if !m.lastFetch.IsZero() && !m.loading && !m.fetching {
		parts = append(parts, muted.Render("updated "+m.lastFetch.Format("15:04:05")))
	}
	return strings.Join(parts, muted.Render(" "+glyphDot()+" "))
}

func (m appModel) detailHeight() int {
	h := m.height / 3
	if h > 14 {
		h = 14
	}
	if h < 4 {
		h = 4
	}
	return h
}

func (m appModel) renderDetail(h int) string {
	ss := newBoardStyles()
	rule := ss.muted.Render(strings.Repeat(glyphHRule(), m.width))
	t, ok := m.board().selected(m.sel)
	if !ok {
		return normalizePane(rule+"\n"+ss.muted.Render("No task selected"), m.width, h)
	}

	lines := []string{rule, ss.bold.Render(displayTitle(t))}

	meta := []string{t.Bucket.Label()}
	if t.Priority.Valid() {
		meta = append(meta, strings.ToLower(string(t.Priority))+" priority")
	}
	if t.DueDate != nil {
		meta = append(meta, formatDueLabel(*t.DueDate, m.now()))
	}
	if a := strings.TrimSpace(t.Assignee); a != "" {
		meta = append(meta, "@"+a)
	}
	if p := strings.TrimSpace(t.ProjectName); p != "" {
		meta = append(meta, "#"+p)
	}
	if m.ctl.IsPending(t.ID) {
		meta = append(meta, m.spinner.View()+" updating")
	}
	lines = append(lines, ss.muted.Render(strings.Join(meta, " "+glyphDot()+" ")))

	if desc := renderMarkdown(t.Description, m.width); desc != "" {
		lines = append(lines, strings.TrimRight(desc, "\n"))
	} else {
		lines = append(lines, ss.muted.Render("No description"))
	}
	return normalizePane(strings.Join(lines, "\n"), m.width, h)
}

func (m appModel) renderNewTaskForm() string {
	ss := newBoardStyles()
	rule := ss.muted.Render(strings.Repeat(glyphHRule(), m.width))
	head := ss.bold.Render("New task in " + m.currentBucket().Label())
	hint := ss.muted.Render("enter: create  tab: description  ctrl+s: create  esc: cancel")
	return strings.Join([]string{rule, head, m.title.View(), m.desc.View(), hint}, "\n")
}

func (m appModel) renderFooter() string {
	ss := newBoardStyles()
	var notice string
	switch {
	case m.mode == modeConfirmDelete:
		t, _ := m.ctl.View().Get(m.deleteID)
		notice = ss.confirm.Render(fmt.Sprintf("Delete %q? y/n", displayTitle(t)))
	case m.flash != "":
		notice = ss.flash(m.flashErr).Render(truncateToWidth(m.flash, m.width-4)) + ss.muted.Render("  x dismiss")
	}
	return notice + "\n" + m.help.View(m.keys)
}

func displayTitle(t model.Task) string {
	if s := strings.TrimSpace(t.Title); s != "" {
		return s
	}
	if t.ID != "" {
		return t.ID
	}
	return "(untitled)"
}
