package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"taskboard/internal/board"
	"taskboard/internal/model"
	"taskboard/internal/remote"
	"taskboard/internal/store"
)

// Remote is everything the board needs from the task API.
type Remote interface {
	board.Remote
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, req remote.CreateRequest) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type mode int

const (
	modeBoard mode = iota
	modeNewTask
	modeConfirmDelete
)

const (
	flashDuration = 6 * time.Second
	// Title bar plus a spacer row.
	boardTop = 2
)

type fetchedMsg struct {
	since uint64
	tasks []model.Task
	err   error
}

type moveResultMsg struct{ res board.Result }

type refreshTickMsg struct{}

type createdMsg struct {
	task model.Task
	err  error
}

type deletedMsg struct {
	id    string
	title string
	err   error
}

type flashDoneMsg struct{ seq int }

type appModel struct {
	ctx    context.Context
	remote Remote
	ctl    *board.Controller
	drag   *board.DragAdapter
	log    logrus.FieldLogger

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	title   textinput.Model
	desc    textarea.Model

	stateDir     string
	uiState      *store.UIState
	project      string
	refreshEvery time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	width  int
	height int

	mode       mode
	sel        boardSelection
	showDetail bool
	descFocus  bool
	deleteID   string

	loading  bool
	fetching bool
	// refetch is set when a create or delete lands while a fetch is in flight.
	// That fetch's result predates the change, so it is dropped and a new one
	// starts.
	refetch   bool
	spinning  bool
	lastFetch time.Time
	fetchErr  error

	flash    string
	flashErr bool
	flashSeq int
}

func newAppModel(ctx context.Context, opts Options) appModel {
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	ctl := board.NewController(board.NewStore(), opts.Remote,
		board.WithLogger(log),
		board.WithTimeout(opts.MoveTimeout),
	)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = newBoardStyles().spinner

	ti := textinput.New()
	ti.Placeholder = "Task title"
	ti.Prompt = "Title: "
	ti.CharLimit = 200

	ta := textarea.New()
	ta.Placeholder = "Description (markdown, optional)"
	ta.ShowLineNumbers = false
	ta.SetHeight(4)

	m := appModel{
		ctx:          ctx,
		remote:       opts.Remote,
		ctl:          ctl,
		drag:         board.NewDragAdapter(ctl, log),
		log:          log,
		keys:         defaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		title:        ti,
		desc:         ta,
		stateDir:     opts.StateDir,
		project:      strings.TrimSpace(opts.Project),
		refreshEvery: opts.RefreshInterval,
		fetchTimeout: opts.FetchTimeout,
		now:          time.Now,
		loading:      true,
		fetching:     true,
		spinning:     true,
	}

	st, err := store.LoadUIState(opts.StateDir)
	if err != nil {
		log.WithError(err).Warn("could not read ui state")
		st = &store.UIState{Version: 1}
	}
	m.uiState = st
	m.sel = boardSelection{Col: st.Column.Index(), TaskID: st.SelectedTaskID}
	if m.sel.Col < 0 {
		m.sel.Col = 0
	}
	m.showDetail = st.ShowDetail
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		fetchTasks(m.ctx, m.remote, m.ctl.Store().Generation(), m.fetchTimeout),
		m.spinner.Tick,
		tickRefresh(m.refreshEvery),
	)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	return m, cmd
}

func (m *appModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.title.Width = msg.Width - 10
		m.desc.SetWidth(msg.Width - 2)
		return nil

	case fetchedMsg:
		return m.applyFetch(msg)

	case moveResultMsg:
		n := m.ctl.Resolve(msg.res)
		m.sel = m.board().clamp(m.sel)
		if n == nil {
			return nil
		}
		text := n.Message
		if errors.Is(n.Err, remote.ErrUnauthorized) {
			text += " (check the api token)"
		}
		return m.showFlash(text, true)

	case refreshTickMsg:
		return tea.Batch(m.startFetch(), tickRefresh(m.refreshEvery))

	case createdMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("create task failed")
			return m.showFlash("Could not create task: "+msg.err.Error(), true)
		}
		m.ctl.Store().Merge(msg.task)
		m.sel = m.board().clamp(boardSelection{TaskID: msg.task.ID})
		return tea.Batch(m.showFlash(fmt.Sprintf("Created %q", msg.task.Title), false), m.fetchAfterChange())

	case deletedMsg:
		if msg.err != nil && !errors.Is(msg.err, board.ErrTaskNotFound) {
			m.log.WithError(msg.err).WithField("task", msg.id).Warn("delete task failed")
			return m.showFlash("Could not delete task: "+msg.err.Error(), true)
		}
		return tea.Batch(m.showFlash(fmt.Sprintf("Deleted %q", msg.title), false), m.fetchAfterChange())

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
			m.flashErr = false
		}
		return nil

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return nil
		}
		m.spinning = true
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.MouseMsg:
		if m.mode != modeBoard {
			return nil
		}
		return m.handleMouse(msg)

	case tea.KeyMsg:
		switch m.mode {
		case modeNewTask:
			return m.updateNewTask(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		}
		return m.updateBoard(msg)
	}
	return nil
}

func (m *appModel) updateBoard(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		m.saveUIState()
		return tea.Quit
	}
	if key.Matches(msg, m.keys.Dismiss) {
		m.flash = ""
		m.flashErr = false
		return nil
	}
	if key.Matches(msg, m.keys.Help) {
		m.help.ShowAll = !m.help.ShowAll
		return nil
	}

	if active, ok := m.drag.Active(); ok {
		switch {
		case key.Matches(msg, m.keys.Left):
			m.hoverStep(-1)
		case key.Matches(msg, m.keys.Right):
			m.hoverStep(1)
		case key.Matches(msg, m.keys.Grab), key.Matches(msg, m.keys.Detail):
			return m.dispatch(m.drag.DragEnd(active, m.drag.Over()))
		case key.Matches(msg, m.keys.Cancel):
			return m.dispatch(m.drag.DragEnd(active, board.NoTarget()))
		}
		return nil
	}

	b := m.board()
	switch {
	case key.Matches(msg, m.keys.Left):
		m.sel = b.clamp(boardSelection{Col: m.sel.Col - 1, Card: m.sel.Card})
	case key.Matches(msg, m.keys.Right):
		m.sel = b.clamp(boardSelection{Col: m.sel.Col + 1, Card: m.sel.Card})
	case key.Matches(msg, m.keys.Up):
		m.sel = b.clamp(boardSelection{Col: m.sel.Col, Card: m.sel.Card - 1})
	case key.Matches(msg, m.keys.Down):
		m.sel = b.clamp(boardSelection{Col: m.sel.Col, Card: m.sel.Card + 1})
	case key.Matches(msg, m.keys.Grab):
		if t, ok := b.selected(m.sel); ok && m.drag.DragStart(t.ID) {
			m.drag.DragOver(board.BucketTarget(t.Bucket))
		}
	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail
	case key.Matches(msg, m.keys.Cancel):
		m.showDetail = false
		m.help.ShowAll = false
	case key.Matches(msg, m.keys.MoveTo):
		t, ok := b.selected(m.sel)
		if !ok {
			return nil
		}
		buckets := model.Buckets()
		i := int(msg.String()[0] - '1')
		if i < 0 || i >= len(buckets) || !m.drag.DragStart(t.ID) {
			return nil
		}
		return m.dispatch(m.drag.DragEnd(t.ID, board.BucketTarget(buckets[i])))
	case key.Matches(msg, m.keys.New):
		m.mode = modeNewTask
		m.descFocus = false
		m.title.Reset()
		m.desc.Reset()
		m.desc.Blur()
		return m.title.Focus()
	case key.Matches(msg, m.keys.Delete):
		if t, ok := b.selected(m.sel); ok {
			m.mode = modeConfirmDelete
			m.deleteID = t.ID
		}
	case key.Matches(msg, m.keys.Refresh):
		return m.startFetch()
	}
	return nil
}

// hoverStep moves the keyboard drag hover one column left or right.
func (m *appModel) hoverStep(delta int) {
	buckets := model.Buckets()
	cur, ok := m.drag.HoverBucket()
	i := cur.Index()
	if !ok || i < 0 {
		i = 0
	}
	i += delta
	if i < 0 {
		i = 0
	}
	if i >= len(buckets) {
		i = len(buckets) - 1
	}
	m.drag.DragOver(board.BucketTarget(buckets[i]))
}

func (m *appModel) handleMouse(msg tea.MouseMsg) tea.Cmd {
	// X10 releases carry no button, so only presses are filtered.
	if msg.Action == tea.MouseActionPress && msg.Button != tea.MouseButtonLeft {
		return nil
	}
	target := m.layout().targetAt(msg.X, msg.Y-boardTop)

	switch msg.Action {
	case tea.MouseActionPress:
		switch target.Kind {
		case board.TargetTask:
			m.sel = m.board().clamp(boardSelection{TaskID: target.ID})
			if m.drag.DragStart(target.ID) {
				m.drag.DragOver(target)
			}
		case board.TargetBucket:
			col := model.Bucket(target.ID).Index()
			m.sel = m.board().clamp(boardSelection{Col: col})
		}
		return nil
	case tea.MouseActionMotion:
		if _, ok := m.drag.Active(); ok {
			m.drag.DragOver(target)
		}
		return nil
	case tea.MouseActionRelease:
		active, ok := m.drag.Active()
		if !ok {
			return nil
		}
		return m.dispatch(m.drag.DragEnd(active, target))
	}
	return nil
}

func (m *appModel) updateNewTask(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.mode = modeBoard
		m.title.Blur()
		m.desc.Blur()
		return nil
	case "tab", "shift+tab":
		m.descFocus = !m.descFocus
		if m.descFocus {
			m.title.Blur()
			return m.desc.Focus()
		}
		m.desc.Blur()
		return m.title.Focus()
	case "ctrl+s":
		return m.submitNewTask()
	case "enter":
		if !m.descFocus {
			return m.submitNewTask()
		}
	}

	var cmd tea.Cmd
	if m.descFocus {
		m.desc, cmd = m.desc.Update(msg)
	} else {
		m.title, cmd = m.title.Update(msg)
	}
	return cmd
}

func (m *appModel) submitNewTask() tea.Cmd {
	title := strings.TrimSpace(m.title.Value())
	if title == "" {
		return m.showFlash("Title is required", true)
	}
	if m.remote == nil {
		return m.showFlash("No remote configured", true)
	}
	req := remote.CreateRequest{
		Title:       title,
		Description: strings.TrimSpace(m.desc.Value()),
		Status:      m.currentBucket(),
		ProjectID:   m.project,
	}
	m.mode = modeBoard
	m.title.Blur()
	m.desc.Blur()
	return createTask(m.ctx, m.remote, req, m.fetchTimeout)
}

func (m *appModel) updateConfirmDelete(msg tea.KeyMsg) tea.Cmd {
	id := m.deleteID
	switch msg.String() {
	case "y", "Y":
		m.mode = modeBoard
		m.deleteID = ""
		if m.remote == nil {
			return m.showFlash("No remote configured", true)
		}
		t, _ := m.ctl.View().Get(id)
		return deleteTask(m.ctx, m.remote, id, t.Title, m.fetchTimeout)
	case "n", "N", "esc", "q":
		m.mode = modeBoard
		m.deleteID = ""
	}
	return nil
}

// dispatch sends the remote update for a recorded move off the event loop.
func (m *appModel) dispatch(req *board.Request, err error) tea.Cmd {
	m.sel = m.board().clamp(m.sel)
	if err != nil {
		return m.showFlash(err.Error(), true)
	}
	if req == nil {
		return nil
	}
	ctl, ctx, r := m.ctl, m.ctx, *req
	return tea.Batch(
		func() tea.Msg { return moveResultMsg{res: ctl.Dispatch(ctx, r)} },
		m.ensureSpinner(),
	)
}

func (m *appModel) applyFetch(msg fetchedMsg) tea.Cmd {
	m.fetching = false
	if m.refetch {
		m.refetch = false
		m.log.WithField("since", msg.since).Debug("dropping fetch superseded by a local change")
		return m.startFetch()
	}
	m.loading = false
	if msg.err != nil {
		m.fetchErr = msg.err
		m.log.WithError(msg.err).Warn("fetch tasks failed")
		if errors.Is(msg.err, remote.ErrUnauthorized) {
			return m.showFlash("Unauthorized: check the api token", true)
		}
		return nil
	}
	m.fetchErr = nil
	m.lastFetch = m.now()
	m.ctl.Refresh(msg.since, msg.tasks)
	if active, ok := m.drag.Active(); ok {
		if _, still := m.ctl.Bucket(active); !still {
			m.drag.Cancel()
		}
	}
	m.sel = m.board().clamp(m.sel)
	return nil
}

func (m *appModel) startFetch() tea.Cmd {
	if m.fetching || m.remote == nil {
		return nil
	}
	m.fetching = true
	return tea.Batch(
		fetchTasks(m.ctx, m.remote, m.ctl.Store().Generation(), m.fetchTimeout),
		m.ensureSpinner(),
	)
}

// fetchAfterChange reloads the board after a local create or delete.
func (m *appModel) fetchAfterChange() tea.Cmd {
	if m.fetching {
		m.refetch = true
		return nil
	}
	return m.startFetch()
}

func (m *appModel) busy() bool {
	return m.loading || m.fetching || len(m.ctl.PendingIDs()) > 0
}

func (m *appModel) ensureSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m *appModel) showFlash(text string, isErr bool) tea.Cmd {
	m.flashSeq++
	seq := m.flashSeq
	m.flash = text
	m.flashErr = isErr
	return tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}

func (m appModel) board() boardModel { return buildBoard(m.ctl.View()) }

func (m appModel) currentBucket() model.Bucket {
	buckets := model.Buckets()
	if m.sel.Col >= 0 && m.sel.Col < len(buckets) {
		return buckets[m.sel.Col]
	}
	return model.BucketTodo
}

func (m *appModel) saveUIState() {
	st := m.uiState
	if st == nil {
		st = &store.UIState{Version: 1}
	}
	st.Column = m.currentBucket()
	st.SelectedTaskID = m.sel.TaskID
	st.ShowDetail = m.showDetail
	if err := store.SaveUIState(m.stateDir, st); err != nil {
		m.log.WithError(err).Warn("could not save ui state")
	}
}

func fetchTasks(ctx context.Context, r Remote, since uint64, timeout time.Duration) tea.Cmd {
	if r == nil {
		return func() tea.Msg { return fetchedMsg{since: since, err: errors.New("no remote configured")} }
	}
	return func() tea.Msg {
		ctx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		tasks, err := r.ListTasks(ctx)
		return fetchedMsg{since: since, tasks: tasks, err: err}
	}
}

func createTask(ctx context.Context, r Remote, req remote.CreateRequest, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		t, err := r.CreateTask(ctx, req)
		return createdMsg{task: t, err: err}
	}
}

func deleteTask(ctx context.Context, r Remote, id, title string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		return deletedMsg{id: id, title: title, err: r.DeleteTask(ctx, id)}
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

func tickRefresh(every time.Duration) tea.Cmd {
	if every <= 0 {
		return nil
	}
	return tea.Tick(every, func(time.Time) tea.Msg { return refreshTickMsg{} })
}
