package audit

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/vacancyfeed/internal/model"
	"github.com/amishk599/vacancyfeed/internal/pipeline"
)

// Lines per record item in the list view (title + subtitle + blank separator).
const recordItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	recordTitleStyle = lipgloss.NewStyle().
				Bold(true)

	recordSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	descDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	descHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	descBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

type auditModel struct {
	title        string
	records      []model.Record
	format       pipeline.FormatOptions
	listViewport viewport.Model
	previewPort  viewport.Model
	activePane   int // 0=list, 1=preview
	cursor       int
	width        int
	height       int
	ready        bool

	// Detail view state
	view            viewState
	detailViewport  viewport.Model
	showDescription bool

	wantQuit bool
}

func (m auditModel) Init() tea.Cmd {
	return nil
}

func (m auditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m auditModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		if m.activePane == 0 {
			m.moveCursor(-1)
			m.recalcContent()
			m.ensureCursorVisible()
			return m, nil
		}
	case "down", "j":
		if m.activePane == 0 {
			m.moveCursor(1)
			m.recalcContent()
			m.ensureCursorVisible()
			return m, nil
		}
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end, and arrows in the preview) to the active viewport.
	var cmd tea.Cmd
	if m.activePane == 0 {
		m.listViewport, cmd = m.listViewport.Update(msg)
	} else {
		m.previewPort, cmd = m.previewPort.Update(msg)
	}
	return m, cmd
}

func (m auditModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if rec, ok := m.selected(); ok {
			openURL(rec.URL)
		}
		return m, nil
	case "r":
		if rec, ok := m.selected(); ok && rec.Description.Text() != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m auditModel) selected() (model.Record, bool) {
	if len(m.records) == 0 {
		return model.Record{}, false
	}
	return m.records[m.cursor], true
}

func (m *auditModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.records)-1, 0))
	m.previewPort.SetYOffset(0)
}

func (m *auditModel) ensureCursorVisible() {
	vp := &m.listViewport
	cursorTop := m.cursor * recordItemHeight
	cursorBottom := cursorTop + recordItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m auditModel) openDetailView() (tea.Model, tea.Cmd) {
	if len(m.records) == 0 {
		return m, nil
	}
	m.view = viewDetail
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *auditModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.listViewport = viewport.New(paneWidth, paneHeight)
		m.previewPort = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.listViewport.Width = paneWidth
		m.listViewport.Height = paneHeight
		m.previewPort.Width = paneWidth
		m.previewPort.Height = paneHeight
	}

	m.recalcContent()
}

func (m *auditModel) recalcContent() {
	m.listViewport.SetContent(renderRecords(m.records, m.cursor, m.activePane == 0))
	rec, ok := m.selected()
	if !ok {
		m.previewPort.SetContent("  (nothing to preview)")
		return
	}
	m.previewPort.SetContent(renderPreview(rec, m.format, max(m.previewPort.Width-2, 20)))
}

func (m auditModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.view == viewDetail {
		return m.viewDetail()
	}

	return m.viewList()
}

func (m auditModel) viewList() string {
	paneWidth := m.listViewport.Width

	leftHeader := fmt.Sprintf(" %s (%d)", m.title, len(m.records))
	rightHeader := " Message Preview"

	var leftHeaderRendered, rightHeaderRendered string
	var leftBorder, rightBorder lipgloss.Style

	if m.activePane == 0 {
		leftHeaderRendered = activeHeaderStyle.Render(leftHeader)
		rightHeaderRendered = inactiveHeaderStyle.Render(rightHeader)
		leftBorder = activeBorderStyle.Width(paneWidth)
		rightBorder = inactiveBorderStyle.Width(paneWidth)
	} else {
		leftHeaderRendered = inactiveHeaderStyle.Render(leftHeader)
		rightHeaderRendered = activeHeaderStyle.Render(rightHeader)
		leftBorder = inactiveBorderStyle.Width(paneWidth)
		rightBorder = activeBorderStyle.Width(paneWidth)
	}

	leftPane := leftBorder.Render(m.listViewport.View())
	rightPane := rightBorder.Render(m.previewPort.View())

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderRendered),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, " ", rightPane)

	statusText := fmt.Sprintf(" %d records    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit", len(m.records))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m auditModel) viewDetail() string {
	title := detailTitleStyle.Render("Record Details")

	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	statusText := " o open URL  esc/backspace back  ↑/↓ scroll  q quit"
	if rec, ok := m.selected(); ok && rec.Description.Text() != "" {
		statusText = " o open URL  r desc  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m auditModel) renderDetail() string {
	r, ok := m.selected()
	if !ok {
		return ""
	}
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Title", r.Title)
	addField("Company", deref(r.Company))
	addField("IT accredited", yesNo(r.ITAccredited))
	addField("Salary", pipeline.SalaryLine(r.SalaryFrom, r.SalaryTo, r.SalaryCurrency))
	addField("Record ID", r.ID)

	b.WriteByte('\n')
	addField("Published", r.PublishedAt)
	addField("First seen", fmtLocal(r.FirstSeenAt))
	if r.SentAt != nil {
		addField("Sent at", fmtLocal(*r.SentAt))
	}
	addField("Sent", yesNo(r.Sent))

	b.WriteByte('\n')
	addField("Description", r.Description.State.String())
	addField("Summary", r.Summary.State.String())
	if r.InputWordCount != nil {
		addField("Input words", strconv.Itoa(*r.InputWordCount))
	}
	if r.InputTokenCount != nil && r.OutputTokenCount != nil {
		addField("Tokens", fmt.Sprintf("%d in / %d out", *r.InputTokenCount, *r.OutputTokenCount))
	}
	if r.GenerationLatencyMS != nil {
		addField("Latency", fmt.Sprintf("%d ms", *r.GenerationLatencyMS))
	}
	if r.CostEstimate != nil {
		addField("Cost", fmt.Sprintf("%.4f %s", *r.CostEstimate, m.format.CostUnit))
	}

	b.WriteByte('\n')
	addField("URL", r.URL)

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return descDividerStyle.Render(label + fill)
	}

	switch {
	case r.Summary.IsSucceeded():
		b.WriteByte('\n')
		b.WriteString(divider("── Summary ") + "\n\n")
		b.WriteString(descBodyStyle.Render(wordWrap(r.Summary.Text(), wrapWidth)) + "\n")
	case r.Summary.IsFailed():
		b.WriteByte('\n')
		b.WriteString(failureStyle.Render("⚠ summary failed: "+r.Summary.Text()) + "\n")
	default:
		b.WriteByte('\n')
		b.WriteString(descHintStyle.Render("  summary not generated yet") + "\n")
	}

	if r.Description.IsFailed() {
		b.WriteByte('\n')
		b.WriteString(failureStyle.Render("⚠ description failed: "+r.Description.Text()) + "\n")
	} else if r.Description.Text() != "" {
		b.WriteByte('\n')
		if m.showDescription {
			b.WriteString(divider("── Description ") + "\n\n")
			b.WriteString(descBodyStyle.Render(wordWrap(r.Description.Text(), wrapWidth)) + "\n")
		} else {
			b.WriteString(descHintStyle.Render("  press r to read the full description") + "\n")
		}
	}

	return b.String()
}

// renderPreview shows the chat message the record would be published as.
func renderPreview(rec model.Record, opts pipeline.FormatOptions, width int) string {
	if rec.Summary.IsPending() {
		return descHintStyle.Render("  not publishable until summarized")
	}
	var lines []string
	for _, line := range strings.Split(pipeline.FormatMessage(rec, opts), "\n") {
		lines = append(lines, wordWrap(line, width))
	}
	return strings.Join(lines, "\n")
}

func renderRecords(records []model.Record, cursor int, isActive bool) string {
	if len(records) == 0 {
		return "  (no records)"
	}

	var b strings.Builder
	for i, r := range records {
		isSelected := isActive && i == cursor

		titleSt := recordTitleStyle
		subtitleSt := recordSubtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedTitleStyle
			subtitleSt = selectedSubtitleStyle
			prefix = "> "
		} else if i == cursor {
			prefix = "· "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(r.Title))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s · %s", deref(r.Company), r.FirstSeenAt.Format("2006-01-02"), stageLabel(r))))
		b.WriteByte('\n')

		if i < len(records)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// stageLabel is a short status tag for the list view.
func stageLabel(r model.Record) string {
	switch {
	case r.Sent:
		return "sent"
	case r.Summary.IsPending():
		return "awaiting summary"
	case r.HasFailure():
		return "failed"
	default:
		return "ready"
	}
}

func sortRecordsNewestFirst(records []model.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].FirstSeenAt.After(records[j].FirstSeenAt)
	})
}

func fmtLocal(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04 MST")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len([]rune(line))+1+len([]rune(w)) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunAuditTUI launches the split-pane record browser: records on the left and
// the rendered chat message of the selected record on the right.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed esc to return to the picker.
func RunAuditTUI(title string, records []model.Record, format pipeline.FormatOptions) (bool, error) {
	records = append([]model.Record(nil), records...)
	sortRecordsNewestFirst(records)

	m := auditModel{
		title:   title,
		records: records,
		format:  format,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	final := result.(auditModel)
	return final.wantQuit, nil
}
