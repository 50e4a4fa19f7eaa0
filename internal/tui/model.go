package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bookrec/internal/caption"
	"bookrec/internal/catalog"
	"bookrec/internal/export"
	"bookrec/internal/service"
)

const (
	MinLimit     = 1
	MaxLimit     = 15
	DefaultLimit = 5

	// descriptionChars bounds the description shown in the detail pane.
	descriptionChars = 600

	emptyQueryWarning = "Please enter a book description to get recommendations."
)

// Retriever is the TUI-facing subset of the retrieval engine.
type Retriever interface {
	Retrieve(ctx context.Context, q service.Query) (service.Result, error)
}

// Model is the Bubble Tea model for the recommendation form.
type Model struct {
	engine     Retriever
	defaults   service.Query
	input      textinput.Model
	viewport   viewport.Model
	categories []string
	tones      []string
	category   int
	tone       int
	limit      int
	result     service.Result
	status     string
	cursor     int
	ready      bool
	loading    bool
	lastQuery  string
	exportPath string
}

type resultMsg struct {
	query  string
	result service.Result
	err    error
}

type exportMsg struct {
	path string
	n    int
	err  error
}

// New creates a new TUI model instance. categories are the catalog's
// distinct categories; "All" is prepended.
func New(engine Retriever, categories []string, defaults service.Query) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "e.g. A story about resilience, adventure, and finding one's true path."
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		engine:     engine,
		defaults:   defaults,
		input:      ti,
		viewport:   vp,
		categories: append([]string{catalog.All}, categories...),
		tones:      append([]string{catalog.All}, catalog.Tones...),
		limit:      DefaultLimit,
		status:     "Describe the book you want to find and press Enter.",
		exportPath: export.DefaultFilename,
	}
}

// WithExportPath sets where ctrl+e writes the current results.
func (m Model) WithExportPath(path string) Model {
	m.exportPath = path
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + filters
		totalFooterLines := 2                                    // status + help
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case resultMsg:
		m.loading = false
		m.cursor = 0
		m.lastQuery = msg.query
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.result = service.Result{}
		} else {
			m.result = msg.result
			m.status = m.describe(msg.result)
		}
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case exportMsg:
		if msg.err != nil {
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Exported %d books to %s", msg.n, msg.path)
		}
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if m.loading {
				return m, nil
			}
			m.loading = true
			m.status = "Finding the best book recommendations for you..."
			return m, m.retrieve(m.input.Value())
		case "tab":
			m.category = (m.category + 1) % len(m.categories)
			return m, nil
		case "shift+tab":
			m.tone = (m.tone + 1) % len(m.tones)
			return m, nil
		case "pgup":
			m.limit = min(MaxLimit, m.limit+1)
			return m, nil
		case "pgdown":
			m.limit = max(MinLimit, m.limit-1)
			return m, nil
		case "ctrl+e":
			return m, m.export()
		case "down":
			if n := len(m.result.Books); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if n := len(m.result.Books); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) query(text string) service.Query {
	q := m.defaults
	q.Text = text
	q.Category = m.categories[m.category]
	q.Tone = m.tones[m.tone]
	q.ResultLimit = m.limit
	return q
}

func (m Model) retrieve(text string) tea.Cmd {
	q := m.query(text)
	engine := m.engine
	return func() tea.Msg {
		res, err := engine.Retrieve(context.Background(), q)
		return resultMsg{query: strings.TrimSpace(text), result: res, err: err}
	}
}

func (m Model) export() tea.Cmd {
	books := m.result.Books
	path := m.exportPath
	return func() tea.Msg {
		return exportMsg{path: path, n: len(books), err: export.WriteFile(path, books)}
	}
}

func (m Model) describe(res service.Result) string {
	switch res.Status {
	case service.StatusEmptyQuery:
		return emptyQueryWarning
	case service.StatusNoCandidates, service.StatusFallback:
		return res.Notice
	}
	return fmt.Sprintf("Here are your recommended books (%d).", len(res.Books))
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Semantic Book Recommender")
	filters := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(fmt.Sprintf(
		"Category: %s   Tone: %s   Recommendations: %d",
		m.categories[m.category], m.tones[m.tone], m.limit))
	input := queryBoxStyle.Render(m.input.View())
	statusStyle := okStyle
	if m.result.Degraded || strings.HasPrefix(m.status, "Error") {
		statusStyle = warnStyle
	}
	status := statusStyle.Render(m.status)
	help := helpStyle.Render("enter search • tab category • shift+tab tone • pgup/pgdn count • ↑/↓ browse • ctrl+e export csv • ctrl+c quit")
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + filters + "\n" + results + "\n" + input + "\n" + status + "\n" + help
}

func (m Model) renderCurrentResult() string {
	books := m.result.Books
	if len(books) == 0 {
		return "No results yet."
	}
	b := books[m.cursor]
	var sb strings.Builder
	fmt.Fprintf(&sb, "Result %d/%d\n\n", m.cursor+1, len(books))
	fmt.Fprintf(&sb, "Title:     %s\n", b.Title)
	fmt.Fprintf(&sb, "Author(s): %s\n", caption.Authors(b.Authors))
	fmt.Fprintf(&sb, "Category:  %s\n", orNA(b.Category))
	fmt.Fprintf(&sb, "Pages:     %s\n", intOrNA(b.NumPages))
	if b.AverageRating != nil {
		fmt.Fprintf(&sb, "Rating:    %.2f/5\n", *b.AverageRating)
	} else {
		sb.WriteString("Rating:    N/A\n")
	}
	fmt.Fprintf(&sb, "Year:      %s\n", intOrNA(b.PublishedYear))
	fmt.Fprintf(&sb, "Cover:     %s\n\n", b.LargeThumbnail)
	if strings.TrimSpace(b.Description) == "" {
		sb.WriteString("No description available.\n")
	} else {
		sb.WriteString(highlightBestSentence(truncateChars(b.Description, descriptionChars), m.lastQuery))
		sb.WriteString("\n")
	}
	sb.WriteString("\n" + caption.GoodreadsURL(b.Title))
	return sb.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
)

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func intOrNA(v *int) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprint(*v)
}

func truncateChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// highlightBestSentence emphasizes the sentence sharing the most words with the query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.TrimSpace(text)
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestScore == 0 {
		return strings.TrimSpace(text)
	}
	out := make([]string, 0, len(sentences))
	for i, s := range sentences {
		sent := strings.TrimSpace(s)
		switch {
		case sent == "":
		case i == bestIdx:
			out = append(out, highlightStyle.Render(sent))
		default:
			out = append(out, sent)
		}
	}
	return strings.Join(out, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
