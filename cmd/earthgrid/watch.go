package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1F47E/earthgrid/pkg/grid"
	"github.com/1F47E/earthgrid/pkg/models"
	"github.com/1F47E/earthgrid/pkg/overlay"
	"github.com/1F47E/earthgrid/pkg/remote"
)

const (
	panStep = 0.1 // fraction of the viewport per key press
	zoomIn  = 0.8
	zoomOut = 1.25
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Explore the overlay interactively",
	Long: `Interactive viewer. Arrow keys pan, +/- zoom. Every move regenerates the
overlay; with remote.base_url configured, live data is merged in.`,
	RunE: runWatch,
}

func init() {
	addViewportFlags(watchCmd)
}

type keyMap struct {
	Up, Down, Left, Right key.Binding
	ZoomIn, ZoomOut       key.Binding
	Quit                  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.ZoomIn, k.ZoomOut, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "north")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "south")),
	Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "west")),
	Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "east")),
	ZoomIn:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
	ZoomOut: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

type overlayMsg struct{ overlay *overlay.Overlay }

type attachedMsg struct{ cancel func() }

type errMsg struct{ err error }

type watchModel struct {
	feed    *overlay.Feed
	ctrl    *overlay.Controller
	layer   grid.Layer
	live    bool
	spinner spinner.Model
	help    help.Model

	current  *overlay.Overlay
	pending  models.Viewport
	unattach func()
	err      error
	width    int
}

func newWatchModel(feed *overlay.Feed, ctrl *overlay.Controller, layer grid.Layer, live bool) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return watchModel{
		feed:    feed,
		ctrl:    ctrl,
		layer:   layer,
		live:    live,
		spinner: s,
		help:    help.New(),
		pending: feed.Viewport(),
		width:   80,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.attach)
}

// attach runs the initial refresh off the event loop; the renderer
// delivers the overlay back through program.Send.
func (m watchModel) attach() tea.Msg {
	cancel, err := m.ctrl.Attach(context.Background(), m.feed)
	if err != nil {
		return errMsg{err}
	}
	return attachedMsg{cancel}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		vp := m.pending
		kind := overlay.MoveEnd
		switch {
		case key.Matches(msg, keys.Quit):
			if m.unattach != nil {
				m.unattach()
			}
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			vp = vp.Pan(vp.Height()*panStep, 0)
		case key.Matches(msg, keys.Down):
			vp = vp.Pan(-vp.Height()*panStep, 0)
		case key.Matches(msg, keys.Left):
			vp = vp.Pan(0, -vp.Width()*panStep)
		case key.Matches(msg, keys.Right):
			vp = vp.Pan(0, vp.Width()*panStep)
		case key.Matches(msg, keys.ZoomIn):
			vp, kind = vp.Zoom(zoomIn), overlay.ZoomEnd
		case key.Matches(msg, keys.ZoomOut):
			vp, kind = vp.Zoom(zoomOut), overlay.ZoomEnd
		default:
			return m, nil
		}
		m.pending = vp
		m.feed.Publish(kind, vp)
		return m, nil

	case overlayMsg:
		m.current = msg.overlay
		m.err = nil
		return m, nil

	case attachedMsg:
		m.unattach = msg.cancel
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("earthgrid · %s", m.layer)))
	if !m.live {
		b.WriteString(dimStyle.Render("  synthetic only"))
	}
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	if m.current == nil {
		b.WriteString(m.spinner.View() + " Generating overlay...\n")
	} else {
		b.WriteString(renderFrame(m.current, true))
		if m.current.Viewport != m.pending {
			b.WriteString(m.spinner.View() + dimStyle.Render(" refreshing"))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

// renderFrame draws the generated grid with its status lines.
func renderFrame(o *overlay.Overlay, color bool) string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render(renderViewport(o.Viewport)))
	b.WriteString("\n\n")
	b.WriteString(renderGrid(o.Generated(), color))
	b.WriteString("\n")
	b.WriteString(renderLegend(color))
	b.WriteString("\n")

	status := fmt.Sprintf("seq %s  generated %s  live %s",
		statStyle.Render(fmt.Sprint(o.Seq)),
		statStyle.Render(fmt.Sprint(o.GeneratedCount)),
		statStyle.Render(fmt.Sprint(o.RemoteCount)))
	b.WriteString(status)
	b.WriteString("\n")
	if o.Degraded {
		b.WriteString(warnStyle.Render("Live data unavailable, showing synthetic grid only"))
		b.WriteString("\n")
	}

	if len(o.Stations) > 0 {
		var lines []string
		for i, st := range o.Stations {
			if i == 5 {
				lines = append(lines, dimStyle.Render(fmt.Sprintf("… %d more", len(o.Stations)-i)))
				break
			}
			lines = append(lines, fmt.Sprintf("%-28s AQI %s", st.Name, statStyle.Render(fmt.Sprint(st.AQI))))
		}
		b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}
	return b.String()
}

func runWatch(cmd *cobra.Command, args []string) error {
	layer := grid.Layer(layerName)
	gen, err := cfg.NewGenerator(layer)
	if err != nil {
		return err
	}

	opts := []overlay.Option{overlay.WithLayer(layer), overlay.WithLogger(logger)}
	live := cfg.Remote.BaseURL != ""
	if live {
		client, err := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
		if err != nil {
			return err
		}
		opts = append(opts, overlay.WithLiveSource(client), overlay.WithFetchTimeout(cfg.Remote.Timeout))
	}

	hotspots, err := layerHotspots(layer)
	if err != nil {
		return err
	}

	vp := viewportFromFlags(cmd)
	out := cmd.OutOrStdout()

	if !isTerminal(out) {
		ctrl, err := overlay.NewController(gen, hotspots, opts...)
		if err != nil {
			return err
		}
		o, err := ctrl.Refresh(cmd.Context(), vp)
		if err != nil {
			return err
		}
		fmt.Fprint(out, renderFrame(o, false))
		return nil
	}

	// The renderer needs the program, and the program needs the model.
	var program *tea.Program
	opts = append(opts, overlay.WithRenderer(func(o *overlay.Overlay) {
		program.Send(overlayMsg{o})
	}))
	ctrl, err := overlay.NewController(gen, hotspots, opts...)
	if err != nil {
		return err
	}

	feed := overlay.NewFeed(vp)
	program = tea.NewProgram(newWatchModel(feed, ctrl, layer, live), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("viewer failed: %w", err)
	}
	ctrl.Wait()
	logger.Debug("Viewer closed", zap.String("layer", string(layer)))
	return nil
}
