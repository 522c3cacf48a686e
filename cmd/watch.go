// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fuelcore/mkr5ctl/pkg/mkr5"
)

var (
	watchFrom     string
	watchTo       string
	watchInterval int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live pump status dashboard",
	Long: `Continuously scan an address range and display every pump found in a
live table: status, flags and the current filling figures for pumps that
are delivering.

Key bindings:
  q / Ctrl+C  quit
  up / down   move the table cursor

Examples:
  mkr5ctl watch --port /dev/ttyS4
  mkr5ctl watch --from 0x50 --to 0x57 --interval 2 --port /dev/ttyS4`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchFrom, "from", "0x50", "First address to scan")
	watchCmd.Flags().StringVar(&watchTo, "to", "0x6F", "Last address to scan")
	watchCmd.Flags().IntVar(&watchInterval, "interval", 3, "Seconds between scan passes")
}

// pumpRow is one pump's latest observation.
type pumpRow struct {
	address byte
	status  mkr5.PumpStatus
	filling mkr5.FillingInfo
	seen    time.Time
}

type scanPassMsg struct {
	rows []pumpRow
	took time.Duration
}

type watchTickMsg time.Time

var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	watchDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	watchErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	watchTableStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

// watchModel drives the dashboard. The session is used only from the
// scan command goroutine, one pass at a time, so the half-duplex rule
// holds.
type watchModel struct {
	session  *mkr5.Session
	connInfo string
	low      byte
	high     byte
	interval time.Duration

	table    table.Model
	pumps    map[byte]pumpRow
	lastPass time.Duration
	passes   int
	scanning bool
	quitting bool
}

func newWatchModel(s *mkr5.Session, connInfo string, low, high byte, interval time.Duration) watchModel {
	columns := []table.Column{
		{Title: "Addr", Width: 6},
		{Title: "Nozzle", Width: 6},
		{Title: "Status", Width: 20},
		{Title: "Flags", Width: 18},
		{Title: "Volume (L)", Width: 12},
		{Title: "Amount", Width: 10},
		{Title: "Seen", Width: 10},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).BorderBottom(true)
	st.Selected = st.Selected.Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(st)

	return watchModel{
		session:  s,
		connInfo: connInfo,
		low:      low,
		high:     high,
		interval: interval,
		table:    t,
		pumps:    make(map[byte]pumpRow),
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.scanCmd()
}

// scanCmd runs one full scan pass. Filling figures are fetched only for
// pumps that are actively delivering.
func (m watchModel) scanCmd() tea.Cmd {
	s, low, high := m.session, m.low, m.high
	return func() tea.Msg {
		start := time.Now()
		var rows []pumpRow
		for res := range s.ScanRange(low, high) {
			if !res.Present {
				continue
			}
			row := pumpRow{address: res.Address, status: res.Status, seen: time.Now()}
			if res.Status.Valid && res.Status.Status == mkr5.StatusFilling {
				row.filling = s.GetFillingInfo(res.Address, res.Status.NozzleNumber)
			}
			rows = append(rows, row)
		}
		return scanPassMsg{rows: rows, took: time.Since(start)}
	}
}

func watchTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case scanPassMsg:
		m.scanning = false
		m.passes++
		m.lastPass = msg.took
		for _, row := range msg.rows {
			m.pumps[row.address] = row
		}
		m.refreshTable()
		return m, watchTickCmd(m.interval)

	case watchTickMsg:
		if !m.scanning {
			m.scanning = true
			return m, m.scanCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *watchModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.pumps))
	for addr := m.low; addr <= m.high; addr++ {
		row, ok := m.pumps[addr]
		if !ok {
			continue
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("0x%02X", row.address),
			fmt.Sprintf("%d", row.status.NozzleNumber),
			statusCell(row.status),
			flagsCell(row.status),
			volumeCell(row.filling),
			amountCell(row.filling),
			row.seen.Format("15:04:05"),
		})
	}
	m.table.SetRows(rows)
}

func statusCell(st mkr5.PumpStatus) string {
	if !st.Valid {
		return "unreadable"
	}
	return st.Description
}

func flagsCell(st mkr5.PumpStatus) string {
	if !st.Valid {
		return ""
	}
	out := ""
	if st.NozzleOn {
		out += "nozzle-on "
	}
	if st.RFTagSensed {
		out += "rf-tag "
	}
	if st.ErrorFlag {
		out += "ERROR"
	}
	return out
}

func volumeCell(fi mkr5.FillingInfo) string {
	if !fi.Valid {
		return "-"
	}
	return fmt.Sprintf("%.3f", float64(fi.Volume)/1000)
}

func amountCell(fi mkr5.FillingInfo) string {
	if !fi.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f", float64(fi.Amount)/100)
}

func (m watchModel) View() string {
	if m.quitting {
		return ""
	}

	header := watchTitleStyle.Render("MKR5 pump watch") + "  " +
		watchDimStyle.Render(m.connInfo)

	status := fmt.Sprintf("range 0x%02X-0x%02X  pumps %d  passes %d",
		m.low, m.high, len(m.pumps), m.passes)
	if m.lastPass > 0 {
		status += fmt.Sprintf("  last pass %s", m.lastPass.Round(10*time.Millisecond))
	}
	if m.scanning {
		status += "  scanning..."
	}

	errLine := ""
	for _, row := range m.pumps {
		if row.status.Valid && row.status.ErrorFlag {
			errLine = watchErrStyle.Render(
				fmt.Sprintf("pump 0x%02X reports an error", row.address))
			break
		}
	}

	view := header + "\n" + watchDimStyle.Render(status) + "\n" +
		watchTableStyle.Render(m.table.View()) + "\n"
	if errLine != "" {
		view += errLine + "\n"
	}
	view += watchDimStyle.Render("q to quit")
	return view
}

func runWatch(cmd *cobra.Command, args []string) error {
	low, err := parseAddress(watchFrom)
	if err != nil {
		return err
	}
	high, err := parseAddress(watchTo)
	if err != nil {
		return err
	}
	if low > high {
		return fmt.Errorf("watch range 0x%02X-0x%02X is inverted", low, high)
	}
	if watchInterval < 1 {
		watchInterval = 1
	}

	s, connInfo, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	m := newWatchModel(s, connInfo, low, high, time.Duration(watchInterval)*time.Second)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return err
	}
	return nil
}
