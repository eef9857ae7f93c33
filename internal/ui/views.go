package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/desertthunder/sptx/internal/formatter"
	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/tasks"
	"github.com/dustin/go-humanize"
)

func (m *Model) header() string {
	return styles.help.Render(fmt.Sprintf("%s → %s", m.opts.Source.Name, m.opts.Target.Name))
}

func (m *Model) renderLoading() string {
	return fmt.Sprintf("%s\n\n%s Reading %s's library...", m.header(), m.spinner.View(), m.opts.Source.Name)
}

func (m *Model) renderTypes() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("What should be copied?"))
	b.WriteString("\n")
	for i, opt := range typeOptions {
		cursor := "  "
		if i == m.typeCursor {
			cursor = styles.ok.Render("> ")
		}
		on := *flagFor(&m.flags, opt.kind)
		fmt.Fprintf(&b, "%s%s %-17s %s\n", cursor, checkbox(on), opt.label, humanize.Comma(int64(m.snapshot.Count(opt.kind))))
	}

	if m.notice != "" {
		b.WriteString("\n" + styles.warn.Render(m.notice) + "\n")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.toggle, m.keys.all, m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s\n%s", m.header(), b.String(), helpView)
}

func (m *Model) renderPlaylists() string {
	status := fmt.Sprintf("%d of %d selected", len(m.selectedIDs()), len(m.snapshot.Playlists))
	if m.notice != "" {
		status = styles.warn.Render(m.notice)
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.toggle, m.keys.all, m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", m.playlistList.View(), status, helpView)
}

func (m *Model) renderConfirm() string {
	sel := m.Selection()
	title := styles.title.Render(fmt.Sprintf("Copy to %s?", m.opts.Target.Name))

	var b strings.Builder
	for _, kind := range models.BulkTypes {
		if on, ids := sel.BulkIDs(kind); on {
			fmt.Fprintf(&b, "  %-10s %s\n", kind, humanize.Comma(int64(len(ids))))
		}
	}
	if sel.Playlists {
		tracks := 0
		for _, id := range sel.PlaylistIDs {
			if p, ok := m.snapshot.Playlist(id); ok {
				tracks += p.TracksTotal
			}
		}
		fmt.Fprintf(&b, "  %-10s %d (%s tracks)\n", "playlists", len(sel.PlaylistIDs), humanize.Comma(int64(tracks)))
	}
	if m.opts.Transfer.SkipTransferred {
		b.WriteString(styles.help.Render("\n  Playlists copied before will be skipped.") + "\n")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n\n%s\n%s\n%s", m.header(), title, b.String(), helpView)
}

func (m *Model) renderTransfer() string {
	title := styles.title.Render("Transferring")

	var phase string
	switch m.progress.Phase {
	case tasks.SaveLibrary:
		phase = fmt.Sprintf("Saving %s", m.progress.Type)
	case tasks.CopyPlaylists:
		phase = "Copying playlists"
	case tasks.Done:
		phase = "Finishing"
	default:
		phase = "Starting"
	}

	counts := fmt.Sprintf("%s attempted • %s saved • %s failed",
		humanize.Comma(int64(m.progress.Attempted)),
		humanize.Comma(int64(m.progress.Succeeded)),
		humanize.Comma(int64(m.progress.Failed)),
	)

	return fmt.Sprintf("%s\n\n%s\n\n%s %s (%d/%d)\n%s\n%s",
		m.header(), title,
		m.spinner.View(), phase, m.progress.Step, m.progress.Total,
		m.bar.ViewAs(m.progress.Fraction()),
		styles.help.Render(m.progress.Message)+"\n"+counts,
	)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.result == nil {
		msg := "No result available"
		if m.err != nil {
			msg = "Transfer failed: " + m.err.Error()
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}

	var title string
	switch {
	case m.err != nil:
		title = styles.warn.Render("Transfer stopped: " + m.err.Error())
	case len(m.result.Failed) > 0:
		title = styles.warn.Render("Transfer finished with failures")
	default:
		title = styles.ok.Render("✓ Transfer Complete!")
	}

	body := string(formatter.ResultToText(m.result))
	if m.warn != nil {
		body += "\n" + styles.warn.Render("History not saved: "+m.warn.Error()) + "\n"
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s", m.header(), title, body, helpView)
}
