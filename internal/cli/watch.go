package cli

import (
	"encoding/json"
	"io"
	"time"

	"dirview/internal/model"
	"dirview/internal/rangeset"
	"dirview/internal/role"
	"dirview/internal/session"

	"github.com/spf13/cobra"
)

// watchEvent is one line of `dirview watch` output.
type watchEvent struct {
	Time    time.Time `json:"time"`
	Event   string    `json:"event"`
	Items   []string  `json:"items,omitempty"`
	Roles   []string  `json:"roles,omitempty"`
	Percent *int      `json:"percent,omitempty"`
	Message string    `json:"message,omitempty"`
}

// eventPrinter writes model notifications as JSON lines. Removed items are
// reported by name, so it remembers the names of the last known order.
type eventPrinter struct {
	model.BaseObserver

	m     *model.Model
	enc   *json.Encoder
	now   func() time.Time
	names []string
	err   error
}

func newEventPrinter(m *model.Model, w io.Writer) *eventPrinter {
	return &eventPrinter{m: m, enc: json.NewEncoder(w), now: time.Now}
}

func (p *eventPrinter) emit(ev watchEvent) {
	if p.err != nil {
		return
	}
	ev.Time = p.now().UTC()
	p.err = p.enc.Encode(ev)
}

func (p *eventPrinter) remember() {
	p.names = p.names[:0]
	for i := range p.m.Count() {
		p.names = append(p.names, p.m.Item(i).Name())
	}
}

func (p *eventPrinter) namesIn(ranges rangeset.List, names func(i int) string) []string {
	var out []string
	for _, r := range ranges {
		for i := r.Index; i < r.Index+r.Count; i++ {
			out = append(out, names(i))
		}
	}
	return out
}

func (p *eventPrinter) current(i int) string { return p.m.Item(i).Name() }

func (p *eventPrinter) ItemsInserted(ranges rangeset.List) {
	p.emit(watchEvent{Event: "inserted", Items: p.namesIn(ranges, p.current)})
	p.remember()
}

func (p *eventPrinter) ItemsRemoved(ranges rangeset.List) {
	names := p.names
	old := func(i int) string {
		if i < len(names) {
			return names[i]
		}
		return ""
	}
	p.emit(watchEvent{Event: "removed", Items: p.namesIn(ranges, old)})
	p.remember()
}

func (p *eventPrinter) ItemsMoved(moved rangeset.Range, newPositions []int) {
	p.remember()
	var items []string
	for _, pos := range newPositions {
		items = append(items, p.current(pos))
	}
	p.emit(watchEvent{Event: "moved", Items: items})
}

func (p *eventPrinter) ItemsChanged(ranges rangeset.List, roles role.Set) {
	p.emit(watchEvent{Event: "changed", Items: p.namesIn(ranges, p.current), Roles: roles.Sorted()})
}

func (p *eventPrinter) DirectoryLoadingStarted() { p.emit(watchEvent{Event: "loading"}) }

func (p *eventPrinter) DirectoryLoadingCompleted() {
	p.remember()
	p.emit(watchEvent{Event: "completed", Message: p.m.URL()})
}

func (p *eventPrinter) DirectoryLoadingCanceled() { p.emit(watchEvent{Event: "canceled"}) }

func (p *eventPrinter) DirectorySortingProgress(percent int) {
	p.emit(watchEvent{Event: "sorting", Percent: &percent})
}

func (p *eventPrinter) DirectoryRedirection(oldURL, newURL string) {
	p.emit(watchEvent{Event: "redirected", Items: []string{oldURL, newURL}})
}

func (p *eventPrinter) CurrentDirectoryRemoved() { p.emit(watchEvent{Event: "directoryRemoved"}) }

func (p *eventPrinter) ErrorMessage(text string) { p.emit(watchEvent{Event: "error", Message: text}) }

func (p *eventPrinter) URLIsFileError(url string) {
	p.emit(watchEvent{Event: "error", Message: url + " is a file"})
}

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Print changes to a directory's view as JSON lines until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app, session.Options{Watch: true})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			p := newEventPrinter(s.Model, cmd.OutOrStdout())
			unsubscribe := s.Model.Subscribe(p)
			defer unsubscribe()

			ctx := cmd.Context()
			if err := s.LoadAndSettle(ctx, targetDir(args)); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return writeErr(cmd, err)
			}
			// Items showing up later are visible too, so their roles resolve.
			shown := s.Model.Count()
			_ = s.Wait(ctx, func() bool {
				if n := s.Model.Count(); n != shown {
					shown = n
					s.Updater.SetMaximumVisibleItems(max(n, 1))
					s.Updater.SetVisibleIndexRange(0, n)
				}
				return p.err != nil
			})
			if p.err != nil {
				return writeErr(cmd, p.err)
			}
			return nil
		},
	}
}
