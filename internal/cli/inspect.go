package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"keymouse/internal/input"
	"keymouse/internal/recording"
)

// summary describes a recording file.
type summary struct {
	Path        string    `json:"path"`
	Description string    `json:"description"`
	SavedAt     time.Time `json:"saved_at"`
	TotalEvents int       `json:"total_events"`
	Moves       int       `json:"moves"`
	Clicks      int       `json:"clicks"`
	KeyPresses  int       `json:"key_presses"`
	KeyReleases int       `json:"key_releases"`
	Duration    float64   `json:"duration"`
	EPS         float64   `json:"eps"`
}

func summarize(path string, rec *recording.PersistedRecording) summary {
	s := summary{
		Path:        path,
		Description: rec.Description,
		SavedAt:     time.Unix(0, int64(rec.Timestamp*float64(time.Second))),
		TotalEvents: len(rec.Events),
		Duration:    rec.Stats.Duration,
	}
	for _, e := range rec.Events {
		switch e.Type {
		case input.MouseMove:
			s.Moves++
		case input.MouseClick:
			s.Clicks++
		case input.KeyPress:
			s.KeyPresses++
		case input.KeyRelease:
			s.KeyReleases++
		}
	}
	if s.Duration > 0 {
		s.EPS = float64(int(float64(s.TotalEvents)/s.Duration*10+0.5)) / 10
	}
	return s
}

func newInspectCmd() *cobra.Command {
	var asJSON bool
	var showEvents bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show what a recording file contains",
		Example: `  keymouse inspect recording.json
  keymouse inspect recording.json --events
  keymouse inspect recording.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := recording.Load(args[0])
			if err != nil {
				return err
			}
			s := summarize(args[0], rec)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			printSummary(out, s)
			if showEvents {
				printEvents(out, rec.Events)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	cmd.Flags().BoolVar(&showEvents, "events", false, "list every event")
	return cmd
}

func printSummary(w io.Writer, s summary) {
	label := color.New(color.FgCyan)
	value := color.New(color.FgGreen)

	row := func(name string, v interface{}) {
		label.Fprintf(w, "%-13s", name)
		value.Fprintln(w, v)
	}

	row("File", s.Path)
	row("Description", s.Description)
	row("Saved", s.SavedAt.Format(time.RFC3339))
	row("Events", s.TotalEvents)
	row("  moves", s.Moves)
	row("  clicks", s.Clicks)
	row("  key press", s.KeyPresses)
	row("  key release", s.KeyReleases)
	row("Duration", fmt.Sprintf("%.3fs", s.Duration))
	row("Events/s", s.EPS)
}

func printEvents(w io.Writer, events []recording.Event) {
	faint := color.New(color.Faint)
	mouse := color.New(color.FgYellow)
	key := color.New(color.FgMagenta)

	for i, e := range events {
		faint.Fprintf(w, "%5d %9.3f  ", i, e.Time)
		switch e.Type {
		case input.MouseMove:
			mouse.Fprintf(w, "move   (%d, %d)\n", e.X, e.Y)
		case input.MouseClick:
			action := "release"
			if e.Pressed {
				action = "press"
			}
			mouse.Fprintf(w, "click  %s %s at (%d, %d)\n", e.Button, action, e.X, e.Y)
		case input.KeyPress:
			key.Fprintf(w, "down   %s\n", e.Key)
		case input.KeyRelease:
			key.Fprintf(w, "up     %s\n", e.Key)
		}
	}
}
