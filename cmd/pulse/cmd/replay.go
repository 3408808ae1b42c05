package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	pulse "github.com/pulsehq/pulse-go"
	"github.com/pulsehq/pulse-go/page"
	"github.com/pulsehq/pulse-go/store"
	"github.com/spf13/cobra"
)

var (
	replayInput     string
	replayEndpoint  string
	replayURL       string
	replayTitle     string
	replayReferrer  string
	replayUserAgent string
	replayViewportW int
	replayViewportH int
	replayContentH  int
	replaySpeed     float64
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a JSONL page-signal script through the agent",
	Long: `Replay drives a simulated page from a JSONL script and delivers the
resulting event batches to the collection endpoint. Each line is one
signal:

  {"at_ms":0,"kind":"scroll","x":0,"y":1200}
  {"at_ms":500,"kind":"click","href":"https://other.example/","text":"docs"}
  {"at_ms":900,"kind":"visibility","visible":false}
  {"at_ms":1200,"kind":"track","event_type":"custom","event_name":"signup"}
  {"at_ms":1500,"kind":"hide"}`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayInput, "input", "", "JSONL signal script (required)")
	replayCmd.Flags().StringVar(&replayEndpoint, "endpoint", "", "collection endpoint override")
	replayCmd.Flags().StringVar(&replayURL, "url", "https://localhost/", "page URL")
	replayCmd.Flags().StringVar(&replayTitle, "title", "", "page title")
	replayCmd.Flags().StringVar(&replayReferrer, "referrer", "", "page referrer")
	replayCmd.Flags().StringVar(&replayUserAgent, "user-agent", "pulse-replay/1.0", "page user agent")
	replayCmd.Flags().IntVar(&replayViewportW, "viewport-width", 1280, "viewport width")
	replayCmd.Flags().IntVar(&replayViewportH, "viewport-height", 800, "viewport height")
	replayCmd.Flags().IntVar(&replayContentH, "content-height", 4000, "content height")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "playback speed multiplier")
	replayCmd.MarkFlagRequired("input")
}

// signal is one line of the replay script.
type signal struct {
	AtMS      int64          `json:"at_ms"`
	Kind      string         `json:"kind"`
	Visible   bool           `json:"visible"`
	Focused   bool           `json:"focused"`
	X         int            `json:"x"`
	Y         int            `json:"y"`
	Button    int            `json:"button"`
	Href      string         `json:"href"`
	Text      string         `json:"text"`
	Target    string         `json:"target"`
	EventType string         `json:"event_type"`
	EventName string         `json:"event_name"`
	Payload   map[string]any `json:"payload"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if replayEndpoint != "" {
		cfg.APIEndpoint = replayEndpoint
	}

	var kv store.Store
	if url := resolveStateStoreURL(); url != "" {
		db, err := store.Open(url, nil)
		if err != nil {
			return fmt.Errorf("failed to open state store: %w", err)
		}
		defer db.Close()
		kv = db
	} else {
		kv = store.NewMemory(nil)
	}

	sim := page.NewSim(replayURL)
	sim.SetTitle(replayTitle)
	sim.SetReferrer(replayReferrer)
	sim.SetUserAgent(replayUserAgent)
	sim.SetViewport(replayViewportW, replayViewportH)
	sim.SetContentSize(replayViewportW, replayContentH)

	client := pulse.New(cfg,
		pulse.WithPage(sim),
		pulse.WithStore(kv),
		pulse.WithLogger(log),
	)
	client.Init()

	f, err := os.Open(replayInput)
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	if replaySpeed <= 0 {
		replaySpeed = 1.0
	}

	var elapsed int64
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var sig signal
		if err := json.Unmarshal(line, &sig); err != nil {
			log.Warn("skipping malformed script line", "line", lineNo, "error", err)
			continue
		}

		if delta := sig.AtMS - elapsed; delta > 0 {
			time.Sleep(time.Duration(float64(delta)/replaySpeed) * time.Millisecond)
			elapsed = sig.AtMS
		}

		apply(sim, client, sig, log, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Close(ctx)
}

func apply(sim *page.Sim, client *pulse.Client, sig signal, log *slog.Logger, lineNo int) {
	switch sig.Kind {
	case "visibility":
		sim.SetVisible(sig.Visible)
	case "focus":
		sim.SetFocused(sig.Focused)
	case "scroll":
		sim.SetScroll(sig.X, sig.Y)
	case "click":
		sim.EmitClick(page.Click{
			Button:     sig.Button,
			LinkHref:   sig.Href,
			LinkText:   sig.Text,
			LinkTarget: sig.Target,
		})
	case "hide":
		sim.EmitHide()
	case "track":
		client.Track(sig.EventType, sig.EventName, sig.Payload)
	default:
		log.Warn("unknown signal kind", "kind", sig.Kind, "line", lineNo)
	}
}
