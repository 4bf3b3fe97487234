package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/runvoy/lambdahost/internal/container"
	"github.com/runvoy/lambdahost/internal/demo"
	"github.com/runvoy/lambdahost/internal/frameworks"
	"github.com/runvoy/lambdahost/internal/metrics"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var replayFlags struct {
	framework string
	raw       bool
	count     int
	parallel  int
}

var replayCmd = &cobra.Command{
	Use:   "replay <event-file>",
	Short: "Replay a gateway event against the demo application",
	Long: `Replay a gateway event (JSON or YAML, "-" for stdin) against the demo application
hosted in-process, exactly as the Lambda entry points would serve it.`,
	Example: fmt.Sprintf(`  - %s replay event.json
  - %s sample v2 --path /whoami | %s replay - --framework gin --raw
  - %s replay event.json --count 100 --parallel 8`, rootCmd.Use, rootCmd.Use, rootCmd.Use, rootCmd.Use),
	Args: cobra.ExactArgs(1),
	RunE: replayRun,
}

func init() {
	replayCmd.Flags().StringVar(&replayFlags.framework, "framework", frameworks.NameChi, "Demo framework (chi, gin or fiber)")
	replayCmd.Flags().BoolVar(&replayFlags.raw, "raw", false, "Print the response in its gateway wire format")
	replayCmd.Flags().IntVar(&replayFlags.count, "count", 1, "Number of times to replay the event")
	replayCmd.Flags().IntVar(&replayFlags.parallel, "parallel", 1, "Maximum number of concurrent invocations")
	rootCmd.AddCommand(replayCmd)
}

func replayRun(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	fw := demo.ByName(replayFlags.framework)
	if fw == nil {
		return fmt.Errorf("unknown framework %q", replayFlags.framework)
	}

	payload, err := loadEventFile(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	h, err := container.New(cfg, fw, container.WithLogger(slog.Default()), container.WithRegisterer(reg))
	if err != nil {
		return err
	}

	service := NewReplayService(h, reg, NewOutputWrapper())
	return service.Replay(cmd.Context(), payload, ReplayOptions{
		Raw:      replayFlags.raw,
		Count:    replayFlags.count,
		Parallel: replayFlags.parallel,
	})
}

// EventHandler serves gateway events. *container.Handler implements it.
type EventHandler interface {
	HandleRequest(ctx context.Context, ev *api.RequestEvent) (*api.ResponseEvent, error)
	Invoke(ctx context.Context, payload []byte) ([]byte, error)
}

// ReplayOptions controls how an event is replayed.
type ReplayOptions struct {
	Raw      bool
	Count    int
	Parallel int
}

// ReplayService replays events against an in-process handler.
type ReplayService struct {
	handler  EventHandler
	gatherer prometheus.Gatherer
	output   OutputInterface
}

// NewReplayService creates a new ReplayService with the provided dependencies.
// gatherer may be nil, in which case no counters are printed.
func NewReplayService(handler EventHandler, gatherer prometheus.Gatherer, outputter OutputInterface) *ReplayService {
	return &ReplayService{
		handler:  handler,
		gatherer: gatherer,
		output:   outputter,
	}
}

type replayResult struct {
	resp    *api.ResponseEvent
	raw     []byte
	elapsed time.Duration
}

// Replay serves payload opts.Count times, at most opts.Parallel at once, and prints the
// last response. Replaying more than once also prints the handler counters.
func (s *ReplayService) Replay(ctx context.Context, payload []byte, opts ReplayOptions) error {
	count := max(opts.Count, 1)

	var ev *api.RequestEvent
	if !opts.Raw {
		var err error
		if ev, err = api.DecodeRequestEvent(payload); err != nil {
			return fmt.Errorf("invalid event: %w", err)
		}
		s.output.KeyValue("Event", ev.Kind.String())
		s.output.KeyValue("Request", ev.Method+" "+ev.Path)
	}

	results := make([]replayResult, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Parallel, 1))
	for i := range count {
		g.Go(func() error {
			start := time.Now()
			if opts.Raw {
				out, err := s.handler.Invoke(gctx, payload)
				if err != nil {
					return fmt.Errorf("invocation failed: %w", err)
				}
				results[i] = replayResult{raw: out, elapsed: time.Since(start)}
				return nil
			}
			resp, err := s.handler.HandleRequest(gctx, ev)
			if err != nil {
				return fmt.Errorf("invocation failed: %w", err)
			}
			results[i] = replayResult{resp: resp, elapsed: time.Since(start)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	last := results[count-1]
	if opts.Raw {
		s.output.Println(string(last.raw))
		return nil
	}

	if count > 1 {
		for i, r := range results {
			s.output.Info("Invocation %d: %d in %s", i+1, r.resp.StatusCode, r.elapsed)
		}
	}
	s.output.Response(last.resp, last.elapsed)

	if count > 1 {
		return s.printCounters()
	}
	return nil
}

func (s *ReplayService) printCounters() error {
	if s.gatherer == nil {
		return nil
	}
	samples, err := metrics.Counters(s.gatherer)
	if err != nil {
		return err
	}

	s.output.Blank()
	for _, sample := range samples {
		name := sample.Name
		if sample.Labels != "" {
			name += "{" + sample.Labels + "}"
		}
		s.output.KeyValue(name, strconv.FormatFloat(sample.Value, 'f', -1, 64))
	}
	return nil
}

// loadEventFile reads an event from path ("-" for stdin). YAML files are converted to JSON.
func loadEventFile(path string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read event: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlToJSON(data)
	default:
		return data, nil
	}
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML event: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML event: %w", err)
	}
	return out, nil
}
