// Command recompose-sim replays a scripted scene against the engine and
// reports the effects each step produces. It drives the in-memory test
// host, so the output shows exactly which entity mutations a real host
// would receive.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/go-recompose/recompose/cmd/recompose-sim/internal/config"
	"github.com/go-recompose/recompose/cmd/recompose-sim/internal/scene"
	"github.com/go-recompose/recompose/pkg/compose"
	"github.com/go-recompose/recompose/pkg/composetest"
	"github.com/go-recompose/recompose/pkg/runtime"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "recompose-sim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "sim.toml", "path to the optional TOML configuration")
	scenePath := flag.String("scene", "", "path to the YAML scene script (required)")
	flag.Parse()

	if *scenePath == "" {
		flag.Usage()
		return fmt.Errorf("-scene is required")
	}

	cfg, err := config.LoadOptional(*configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	sc, err := scene.Load(*scenePath)
	if err != nil {
		return err
	}
	log.Info().Str("scene", sc.Name).Int("steps", len(sc.Steps)).Msg("scene loaded")

	return simulate(cfg, log, sc)
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return zerolog.Nop(), err
	}
	log := zerolog.New(os.Stderr)
	if cfg.Log.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log.Level(level).With().Timestamp().Logger(), nil
}

// simulate mounts the initial item list, then applies each step and
// ticks until the engine settles.
func simulate(cfg *config.Config, log zerolog.Logger, sc *scene.Scene) error {
	var items compose.State[[]scene.Item]
	root := compose.Func("scene", nil, func(cx compose.Context) compose.Node {
		items = compose.UseState(cx, "items", sc.Items)
		children := make([]compose.Node, 0, len(items.Get()))
		for _, item := range items.Get() {
			children = append(children, compose.Element("item", item.Key, compose.Props{
				"label": item.Label,
			}))
		}
		return compose.Group(children...)
	})

	host := composetest.NewHost()
	rt := runtime.New(root, host, runtime.WithLogger(log))

	if err := runStep(cfg, log, rt, "mount"); err != nil {
		return err
	}
	for i, step := range sc.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}
		items.Set(step.Items)
		if err := runStep(cfg, log, rt, name); err != nil {
			return err
		}
	}

	log.Info().
		Int("entities", len(host.Entities)).
		Int("host_calls", len(host.Journal)).
		Msg("scene finished")
	return nil
}

// runStep ticks until the runtime reports a no-op, bounded by the
// configured tick budget.
func runStep(cfg *config.Config, log zerolog.Logger, rt *runtime.Runtime, name string) error {
	for tick := 0; tick < cfg.Sim.MaxTicksPerStep; tick++ {
		res := rt.RunTick()
		if res.Err != nil {
			return fmt.Errorf("step %q: %w", name, res.Err)
		}
		if !res.Evaluated {
			return nil
		}
		if cfg.Sim.TraceEffects {
			for _, e := range res.Effects {
				log.Debug().Str("step", name).Str("effect", e.String()).Msg("applied")
			}
		}
		for _, f := range res.Failed {
			log.Warn().Str("step", name).Str("effect", f.Effect.String()).Err(f.Err).Msg("rejected")
		}
		log.Info().
			Str("step", name).
			Int("effects", len(res.Effects)).
			Int("failed", len(res.Failed)).
			Uint64("version", rt.Tree().Version).
			Msg("tick applied")
	}
	return fmt.Errorf("step %q did not settle within %d ticks", name, cfg.Sim.MaxTicksPerStep)
}
