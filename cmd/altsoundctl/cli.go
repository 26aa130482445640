package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsm174/libaltsound/internal/behavior"
	"github.com/jsm174/libaltsound/internal/catalog"
	"github.com/jsm174/libaltsound/internal/config"
	"github.com/jsm174/libaltsound/internal/framer"
	"github.com/jsm174/libaltsound/internal/sink"
	"github.com/jsm174/libaltsound/pkg/altsound"
	"github.com/jsm174/libaltsound/pkg/build"
)

func newRootCmd() *cobra.Command {
	buildInfo := build.GetBuildFlags()

	root := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Developer tool for the altsound engine",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetHelpCommand(&cobra.Command{Hidden: true})

	var (
		generation string
		deviceID   int
	)

	playCmd := &cobra.Command{
		Use:   "play <base> <game> <trace-file>",
		Short: "Replay a trace file through the engine, playing audio live",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(args[0], args[1], args[2], framer.Generation(generation), deviceID)
		},
	}
	playCmd.Flags().StringVarP(&generation, "generation", "g", string(framer.WPCDCS), "Hardware generation to frame the trace for")
	playCmd.Flags().IntVarP(&deviceID, "device", "d", -1, "Output device ID (default: system default)")
	root.AddCommand(playCmd)

	listCmd := &cobra.Command{
		Use:   "list <base> <game>",
		Short: "Print the loaded catalog and behavior table without starting playback",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(args[0], args[1])
		},
	}
	root.AddCommand(listCmd)

	browseCmd := &cobra.Command{
		Use:   "browse <base> <game>",
		Short: "Interactively browse the loaded catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(args[0], args[1])
		},
	}
	root.AddCommand(browseCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(buildInfo.String())
			return nil
		},
	}
	root.AddCommand(versionCmd)

	return root
}

// traceLine is one parsed row of a play trace file.
type traceLine struct {
	sleep   time.Duration
	isSleep bool
	byte    byte
	atten   int
}

func parseTrace(path string) ([]traceLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()

	var lines []traceLine
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		if rest, ok := strings.CutPrefix(raw, "sleep:"); ok {
			d, err := time.ParseDuration(rest)
			if err != nil {
				return nil, fmt.Errorf("trace line %d: invalid sleep directive: %w", lineNo, err)
			}
			lines = append(lines, traceLine{sleep: d, isSleep: true})
			continue
		}

		parts := strings.SplitN(raw, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("trace line %d: expected byte,attenuation", lineNo)
		}
		b, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: invalid byte: %w", lineNo, err)
		}
		a, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("trace line %d: invalid attenuation: %w", lineNo, err)
		}
		lines = append(lines, traceLine{byte: byte(b), atten: a})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func runPlay(base, game, tracePath string, gen framer.Generation, deviceID int) error {
	trace, err := parseTrace(tracePath)
	if err != nil {
		return err
	}

	cfg := config.New()
	engine := altsound.New(cfg)
	if err := engine.Init(base, game, gen); err != nil {
		return err
	}
	defer engine.Shutdown()

	stream, err := sink.Open(deviceID, int(cfg.SampleRate), cfg.Channels, cfg.BufferFrames)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := engine.SetAudioCallback(stream.FrameCallback(), nil); err != nil {
		return err
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for _, line := range trace {
			if line.isSleep {
				time.Sleep(line.sleep)
				continue
			}
			if err := engine.ProcessCommand(line.byte, line.atten); err != nil {
				fmt.Fprintf(os.Stderr, "altsoundctl: %v\n", err)
			}
		}
	}()

	select {
	case <-finished:
	case <-done:
	}
	return nil
}

func runList(base, game string) error {
	cat, err := catalog.LoadFromGameDir(base, game)
	if err != nil {
		return err
	}
	beh, err := behavior.LoadFromGameDir(base, game)
	if err != nil {
		return err
	}

	samples := cat.Samples()
	fmt.Printf("%d sample(s) in catalog:\n", len(samples))
	for _, s := range samples {
		fmt.Printf("  cmd=0x%04X path=%s category=%s gain=%.2f loop=%v ducking=%s\n",
			s.Command, s.Path, s.Category, s.DefaultGain, s.Loop, s.DuckingProfile)
	}

	fmt.Println()
	fmt.Println("behavior table:")
	for _, c := range []catalog.Category{catalog.Music, catalog.Callout, catalog.Solo, catalog.Sfx, catalog.Overlay} {
		info := beh.Get(c)
		fmt.Printf("  %-8s max_concurrent=%d evict_oldest=%v stops=%v pauses=%v ducks=%v\n",
			c, info.MaxConcurrent, info.EvictOldest, info.Stops, info.Pauses, info.Ducks)
	}
	return nil
}
