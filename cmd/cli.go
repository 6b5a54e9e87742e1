// Package cmd is the command line: the player itself plus the one-off
// listing commands.
package cmd

import (
	"fmt"
	"io"
	"os"

	"groove/internal/config"
	"groove/internal/engine"
	"groove/internal/log"
	"groove/internal/output"
	"groove/pkg/build"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// options holds flag values. They only override the config file when set.
type options struct {
	configPath string
	debug      bool
	album      string
	device     int
	noOutput   bool
	record     string
	wsAddr     string
	udpTarget  string
	noTUI      bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	info := build.Get()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         build.Description,
		Version:       info.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runPlayer(cmd.Context(), cfg, opts)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML config file (default: groove.yaml or config.yaml)")
	flags.BoolVarP(&opts.debug, "debug", "v", false,
		"Enable debug logging")

	rootCmd.Flags().StringVarP(&opts.album, "album", "a", "",
		"Album to load at startup. Use 'catalog' command to see available albums.")
	rootCmd.Flags().IntVarP(&opts.device, "device", "d", config.DefaultOutputDevice,
		"Output device ID. Use 'devices' command to see available devices.")
	rootCmd.Flags().BoolVar(&opts.noOutput, "no-output", false,
		"Do not open an audio device")
	rootCmd.Flags().StringVarP(&opts.record, "record", "r", "",
		"Record the master bus to a WAV file")
	rootCmd.Flags().StringVar(&opts.wsAddr, "ws", "",
		"Serve JSON frames over WebSocket on this address, e.g. :8080")
	rootCmd.Flags().StringVar(&opts.udpTarget, "udp", "",
		"Send binary frame packets to this UDP address, e.g. 127.0.0.1:9090")
	rootCmd.Flags().BoolVar(&opts.noTUI, "no-tui", false,
		"Run headless: start playing and log instead of drawing the player")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := output.Initialize(); err != nil {
				return err
			}
			defer output.Terminate()
			return output.ListDevices(cmd.OutOrStdout())
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "catalog",
		Short: "List the albums in the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return listCatalog(cmd.OutOrStdout(), cfg)
		},
	})

	return rootCmd
}

// Execute runs the command line against os.Args.
func Execute() error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(os.Args[1:])
	return rootCmd.Execute()
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("debug") {
		cfg.Debug = opts.debug
		if opts.debug {
			cfg.LogLevel = "debug"
		}
	}
	if changed("album") {
		cfg.Catalog.Default = opts.album
	}
	if changed("device") {
		cfg.Output.Device = opts.device
	}
	if opts.noOutput {
		cfg.Output.Enabled = false
	}
	if opts.wsAddr != "" {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddr = opts.wsAddr
	}
	if opts.udpTarget != "" {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = opts.udpTarget
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		log.Warnf("Unknown log level '%s', using INFO", cfg.LogLevel)
	}
	log.SetLevel(level)
	return cfg, nil
}

var (
	catalogTitle   = color.New(color.FgGreen, color.Bold)
	catalogDefault = color.New(color.FgYellow)
	catalogMissing = color.New(color.FgHiBlack)
)

// listCatalog prints every album with its sources and tempo.
func listCatalog(w io.Writer, cfg *config.Config) error {
	if len(cfg.Catalog.Albums) == 0 {
		_, err := fmt.Fprintln(w, "No albums configured.")
		return err
	}
	for i, a := range cfg.Catalog.Albums {
		catalogTitle.Fprintf(w, "[%d] %s", i, a.Title)
		if a.Title == cfg.Catalog.Default {
			catalogDefault.Fprint(w, " (default)")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "    Clean: %s\n", a.Clean)
		if a.Dirty == "" {
			catalogMissing.Fprintln(w, "    Dirty: none")
		} else {
			fmt.Fprintf(w, "    Dirty: %s\n", a.Dirty)
		}
		bpm := "none"
		if a.BPM > 0 {
			bpm = fmt.Sprintf("%.1f", a.BPM)
		}
		fmt.Fprintf(w, "    Tempo: %s bpm (%s per beat)\n\n", bpm, beatLength(a.BPM))
	}
	return nil
}

func beatLength(bpm float64) string {
	if bpm <= 0 {
		return "-"
	}
	return engine.FormatTime(60/bpm) + fmt.Sprintf(".%03d", int(60000/bpm)%1000)
}
