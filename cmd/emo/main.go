// emo - animatronic desk companion.
// Listens in five-second windows, wakes on its name, answers through a chat
// model and plays a matching facial expression while it speaks.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-emo/internal/config"
	"github.com/teslashibe/go-emo/internal/log"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		log.Fatal("configuration error", "error", err)
	}
	log.Init(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal("configuration error", "error", err)
	}

	app, err := newApp(cfg, log.L())
	if err != nil {
		log.Fatal("initialization failed", "error", err)
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		log.Fatal("runtime error", "error", err)
	}
}

// parseFlags loads the configuration and applies command line overrides.
func parseFlags() (config.Config, error) {
	configPath := flag.String("config", os.Getenv("EMO_CONFIG"), "Path to a YAML config file")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	hardware := flag.String("hardware", "", "Peripheral driver: periph or mock")
	backend := flag.String("audio", "", "Capture backend: portaudio or mock")
	output := flag.String("output", "", "Voice output: speaker, rtp or mock")
	rtpAddr := flag.String("rtp-addr", "", "Destination host:port for RTP voice output")
	assets := flag.String("assets", "", "Emotion asset directory")
	wakeWord := flag.String("wake-word", "", "Trigger word")
	port := flag.String("port", "", "Dashboard port")
	noWeb := flag.Bool("no-web", false, "Disable the dashboard")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}

	if *debug {
		cfg.LogLevel = "debug"
	}
	if *hardware != "" {
		cfg.Hardware.Driver = *hardware
	}
	if *backend != "" {
		cfg.Audio.Backend = *backend
	}
	if *output != "" {
		cfg.Audio.Output = *output
	}
	if *rtpAddr != "" {
		cfg.Audio.RTPAddr = *rtpAddr
	}
	if *assets != "" {
		cfg.Assets.Dir = *assets
	}
	if *wakeWord != "" {
		cfg.Session.WakeWord = *wakeWord
	}
	if *port != "" {
		cfg.Web.Port = *port
	}
	if *noWeb {
		cfg.Web.Enabled = false
	}
	return cfg, nil
}
