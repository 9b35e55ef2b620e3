package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"git.solsynth.dev/hypernet/livepoll/pkg/overlay"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	pflag.String("server", "http://localhost:8445", "livepoll server address")
	pflag.String("token", "", "widget token of the broadcaster")
	pflag.Duration("reveal", overlay.DefaultRevealDuration, "how long the winner stays on screen")
	pflag.Parse()

	config := viper.New()
	config.SetEnvPrefix("livepoll")
	config.AutomaticEnv()
	if err := config.BindPFlags(pflag.CommandLine); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when reading flags.")
	}

	if len(config.GetString("token")) == 0 {
		log.Fatal().Msg("A widget token is required, pass --token or set LIVEPOLL_TOKEN.")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	machine := overlay.NewMachine(overlay.ConsoleRenderer{Out: os.Stdout}, nil, config.GetDuration("reveal"))
	client := &overlay.Client{
		Server: config.GetString("server"),
		Token:  config.GetString("token"),
	}

	log.Info().Str("server", client.Server).Msg("Following poll channel...")
	if err := client.Follow(ctx, machine); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Overlay stopped.")
	}
}
