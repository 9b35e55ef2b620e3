package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pkg "git.solsynth.dev/hypernet/livepoll/pkg/internal"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/cache"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/database"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/grpc"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/http"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services/twitch"
	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.YellowString(" _     _                       _ _\n| |   (_)_   _____ _ __   ___ | | |\n| |   | \\ \\ / / _ \\ '_ \\ / _ \\| | |\n| |___| |\\ V /  __/ |_) | (_) | | |\n|_____|_| \\_/ \\___| .__/ \\___/|_|_|\n                  |_|"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("Hypernet.Livepoll"), pkg.AppVersion)
	fmt.Printf("The live poll overlay service in Hypernet\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	pkg.SetDefaults()
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewGorm(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Initialize cache
	if err := cache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing cache.")
	}

	// Connect to twitch
	client := twitch.NewClient(twitch.ConfigFromViper())
	if !client.IsConfigured() {
		log.Warn().Msg("Twitch client id or secret is missing, sign in will be disabled.")
	}
	services.Provider = client
	services.Identity = client

	// Server
	server := http.NewServer()
	go server.Listen()

	grpcApp := grpc.NewGrpc()
	services.TickObserver = grpcApp.ReportTick
	go func() {
		if err := grpcApp.Listen(); err != nil {
			log.Fatal().Err(err).Msg("An error occurred when starting grpc server...")
		}
	}()

	// Configure timed tasks
	quartz := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)),
		cron.WithChain(
			cron.Recover(cron.PrintfLogger(&log.Logger)),
			cron.SkipIfStillRunning(cron.PrintfLogger(&log.Logger)),
		),
	)
	interval := viper.GetDuration("reconcile.interval")
	if _, err := quartz.AddFunc(fmt.Sprintf("@every %s", interval), services.ReconcilePolls); err != nil {
		log.Fatal().Err(err).Str("interval", interval.String()).Msg("An error occurred when scheduling reconciliation.")
	}
	quartz.Start()
	log.Info().Str("interval", interval.String()).Msg("Poll reconciliation scheduled.")

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	<-quartz.Stop().Done()
	grpcApp.Stop()
	if err := server.Shutdown(); err != nil {
		log.Error().Err(err).Msg("An error occurred when shutting down server...")
	}
}
