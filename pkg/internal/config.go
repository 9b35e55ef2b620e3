package pkg

import (
	"time"

	"github.com/spf13/viper"
)

func SetDefaults() {
	viper.SetDefault("bind", "0.0.0.0:8445")
	viper.SetDefault("grpc_bind", "0.0.0.0:7445")
	viper.SetDefault("base_url", "http://localhost:8445")

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.prefix", "livepoll_")

	viper.SetDefault("twitch.api_url", "https://api.twitch.tv/helix")
	viper.SetDefault("twitch.id_url", "https://id.twitch.tv/oauth2")
	viper.SetDefault("twitch.timeout", 5*time.Second)
	viper.SetDefault("twitch.choice_max_length", 25)

	viper.SetDefault("reconcile.interval", 4*time.Second)
	viper.SetDefault("reconcile.concurrency", 4)
	viper.SetDefault("reconcile.settle_after", 10*time.Minute)

	viper.SetDefault("cache.snapshot_ttl", time.Minute)
}
