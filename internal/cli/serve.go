package cli

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/krithika183/spotify-popularity-predicton/internal/predict"
	"github.com/krithika183/spotify-popularity-predicton/internal/server"
)

const (
	keyHost          = "host"
	keyPort          = "port"
	keyModel         = "model"
	keyData          = "data"
	keyMaxModelMB    = "max-model-mb"
	keyCacheSize     = "cache-size"
	keyMetrics       = "metrics"
	keyReadTimeout   = "read-timeout"
	keyWriteTimeout  = "write-timeout"
	keyMaxBodyBytes  = "max-body-bytes"
	defaultModelPath = "popularity_predictor_final.json"
	defaultDataPath  = "Spotify_data.csv"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP prediction server",
	Long: `Load the model artifact and the reference dataset, then serve predictions.

If either file cannot be loaded the server still starts, but every POST /predict
answers 500 until the process is restarted with valid files.

Examples:
  popularity serve
  popularity serve --model models/popularity.json --data data/Spotify_data.csv
  POPULARITY_PORT=8080 popularity serve --cache-size 0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String(keyHost, "0.0.0.0", "server host")
	flags.IntP(keyPort, "p", 5000, "server port")
	flags.StringP(keyModel, "m", defaultModelPath, "model artifact path")
	flags.Int(keyMaxModelMB, 64, "maximum model artifact size in megabytes, 0 for no limit")
	flags.Int(keyCacheSize, 1024, "number of feature vectors whose scores are cached, 0 disables")
	flags.Bool(keyMetrics, true, "enable Prometheus metrics endpoint")
	flags.Duration(keyReadTimeout, 15*time.Second, "HTTP read timeout")
	flags.Duration(keyWriteTimeout, 15*time.Second, "HTTP write timeout")
	flags.Int64(keyMaxBodyBytes, 1<<20, "maximum request body size")

	for _, key := range []string{keyHost, keyPort, keyModel, keyMaxModelMB, keyCacheSize, keyMetrics, keyReadTimeout, keyWriteTimeout, keyMaxBodyBytes} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}
}

func runServe() error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := predict.Startup(predictOptions(registry))

	config := server.DefaultConfig()
	config.Host = viper.GetString(keyHost)
	config.Port = viper.GetInt(keyPort)
	config.EnableMetrics = viper.GetBool(keyMetrics)
	config.ReadTimeout = viper.GetDuration(keyReadTimeout)
	config.WriteTimeout = viper.GetDuration(keyWriteTimeout)
	config.MaxBodyBytes = viper.GetInt64(keyMaxBodyBytes)
	config.Gatherer = registry

	return server.New(config, svc).StartWithGracefulShutdown()
}

func predictOptions(registry prometheus.Registerer) predict.Options {
	return predict.Options{
		ModelPath:     viper.GetString(keyModel),
		DataPath:      viper.GetString(keyData),
		MaxModelBytes: int64(viper.GetInt(keyMaxModelMB)) * 1000000,
		CacheSize:     viper.GetInt(keyCacheSize),
		Registerer:    registry,
	}
}
