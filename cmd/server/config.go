package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/KirkDiggler/numenera-api/internal/errors"
	"github.com/KirkDiggler/numenera-api/internal/redis"
)

// Flags double as viper keys; NUMENERA_REDIS_ADDR sets redis-addr and so on.
const (
	envPrefix = "NUMENERA"

	keyLogLevel   = "log-level"
	keyLogFormat  = "log-format"
	keyPort       = "port"
	keyRedisAddr  = "redis-addr"
	keyRedisTLS   = "redis-tls"
	keySessionTTL = "session-ttl"
	keyRollTTL    = "roll-ttl"
)

// loadConfig binds the command's flags to viper with environment overrides
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.Wrap(err, "failed to bind flags")
	}

	return v, nil
}

func setupLogging(v *viper.Viper, w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(keyLogLevel))); err != nil {
		return errors.InvalidArgumentf("invalid log level %q", v.GetString(keyLogLevel))
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch v.GetString(keyLogFormat) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return errors.InvalidArgumentf("invalid log format %q", v.GetString(keyLogFormat))
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func addRedisFlags(cmd *cobra.Command) {
	cmd.Flags().String(keyRedisAddr, "localhost:6379", "Redis host:port or redis:// URL")
	cmd.Flags().Bool(keyRedisTLS, false, "connect to Redis over TLS")
}

func newRedisClient(v *viper.Viper) (redis.Client, error) {
	client, err := redis.NewClient(v.GetString(keyRedisAddr), &redis.Options{
		UseTLS: v.GetBool(keyRedisTLS),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create redis client")
	}
	return client, nil
}
