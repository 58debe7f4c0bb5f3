package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/svnauthz/authz/pkg/authz"
	"github.com/svnauthz/authz/pkg/authzspec"
)

const (
	envPrefix        = "AUTHZ"
	defaultCacheSize = authz.DefaultCacheSize
)

var dotenvLoaded bool

var rootCmd = &cobra.Command{
	Use:           "authzcheck",
	Short:         "Query and inspect path-based authorization files",
	SilenceErrors: true,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a user has access to a repository path",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig(cmd)
		if err != nil {
			cmd.SilenceUsage = false
			return err
		}

		required := authzspec.AccessNone
		if cfg.GetBool("read") {
			required |= authzspec.AccessRead
		}
		if cfg.GetBool("write") {
			required |= authzspec.AccessWrite
		}
		if cfg.GetBool("recursive") {
			required |= authzspec.AccessRecursive
		}

		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}

		granted, err := engine.CheckAccess(
			cfg.GetString("repo"),
			cfg.GetString("path"),
			cfg.GetString("user"),
			required,
		)
		if err != nil {
			return err
		}

		if granted {
			fmt.Println("granted")
			return nil
		}
		fmt.Println("denied")
		os.Exit(1)
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the filtered rule tree for a user and repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig(cmd)
		if err != nil {
			cmd.SilenceUsage = false
			return err
		}

		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}

		fmt.Print(engine.Dump(cfg.GetString("repo"), cfg.GetString("user")))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Parse one or more authorization files and report errors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		start := time.Now()
		if _, err := authzspec.LoadAll(cmd.Context(), args); err != nil {
			return err
		}
		fmt.Printf("ok: %d file(s) valid in %s\n", len(args), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{checkCmd, dumpCmd} {
		cmd.Flags().SortFlags = false
		cmd.Flags().StringP("file", "f", "", "Path to the authorization file")
		cmd.Flags().StringP("repo", "r", "", "Repository name (empty for any repository)")
		cmd.Flags().StringP("user", "u", "", "User name (empty for the anonymous user)")
		cmd.Flags().Int("cache-size", defaultCacheSize, "Filtered tree cache capacity")
	}
	checkCmd.Flags().StringP("path", "p", "", "Repository path to check, starting with '/'")
	checkCmd.Flags().Bool("read", false, "Require read access")
	checkCmd.Flags().Bool("write", false, "Require write access")
	checkCmd.Flags().Bool("recursive", false, "Require access on the whole subtree")

	rootCmd.AddCommand(checkCmd, dumpCmd, validateCmd)

	if err := godotenv.Load(".env"); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Println("Error loading .env file", err)
			os.Exit(1)
		}
	} else {
		dotenvLoaded = true
	}
}

func main() {
	logger := slog.New(setupHandler())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("authzcheck", "error", err)
		os.Exit(1)
	}
}

func setupHandler() slog.Handler {
	switch os.Getenv(envPrefix + "_ENV") {
	case "PROD", "STAGE":
		return slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	default:
		return tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelWarn,
			TimeFormat: time.DateTime,
		})
	}
}

// loadConfig binds flags, AUTHZ_* environment variables and an optional
// config file into one view.
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()

	v.AddConfigPath(".")
	v.SetConfigName("authzcheck")
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if v.GetString("file") == "" {
		return nil, errors.New("no authorization file given (--file)")
	}

	slog.Debug("authzcheck config", "dotenvLoaded", dotenvLoaded, "file", v.GetString("file"))
	return v, nil
}

// newEngine loads the authorization file from the config and wraps it in an
// Authorizer.
func newEngine(cfg *viper.Viper) (*authz.Authorizer, error) {
	model, err := authzspec.LoadFile(cfg.GetString("file"))
	if err != nil {
		return nil, err
	}
	return authz.NewWithCacheSize(model, cfg.GetInt("cache-size"))
}
