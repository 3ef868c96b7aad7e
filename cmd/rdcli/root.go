package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xenking/redis"
)

// rootCmd represents the base command when rdcli is called without a
// subcommand.
var rootCmd = &cobra.Command{
	Use:   "rdcli [address]",
	Short: "A command-line client for redis-speaking servers",
	Long: `rdcli connects to a Redis-protocol server and lets you issue commands
interactively or in batch mode, exercising the redis package's full
command surface, event stream, and pub/sub overlay.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := "127.0.0.1:6379"
		if len(args) == 1 {
			addr = args[0]
		}

		pass := getStringFlag(cmd, "auth", "")
		if getBoolFlag(cmd, "ask-pass") {
			p, err := promptPassword()
			if err != nil {
				return err
			}
			pass = p
		}

		opts := []redis.Option{
			redis.WithConnectTimeout(time.Duration(getIntFlag(cmd, "timeout", 5)) * time.Second),
		}
		if pass != "" {
			opts = append(opts, redis.WithAuth(pass))
		}
		if getBoolFlag(cmd, "no-ready-check") {
			opts = append(opts, redis.WithNoReadyCheck())
		}
		if db := getIntFlag(cmd, "db", -1); db >= 0 {
			opts = append(opts, redis.WithSelectDB(int64(db)))
		}

		ready := make(chan struct{}, 1)
		fatal := make(chan error, 1)
		opts = append(opts, redis.WithHandlers(redis.Handlers{
			OnReady: func() {
				select {
				case ready <- struct{}{}:
				default:
				}
			},
			OnError: func(err error) {
				select {
				case fatal <- err:
				default:
				}
			},
		}))

		client, err := redis.NewClient(addr, opts...)
		if err != nil {
			return fmt.Errorf("rdcli: %w", err)
		}
		defer client.Close()

		select {
		case <-ready:
		case err := <-fatal:
			return fmt.Errorf("rdcli: %w", err)
		case <-time.After(time.Duration(getIntFlag(cmd, "timeout", 5)) * time.Second):
			return fmt.Errorf("rdcli: timed out waiting for %s to become ready", addr)
		}

		if script := getStringFlag(cmd, "eval", ""); script != "" {
			return runBatchLine(client, script, getBoolFlag(cmd, "raw"))
		}
		if getBoolFlag(cmd, "pipe") {
			return runPipeMode(client, getBoolFlag(cmd, "raw"))
		}
		runInteractive(client, addr)
		return nil
	},
}

// Execute adds child commands to rootCmd and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringP("auth", "a", "", "password to AUTH with")
	rootCmd.Flags().Bool("ask-pass", false, "prompt for the AUTH password without echoing it")
	rootCmd.Flags().IntP("db", "n", -1, "database index to SELECT after connecting")
	rootCmd.Flags().Int("timeout", 5, "connect timeout in seconds")
	rootCmd.Flags().Bool("no-ready-check", false, "skip the INFO readiness probe")
	rootCmd.Flags().String("eval", "", "run a single command line non-interactively and exit")
	rootCmd.Flags().Bool("pipe", false, "read command lines from stdin until EOF")
	rootCmd.Flags().Bool("raw", false, "print replies without the interactive pretty-printer")
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func getStringFlag(cmd *cobra.Command, name, defaultValue string) string {
	if v, err := cmd.Flags().GetString(name); err == nil && v != "" {
		return v
	}
	return defaultValue
}

func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func getIntFlag(cmd *cobra.Command, name string, defaultValue int) int {
	if v, err := cmd.Flags().GetInt(name); err == nil {
		return v
	}
	return defaultValue
}
