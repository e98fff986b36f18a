// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/enipaddr/internal/config"
	"firestige.xyz/enipaddr/internal/log"
)

var (
	// Global flags
	configFile string
	logLevel   string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "enipaddr",
	Short: "enipaddr - EtherNet/IP socket address toolkit",
	Long: `enipaddr builds, decodes and audits the IPv4 socket addresses carried in
EtherNet/IP Common Packet Format SockAddr Info Items and ListIdentity replies.

Commands:
  resolve   resolve a host name or IPv4 literal into a SockAddr record
  decode    decode a hex SockAddr item body or encapsulation message
  inspect   scan pcap/pcapng captures for socket addresses`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(inspectCmd)
}

// setup loads configuration and initializes logging.
func setup() error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if err := log.Init(loaded.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	cfg = loaded
	return nil
}
