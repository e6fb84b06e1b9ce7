package command

// root.go defines the root command for ovd-client and its global flags.

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ovdlink/internal/client"
)

var (
	serverAddr  string        // tracking link address
	dialTimeout time.Duration // connect timeout
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ovd-client",
	Short: "ovd-client - tracking source for the ovdlink server",
	Long: `ovd-client speaks the ovdlink wire protocol from the tracking side. It can:
- Send head positions, controller input and body poses
- Stream a synthetic orbiting head for testing consumers
- Receive eye frames and save them as PNG files

Use "ovd-client command --help" to see the flags of each command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err) // Print error to standard error
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags = available to all subcommands
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", client.DefaultAddr, "ovdlink server address")
	rootCmd.PersistentFlags().DurationVar(&dialTimeout, "timeout", 5*time.Second, "connect timeout")
}

func connect(ctx context.Context) (*client.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	c, err := client.Dial(ctx, serverAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return c, nil
}
