package command

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"ovdlink/internal/protocol"
)

var (
	orbitRateHz   float64
	orbitDuration time.Duration
	orbitRadius   float64
	orbitSpeed    float64 // radians per second
)

// orbitCmd streams a head circling the origin
var orbitCmd = &cobra.Command{
	Use:   "orbit",
	Short: "Stream a head orbiting the origin",
	Long: `Stream head positions on a circle around the origin at a fixed rate, facing
the centre. Useful for watching consumers and metrics under steady load.

Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if orbitRateHz <= 0 {
			return fmt.Errorf("--rate must be positive")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if orbitDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, orbitDuration)
			defer cancel()
		}

		c, err := connect(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		fmt.Printf("🔌 Streaming to %s at %.0f Hz\n", serverAddr, orbitRateHz)

		limiter := rate.NewLimiter(rate.Limit(orbitRateHz), 1)
		start := time.Now()
		sent := 0
		for {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
			p := orbitPosition(time.Since(start), orbitRadius, orbitSpeed)
			if err := c.SendPosition(p); err != nil {
				return err
			}
			sent++
		}
		fmt.Printf("✅ Sent %d positions in %s\n", sent, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

// orbitPosition places the head on a circle at eye height, facing the centre.
func orbitPosition(elapsed time.Duration, radius, speed float64) protocol.Position {
	angle := elapsed.Seconds() * speed
	x := radius * math.Sin(angle)
	z := radius * math.Cos(angle)
	return protocol.HeadPosition(x, 1.6, z, angle+math.Pi, 0)
}

func init() {
	rootCmd.AddCommand(orbitCmd)

	orbitCmd.Flags().Float64Var(&orbitRateHz, "rate", 90, "positions per second")
	orbitCmd.Flags().DurationVar(&orbitDuration, "duration", 0, "stop after this long, 0 = until Ctrl+C")
	orbitCmd.Flags().Float64Var(&orbitRadius, "radius", 1.0, "orbit radius in meters")
	orbitCmd.Flags().Float64Var(&orbitSpeed, "speed", math.Pi/2, "angular speed in radians per second")
}
