package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ovdlink/internal/client"
)

var (
	frameCount int
	frameOut   string
	frameBGRA  bool
)

// framesCmd receives eye frames from the server
var framesCmd = &cobra.Command{
	Use:   "frames",
	Short: "Receive eye frames",
	Long: `Connect to the server and wait for eye frames. With --out every frame is
saved as frame_<seq>_<eye>.png; otherwise only its size is printed.

Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var saver *client.FrameSaver
		if frameOut != "" {
			var err error
			saver, err = client.NewFrameSaver(frameOut, frameBGRA)
			if err != nil {
				return err
			}
		}

		c, err := connect(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		fmt.Printf("🔌 Waiting for frames from %s\n", serverAddr)
		for seq := 0; frameCount <= 0 || seq < frameCount; seq++ {
			f, err := c.ReadFrame(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					break
				}
				return err
			}
			if saver == nil {
				fmt.Printf("📦 frame %d: %dx%d eye=%d (%d bytes)\n", seq, f.Width, f.Height, f.Eye, len(f.Pixels))
				continue
			}
			path, err := saver.Save(seq, f)
			if err != nil {
				return err
			}
			fmt.Printf("💾 frame %d saved to %s\n", seq, path)
		}
		if saver != nil {
			fmt.Printf("✅ Saved %d frame(s)\n", saver.Saved())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(framesCmd)

	framesCmd.Flags().IntVar(&frameCount, "count", 0, "stop after this many frames, 0 = until Ctrl+C")
	framesCmd.Flags().StringVar(&frameOut, "out", "", "directory to write PNG files to")
	framesCmd.Flags().BoolVar(&frameBGRA, "bgra", false, "treat pixels as BGRA when writing PNG")
}
