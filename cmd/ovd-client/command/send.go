package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"ovdlink/internal/protocol"
)

type poseFlags struct {
	x, y, z    float64
	yaw, pitch float64
}

var (
	headFlags poseFlags
	bodyFlags poseFlags
)

// positionCmd sends one head position
var positionCmd = &cobra.Command{
	Use:   "position",
	Short: "Send a head position",
	Long:  `Send one head position. Rotation is given as yaw and pitch in radians.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		f := headFlags
		p := protocol.HeadPosition(f.x, f.y, f.z, f.yaw, f.pitch)
		if err := c.SendPosition(p); err != nil {
			return err
		}
		fmt.Printf("✅ Sent head position (%.3f, %.3f, %.3f)\n", p.X, p.Y, p.Z)
		return nil
	},
}

var input protocol.ControllerInput

// controllerCmd sends one controller input update
var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "Send controller input",
	Long:  `Send one controller input update. The server delivers it to both hands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.SendControllerInput(input); err != nil {
			return err
		}
		fmt.Printf("✅ Sent controller input (joystick %.2f/%.2f, trigger %.2f, grip %.2f)\n",
			input.JoystickX, input.JoystickY, input.Trigger, input.Grip)
		return nil
	},
}

var joints []string

// bodyCmd sends a body pose with the named joints set
var bodyCmd = &cobra.Command{
	Use:   "body",
	Short: "Send a body pose",
	Long: `Send one body pose. Every joint named with --joint gets the given position
and rotation; the rest are sent as null poses and keep their last value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(joints) == 0 {
			return fmt.Errorf("at least one --joint is required")
		}
		var body protocol.BodyPose
		f := bodyFlags
		qw, qx, qy, qz := protocol.FromEuler(f.yaw, f.pitch)
		pose := protocol.Pose{
			PosX: float32(f.x), PosY: float32(f.y), PosZ: float32(f.z),
			RotW: float32(qw), RotX: float32(qx), RotY: float32(qy), RotZ: float32(qz),
		}
		for _, name := range joints {
			j, ok := protocol.ParseJoint(name)
			if !ok {
				return fmt.Errorf("unknown joint %q", name)
			}
			body.Set(j, pose)
		}

		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.SendBodyPose(body); err != nil {
			return err
		}
		fmt.Printf("✅ Sent body pose for %d joint(s)\n", len(joints))
		return nil
	},
}

func addPoseFlags(cmd *cobra.Command, p *poseFlags, defaultY float64) {
	cmd.Flags().Float64Var(&p.x, "x", 0, "position x in meters")
	cmd.Flags().Float64Var(&p.y, "y", defaultY, "position y in meters")
	cmd.Flags().Float64Var(&p.z, "z", 0, "position z in meters")
	cmd.Flags().Float64Var(&p.yaw, "yaw", 0, "yaw in radians")
	cmd.Flags().Float64Var(&p.pitch, "pitch", 0, "pitch in radians")
}

func init() {
	rootCmd.AddCommand(positionCmd, controllerCmd, bodyCmd)

	addPoseFlags(positionCmd, &headFlags, 1.6)
	addPoseFlags(bodyCmd, &bodyFlags, 1.0)
	bodyCmd.Flags().StringSliceVar(&joints, "joint", nil, "joint to set, e.g. left_knee (repeatable)")

	f := controllerCmd.Flags()
	f.Float32Var(&input.JoystickX, "joystick-x", 0, "joystick x axis")
	f.Float32Var(&input.JoystickY, "joystick-y", 0, "joystick y axis")
	f.BoolVar(&input.JoystickClick, "joystick-click", false, "joystick pressed")
	f.Float32Var(&input.Trigger, "trigger", 0, "trigger value 0..1")
	f.BoolVar(&input.TriggerClick, "trigger-click", false, "trigger pressed")
	f.Float32Var(&input.Grip, "grip", 0, "grip value 0..1")
	f.BoolVar(&input.GripClick, "grip-click", false, "grip pressed")
	f.BoolVar(&input.AClick, "a", false, "A button pressed")
	f.BoolVar(&input.BClick, "b", false, "B button pressed")
	f.BoolVar(&input.SystemClick, "system", false, "system button pressed")
	f.BoolVar(&input.MenuClick, "menu", false, "menu button pressed")
	f.Float32Var(&input.RightYaw, "right-yaw", 0, "right controller yaw in radians")
	f.Float32Var(&input.RightPitch, "right-pitch", 0, "right controller pitch in radians")
}
