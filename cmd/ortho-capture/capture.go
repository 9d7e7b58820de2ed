package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgellow/ortho-diary/internal/camera"
	"github.com/dgellow/ortho-diary/internal/client"
	"github.com/dgellow/ortho-diary/internal/log"
)

func newCaptureCmd(o *options) *cobra.Command {
	var (
		source       string
		memo         string
		google       bool
		readyTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Save a photo to the diary",
		Long: `Capture a frame from an image file and save it to the diary.

The image is scaled and re-encoded as JPEG exactly like a frame taken with
the web camera.

Examples:
  ortho-capture capture --source front.jpg
  ortho-capture capture --source upper.png --memo "2주차 상악"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			mgr, err := o.openSession(ctx, cmd.ErrOrStderr(), google)
			if err != nil {
				return err
			}
			defer mgr.Close()

			frames := client.NewJournalClient(o.server, mgr)
			m := camera.NewMachine(camera.NewStillImageDevice(source), camera.NewStillImageSink(), frames)
			defer m.Stop()

			frame, err := captureOne(ctx, m, memo, readyTimeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved photo %s (%dx%d, %d bytes)\n", frame.ID, frame.Width, frame.Height, len(frame.Data))
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Image file to capture (JPEG or PNG)")
	cmd.Flags().StringVar(&memo, "memo", "", "Memo saved with the photo")
	cmd.Flags().BoolVar(&google, "google", false, "Sign in with Google for this command")
	cmd.Flags().DurationVar(&readyTimeout, "ready-timeout", 10*time.Second, "How long to wait for the camera")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

// captureOne starts the camera, waits until it is ready and takes one
// frame.
func captureOne(ctx context.Context, m *camera.Machine, memo string, readyTimeout time.Duration) (camera.Frame, error) {
	if err := m.Start(ctx); err != nil {
		return camera.Frame{}, describeCameraError(err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := m.WaitReady(readyCtx); err != nil {
		return camera.Frame{}, describeCameraError(err)
	}
	if m.ForcedReady() {
		log.LogWarn("Camera never reported ready, capturing anyway")
	}

	frame, err := m.Capture(ctx, memo)
	if err != nil {
		return camera.Frame{}, describeCameraError(err)
	}
	return frame, nil
}

func describeCameraError(err error) error {
	var de *camera.DeviceError
	if errors.As(err, &de) {
		return fmt.Errorf("%s: %w", de.Message(), err)
	}
	return err
}
