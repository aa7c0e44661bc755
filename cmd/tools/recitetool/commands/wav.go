package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/tilawa/backend/internal/audio"
)

var (
	wavOut      string
	wavRate     int
	wavChannels int
	wavBits     int
)

var wavCmd = &cobra.Command{
	Use:   "wav <pcm-file>",
	Short: "Wrap raw PCM samples in a WAV container",
	Long: `Wrap raw little-endian PCM samples in a canonical 44-byte WAV header.

Examples:
  recitetool wav reply.pcm
  recitetool wav reply.pcm --rate 16000 -o reply.wav`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pcm, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read pcm: %w", err)
		}

		wav, err := audio.EncodeContainer(pcm, wavRate, wavChannels, wavBits)
		if err != nil {
			return err
		}

		out := wavOut
		if out == "" {
			out = strings.TrimSuffix(args[0], ".pcm") + ".wav"
		}
		if err := os.WriteFile(out, wav, 0o644); err != nil {
			return fmt.Errorf("write wav: %w", err)
		}

		f := audio.Format{SampleRate: wavRate, Channels: wavChannels, BitsPerSample: wavBits}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, %s)\n", out, len(wav), f.Duration(len(pcm)))
		return nil
	},
}

func init() {
	wavCmd.Flags().StringVarP(&wavOut, "out", "o", "", "output file (default: input with .wav)")
	wavCmd.Flags().IntVar(&wavRate, "rate", audio.DefaultFormat.SampleRate, "sample rate in Hz")
	wavCmd.Flags().IntVar(&wavChannels, "channels", audio.DefaultFormat.Channels, "channel count")
	wavCmd.Flags().IntVar(&wavBits, "bits", audio.DefaultFormat.BitsPerSample, "bits per sample")
	rootCmd.AddCommand(wavCmd)
}
