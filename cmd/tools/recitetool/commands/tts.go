package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/tilawa/backend/internal/audio"
	"github.com/zhouzirui/tilawa/backend/internal/config"
	"github.com/zhouzirui/tilawa/backend/internal/model/recital"
	speechmodel "github.com/zhouzirui/tilawa/backend/internal/model/speech"
	"github.com/zhouzirui/tilawa/backend/internal/service/speech"
)

var (
	ttsLang    string
	ttsOut     string
	ttsTimeout time.Duration
)

var ttsCmd = &cobra.Command{
	Use:   "tts <text>",
	Short: "Synthesize text with the configured voice",
	Long: `Synthesize text through the configured speech service and write a playable file.

Credentials come from SPEECH_* variables (a .env file in the working
directory is loaded first). PCM output is wrapped as WAV.

Examples:
  recitetool tts "Welcome back"
  recitetool tts --lang ar -o greeting.wav "أهلاً وسهلاً"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if !cfg.Speech.Enabled() {
			return speech.ErrNotConfigured
		}

		lang, ok := recital.NewMemoryCatalog(recital.Seed()).Find(ttsLang)
		if !ok {
			return fmt.Errorf("unsupported language %q", ttsLang)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), ttsTimeout)
		defer cancel()

		out, err := speech.New(cfg.Speech, newLogger()).Synthesize(ctx, args[0], lang)
		if err != nil {
			return err
		}
		if out == nil {
			return fmt.Errorf("speech service returned no audio")
		}
		return writeSynthesis(cmd, out)
	},
}

func writeSynthesis(cmd *cobra.Command, out *speechmodel.Synthesis) error {
	w := cmd.OutOrStdout()
	switch out.Encoding {
	case speechmodel.EncodingRemote:
		fmt.Fprintln(w, out.URL)
		return nil
	case speechmodel.EncodingPCM:
		wav, err := audio.EncodeContainer(out.Data, out.SampleRate, out.Channels, out.BitsPerSample)
		if err != nil {
			return err
		}
		return writeFile(w, pick(ttsOut, "tts.wav"), wav)
	default:
		name := "tts.mp3"
		if out.MimeType == "audio/ogg" {
			name = "tts.ogg"
		}
		return writeFile(w, pick(ttsOut, name), out.Data)
	}
}

func writeFile(w io.Writer, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(w, "wrote %s (%d bytes)\n", path, len(data))
	return nil
}

func pick(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func init() {
	ttsCmd.Flags().StringVarP(&ttsLang, "lang", "l", recital.DefaultLanguage, "language code")
	ttsCmd.Flags().StringVarP(&ttsOut, "out", "o", "", "output file")
	ttsCmd.Flags().DurationVar(&ttsTimeout, "timeout", 45*time.Second, "request timeout")
	rootCmd.AddCommand(ttsCmd)
}
