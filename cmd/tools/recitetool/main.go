// Command recitetool is a local helper for the recitation backend.
//
// Usage:
//
//	recitetool wav      - wrap raw PCM in a WAV container
//	recitetool classify - run the turn classifier over text
//	recitetool tts      - synthesize speech with the configured voice
package main

import (
	"fmt"
	"os"

	"github.com/zhouzirui/tilawa/backend/cmd/tools/recitetool/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
