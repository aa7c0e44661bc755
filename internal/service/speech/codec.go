package speech

import (
	"encoding/base64"

	"github.com/bytedance/sonic"
)

// jsonAPI encodes TTS request and response bodies with encoding/json semantics.
var jsonAPI = sonic.ConfigStd

func decodeBase64Audio(data string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(data)
}
