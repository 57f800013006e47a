package syntax

import (
	"strings"

	"github.com/src-d/enry/v2"
)

// DetectLanguage guesses the grammar name for a file. It returns an empty
// string when the detected language has no grammar here.
func DetectLanguage(filename string, content []byte) string {
	detected := strings.ToLower(enry.GetLanguage(filename, content))
	if GetLanguage(detected) == nil {
		return ""
	}

	return detected
}
