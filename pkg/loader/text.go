package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// maxFileSize caps how much of a single file is loaded.
const maxFileSize = 32 << 20 // 32 MB

// readTextFile reads a file and converts it to UTF-8, sniffing the
// source encoding from the content.
func readTextFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxFileSize))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return decodeText(data)
}

// decodeText converts raw bytes to a UTF-8 string, detecting the
// encoding when the input is not already valid UTF-8.
func decodeText(data []byte) (string, error) {
	// Strip a UTF-8 BOM if present.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if utf8.Valid(data) {
		return string(data), nil
	}

	enc, _, _ := charset.DetermineEncoding(data, "")
	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}

	return string(decoded), nil
}
