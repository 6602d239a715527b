// Package extract converts uploaded submission files into plain text.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrEmptyInput indicates there were no bytes to extract from.
	ErrEmptyInput = errors.New("empty input")
	// ErrUnsupportedFormat indicates the file type cannot be turned into text.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrImageContent indicates an image upload; image OCR is not performed.
	ErrImageContent = fmt.Errorf("cannot analyze image content: %w", ErrUnsupportedFormat)
	// ErrFormat indicates a well-known format whose bytes could not be parsed.
	ErrFormat = errors.New("malformed document")
)

// Format names the extraction backend chosen for a file.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatDocx  Format = "docx"
	FormatText  Format = "text"
	FormatImage Format = "image"
	FormatOther Format = "other"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".tiff": {},
	".webp": {},
}

// Detect maps a file name to the backend that handles it.
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDocx
	case "", ".txt", ".md", ".csv":
		return FormatText
	}
	if _, ok := imageExtensions[ext]; ok {
		return FormatImage
	}
	return FormatOther
}

// Extract returns the plain text of a file, dispatching on its extension.
func Extract(data []byte, filename string) (string, error) {
	format := Detect(filename)
	if format == FormatImage {
		return "", ErrImageContent
	}
	if len(data) == 0 {
		return "", ErrEmptyInput
	}

	var (
		text string
		err  error
	)

	switch format {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDocx:
		text, err = extractDocx(data)
	case FormatText:
		text = decodeText(data)
	default:
		text, err = decodeUnknown(data)
	}
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

func decodeUnknown(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrUnsupportedFormat
	}

	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return string(data), nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, detected.String())
}
