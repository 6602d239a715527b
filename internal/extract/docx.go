package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

// extractDocx walks word/document.xml and joins run text, one line per paragraph.
func extractDocx(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrFormat, err)
	}

	var body *zip.File
	for _, f := range archive.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("%w: docx: missing %s", ErrFormat, docxBodyPart)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrFormat, err)
	}
	defer rc.Close()

	var (
		out       strings.Builder
		paragraph strings.Builder
		inText    bool
	)

	decoder := xml.NewDecoder(rc)
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: docx xml: %v", ErrFormat, err)
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte('\t')
			case "br", "cr":
				paragraph.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString(paragraph.String())
				out.WriteByte('\n')
				paragraph.Reset()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(el)
			}
		}
	}

	if paragraph.Len() > 0 {
		out.WriteString(paragraph.String())
	}

	return out.String(), nil
}
