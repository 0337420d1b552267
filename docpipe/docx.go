// CLAUDE:SUMMARY Extracts paragraph text from .docx archives (word/document.xml), blank line between paragraphs.
// Package docpipe turns a transcript document fetched from the portal into
// the same plain-text layout the viewer's text export produces: one
// paragraph per block, separated by a blank line.
//
// Supported formats:
//   - .docx: Microsoft Word (word/document.xml)
//   - .txt: plain text, passed through
package docpipe

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxDepth bounds XML nesting in document.xml.
const maxDepth = 256

// DocxParagraphs returns the non-empty paragraphs of a .docx file held in
// memory. Tabs and explicit breaks inside a paragraph become a space and a
// newline.
func DocxParagraphs(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("docpipe: open zip: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, errors.New("docpipe: word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("docpipe: open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var paras []string
	var cur strings.Builder
	var inParagraph, inText bool
	depth := 0

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("docpipe: decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxDepth {
				return nil, fmt.Errorf("docpipe: XML nesting depth exceeds %d", maxDepth)
			}
			switch t.Name.Local {
			case "p":
				inParagraph = true
				cur.Reset()
			case "t":
				inText = inParagraph
			case "tab":
				if inParagraph {
					cur.WriteByte(' ')
				}
			case "br", "cr":
				if inParagraph {
					cur.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText {
				cur.Write(t)
			}

		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inParagraph {
					inParagraph = false
					if text := strings.TrimSpace(cur.String()); text != "" {
						paras = append(paras, text)
					}
				}
			}
		}
	}
	return paras, nil
}

// DocxText renders a .docx as plain text, paragraphs separated by a blank
// line.
func DocxText(data []byte) ([]byte, error) {
	paras, err := DocxParagraphs(data)
	if err != nil {
		return nil, err
	}
	if len(paras) == 0 {
		return nil, errors.New("docpipe: document has no text")
	}
	return []byte(strings.Join(paras, "\n\n") + "\n"), nil
}
