// Package sniff classifies binary payloads by magic bytes. Lab results are
// stored without any recorded content type, so the served MIME type and file
// extension are always derived from the payload itself, never from client
// input.
package sniff

import "bytes"

// Hint narrows an ambiguous classification. ZIP containers are upgraded to
// the matching Office type when the caller knows what the payload should be.
type Hint int

const (
	HintNone Hint = iota
	HintSpreadsheet
	HintWordDocument
)

// Classification is the result of content detection.
type Classification struct {
	MIME string
	Ext  string
}

const (
	mimePDF    = "application/pdf"
	mimeZIP    = "application/zip"
	mimeXLSX   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeDOCX   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePNG    = "image/png"
	mimeJPEG   = "image/jpeg"
	mimeGIF    = "image/gif"
	mimeCSV    = "text/csv"
	mimeBinary = "application/octet-stream"
)

// textProbeSize is how much of the payload the CSV heuristic inspects.
const textProbeSize = 100

var (
	sigPDF    = []byte("%PDF")
	sigPNG    = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	sigJPEG   = []byte{0xFF, 0xD8, 0xFF}
	sigGIF87a = []byte("GIF87a")
	sigGIF89a = []byte("GIF89a")

	// Local file header, plus the empty-archive and spanned-archive markers.
	sigZIP = [][]byte{
		{'P', 'K', 0x03, 0x04},
		{'P', 'K', 0x05, 0x06},
		{'P', 'K', 0x07, 0x08},
	}
)

// Classify inspects the payload prefix and returns its MIME type and the
// extension to use in generated filenames. Unrecognized content falls back
// to application/octet-stream. Classification never fails.
func Classify(data []byte, hint Hint) Classification {
	switch {
	case bytes.HasPrefix(data, sigPDF):
		return Classification{MIME: mimePDF, Ext: "pdf"}
	case isZIP(data):
		switch hint {
		case HintSpreadsheet:
			return Classification{MIME: mimeXLSX, Ext: "xlsx"}
		case HintWordDocument:
			return Classification{MIME: mimeDOCX, Ext: "docx"}
		}
		return Classification{MIME: mimeZIP, Ext: "zip"}
	case bytes.HasPrefix(data, sigPNG):
		return Classification{MIME: mimePNG, Ext: "png"}
	case bytes.HasPrefix(data, sigJPEG):
		return Classification{MIME: mimeJPEG, Ext: "jpg"}
	case bytes.HasPrefix(data, sigGIF87a), bytes.HasPrefix(data, sigGIF89a):
		return Classification{MIME: mimeGIF, Ext: "gif"}
	case looksLikeCSV(data):
		return Classification{MIME: mimeCSV, Ext: "csv"}
	}
	return Classification{MIME: mimeBinary, Ext: "bin"}
}

func isZIP(data []byte) bool {
	for _, sig := range sigZIP {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	return false
}

// looksLikeCSV reports whether the payload prefix is printable text
// containing at least one comma. This intentionally runs after every
// signature check so binary formats that happen to contain commas are not
// misread.
func looksLikeCSV(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	probe := data
	if len(probe) > textProbeSize {
		probe = probe[:textProbeSize]
	}

	hasComma := false
	for _, b := range probe {
		switch {
		case b == ',':
			hasComma = true
		case b == '\t' || b == '\r' || b == '\n':
		case b < 0x20 || b > 0x7e:
			return false
		}
	}
	return hasComma
}
