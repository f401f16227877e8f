package extract

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"strings"
)

// DocumentKind selects an extraction strategy.
type DocumentKind int

const (
	KindText DocumentKind = iota
	KindCSV
	KindPDF
	KindDOCX
	KindXLSX
	KindPPTX
	KindODT
	KindRTF
	KindODP
	KindODS
	KindSQLite
	KindImage
)

var kindNames = map[DocumentKind]string{
	KindText:   "text",
	KindCSV:    "csv",
	KindPDF:    "pdf",
	KindDOCX:   "docx",
	KindXLSX:   "xlsx",
	KindPPTX:   "pptx",
	KindODT:    "odt",
	KindRTF:    "rtf",
	KindODP:    "odp",
	KindODS:    "ods",
	KindSQLite: "sqlite",
	KindImage:  "image",
}

func (k DocumentKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

var kindsByExt = map[string]DocumentKind{
	".txt":     KindText,
	".md":      KindText,
	".rst":     KindText,
	".log":     KindText,
	".json":    KindText,
	".xml":     KindText,
	".html":    KindText,
	".csv":     KindCSV,
	".pdf":     KindPDF,
	".docx":    KindDOCX,
	".doc":     KindDOCX,
	".xlsx":    KindXLSX,
	".pptx":    KindPPTX,
	".odt":     KindODT,
	".rtf":     KindRTF,
	".odp":     KindODP,
	".ods":     KindODS,
	".db":      KindSQLite,
	".sqlite":  KindSQLite,
	".sqlite3": KindSQLite,
	".png":     KindImage,
	".jpg":     KindImage,
	".jpeg":    KindImage,
	".tiff":    KindImage,
}

// SupportedExtensions lists every extension with a dedicated strategy.
func SupportedExtensions() []string {
	out := make([]string, 0, len(kindsByExt))
	for ext := range kindsByExt {
		out = append(out, ext)
	}
	return out
}

// KindOf resolves the kind from the name's extension, falling back to the
// leading bytes of content. Anything unrecognized is text.
func KindOf(name string, content []byte) DocumentKind {
	if k, ok := kindsByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return k
	}
	return Sniff(content)
}

var (
	pdfMagic    = []byte("%PDF-")
	zipMagic    = []byte("PK\x03\x04")
	sqliteMagic = []byte("SQLite format 3\x00")
	rtfMagic    = []byte("{\\rtf")
)

// Sniff guesses the kind from content alone.
func Sniff(content []byte) DocumentKind {
	switch {
	case bytes.HasPrefix(content, pdfMagic):
		return KindPDF
	case bytes.HasPrefix(content, sqliteMagic):
		return KindSQLite
	case bytes.HasPrefix(content, rtfMagic):
		return KindRTF
	case bytes.HasPrefix(content, zipMagic):
		return sniffZip(content)
	}
	return KindText
}

// sniffZip tells the office container formats apart by their entries.
func sniffZip(content []byte) DocumentKind {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return KindText
	}
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "word/"):
			return KindDOCX
		case strings.HasPrefix(f.Name, "ppt/"):
			return KindPPTX
		case strings.HasPrefix(f.Name, "xl/"):
			return KindXLSX
		}
	}
	if mime, err := readZipEntry(zr, "mimetype"); err == nil {
		switch strings.TrimSpace(string(mime)) {
		case "application/vnd.oasis.opendocument.text":
			return KindODT
		case "application/vnd.oasis.opendocument.presentation":
			return KindODP
		case "application/vnd.oasis.opendocument.spreadsheet":
			return KindODS
		}
	}
	return KindDOCX
}
