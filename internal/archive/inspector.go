package archive

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jadenpxrk/dirdoc/internal/language"
)

// Inspector answers the per-file questions the writer needs before it
// decides how to render a body.
type Inspector interface {
	IsBinary(path string) bool
	IsText(path string) bool // judged by name alone
	Language(path string) string
	HumanSize(path string) string
}

// sniffLen is how much of a file IsBinary looks at.
const sniffLen = 8000

// FileInspector inspects files on disk using a language table.
type FileInspector struct {
	Languages *language.Table
}

// NewFileInspector returns an inspector backed by table, or by the embedded
// default table when table is nil.
func NewFileInspector(table *language.Table) *FileInspector {
	if table == nil {
		table = language.Default()
	}
	return &FileInspector{Languages: table}
}

// IsBinary reads the start of the file and reports true if it holds a NUL
// byte or more than 30% control characters. Unopenable files count as
// binary.
func (fi *FileInspector) IsBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	buf = buf[:n]
	if len(buf) == 0 {
		return false
	}
	if bytes.IndexByte(buf, 0) >= 0 {
		return true
	}

	control := 0
	for _, b := range buf {
		if b < 32 && b != '\n' && b != '\r' && b != '\t' && b != '\f' && b != '\b' && b != 0x1b {
			control++
		}
	}
	return float64(control)/float64(len(buf)) > 0.3
}

func (fi *FileInspector) IsText(path string) bool {
	return fi.Languages.IsText(path)
}

func (fi *FileInspector) Language(path string) string {
	return fi.Languages.Tag(path)
}

// HumanSize formats the file size in IEC units, or "unknown".
func (fi *FileInspector) HumanSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown"
	}
	return humanize.IBytes(uint64(info.Size()))
}
