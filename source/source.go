// source/source.go
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extension is the script file suffix.
const Extension = ".kes"

// Piece is one logical statement with its physical line number.
type Piece struct {
	Line int
	Text string
}

// File is a loaded script split into logical statements.
type File struct {
	Name   string
	Path   string
	Pieces []Piece
}

// Load reads and splits the script at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	file, err := Read(ModuleName(path), f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	file.Path = path
	return file, nil
}

// Parse splits an in-memory script.
func Parse(name, src string) *File {
	file, _ := Read(name, strings.NewReader(src))
	return file
}

// Read splits script text from r.
func Read(name string, r io.Reader) (*File, error) {
	file := &File{Name: name}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		for _, text := range Split(StripComment(sc.Text())) {
			file.Pieces = append(file.Pieces, Piece{Line: line, Text: text})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return file, nil
}

// ModuleName derives a module name from a file path.
func ModuleName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Extension)
}

// StripComment drops a trailing // comment outside string literals.
func StripComment(line string) string {
	inStr := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inStr {
			if c == '\\' {
				i++
			} else if c == '"' {
				inStr = false
			}
			continue
		}
		if c == '"' {
			inStr = true
		} else if c == '/' && i+1 < len(line) && line[i+1] == '/' {
			return line[:i]
		}
	}
	return line
}

// Split cuts a physical line after every depth-0 ':' or ';' outside string
// literals. Blank pieces are dropped.
func Split(line string) []string {
	var out []string
	depth, start, inStr := 0, 0, false
	emit := func(end int) {
		if t := strings.TrimSpace(line[start:end]); t != "" {
			out = append(out, t)
		}
		start = end
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inStr {
			if c == '\\' {
				i++
			} else if c == '"' {
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ':', ';':
			if depth == 0 {
				emit(i + 1)
			}
		}
	}
	emit(len(line))
	return out
}

// Depth reports the net scope change of a line: opening statements end in
// ':' and a lone ';' closes. Border statements count as neutral.
func Depth(line string) int {
	d := 0
	for _, p := range Split(StripComment(line)) {
		switch {
		case p == ";":
			d--
		case strings.HasSuffix(p, ":"):
			if IsBorder(p) {
				continue
			}
			d++
		}
	}
	return d
}

// IsBorder reports whether p is an elif, else or catch statement.
func IsBorder(p string) bool {
	for _, kw := range []string{"elif", "else", "catch"} {
		if strings.HasPrefix(p, kw) {
			rest := p[len(kw):]
			if rest == "" || rest[0] == ' ' || rest[0] == ':' || rest[0] == '\t' {
				return true
			}
		}
	}
	return false
}

// Resolve returns the first dirs entry holding name + Extension.
func Resolve(name string, dirs []string) (string, bool) {
	for _, d := range dirs {
		p := filepath.Join(d, name+Extension)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}
