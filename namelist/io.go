package namelist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"strakmachine/strakerr"
	"strakmachine/util"
)

var (
	reGroup = regexp.MustCompile(`^&(\w+)\s*$`)
	reEntry = regexp.MustCompile(`^(\w+)\s*(?:\(\s*(\d+)\s*\))?\s*=\s*(.*)$`)
)

// splitComment cuts a trailing "! comment" that is not inside quotes.
func splitComment(line string) (string, string) {
	var quote rune
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '!':
			return line[:i], strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}

// Read parses a namelist document. Comment lines are kept with the group
// they are in or precede; blank lines and other text outside groups are
// dropped.
func Read(r io.Reader) (*Document, error) {
	doc := New()
	var cur *Group
	var pending []string
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		body, comment := splitComment(sc.Text())
		body = strings.TrimSpace(body)
		if body == "" {
			switch {
			case comment == "":
			case cur != nil:
				cur.Entries = append(cur.Entries, &Entry{Comment: comment})
			default:
				pending = append(pending, comment)
			}
			continue
		}
		if cur == nil {
			if m := reGroup.FindStringSubmatch(body); m != nil {
				cur = doc.Ensure(m[1])
				cur.Comments = append(cur.Comments, pending...)
				pending = nil
			}
			continue
		}
		if body == "/" || body == "&end" {
			cur = nil
			continue
		}
		m := reEntry.FindStringSubmatch(body)
		if m == nil {
			return nil, strakerr.New(strakerr.InvalidInputFile, lineNo, "line %d: cannot parse %q", lineNo, body)
		}
		idx := 0
		if m[2] != "" {
			idx, _ = strconv.Atoi(m[2])
		}
		value := strings.TrimSuffix(strings.TrimSpace(m[3]), ",")
		e := cur.SetIndexed(m[1], idx, strings.TrimSpace(value))
		e.Comment = comment
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if cur != nil {
		return nil, strakerr.New(strakerr.InvalidInputFile, cur.Name, "group &%s not terminated", cur.Name)
	}
	return doc, nil
}

func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func (d *Document) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, g := range d.Groups {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		for _, c := range g.Comments {
			fmt.Fprintf(bw, "! %s\n", c)
		}
		fmt.Fprintf(bw, "&%s\n", g.Name)
		for _, e := range g.Entries {
			if e.Key == "" {
				fmt.Fprintf(bw, "  ! %s\n", e.Comment)
				continue
			}
			key := e.Key
			if e.Index > 0 {
				key = fmt.Sprintf("%s(%d)", e.Key, e.Index)
			}
			line := fmt.Sprintf("  %s = %s", key, e.Value)
			if e.Comment != "" {
				line = fmt.Sprintf("%-40s ! %s", line, e.Comment)
			}
			fmt.Fprintln(bw, line)
		}
		fmt.Fprintln(bw, "/")
	}
	return bw.Flush()
}

func (d *Document) String() string {
	var sb strings.Builder
	_ = d.Write(&sb)
	return sb.String()
}

// WriteFile renders the whole document first, then replaces path.
func (d *Document) WriteFile(path string) error {
	return util.WriteFileAtomic(path, d.Write)
}
