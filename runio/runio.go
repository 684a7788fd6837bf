// Package runio is the I/O collaborator §6 describes as out of scope
// for the execution pipeline proper: line-oriented file and pipe
// multiplexing, field splitting, getline's six source/target forms,
// and output redirection. The vm package drives it; it never reaches
// back into vm, ast, or compiler.
//
// Every open stream is keyed by the literal redirection or command
// text that named it, opened lazily on first use and reused until an
// explicit close() — grounded on original_source/awkio.rs's
// HashMap<String, ...> input/output tables, generalized from "one file
// or stdin" to also cover pipes.
package runio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

// Manager owns every open stream for one interpreter run: the main
// input sequence (ARGV's file arguments), named getline sources, and
// named print destinations.
type Manager struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	mainFiles []string
	mainIdx   int
	mainCur   *inputStream

	inputs  map[string]*inputStream
	outputs map[string]*outputStream
}

type inputStream struct {
	closer  io.Closer // nil for stdin
	scanner *bufio.Scanner
	cmd     *exec.Cmd // set for pipe-in streams, to Wait() on close
}

type outputStream struct {
	closer io.Closer // nil for stdout/stderr
	w      *bufio.Writer
	cmd    *exec.Cmd // set for pipe-out streams
}

// New builds a Manager over the given main input file list (ARGV's
// non-assignment arguments, "-" meaning stdin; an empty list means
// read stdin as the sole input).
func New(files []string, stdin io.Reader, stdout, stderr io.Writer) *Manager {
	if len(files) == 0 {
		files = []string{"-"}
	}
	return &Manager{
		Stdin:     stdin,
		Stdout:    stdout,
		Stderr:    stderr,
		mainFiles: files,
		inputs:    map[string]*inputStream{},
		outputs:   map[string]*outputStream{},
	}
}

// splitFunc builds a bufio.SplitFunc implementing the record
// separator rules for rs: "\n" (the default) splits on newlines, ""
// splits on blank-line-delimited paragraphs, a single character splits
// on that byte, and anything else is a regular expression.
func splitFunc(rs string) (bufio.SplitFunc, error) {
	switch {
	case rs == "\n":
		return bufio.ScanLines, nil
	case rs == "":
		return paragraphSplit, nil
	case len([]rune(rs)) == 1:
		sep := []byte(rs)[0]
		return func(data []byte, atEOF bool) (int, []byte, error) {
			if atEOF && len(data) == 0 {
				return 0, nil, nil
			}
			if i := indexByte(data, sep); i >= 0 {
				return i + 1, data[:i], nil
			}
			if atEOF {
				return len(data), data, nil
			}
			return 0, nil, nil
		}, nil
	default:
		re, err := regexp.Compile(rs)
		if err != nil {
			return nil, fmt.Errorf("invalid record separator %q: %w", rs, err)
		}
		return func(data []byte, atEOF bool) (int, []byte, error) {
			if atEOF && len(data) == 0 {
				return 0, nil, nil
			}
			if loc := re.FindIndex(data); loc != nil && (loc[1] < len(data) || atEOF) {
				return loc[1], data[:loc[0]], nil
			}
			if atEOF {
				return len(data), data, nil
			}
			return 0, nil, nil
		}, nil
	}
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// paragraphSplit implements RS="" paragraph mode: records are
// separated by one or more blank lines, leading blank lines before
// the first record are skipped, and trailing newlines at the end of the
// input are not part of the last record.
func paragraphSplit(data []byte, atEOF bool) (int, []byte, error) {
	start := 0
	for start < len(data) && data[start] == '\n' {
		start++
	}
	if start >= len(data) {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	if i := strings.Index(string(data[start:]), "\n\n"); i >= 0 {
		end := start + i
		advance := end
		for advance < len(data) && data[advance] == '\n' {
			advance++
		}
		return advance, data[start:end], nil
	}
	if atEOF {
		end := len(data)
		for end > start && data[end-1] == '\n' {
			end--
		}
		return len(data), data[start:end], nil
	}
	return start, nil, nil
}

func newScanner(r io.Reader, rs string) (*bufio.Scanner, error) {
	fn, err := splitFunc(rs)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024*16)
	sc.Split(fn)
	return sc, nil
}

// NextMainRecord advances through ARGV's file list, returning the next
// record, the filename it came from, whether this record is the first
// of a new file (so the caller can reset FNR), and ok=false once every
// file is exhausted.
func (m *Manager) NextMainRecord(rs string) (record, filename string, newFile, ok bool, err error) {
	for {
		if m.mainCur == nil {
			if m.mainIdx >= len(m.mainFiles) {
				return "", "", false, false, nil
			}
			name := m.mainFiles[m.mainIdx]
			m.mainIdx++
			in, openErr := m.openInput(name, rs)
			if openErr != nil {
				return "", name, false, false, openErr
			}
			m.mainCur = in
			newFile = true
			filename = name
		}
		if m.mainCur.scanner.Scan() {
			return m.mainCur.scanner.Text(), m.mainFiles[m.mainIdx-1], newFile, true, nil
		}
		if scanErr := m.mainCur.scanner.Err(); scanErr != nil {
			return "", filename, false, false, scanErr
		}
		m.closeInputStream(m.mainCur)
		m.mainCur = nil
		newFile = false
	}
}

// SkipMainFile abandons the remainder of the current main input file
// (the "nextfile" statement), so the next NextMainRecord call opens
// the following ARGV entry.
func (m *Manager) SkipMainFile() {
	if m.mainCur != nil {
		m.closeInputStream(m.mainCur)
		m.mainCur = nil
	}
}

func (m *Manager) openInput(name, rs string) (*inputStream, error) {
	if name == "-" || name == "/dev/stdin" {
		sc, err := newScanner(m.Stdin, rs)
		if err != nil {
			return nil, err
		}
		return &inputStream{scanner: sc}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("runio: opening %q: %w", name, err)
	}
	sc, err := newScanner(f, rs)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &inputStream{closer: f, scanner: sc}, nil
}

func (m *Manager) closeInputStream(in *inputStream) {
	if in.closer != nil {
		in.closer.Close()
	}
	if in.cmd != nil {
		in.cmd.Wait()
	}
}

// ReadFile implements `getline < file`: a named, cached input stream
// distinct from the main sequence. Returns status 1 on a record, 0 on
// EOF, -1 on error (§6 getline status codes).
func (m *Manager) ReadFile(name, rs string) (record string, status int, err error) {
	in, ok := m.inputs[name]
	if !ok {
		opened, openErr := m.openInput(name, rs)
		if openErr != nil {
			return "", -1, nil
		}
		in = opened
		m.inputs[name] = in
	}
	if in.scanner.Scan() {
		return in.scanner.Text(), 1, nil
	}
	if scanErr := in.scanner.Err(); scanErr != nil {
		return "", -1, nil
	}
	return "", 0, nil
}

// ReadPipe implements `cmd | getline [var]`: the command is spawned at
// most once per distinct command text and its stdout is read record by
// record until it closes.
func (m *Manager) ReadPipe(command, rs string) (record string, status int, err error) {
	in, ok := m.inputs["|"+command]
	if !ok {
		cmd := exec.Command("sh", "-c", command)
		cmd.Stderr = m.Stderr
		stdout, pipeErr := cmd.StdoutPipe()
		if pipeErr != nil {
			return "", -1, nil
		}
		if startErr := cmd.Start(); startErr != nil {
			return "", -1, nil
		}
		sc, scErr := newScanner(stdout, rs)
		if scErr != nil {
			return "", -1, nil
		}
		in = &inputStream{scanner: sc, cmd: cmd}
		m.inputs["|"+command] = in
	}
	if in.scanner.Scan() {
		return in.scanner.Text(), 1, nil
	}
	if scanErr := in.scanner.Err(); scanErr != nil {
		return "", -1, nil
	}
	return "", 0, nil
}

// RedirectMode mirrors instructions.RedirectMode, kept as a separate
// type so this package does not need to import instructions.
type RedirectMode int

// Redirect modes.
const (
	RedirectNone RedirectMode = iota
	RedirectFile
	RedirectAppend
	RedirectPipe
)

// Write implements print/printf's output, opening (or reusing) the
// destination named by dest when mode is not RedirectNone, and writing
// straight to Stdout otherwise.
func (m *Manager) Write(dest string, mode RedirectMode, data string) error {
	if mode == RedirectNone {
		_, err := io.WriteString(m.Stdout, data)
		return err
	}
	key := dest
	if mode == RedirectPipe {
		key = "|" + dest
	}
	out, ok := m.outputs[key]
	if !ok {
		opened, err := m.openOutput(dest, mode)
		if err != nil {
			return err
		}
		out = opened
		m.outputs[key] = out
	}
	_, err := out.w.WriteString(data)
	return err
}

func (m *Manager) openOutput(dest string, mode RedirectMode) (*outputStream, error) {
	switch {
	case mode == RedirectPipe:
		cmd := exec.Command("sh", "-c", dest)
		cmd.Stdout = m.Stdout
		cmd.Stderr = m.Stderr
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return &outputStream{w: bufio.NewWriter(stdin), cmd: cmd, closer: stdin}, nil
	case dest == "/dev/stdout" || dest == "-":
		return &outputStream{w: bufio.NewWriter(m.Stdout)}, nil
	case dest == "/dev/stderr":
		return &outputStream{w: bufio.NewWriter(m.Stderr)}, nil
	default:
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if mode == RedirectAppend {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(dest, flags, 0644)
		if err != nil {
			return nil, fmt.Errorf("runio: opening %q for output: %w", dest, err)
		}
		return &outputStream{w: bufio.NewWriter(f), closer: f}, nil
	}
}

// Close implements the close(name) built-in: it matches name against
// every namespace a stream could be keyed under (plain input, "|"+name
// pipe-input, plain output, "|"+name pipe-output) and releases every
// stream found under any of them. Returns 0 on success, -1 if name
// names nothing open.
func (m *Manager) Close(name string) int {
	found := false
	for _, key := range []string{name, "|" + name} {
		if in, ok := m.inputs[key]; ok {
			m.closeInputStream(in)
			delete(m.inputs, key)
			found = true
		}
		if out, ok := m.outputs[key]; ok {
			out.w.Flush()
			if out.closer != nil {
				out.closer.Close()
			}
			if out.cmd != nil {
				out.cmd.Wait()
			}
			delete(m.outputs, key)
			found = true
		}
	}
	if !found {
		return -1
	}
	return 0
}

// Flush flushes every open output stream and a buffered Stdout. System
// calls it before running a command, and the vm calls it after END.
func (m *Manager) Flush() {
	for _, out := range m.outputs {
		out.w.Flush()
	}
	if bw, ok := m.Stdout.(interface{ Flush() error }); ok {
		bw.Flush()
	}
}

// System implements the system(cmd) built-in: runs cmd with its
// stdout/stderr connected to the interpreter's own, returning its exit
// status (grounded on original_source/value.rs's exec_command, adapted
// to stream output live rather than capture it, matching classic
// system() semantics rather than `cmd | getline`'s capture).
func (m *Manager) System(command string) int {
	m.Flush()
	cmd := exec.Command("sh", "-c", command)
	cmd.Stdin = m.Stdin
	cmd.Stdout = m.Stdout
	cmd.Stderr = m.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		return -1
	}
	return 0
}

// CloseAll releases every stream still open, called once at program
// termination.
func (m *Manager) CloseAll() {
	if m.mainCur != nil {
		m.closeInputStream(m.mainCur)
		m.mainCur = nil
	}
	for _, in := range m.inputs {
		m.closeInputStream(in)
	}
	for _, out := range m.outputs {
		out.w.Flush()
		if out.closer != nil {
			out.closer.Close()
		}
		if out.cmd != nil {
			out.cmd.Wait()
		}
	}
}

// SplitFields implements split_fields(record, FS): FS==" " splits on
// runs of whitespace (trimming leading/trailing runs), a single
// non-space character splits literally, and anything else is a
// regular expression. The three-way rule mirrors value.Split's sep
// handling, since §6's split_fields and §4.5's split() built-in share
// the same field-separator grammar.
func SplitFields(record, fs string) ([]string, error) {
	switch {
	case record == "":
		return nil, nil
	case fs == " ":
		return strings.Fields(record), nil
	case len([]rune(fs)) == 1:
		return strings.Split(record, fs), nil
	default:
		re, err := regexp.Compile(fs)
		if err != nil {
			return nil, fmt.Errorf("invalid field separator %q: %w", fs, err)
		}
		return re.Split(record, -1), nil
	}
}

// JoinFields implements join_fields(fields, OFS): the inverse of
// SplitFields, used to rebuild $0 after a field assignment.
func JoinFields(fields []string, ofs string) string {
	return strings.Join(fields, ofs)
}
