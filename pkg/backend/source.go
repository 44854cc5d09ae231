package backend

import (
	"bufio"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// sourceCache serves single source lines for code snippets.
type sourceCache struct {
	root  string
	mu    sync.Mutex
	files map[string][]string
}

func newSourceCache(root string) *sourceCache {
	return &sourceCache{root: root, files: make(map[string][]string)}
}

func (c *sourceCache) abs(file string) string {
	if file == "" || filepath.IsAbs(file) || c.root == "" {
		return file
	}
	return filepath.Join(c.root, file)
}

// line returns the 1-based line of file, or nil when the file or line does
// not exist. Missing files are remembered as empty.
func (c *sourceCache) line(file string, n int) *string {
	if file == "" || n <= 0 {
		return nil
	}
	c.mu.Lock()
	lines, ok := c.files[file]
	if !ok {
		lines = readLines(c.abs(file))
		c.files[file] = lines
	}
	c.mu.Unlock()
	if n > len(lines) {
		return nil
	}
	s := lines[n-1]
	return &s
}

func (c *sourceCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.files)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

// editorArgs splits an editor command template and fills in {file} and {line}.
func editorArgs(template, file string, line int) []string {
	args := strings.Fields(template)
	r := strings.NewReplacer("{file}", file, "{line}", strconv.Itoa(line))
	for i, a := range args {
		args[i] = r.Replace(a)
	}
	return args
}

// startDetached starts a process without waiting for it to finish.
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
