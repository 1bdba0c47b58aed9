package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/nick-dorsch/tally/pkg/models"
)

// JSONLSource reads one task per line from a file. The file is re-read on
// every call so edits by the collaborator are picked up.
type JSONLSource struct {
	Path string
}

func NewJSONLSource(path string) *JSONLSource {
	return &JSONLSource{Path: path}
}

func (s *JSONLSource) ListTasks(ctx context.Context) ([]models.Task, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks file: %w", err)
	}
	defer file.Close()

	var tasks []models.Task
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t, err := decodeTask(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", s.Path, lineNo, err)
		}
		tasks = append(tasks, t)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return tasks, nil
}
