package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// followPoll is the interval between reads while waiting for new lines.
const followPoll = 250 * time.Millisecond

// maxLineBytes bounds a single log line during scans.
const maxLineBytes = 1 << 20

// TailOptions selects which part of the log file Tail returns.
type TailOptions struct {
	// Offset is the byte position to resume reading from. Negative means
	// read from the end of the file instead.
	Offset int64
	// Limit caps the number of trailing lines returned when Offset is
	// negative. Zero skips straight to the end of the file.
	Limit int
	// Follow keeps Tail polling for new lines when the read comes back
	// empty.
	Follow bool
	// Wait bounds how long a follow request blocks before returning an
	// empty result.
	Wait time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads log lines from path according to opts. A missing file yields an
// empty result at offset zero so callers can start polling before the daemon
// has written anything.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		result.Offset = 0
		return result, nil
	case err != nil:
		return result, fmt.Errorf("stat log file: %w", err)
	case info.IsDir():
		return result, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	var lines []string
	var next int64
	if opts.Offset < 0 {
		lines, next, err = tailEnd(path, opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// The file was truncated or rotated underneath us.
			offset = info.Size()
		}
		lines, next, err = readAfter(path, offset)
	}
	if err != nil {
		return result, err
	}

	result.Lines = lines
	result.Offset = next
	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return pollForLines(ctx, path, next, opts.Wait)
	}
	return result, nil
}

// tailEnd returns the last limit lines of the file and the end offset.
func tailEnd(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	// Ring of the trailing window keeps memory flat on large logs.
	ring := make([]string, limit)
	total := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		ring[total%limit] = scanner.Text()
		total++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	count := total
	if count > limit {
		count = limit
	}
	lines := make([]string, count)
	for i := range lines {
		lines[i] = ring[(total-count+i)%limit]
	}
	return lines, end, nil
}

// readAfter returns every line from offset onward and the offset at which the
// read stopped.
func readAfter(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines, err := scanLines(file)
	if err != nil {
		return nil, 0, err
	}
	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, next, nil
}

// scanLines reads r to EOF, one entry per line.
func scanLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}
	return lines, nil
}

// pollForLines rereads the file until new lines appear, wait elapses, or the
// context is cancelled.
func pollForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	result := TailResult{Offset: offset}
	deadline := time.Now().Add(wait)

	ticker := time.NewTicker(followPoll)
	defer ticker.Stop()

	for {
		lines, next, err := readAfter(path, offset)
		if err != nil {
			return result, err
		}
		result.Offset = next
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if !time.Now().Before(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
