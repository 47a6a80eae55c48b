package h264decoder

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

// FindFFmpeg locates the ffmpeg binary.
// Priority: 1) custom path, 2) FFMPEG_PATH env, 3) PATH, 4) common locations
func FindFFmpeg(custom string) (string, error) {
	if custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, custom)
	}

	if envPath := os.Getenv("FFMPEG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: FFMPEG_PATH %s not found", ErrFFmpegNotFound, envPath)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	var commonPaths []string
	switch runtime.GOOS {
	case "windows":
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	case "darwin":
		commonPaths = []string{
			"/opt/homebrew/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
		}
	default:
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrFFmpegNotFound
}

// IsAvailable reports whether an ffmpeg binary can be found.
func IsAvailable(custom string) bool {
	_, err := FindFFmpeg(custom)
	return err == nil
}

// process is one running ffmpeg decoding stdin to raw frames on stdout.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer

	mu     sync.Mutex
	frames [][]byte
	err    error

	ready chan struct{}
	done  chan struct{}
}

func ffmpegArgs(opts Options) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-probesize", "32",
		"-analyzeduration", "0",
		"-fflags", "nobuffer",
		"-threads", strconv.Itoa(opts.Threads),
		"-f", "h264",
		"-i", "pipe:0",
		"-vf", fmt.Sprintf("scale=%d:%d", opts.Width, opts.Height),
		"-pix_fmt", "yuv420p",
		"-fps_mode", "passthrough",
		"-flush_packets", "1",
		"-f", "rawvideo",
		"pipe:1",
	}
}

func startProcess(opts Options, frameSize int) (*process, error) {
	path, err := FindFFmpeg(opts.FFmpegPath)
	if err != nil {
		return nil, err
	}

	p := &process{
		cmd:    exec.Command(path, ffmpegArgs(opts)...),
		stderr: &tailBuffer{limit: 4096},
		ready:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	p.cmd.Stderr = p.stderr

	if p.stdin, err = p.cmd.StdinPipe(); err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	if opts.Logger != nil {
		opts.Logger.Debug("Started ffmpeg decoder (pid %d)", p.cmd.Process.Pid)
	}

	go p.readFrames(stdout, frameSize)
	return p, nil
}

func (p *process) readFrames(stdout io.Reader, frameSize int) {
	defer close(p.done)
	for {
		buf := make([]byte, frameSize)
		if _, err := io.ReadFull(stdout, buf); err != nil {
			werr := p.cmd.Wait()
			p.mu.Lock()
			if werr != nil {
				p.err = fmt.Errorf("%w: %v: %s", ErrDecodeFailed, werr, p.stderr.String())
			} else if err != io.EOF {
				p.err = fmt.Errorf("%w: %v", ErrDecodeFailed, err)
			}
			p.mu.Unlock()
			return
		}

		p.mu.Lock()
		p.frames = append(p.frames, buf)
		p.mu.Unlock()
		select {
		case p.ready <- struct{}{}:
		default:
		}
	}
}

func (p *process) write(data []byte) error {
	if _, err := p.stdin.Write(data); err != nil {
		if ferr := p.failure(); ferr != nil {
			return ferr
		}
		return fmt.Errorf("%w: write to ffmpeg: %v", ErrDecodeFailed, err)
	}
	return nil
}

func (p *process) pop() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) == 0 {
		return nil, false
	}
	f := p.frames[0]
	p.frames = p.frames[1:]
	return f, true
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *process) failure() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// stop kills ffmpeg and waits for the reader goroutine.
func (p *process) stop() error {
	p.stdin.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	<-p.done
	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
