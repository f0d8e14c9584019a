package transport

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/jsonrpc"
)

// maxStderrBufferSize caps the stderr kept for error reporting. Stderr reading
// continues indefinitely (the callback receives all lines), but the buffer stops
// growing after this limit.
const maxStderrBufferSize = 1024 * 1024 // 1MB

// interpreters maps script extensions to the program that runs them.
var interpreters = map[string]string{
	".py":  "python3",
	".js":  "node",
	".mjs": "node",
}

// CommandTransport implements Transport by spawning a capability server subprocess.
type CommandTransport struct {
	log            *slog.Logger
	options        *config.Options
	path           string
	args           []string
	cmd            *exec.Cmd
	stdin          io.WriteCloser
	stdout         io.ReadCloser
	stderr         io.ReadCloser
	stderrCallback func(string)
	mu             sync.Mutex // Protects stdin writes
	closing        bool       // Whether Close() has been called (intentional shutdown)
	stdinClosed    bool       // Whether stdin was closed (e.g., due to context cancellation)
}

// Compile-time verification that CommandTransport implements the Transport interface.
var _ config.Transport = (*CommandTransport)(nil)

// NewCommandTransport creates a transport for the server described by
// options.Command and options.Args. The process is started by Start.
func NewCommandTransport(log *slog.Logger, options *config.Options) *CommandTransport {
	return &CommandTransport{
		log:            log.With("component", "command_transport"),
		options:        options,
		stderrCallback: options.Stderr,
	}
}

// ResolveCommand turns a server path into a program and arguments. Scripts are run
// through their interpreter; anything else must be executable or found in PATH.
func ResolveCommand(command string, args []string) (string, []string, error) {
	if command == "" {
		return "", nil, &errors.ConnectionError{Err: stderrors.New("no server command configured")}
	}

	if interp, ok := interpreters[strings.ToLower(filepath.Ext(command))]; ok {
		path, err := exec.LookPath(interp)
		if err != nil {
			return "", nil, &errors.ConnectionError{Err: fmt.Errorf("find %s for %s: %w", interp, command, err)}
		}

		return path, append([]string{command}, args...), nil
	}

	path, err := exec.LookPath(command)
	if err != nil {
		return "", nil, &errors.ConnectionError{Err: fmt.Errorf("find %s: %w", command, err)}
	}

	return path, slices.Clone(args), nil
}

// Start spawns the server process with stdin, stdout and stderr pipes.
//
// Returns ConnectionError if the command cannot be resolved or the process
// fails to start.
func (t *CommandTransport) Start(ctx context.Context) error {
	path, args, err := ResolveCommand(t.options.Command, t.options.Args)
	if err != nil {
		return err
	}

	t.path = path
	t.args = args

	t.log.Info("Starting server subprocess", "path", path, "args", args)

	//nolint:gosec // G204: launching the configured server is the point of this transport
	cmd := exec.CommandContext(ctx, t.path, t.args...)
	cmd.Dir = t.options.Cwd
	cmd.Env = buildEnvironment(t.options.Env)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.ConnectionError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	t.stdin = stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.ConnectionError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	t.stdout = stdout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errors.ConnectionError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	t.stderr = stderr

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start server process", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.cmd = cmd
	t.log.Info("Server subprocess started", "pid", cmd.Process.Pid)

	return nil
}

// ReadMessages decodes frames from the server's stdout.
//
// The goroutine exits when the process terminates or the context is cancelled.
// Framing errors are sent to the error channel but do not stop reading. If the
// process exits with an error that was not caused by Close, a ProcessError
// carrying the captured stderr is sent as the terminal error.
func (t *CommandTransport) ReadMessages(ctx context.Context) (<-chan *jsonrpc.Message, <-chan error) {
	messages := make(chan *jsonrpc.Message)
	errs := make(chan error, 1)

	var (
		stderrWg     sync.WaitGroup
		stderrMu     sync.Mutex
		stderrBuffer strings.Builder
	)

	// Stderr must be drained before cmd.Wait.
	stderrWg.Go(func() {
		scanner := bufio.NewScanner(t.stderr)
		for scanner.Scan() {
			line := scanner.Text()

			stderrMu.Lock()

			if stderrBuffer.Len() < maxStderrBufferSize {
				if stderrBuffer.Len() > 0 {
					stderrBuffer.WriteString("\n")
				}

				stderrBuffer.WriteString(line)
			}

			stderrMu.Unlock()

			if t.stderrCallback != nil {
				t.stderrCallback(line)
			}
		}

		if err := scanner.Err(); err != nil {
			t.log.Debug("Stderr scanner error", "error", err)
		}
	})

	go func() {
		defer close(messages)
		defer close(errs)
		defer t.log.Debug("ReadMessages goroutine stopped")

		readFrames(ctx, t.log, t.stdout, messages, errs)

		stderrWg.Wait()

		t.log.Debug("Waiting for server process to exit")

		err := t.cmd.Wait()
		if err == nil {
			t.log.Info("Server process exited")

			return
		}

		t.mu.Lock()
		isClosing := t.closing
		t.mu.Unlock()

		if isClosing {
			t.log.Debug("Server process terminated during shutdown")

			return
		}

		stderrMu.Lock()
		stderrOutput := strings.TrimSpace(stderrBuffer.String())
		stderrMu.Unlock()

		exitCode := 0
		if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
			exitCode = exitErr.ExitCode()
		}

		t.log.Error("Server process exited with error", "exit_code", exitCode, "stderr", stderrOutput)

		select {
		case errs <- &errors.ProcessError{ExitCode: exitCode, Stderr: stderrOutput, Err: err}:
		default:
		}
	}()

	return messages, errs
}

// SendMessage writes one frame to the server's stdin.
//
// If context is cancelled during a blocked write, stdin is closed to unblock
// the goroutine. Subsequent calls will return ErrStdinClosed.
func (t *CommandTransport) SendMessage(ctx context.Context, msg *jsonrpc.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin == nil {
		return errors.ErrTransportNotConnected
	}

	if t.stdinClosed {
		return errors.ErrStdinClosed
	}

	return writeFrame(ctx, t.log, t.stdin, msg, func() {
		_ = t.stdin.Close()
		t.stdinClosed = true
	})
}

// IsReady checks if the server process is running and stdin is open.
func (t *CommandTransport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && t.cmd.Process != nil && t.stdin != nil && !t.stdinClosed
}

// EndInput closes stdin. A well-behaved server exits once its input ends.
func (t *CommandTransport) EndInput() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin != nil && !t.stdinClosed {
		t.log.Debug("Closing stdin pipe")

		t.stdinClosed = true

		return t.stdin.Close()
	}

	return nil
}

// Close terminates the server process. It's safe to call Close multiple times.
func (t *CommandTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closing {
		return nil
	}

	t.closing = true
	t.stdinClosed = true

	if t.cmd != nil && t.cmd.Process != nil {
		t.log.Debug("Killing server process", "pid", t.cmd.Process.Pid)

		if err := t.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("kill server process (pid %d): %w", t.cmd.Process.Pid, err)
		}
	}

	return nil
}

// buildEnvironment returns the parent environment plus extra, sorted for stable
// process listings.
func buildEnvironment(extra map[string]string) []string {
	env := os.Environ()

	for _, k := range slices.Sorted(maps.Keys(extra)) {
		env = append(env, k+"="+extra[k])
	}

	return env
}
