// Package transport spawns the language-server child process and exposes
// its stdio as a jsonrpc2.ObjectStream framed per the LSP base protocol
// (Content-Length-prefixed JSON). Grounded on the stdio-pipe pattern shared
// by every client in the retrieval pack (e.g. the clangd and gopls client
// wrappers): separate stdin/stdout pipes combined into one
// io.ReadWriteCloser and handed to jsonrpc2.NewBufferedStream with
// jsonrpc2.VSCodeObjectCodec, which implements Content-Length framing.
package transport

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/sourcegraph/jsonrpc2"
)

// pipeStream adapts a child process's separate stdin/stdout pipes into the
// single io.ReadWriteCloser jsonrpc2.NewBufferedStream expects.
type pipeStream struct {
	stdout io.ReadCloser
	stdin  io.WriteCloser
}

func (p *pipeStream) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p *pipeStream) Write(b []byte) (int, error) { return p.stdin.Write(b) }

func (p *pipeStream) Close() error {
	werr := p.stdin.Close()
	rerr := p.stdout.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Process owns a spawned language-server child and the JSON-RPC object
// stream bound to its stdio.
type Process struct {
	cmd    *exec.Cmd
	Stream jsonrpc2.ObjectStream

	// Stderr is forwarded to the caller for logging; spec.md §4.1 says
	// stderr is diagnostic only, never part of the RPC channel.
	Stderr io.Reader
}

// Spawn starts command with args, dir, and env (nil env inherits
// os.Environ, matching the teacher's NewClient), and wires its stdio into
// a Content-Length-framed JSON-RPC object stream.
func Spawn(command string, args []string, dir string, env []string) (*Process, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = env
	} else {
		cmd.Env = os.Environ()
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("transport: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("transport: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("transport: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("transport: start %s: %w", command, err)
	}

	stream := jsonrpc2.NewBufferedStream(&pipeStream{stdout: stdout, stdin: stdin}, jsonrpc2.VSCodeObjectCodec{})

	return &Process{
		cmd:    cmd,
		Stream: stream,
		Stderr: bufio.NewReader(stderr),
	}, nil
}

// Wait blocks until the child process exits.
func (p *Process) Wait() error {
	return p.cmd.Wait()
}

// Kill forcibly terminates the child process. Idempotent: killing an
// already-exited process is reported as nil, matching spec.md §5's
// requirement that concurrent termination be idempotent.
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	if err != nil && p.cmd.ProcessState != nil {
		// already exited
		return nil
	}
	return err
}
