package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/g960059/pomobar/internal/daemon"
	"github.com/g960059/pomobar/internal/protocol"
	"github.com/g960059/pomobar/internal/runtime"
)

// SendFunc delivers one payload to the instance listening at socketPath.
type SendFunc func(ctx context.Context, socketPath, msg string) error

type setCmd struct {
	Minutes int `arg:"" help:"Cycle length in minutes."`
}

type clientCLI struct {
	Instance  int    `short:"n" help:"Instance number to address." default:"0"`
	All       bool   `short:"a" help:"Send to every discovered instance."`
	SocketDir string `name:"socket-dir" help:"Directory holding instance sockets (default: system temp dir)." env:"POMOBAR_SOCKET_DIR"`

	Start    struct{} `cmd:"" help:"Start the timer."`
	Stop     struct{} `cmd:"" help:"Pause the timer."`
	Toggle   struct{} `cmd:"" help:"Start or pause the timer."`
	Reset    struct{} `cmd:"" help:"Return to a stopped work cycle with no time elapsed."`
	Exit     struct{} `cmd:"" help:"Stop the daemon and remove its socket."`
	SetWork  setCmd   `cmd:"" name:"set-work" help:"Set the work cycle length."`
	SetShort setCmd   `cmd:"" name:"set-short" help:"Set the short break length."`
	SetLong  setCmd   `cmd:"" name:"set-long" help:"Set the long break length."`
	List     struct{} `cmd:"" help:"List discovered instance sockets."`
}

type Runner struct {
	send   SendFunc
	out    io.Writer
	errOut io.Writer
}

func NewRunner(out, errOut io.Writer) *Runner {
	return NewRunnerWithSender(daemon.Send, out, errOut)
}

func NewRunnerWithSender(send SendFunc, out, errOut io.Writer) *Runner {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	if send == nil {
		send = daemon.Send
	}
	return &Runner{send: send, out: out, errOut: errOut}
}

// Run parses args and executes the client command, returning the process
// exit code.
func (r *Runner) Run(ctx context.Context, args []string) int {
	var cli clientCLI
	exitCode := -1
	parser, err := kong.New(&cli,
		kong.Name(runtime.AppName),
		kong.Description("Control running pomodoro timers."),
		kong.Writers(r.out, r.errOut),
		kong.Exit(func(code int) { exitCode = code }),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintf(r.errOut, "%v\n", err) //nolint:errcheck
		return 2
	}
	kctx, err := parser.Parse(args)
	if exitCode >= 0 {
		return exitCode
	}
	if err != nil {
		fmt.Fprintf(r.errOut, "%s: %v\n", runtime.AppName, err) //nolint:errcheck
		return 2
	}

	command := strings.Fields(kctx.Command())[0]
	if command == "list" {
		for _, path := range runtime.Discover(cli.SocketDir, runtime.AppName) {
			fmt.Fprintln(r.out, path) //nolint:errcheck
		}
		return 0
	}

	msg, err := encodeCommand(command, cli)
	if err != nil {
		fmt.Fprintf(r.errOut, "%s: %v\n", runtime.AppName, err) //nolint:errcheck
		return 2
	}

	targets := []string{runtime.SocketPath(cli.SocketDir, runtime.AppName, cli.Instance)}
	if cli.All {
		targets = runtime.Discover(cli.SocketDir, runtime.AppName)
		if len(targets) == 0 {
			fmt.Fprintln(r.errOut, "no running instances found") //nolint:errcheck
			return 1
		}
	}

	code := 0
	for _, target := range targets {
		if err := r.send(ctx, target, msg); err != nil {
			fmt.Fprintf(r.errOut, "%s: %v\n", runtime.AppName, err) //nolint:errcheck
			code = 1
		}
	}
	return code
}

func encodeCommand(command string, cli clientCLI) (string, error) {
	var minutes int
	switch command {
	case protocol.SetWork:
		minutes = cli.SetWork.Minutes
	case protocol.SetShort:
		minutes = cli.SetShort.Minutes
	case protocol.SetLong:
		minutes = cli.SetLong.Minutes
	default:
		if !protocol.IsKeyword(command) {
			return "", fmt.Errorf("unsupported command %q", command)
		}
		return command, nil
	}
	if minutes < 0 {
		return "", errors.New("minutes must be >= 0")
	}
	return protocol.NewMessage(command, minutes).Encode(), nil
}
