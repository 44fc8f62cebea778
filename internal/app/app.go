package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/signcast/internal/camera"
	"github.com/rbright/signcast/internal/cli"
	"github.com/rbright/signcast/internal/config"
	"github.com/rbright/signcast/internal/doctor"
	"github.com/rbright/signcast/internal/ipc"
	"github.com/rbright/signcast/internal/logging"
	"github.com/rbright/signcast/internal/version"
)

const forwardTimeout = 220 * time.Millisecond

// voiceForwardTimeout covers the synchronous /speak roundtrip made by the owner.
const voiceForwardTimeout = 10 * time.Second

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("signcast"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("signcast"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logOpts := logging.Options{Level: cfgLoaded.Config.Log.Level}
	if parsed.Command == cli.CommandRun && parsed.Headless && cfgLoaded.Config.Log.Console {
		logOpts.Console = r.Stderr
	}
	logRuntime, err := logging.New(logOpts)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"args", len(parsed.Args),
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandSpeak, cli.CommandPick, cli.CommandClear:
		return r.forwardOrFail(ctx, ipc.Request{Command: string(parsed.Command), Args: parsed.Args}, forwardTimeout)
	case cli.CommandVoice:
		return r.forwardOrFail(ctx, ipc.Request{Command: string(parsed.Command)}, voiceForwardTimeout)
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, parsed.Headless, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := camera.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no video devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | name=%q | available=%s\n",
			defaultMark,
			device.ID,
			device.Name,
			availability,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := ipc.Forward(ctx, socketPath, ipc.Request{Command: "status"}, forwardTimeout)
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintln(r.Stdout, resp.State)
	r.printSession(resp)
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request, timeout time.Duration) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := ipc.Forward(ctx, socketPath, req, timeout)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active signcast session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	if req.Command == "pick" {
		r.printSession(resp)
	}
	return 0
}

func (r Runner) printSession(resp ipc.Response) {
	if resp.Transcript != "" {
		fmt.Fprintf(r.Stdout, "transcript: %s\n", resp.Transcript)
	}
	if len(resp.Suggestions) > 0 {
		fmt.Fprintf(r.Stdout, "suggestions: %s\n", strings.Join(resp.Suggestions, ", "))
	}
}
