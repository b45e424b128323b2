package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aurorawm/aurora/comp"
	"github.com/aurorawm/aurora/repl"
	"github.com/aurorawm/aurora/util"
	"github.com/aurorawm/aurora/util/wrappers"
	"github.com/aurorawm/aurora/wire"
	"github.com/aurorawm/aurora/wm"
)

func replRunner(server *comp.Server) {
	// Give repl some wrappers around stdin and stdout so that it closes those instead of stdin & stdout themselves
	commandRepl := repl.NewRepl(wrappers.NewReaderWrapper(os.Stdin), wrappers.NewWriterWrapper(os.Stdout))
	logrus.Debugln("Starting repl")
	_ = commandRepl.Run(func(input string, r *repl.Repl) (string, error) {
		if cmdString, ok := strings.CutPrefix(input, "run "); ok {
			return replRun(r, cmdString), nil
		} else if input == "quit" {
			server.Stop()
			time.Sleep(time.Second)
			return "Quitting", errors.New("normal stop")
		} else if rawCmdString, ok := strings.CutPrefix(input, "inspect "); ok {
			return replInspect(server, rawCmdString), nil
		} else if modeString, ok := strings.CutPrefix(input, "mode "); ok {
			return replMode(server, modeString), nil
		} else if input == "next" {
			server.Do(server.WM().Next)
			return "Cycled active window", nil
		} else if input == "watch" {
			return replWatch(server, r), nil
		}
		return "Unknown command", nil
	})
}

func replRun(r *repl.Repl, cmdString string) string {
	parts := strings.Split(cmdString, " ")
	// This is safe b/c it'll unpack into a slice of length 0
	args := parts[1:]
	// An empty first element is also safe to "execute" since
	// cmd.Start will just fail with the No Command error
	cmd := exec.Command(parts[0], args...)
	cmd.Stdout = r.Output
	cmd.Stderr = r.Output
	go func(cmd *exec.Cmd, cmdString string) {
		err := cmd.Start()
		if err != nil {
			logrus.WithError(err).WithField("command", cmdString).Errorln("Command failed to start")
			return
		}
		err = cmd.Wait()
		if exiterr, ok := err.(*exec.ExitError); ok {
			logrus.WithError(err).WithFields(logrus.Fields{
				"exit-code": exiterr.ExitCode(),
				"comand":    cmdString,
			}).Warningln("Bad command completion")
		}
	}(cmd, cmdString)
	return "Running " + parts[0]
}

func replInspect(server *comp.Server, rawCmdString string) string {
	// Can't unpack slices directly like in Python, so do it this roundabout way
	var target, mod string
	util.Unpack(strings.SplitN(rawCmdString, " ", 2), &target, &mod)
	logrus.WithFields(logrus.Fields{
		"cmd": target,
		"mod": mod,
		"raw": rawCmdString,
	}).Debugln("Parsed inspect command")

	// The repl runs on its own goroutine; engine state is only read on
	// the loop
	var report string
	server.Do(func() { report = inspectReport(server, target) })
	return report
}

func inspectReport(server *comp.Server, target string) string {
	switch target {
	case "outputs":
		var sb strings.Builder
		for _, out := range server.Layout().All() {
			fmt.Fprintf(&sb, "%s: %+v dirty=%v\n", out.Name(), out.Geometry(), out.Dirty())
		}
		if sb.Len() == 0 {
			return "No outputs"
		}
		return strings.TrimRight(sb.String(), "\n")

	case "windows":
		var sb strings.Builder
		for _, w := range server.Shell().Windows() {
			fmt.Fprintf(&sb, "surface %d: %q state=%s mode=%s geo=%+v\n",
				w.Surface(), w.Title(), w.State(), w.Mode(), w.Geometry())
		}
		if sb.Len() == 0 {
			return "No windows"
		}
		return strings.TrimRight(sb.String(), "\n")

	case "focus":
		return fmt.Sprintf("keyboard=%d pointer=%d",
			server.Seat().KeyboardFocus(), server.Seat().PointerFocus())

	case "cursor":
		x, y := server.Seat().PointerPosition()
		if cs := server.Seat().CursorSurface(); cs != wire.NoSurface {
			hs := server.Seat().CursorHotspot()
			return fmt.Sprintf("Cursor: Location (%f:%f) surface=%d hotspot=(%d:%d)", x, y, cs, hs.X, hs.Y)
		}
		return fmt.Sprintf("Cursor: Location (%f:%f)", x, y)

	case "mode":
		return "Window management mode: " + server.WM().Mode().String()

	default:
		return "Unknown inspect target"
	}
}

func replMode(server *comp.Server, modeString string) string {
	var mode wm.Mode
	switch modeString {
	case "floating":
		mode = wm.ModeFloating
	case "interactive":
		mode = wm.ModeInteractive
	case "preview":
		mode = wm.ModePreview
	default:
		return "Unknown mode " + modeString
	}
	server.Do(func() { server.WM().SetMode(mode) })
	return "Mode set to " + modeString
}

// replWatch streams lifecycle notifications until the subscription
// buffer closes. Blocks the repl, meant for a second terminal
func replWatch(server *comp.Server, r *repl.Repl) string {
	ch, err := server.Watch("repl")
	if err != nil {
		return "Already watching"
	}
	defer server.Unwatch("repl")
	deadline := time.After(30 * time.Second)
	count := 0
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return fmt.Sprintf("Watch ended after %d notifications", count)
			}
			fmt.Fprintf(r.Output, "%s surface=%d output=%s\n", n.Kind, n.Surface, n.Output)
			count++
		case <-deadline:
			return fmt.Sprintf("Watch window over, %d notifications", count)
		}
	}
}
