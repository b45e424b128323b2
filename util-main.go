package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gitlab.com/mstarongitlab/goutils/sliceutils"

	"github.com/aurorawm/aurora/backend"
	"github.com/aurorawm/aurora/common/ipc"
	"github.com/aurorawm/aurora/config"
	"github.com/aurorawm/aurora/output"
)

var (
	utilAction *string = flag.String(
		"action",
		"",
		"The action to perform. Can be one of:"+
			"\n\t- none: Do nothing"+
			"\n\t- outputs: List available outputs"+
			"\n\t- modes <output>: List available modes for an output",
	)
	outputSelection *string = flag.String(
		"output",
		"",
		"Output to perform the action on. Required for some actions",
	)
	jsonOutput *bool = flag.Bool(
		"json",
		false,
		"Print the result as JSON instead of text",
	)
)

func utilMain(conf *config.Config) {
	if *help {
		utilHelpMessage()
		return
	}

	// Bring up a backend just long enough to enumerate its outputs
	b, _, err := buildBackend(conf)
	if err != nil {
		logrus.WithError(err).Fatal("initializing backend")
	}
	layout, err := probeOutputs(b)
	if err != nil {
		logrus.WithError(err).Fatal("probing outputs")
	}

	switch *utilAction {
	case "outputs":
		utilListOutputs(layout)
	case "modes":
		if *outputSelection == "" {
			fmt.Println("Output has to be specified")
			return
		} else {
			utilListOutputModes(layout, *outputSelection)
		}
	}
}

// probeOutputs starts the backend and drains its announcement burst
// into a layout. Hot plugs after the settle window are tool mode's
// acceptable loss
func probeOutputs(b backend.Backend) (*output.Layout, error) {
	if err := b.Start(); err != nil {
		return nil, err
	}
	defer b.Close()

	layout := output.NewLayout()
	settle := time.After(250 * time.Millisecond)
	for {
		select {
		case ev, ok := <-b.Events():
			if !ok {
				return layout, nil
			}
			if added, isAdd := ev.(backend.OutputAdded); isAdd {
				layout.AddAuto(added.Name, added.Mode, added.Modes, added.Scale)
			}
		case <-settle:
			return layout, nil
		}
	}
}

func utilHelpMessage() {
	fmt.Println("---- Help message for Aurora in tool mode ----")
	fmt.Println("\nIn tool mode, aurora offers various tools for figuring out configurations and similar")
	fmt.Println("\nGeneral flags:")
	fmt.Println("\t-config: Path to the config file. Default is the XDG config location")
	fmt.Println("\t-tool: Start as a tool instead of a compositor")
	fmt.Println("\t-help: Show this help message (or the one for compositor mode if -tool is not set)")
	fmt.Println("\nTool flags:")
	fmt.Println("\t-action: The action to perform. Can be one of:")
	fmt.Println("\t\t- (default) outputs: List available outputs")
	fmt.Println("\t\t- modes: List available modes for an output. Use with -output")
	fmt.Println("\t-output: Output to perform the action on. Required for -action modes")
	fmt.Println("\t-json: Print the result as JSON")
}

func utilListOutputs(layout *output.Layout) {
	if *jsonOutput {
		printJSON(ipc.Respond(ipc.OutputRequest{}, layout))
		return
	}
	for i, out := range layout.All() {
		fmt.Printf("Output %v: %s\n", i, out.Name())
	}
}

func utilListOutputModes(layout *output.Layout, outputName string) {
	if *jsonOutput {
		printJSON(ipc.Respond(ipc.OutputRequest{
			IncludeModes:    true,
			SpecifiesOutput: true,
			TargetOutput:    outputName,
		}, layout))
		return
	}
	filtered := sliceutils.Filter(layout.All(), func(out *output.Output) bool {
		return out.Name() == outputName
	})
	if len(filtered) == 0 {
		fmt.Printf("Output %s not found\n", outputName)
		return
	}
	modes := filtered[0].Modes()
	fmt.Printf("Modes for output %s:\n", outputName)
	for _, mode := range modes {
		if mode.Preferred {
			fmt.Printf("\t- %dx%d@%d (preferred)\n", mode.Size.X, mode.Size.Y, mode.RefreshMHz)
		} else {
			fmt.Printf("\t- %dx%d@%d\n", mode.Size.X, mode.Size.Y, mode.RefreshMHz)
		}
	}
}

func printJSON(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.WithError(err).Errorln("Encoding tool output")
		return
	}
	fmt.Println(string(raw))
}
