// Package ipc holds the JSON types tool mode answers queries with.
package ipc

import (
	"github.com/aurorawm/aurora/output"
)

type (
	// A request to list the available outputs
	OutputRequest struct {
		// Whether to include the modes an output supports
		IncludeModes bool `json:"include_modes"`
		// Target one specific output
		SpecifiesOutput bool `json:"specifies_output"`
		// Name of the output you want info on. Only matters if SpecifiesOutput is set
		TargetOutput string `json:"target_output"`
	}

	// A mode an output supports
	OutputMode struct {
		// Mode height in pixel
		Height int `json:"height"`
		// Mode width in pixel
		Width int `json:"width"`
		// Refresh rate of the mode in millihertz
		RefreshRate int  `json:"refresh_rate"`
		Preferred   bool `json:"preferred"`
	}

	// Response to an OutputRequest message
	OutputResponse struct {
		// List of all outputs. Only contains target output if specified
		Outputs []string `json:"outputs"`
		// A list of modes an output supports. Only set if IncludeModes is true
		OutputModes map[string][]OutputMode `json:"output_modes,omitempty"`
		// Nr of outputs found
		OutputsFound int `json:"outputs_found"`
	}
)

// ModesOf converts an output's mode list for the wire
func ModesOf(out *output.Output) []OutputMode {
	modes := make([]OutputMode, 0, len(out.Modes()))
	for _, m := range out.Modes() {
		modes = append(modes, OutputMode{
			Width:       m.Size.X,
			Height:      m.Size.Y,
			RefreshRate: m.RefreshMHz,
			Preferred:   m.Preferred,
		})
	}
	return modes
}

// Respond builds the response for a request against the live layout
func Respond(req OutputRequest, layout *output.Layout) OutputResponse {
	resp := OutputResponse{}
	for _, out := range layout.All() {
		if req.SpecifiesOutput && out.Name() != req.TargetOutput {
			continue
		}
		resp.Outputs = append(resp.Outputs, out.Name())
		if req.IncludeModes {
			if resp.OutputModes == nil {
				resp.OutputModes = make(map[string][]OutputMode)
			}
			resp.OutputModes[out.Name()] = ModesOf(out)
		}
	}
	resp.OutputsFound = len(resp.Outputs)
	return resp
}
