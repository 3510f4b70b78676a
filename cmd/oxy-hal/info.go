package main

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// InfoCommand opens the configured backend device and describes it.
func InfoCommand(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	device, err := renderer.OpenDevice(cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer device.Release()

	fmt.Print(describeDevice(device))
	return nil
}

// describeDevice renders the name, shader languages and attribute formats of device.
func describeDevice(device backend.Device) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Device    %s\n", device.Name())
	fmt.Fprintf(&buf, "Languages %v\n\n", device.ShaderLanguages())

	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Type", "Size", "Components", "Code"})
	for _, t := range common.AttributeTypes() {
		f := device.ResolveAttribute(t)
		if f.Size == 0 {
			table.Append([]string{t.String(), "unsupported", "-", "-"})
			continue
		}
		table.Append([]string{
			t.String(),
			strconv.Itoa(f.Size),
			strconv.Itoa(f.Components),
			fmt.Sprintf("0x%04x", f.TypeCode),
		})
	}
	table.Render()
	return buf.String()
}
