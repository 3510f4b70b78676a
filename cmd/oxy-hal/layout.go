package main

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/vertex"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// attributeDecl is one parsed Semantic[:channel]:Type argument.
type attributeDecl struct {
	Semantic common.Semantic
	Channel  int
	Type     common.AttributeType
}

// parseAttributeDecl parses an attribute declaration such as "Position:Float3" or "TexCoord:1:Half2".
// The channel defaults to 0.
func parseAttributeDecl(arg string) (attributeDecl, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return attributeDecl{}, fmt.Errorf("attribute %q: expected Semantic[:channel]:Type", arg)
	}

	var decl attributeDecl
	var err error
	if decl.Semantic, err = common.ParseSemantic(parts[0]); err != nil {
		return attributeDecl{}, fmt.Errorf("attribute %q: %w", arg, err)
	}
	if len(parts) == 3 {
		if decl.Channel, err = strconv.Atoi(parts[1]); err != nil || decl.Channel < 0 {
			return attributeDecl{}, fmt.Errorf("attribute %q: invalid channel %q", arg, parts[1])
		}
	}
	if decl.Type, err = common.ParseAttributeType(parts[len(parts)-1]); err != nil {
		return attributeDecl{}, fmt.Errorf("attribute %q: %w", arg, err)
	}
	return decl, nil
}

// LayoutCommand prints the interleaved layout a backend gives a list of attributes.
func LayoutCommand(ctx *cli.Context) error {
	setupLogging(ctx)

	args := append(ctx.StringSlice("attr"), ctx.Args()...)
	if len(args) == 0 {
		return cli.NewExitError("layout: no attributes given", 1)
	}
	decls := make([]attributeDecl, 0, len(args))
	for _, arg := range args {
		decl, err := parseAttributeDecl(arg)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		decls = append(decls, decl)
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	device, err := renderer.OpenDevice(cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer device.Release()

	out, err := describeLayout(device, decls)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Print(out)
	return nil
}

// describeLayout declares decls in order on a vertex buffer of device and renders the resulting layout.
//
// Parameters:
//   - device: the backend resolving attribute sizes
//   - decls: the attributes in declaration order
//
// Returns:
//   - string: the rendered layout table followed by the stride
//   - error: the first declaration the vertex buffer rejected
func describeLayout(device backend.Device, decls []attributeDecl) (string, error) {
	vb := vertex.NewVertexBuffer(device, "layout")
	defer vb.Destroy()

	for _, s := range decls {
		if err := vb.AddAttribute(s.Semantic, s.Channel, s.Type); err != nil {
			return "", fmt.Errorf("%s%d:%s: %w", s.Semantic, s.Channel, s.Type, err)
		}
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Semantic", "Channel", "Type", "Offset", "Size", "Components"})
	for _, a := range vb.Attributes() {
		table.Append([]string{
			a.Semantic.String(),
			strconv.Itoa(a.Channel),
			a.Type.String(),
			strconv.Itoa(a.Offset),
			strconv.Itoa(a.Size),
			strconv.Itoa(a.Components),
		})
	}
	table.Render()
	fmt.Fprintf(&buf, "stride %d bytes on %s\n", vb.VertexSize(), device.Name())
	return buf.String(), nil
}
