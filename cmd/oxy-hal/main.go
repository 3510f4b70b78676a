// Command oxy-hal is the developer tool for the hardware abstraction layer. It expands shader variant manifests,
// prints vertex layouts as a backend resolves them and lists what a backend device supports.
package main

import (
	"os"

	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "oxy-hal"
	app.Usage = "inspect shader variants, vertex layouts and backend devices"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "variants",
			Usage: "synthesize and validate every flag combination of a variant manifest",
			Description: `
Load a YAML variant manifest, synthesize the vertex and fragment source of every
flag combination and validate it. WGSL variants are checked with the naga front
end; GLSL variants are compiled and linked on the null backend.

The result is printed as a table with one row per combination.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "manifest, m",
					Usage: "the variant manifest file",
				},
				cli.IntFlag{
					Name:  "workers, w",
					Value: 4,
					Usage: "number of synthesis workers",
				},
			},
			Action: VariantsCommand,
		},
		{
			Name:  "layout",
			Usage: "print the interleaved layout of a list of vertex attributes",
			Description: `
Declare the given attributes in order on a vertex buffer and print the offset
and size each one resolves to, plus the resulting stride.

Attributes are written as Semantic[:channel]:Type, for example Position:Float3
or TexCoord:1:Half2.`,
			ArgsUsage: "Position:Float3 Normal:Float3 TexCoord:0:Float2 ...",
			Flags: []cli.Flag{
				cli.StringSliceFlag{
					Name:  "attr, a",
					Value: &cli.StringSlice{},
					Usage: "an attribute declaration, may be repeated",
				},
				cli.StringFlag{
					Name:  "config, c",
					Usage: "an engine configuration file selecting the backend",
				},
			},
			Action: LayoutCommand,
		},
		{
			Name:  "info",
			Usage: "describe the configured backend device",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "config, c",
					Usage: "an engine configuration file selecting the backend",
				},
			},
			Action: InfoCommand,
		},
	}

	app.Run(os.Args)
}
