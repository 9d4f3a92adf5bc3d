package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"canvasx/config"
	"canvasx/convert"
	"canvasx/misc"
	"canvasx/state"
)

const exportHelp = `%s
SOURCE:
    page(s) to process, one of:
        "https://host/path" - live page, opened in a browser and exported once it settles
        "[path_to_file]page.html" - saved page
        "[path_to_directory]directory" - all saved pages under directory, recursively (symbolic links are not followed)
        "[path_to_archive]archive.zip[path_in_archive]/page.html" - saved page inside zip archive
        "[path_to_archive]archive.zip[path_in_archive]" - all saved pages under archive path

    Style sheets are read from the same directory or archive as the page.
    Resource directories of saved pages ("*_files") are never treated as
    pages. Archives inside archives are not processed.

DESTINATION:
    directory to put exported html to, current working directory if absent.
    File names are produced from "output_name_template" of configuration.
`

const dumpConfigHelp = `%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Writes "active" configuration: defaults combined with values from configuration
file. Use --default to see configuration embedded into the program.
`

func newApp() *cli.Command {
	return &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "exports canvas regions of web pages as self-contained html",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          setup,
		After:           teardown,
		OnUsageError:    passUsageError,
		ExitErrHandler:  logError,
		CommandNotFound: unknownCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log everything and produce report archive for troubleshooting"},
		},
		Commands: []*cli.Command{exportCommand(), dumpConfigCommand()},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:         "export",
		Usage:        "Exports canvases of saved or live page(s) to html",
		OnUsageError: passUsageError,
		Action:       convert.Run,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "on-error",
				Usage: "what to do with canvas which cannot be exported, `POLICY` is one of: " + strings.Join(config.FailurePolicyNames(), ", ")},
			&cli.StringFlag{Name: "axis-pairs",
				Usage: "how to write synthesized paired declarations, `MODE` is one of: " + strings.Join(config.AxisPairsNames(), ", ")},
			&cli.BoolFlag{Name: "keep-groups", Aliases: []string{"kg"}, Usage: "keep @media, @supports and other group rules around retained rules"},
			&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}, Usage: "put all exports directly into destination, ignoring source directories"},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "replace existing files in destination"},
			&cli.StringFlag{Name: "force-zip-cp",
				Usage: "Force `ENCODING` for ALL non UTF-8 file names in processed archives (see IANA.org for character set names)"},
		},
		ArgsUsage:          "SOURCE [DESTINATION]",
		CustomHelpTemplate: fmt.Sprintf(exportHelp, cli.CommandHelpTemplate),
	}
}

func dumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "dumpconfig",
		Usage: "Dumps either default or actual configuration (YAML)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
		},
		OnUsageError:       passUsageError,
		Action:             dumpConfig,
		ArgsUsage:          "DESTINATION",
		CustomHelpTemplate: fmt.Sprintf(dumpConfigHelp, cli.CommandHelpTemplate),
	}
}

func dumpConfig(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	kind, data := "actual", []byte(nil)
	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", "STDOUT"))
		_, err = os.Stdout.Write(data)
	} else {
		env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", fname))
		err = os.WriteFile(fname, data, 0644)
	}
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
