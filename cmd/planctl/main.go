// planctl is a command-line client for the field planner. It syncs through
// the same stores as the browser, with a durable local cache.
//
// Usage:
//
//	planctl status                 Show item, template and sync state
//	planctl export [file]          Write the layout file (stdout when omitted or "-")
//	planctl import <file>          Replace the layout with a layout file
//	planctl legend                 Print the stations and notes legend
//	planctl items                  List placed items
//	planctl place <kind> <tmpl> [x y]  Place a station or equipment template
//	planctl move <id> <x> <y>      Move an item, kept on the canvas
//	planctl rotate <id> [degrees]  Rotate an item (45 when omitted)
//	planctl rm <id>                Remove an item
//	planctl templates [action]     List or edit station templates
//	planctl equipment [action]     List or edit equipment templates
//	planctl clear                  Remove every item from the layout
//	planctl logo rotate            Rotate the center logo by 90 degrees
//	planctl logo clear             Remove the center logo
//	planctl names [add|rm] <name>  List or edit custom equipment names
//	planctl login                  Check PLANNER_PASSWORD and print a token
//	planctl forget                 Drop the cached collections of the scope
//
// Template actions are save <name> <widthFt> <heightFt> <color> [equipment...],
// rename <id> <name> and rm <id>. Coordinates are canvas pixels.
//
// Configuration comes from PLANNER_URL, PLANNER_PASSWORD, PLANNER_DB,
// PLANNER_CACHE, PLANNER_SCOPE and LOG_LEVEL.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[1:]
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(os.Stderr)
		if len(args) == 0 {
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, args, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "planctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd, rest := args[0], args[1:]

	app, err := openApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cmd {
	case "status":
		return cmdStatus(ctx, app, stdout)
	case "export":
		return cmdExport(ctx, app, rest, stdout)
	case "import":
		return cmdImport(ctx, app, rest, stdout)
	case "legend":
		return cmdLegend(ctx, app, stdout)
	case "items":
		return cmdItems(ctx, app, stdout)
	case "place":
		return cmdPlace(ctx, app, rest, stdout)
	case "move":
		return cmdMove(ctx, app, rest, stdout)
	case "rotate":
		return cmdRotate(ctx, app, rest, stdout)
	case "rm":
		return cmdRemove(ctx, app, rest, stdout)
	case "templates":
		return cmdTemplates(ctx, app, false, rest, stdout)
	case "equipment":
		return cmdTemplates(ctx, app, true, rest, stdout)
	case "clear":
		return cmdClear(ctx, app, stdout)
	case "logo":
		return cmdLogo(ctx, app, rest, stdout)
	case "names":
		return cmdNames(app, rest, stdout)
	case "login":
		return cmdLogin(app, stdout)
	case "forget":
		return cmdForget(app, stdout)
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: planctl <command> [args]

Commands:
  status                 Show item, template and sync state
  export [file]          Write the layout file (stdout when omitted or "-")
  import <file>          Replace the layout with a layout file
  legend                 Print the stations and notes legend
  items                  List placed items
  place station|equipment <template> [x y]
                         Place a template (canvas center when x y omitted)
  move <id> <x> <y>      Move an item, kept on the canvas
  rotate <id> [degrees]  Rotate an item (45 when omitted)
  rm <id>                Remove an item
  templates [action]     List or edit station templates
  equipment [action]     List or edit equipment templates
  clear                  Remove every item from the layout
  logo rotate|clear      Rotate or remove the center logo
  names [add|rm] <name>  List or edit custom equipment names
  login                  Check PLANNER_PASSWORD and print a token
  forget                 Drop the cached collections of the scope

Template actions:
  save <name> <widthFt> <heightFt> <color> [equipment...]
  rename <id> <name>
  rm <id>`)
}
