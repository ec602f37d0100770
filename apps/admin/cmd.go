package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/trezcool/academia/apps/shared"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/promotion"
	"github.com/trezcool/academia/core/school"
	reportsvc "github.com/trezcool/academia/services/report"
)

var (
	// mockable
	migrateFunc = func(app *shared.App, command string, args ...string) error {
		return app.Migrate(command, args...)
	}
	isTerminalFunc = term.IsTerminal

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

type commandLine struct {
	app *shared.App
	in  io.Reader // answers to confirmation prompts
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose migration command (up, down, status, redo, ...)")
	fmt.Fprintln(cli.out, "  school -name NAME - create a school")
	fmt.Fprintln(cli.out, "  activate -school ID -session ID - make a session the school's current one")
	fmt.Fprintln(cli.out, "  deactivate -school ID - leave the school without a current session")
	fmt.Fprintln(cli.out, "  suggest -school ID -session ID -label LABEL [-n N] - list the classes looking like LABEL")
	fmt.Fprintln(cli.out, "  promote -school ID -from ID -to ID [-actor ID] [-xlsx FILE] [-yes] - execute the pending promotions")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	schoolCmd := flag.NewFlagSet("school", flag.ContinueOnError)
	schoolName := schoolCmd.String("name", "", "The school's name.")

	activateCmd := flag.NewFlagSet("activate", flag.ContinueOnError)
	activateSchool := activateCmd.String("school", "", "The school's ID.")
	activateSession := activateCmd.String("session", "", "The ID of the session to activate.")

	deactivateCmd := flag.NewFlagSet("deactivate", flag.ContinueOnError)
	deactivateSchool := deactivateCmd.String("school", "", "The school's ID.")

	suggestCmd := flag.NewFlagSet("suggest", flag.ContinueOnError)
	suggestSchool := suggestCmd.String("school", "", "The school's ID.")
	suggestSession := suggestCmd.String("session", "", "The session's ID.")
	suggestLabel := suggestCmd.String("label", "", "A class label, in any spelling.")
	suggestN := suggestCmd.Int("n", 3, "The maximum number of suggestions.")

	promoteCmd := flag.NewFlagSet("promote", flag.ContinueOnError)
	promoteSchool := promoteCmd.String("school", "", "The school's ID.")
	promoteFrom := promoteCmd.String("from", "", "The ID of the session the decisions were taken for.")
	promoteTo := promoteCmd.String("to", "", "The ID of the session to enroll the students into.")
	promoteActor := promoteCmd.String("actor", "admin", "The ID of the admin running the promotion.")
	promoteXLSX := promoteCmd.String("xlsx", "", "Write the run report to this spreadsheet file.")
	promoteYes := promoteCmd.Bool("yes", false, "Do not ask for confirmation.")

	for _, fs := range []*flag.FlagSet{schoolCmd, activateCmd, deactivateCmd, suggestCmd, promoteCmd} {
		fs.SetOutput(cli.out)
	}

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return migrateFunc(cli.app, args[2], args[3:]...)

	case "school":
		if err := schoolCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *schoolName == "" {
			schoolCmd.Usage()
			return errHelp
		}
		sch, err := cli.app.SchoolSvc.Create(ctx, school.NewSchool{Name: *schoolName})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "school %q created: %s\n", sch.Name, sch.ID)
		return nil

	case "activate":
		if err := activateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *activateSchool == "" || *activateSession == "" {
			activateCmd.Usage()
			return errHelp
		}
		if err := cli.app.SessionSvc.Activate(ctx, *activateSchool, *activateSession); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "session %s is now current\n", *activateSession)
		return nil

	case "deactivate":
		if err := deactivateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deactivateSchool == "" {
			deactivateCmd.Usage()
			return errHelp
		}
		if err := cli.app.SessionSvc.DeactivateCurrent(ctx, *deactivateSchool); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "the school has no current session")
		return nil

	case "suggest":
		if err := suggestCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *suggestSchool == "" || *suggestSession == "" || *suggestLabel == "" {
			suggestCmd.Usage()
			return errHelp
		}
		names, err := cli.app.ClassSvc.Suggest(ctx, *suggestSchool, *suggestSession, *suggestLabel, *suggestN)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cli.out, name)
		}
		return nil

	case "promote":
		if err := promoteCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *promoteSchool == "" || *promoteFrom == "" || *promoteTo == "" {
			promoteCmd.Usage()
			return errHelp
		}
		if !*promoteYes && isTerminalFunc(int(os.Stdin.Fd())) {
			ok, err := cli.confirm(fmt.Sprintf("Execute the promotions of session %s into session %s?", *promoteFrom, *promoteTo))
			if err != nil {
				return err
			}
			if !ok {
				return errAborted
			}
		}
		actor := core.Actor{ID: *promoteActor, Roles: []string{"admin"}}
		return cli.promote(ctx, actor, *promoteSchool, *promoteFrom, *promoteTo, *promoteXLSX)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) confirm(question string) (bool, error) {
	fmt.Fprint(cli.out, question+" [y/N] ")
	answer, err := bufio.NewReader(cli.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func (cli *commandLine) promote(ctx context.Context, actor core.Actor, schoolID, fromSessionID, toSessionID, xlsxPath string) error {
	rep, err := cli.app.Executor.Execute(ctx, actor, schoolID, fromSessionID, toSessionID)
	if err == nil || rep.Processed() > 0 {
		cli.printReport(rep)
	}
	if err != nil {
		return err
	}

	if xlsxPath == "" {
		return nil
	}
	f, err := os.Create(xlsxPath)
	if err != nil {
		return err
	}
	if err = reportsvc.WriteXLSX(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "report written to %s\n", xlsxPath)
	return nil
}

func (cli *commandLine) printReport(rep promotion.Report) {
	fmt.Fprintf(cli.out, "promoted: %d\n", rep.Promoted)
	fmt.Fprintf(cli.out, "graduated: %d\n", rep.Graduated)
	fmt.Fprintf(cli.out, "detained: %d\n", rep.Detained)
	fmt.Fprintf(cli.out, "skipped: %d\n", rep.Skipped)
	if len(rep.MissingDecisions) > 0 {
		fmt.Fprintf(cli.out, "missing decisions: %s\n", strings.Join(rep.MissingDecisions, ", "))
	}
	for _, f := range rep.Failures {
		fmt.Fprintf(cli.out, "failed: %s (%s): %s\n", f.StudentPAN, f.Kind, f.Reason)
	}
}
