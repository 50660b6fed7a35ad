// Package cli implements the interactive shell used to drive the
// recommendation engine from a terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"chatter/application/commands"
	"chatter/application/commands/bus"
	"chatter/application/queries"
	querybus "chatter/application/queries/bus"
	pkgerrors "chatter/pkg/errors"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const prompt = ">> "

var (
	// ErrUnterminatedQuote is returned by ParseLine for an unbalanced quote
	ErrUnterminatedQuote = errors.New("unterminated quote")
	// ErrUnquotedOperator is returned by ParseLine for a shell operator
	// outside quotes
	ErrUnquotedOperator = errors.New("unquoted shell operator, quote the title")
)

// Shell reads commands line by line and dispatches them to the buses on
// behalf of the logged in user.
type Shell struct {
	commands *bus.CommandBus
	queries  *querybus.QueryBus
	out      io.Writer
	logger   *zap.Logger

	user string
	quit bool
}

// NewShell creates a shell writing to out
func NewShell(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, out io.Writer, logger *zap.Logger) *Shell {
	return &Shell{
		commands: commandBus,
		queries:  queryBus,
		out:      out,
		logger:   logger,
	}
}

// User returns the logged in user, empty before login
func (s *Shell) User() string {
	return s.user
}

// Run prints the greeting and executes lines from in until quit, end of
// input or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	s.greet()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Execute(ctx, scanner.Text()) {
			return nil
		}
	}
}

// Execute runs one line and reports whether the shell should exit.
// Failures are printed, never returned.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	args, err := ParseLine(line)
	if err != nil {
		s.printf("Could not parse command: %v.\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	root := s.rootCommand()
	if cmd, _, err := root.Find(args); err != nil || cmd == root {
		s.printf("Invalid command %q. Type help for the list of commands.\n", args[0])
		return false
	}

	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		s.printError(err)
	}
	return s.quit
}

func (s *Shell) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:                "chatter",
		SilenceErrors:      true,
		SilenceUsage:       true,
		DisableFlagParsing: true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	root.SetOut(s.out)
	root.SetErr(s.out)

	root.AddCommand(
		s.command("login {user}", "Log in, creating the profile on first use", 1, false, s.login),
		s.command("add {category} {id}", "Add a preference to your profile", 2, true, s.add),
		s.command("remove {category} {id}", "Remove a preference from your profile", 2, true, s.remove),
		s.command("recommend {category}", "Recommend a preference in a category", 1, true, s.recommend),
		s.command("profile", "List your preferences", 0, true, s.profile),
	)

	quit := s.command("quit", "Leave the shell", 0, false, func(context.Context, []string) error {
		s.quit = true
		return nil
	})
	quit.Aliases = []string{"exit"}
	root.AddCommand(quit)

	root.SetHelpCommand(&cobra.Command{
		Use:   "help",
		Short: "Show this list",
		Run: func(cmd *cobra.Command, args []string) {
			s.usage(root)
		},
	})
	root.InitDefaultHelpCmd()

	return root
}

// command builds a subcommand taking exactly nargs arguments
func (s *Shell) command(use, short string, nargs int, needsLogin bool, run func(ctx context.Context, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Short:              short,
		DisableFlagParsing: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != nargs {
				return pkgerrors.NewValidationError("usage: " + cmd.Use)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if needsLogin && s.user == "" {
				s.printf("Please log in first.\n")
				return nil
			}
			return run(cmd.Context(), args)
		},
	}
}

func (s *Shell) login(ctx context.Context, args []string) error {
	if err := s.commands.Send(ctx, commands.LoginCommand{UserID: args[0]}); err != nil {
		return err
	}
	s.user = args[0]
	s.printf("Logged in as %s.\n", s.user)
	return nil
}

func (s *Shell) add(ctx context.Context, args []string) error {
	cmd := commands.AddPreferenceCommand{UserID: s.user, Category: args[0], PreferenceID: args[1]}
	if err := s.commands.Send(ctx, cmd); err != nil {
		return err
	}
	s.printf("Added preference %s: %s.\n", strings.ToUpper(args[0]), args[1])
	return nil
}

func (s *Shell) remove(ctx context.Context, args []string) error {
	cmd := commands.RemovePreferenceCommand{UserID: s.user, Category: args[0], PreferenceID: args[1]}
	if err := s.commands.Send(ctx, cmd); err != nil {
		return err
	}
	s.printf("Removed preference %s: %s.\n", strings.ToUpper(args[0]), args[1])
	return nil
}

func (s *Shell) recommend(ctx context.Context, args []string) error {
	result, err := s.queries.Ask(ctx, queries.GetRecommendationQuery{UserID: s.user, Category: args[0]})
	if err != nil {
		return err
	}

	rec, ok := result.(*queries.GetRecommendationResult)
	if !ok || rec == nil {
		s.printf("Nothing to recommend in %s yet.\n", strings.ToUpper(args[0]))
		return nil
	}
	s.printf("Recommended %s: %s (score %.4f).\n", rec.Category, rec.PreferenceID, rec.Score)
	return nil
}

func (s *Shell) profile(ctx context.Context, _ []string) error {
	result, err := s.queries.Ask(ctx, queries.GetProfileQuery{UserID: s.user})
	if err != nil {
		return err
	}

	profile := result.(*queries.GetProfileResult)
	if len(profile.Preferences) == 0 {
		s.printf("%s has no preferences yet.\n", s.user)
		return nil
	}

	categories := make([]string, 0, len(profile.Preferences))
	for category := range profile.Preferences {
		categories = append(categories, category)
	}
	slices.Sort(categories)

	for _, category := range categories {
		s.printf("%s: %s\n", category, strings.Join(profile.Preferences[category], ", "))
	}
	return nil
}

func (s *Shell) greet() {
	s.printf("=======================================\n")
	s.printf("Welcome to the Chatter shell!\n")
	s.printf("=======================================\n")
	s.printf("Group multi-word arguments with double quotes. Type help for the list of commands.\n\n")
}

func (s *Shell) usage(root *cobra.Command) {
	s.printf("Available commands:\n")
	for _, cmd := range root.Commands() {
		s.printf("  %-24s %s\n", cmd.Use, cmd.Short)
	}
}

func (s *Shell) printError(err error) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil && appErr.Type != pkgerrors.ErrorTypeInternal && appErr.Type != pkgerrors.ErrorTypeDatabase {
		s.printf("Error: %s.\n", appErr.Message)
		return
	}
	s.logger.Error("Command failed", zap.Error(err))
	s.printf("Error: something went wrong, please try again.\n")
}

func (s *Shell) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

// ParseLine splits a command line into arguments using shell quoting
// rules. An unquoted ; & | < or > is rejected rather than silently
// ending the line.
func ParseLine(line string) ([]string, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(line)
	if err != nil {
		// shellwords reports an open quote and a trailing escape alike
		return nil, ErrUnterminatedQuote
	}
	if parser.Position >= 0 {
		return nil, ErrUnquotedOperator
	}
	return args, nil
}
