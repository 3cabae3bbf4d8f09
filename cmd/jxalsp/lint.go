package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/corymhall/jxalsp/config"
	"github.com/corymhall/jxalsp/issue"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/parser"
	"github.com/corymhall/jxalsp/process"
	"github.com/corymhall/jxalsp/provider"
	"github.com/corymhall/jxalsp/server"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var lintCmd = &cobra.Command{
	Use:   "lint <file>...",
	Short: "Lint files with the same providers the server uses",
	Long: `Lint files with the provider cascade of the language server and print the
issues one per line:

  path:line:column:endLine:endColumn:severity:message [code]

The exit status is 1 when any file has an error.`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runLint,
}

// errIssues is returned when linting found errors.
var errIssues = errors.New("errors found")

func init() {
	lintCmd.Flags().String("root", "", "workspace root (default: the current directory)")
	lintCmd.Flags().String("mode", "", "lint as on change or on save (onChange, onSave)")
	lintCmd.Flags().Bool("hide-info", false, "leave out informational issues")
	lintCmd.Flags().Bool("no-color", false, "disable colored output")
}

type lintResult struct {
	path   string
	issues issue.IssueSet
	err    error
}

func runLint(cmd *cobra.Command, args []string) error {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		color.NoColor = true
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	root, _ := cmd.Flags().GetString("root")
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return err
		}
	}
	settings, err := lintSettings(cmd, cfg, root)
	if err != nil {
		return err
	}
	trigger := server.OnChange
	if settings.Mode == config.ModeOnSave {
		trigger = server.OnSave
	}

	ctx := cmd.Context()
	runner := process.NewRunner(cfg.MaxConcurrentRuns)
	cascade := provider.DefaultCascade(runner, cfg)
	defer func() { _ = cascade.Dispose() }()
	ranger, err := parser.NewRanger()
	if err != nil {
		return err
	}
	defer ranger.Close()

	assistant := server.NewAssistant(cascade, issue.NewCollection(), nil, nil, nil)
	defer assistant.Close()
	assistant.Reconfigure(ctx, provider.Workspace{Root: root, Settings: settings})

	results := make([]lintResult, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.MaxConcurrentRuns))
	for i, arg := range args {
		g.Go(func() error {
			path, err := filepath.Abs(arg)
			if err != nil {
				results[i] = lintResult{path: arg, err: err}
				return nil
			}
			text, err := os.ReadFile(path)
			if err != nil {
				results[i] = lintResult{path: arg, err: err}
				return nil
			}
			set, err := assistant.Lint(gctx, trigger, provider.Document{
				URI:  lsp.URIFromPath(path),
				Path: path,
				Text: string(text),
			})
			results[i] = lintResult{path: arg, issues: widen(ranger, text, set), err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := false
	for _, r := range results {
		if r.err != nil {
			failed = true
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.path, r.err)
			continue
		}
		if r.issues.Count(issue.Error) > 0 {
			failed = true
		}
		printIssues(cmd.OutOrStdout(), r.path, r.issues)
	}
	if failed {
		return errIssues
	}
	return nil
}

// lintSettings merges the defaults, the workspace settings file and the
// command line flags.
func lintSettings(cmd *cobra.Command, cfg config.Server, root string) (config.Settings, error) {
	workspace, _, err := config.LoadWorkspace(root)
	if err != nil {
		return config.Settings{}, err
	}
	var flags config.Layer
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		m := config.Mode(mode)
		flags.Mode = &m
	}
	if cmd.Flags().Changed("hide-info") {
		hide, _ := cmd.Flags().GetBool("hide-info")
		flags.HideInfo = &hide
	}
	settings := config.Merge(config.Defaults(), cfg.Defaults, workspace, flags)
	if settings.Mode == config.ModeOff {
		return config.Settings{}, fmt.Errorf("mode %q does not lint", settings.Mode)
	}
	return settings, settings.Validate()
}

// widen gives point issues the extent of the token they start at.
func widen(r *parser.Ranger, src []byte, set issue.IssueSet) issue.IssueSet {
	out := make(issue.IssueSet, 0, len(set))
	for _, is := range set {
		if !is.IsDocumentLevel() && is.IsPoint() {
			if line, col, ok := r.Widen(src, is.Line, is.Column); ok {
				is.EndLine, is.EndColumn = line, col
			}
		}
		out = append(out, is)
	}
	return out
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

func printIssues(w io.Writer, path string, set issue.IssueSet) {
	for _, is := range set {
		line := issue.FormatCompact(path, is)
		switch is.Severity {
		case issue.Error:
			line = errorColor.Sprint(line)
		case issue.Warning:
			line = warningColor.Sprint(line)
		default:
			line = infoColor.Sprint(line)
		}
		fmt.Fprintln(w, line)
	}
}
