// Package cli wires the prompt-mover commands together with cobra.
//
// Every command loads the config, builds a store (the local preset directory
// or a remote host API), and hands it to the relocation service. Errors
// reaching the user go through the CLI error handler so they read the same
// as everywhere else.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dpshade/prompt-mover/internal/api"
	"github.com/dpshade/prompt-mover/internal/clipboard"
	"github.com/dpshade/prompt-mover/internal/config"
	"github.com/dpshade/prompt-mover/internal/errors"
	"github.com/dpshade/prompt-mover/internal/logging"
	"github.com/dpshade/prompt-mover/internal/models"
	"github.com/dpshade/prompt-mover/internal/notify"
	"github.com/dpshade/prompt-mover/internal/relocate"
	"github.com/dpshade/prompt-mover/internal/renderer"
	"github.com/dpshade/prompt-mover/internal/service"
	"github.com/dpshade/prompt-mover/internal/storage"
	"github.com/dpshade/prompt-mover/internal/ui"
	"github.com/dpshade/prompt-mover/internal/validation"
)

// Version is reported by --version; main sets it
var Version string

const logFileName = "prompt-mover.log"

// CLI provides headless command-line interface functionality
type CLI struct {
	out    io.Writer
	errOut io.Writer

	// global flags
	configPath string
	dir        string
	apiURL     string
	apiID      string
	verbose    bool

	cfg        *config.Config
	logger     *zap.Logger
	store      service.Store
	local      *storage.Storage
	service    *service.Service
	recorder   *notify.Recorder
	validator  *validation.Validator
	errHandler *errors.CLIErrorHandler
	clip       clipboard.Writer

	// runProgram starts the selection UI; replaced in tests
	runProgram func(tea.Model) error
}

// NewCLI creates a CLI that writes results to out and diagnostics to errOut
func NewCLI(out, errOut io.Writer) *CLI {
	return &CLI{
		out:       out,
		errOut:    errOut,
		recorder:  notify.NewRecorder(),
		validator: validation.NewValidator(),
		clip:      clipboard.System{},
		runProgram: func(m tea.Model) error {
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

// Execute runs the command line and returns the error shown to the user
func (c *CLI) Execute(ctx context.Context, args []string) error {
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(c.out)
	root.SetErr(c.errOut)
	err := root.ExecuteContext(ctx)
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	return err
}

// RootCommand builds the command tree
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "prompt-mover",
		Short: "Copy, move and reorder prompts between presets",
		Long: `prompt-mover relocates prompt items between presets.

A prompt is copied or moved from a source preset into a slot of a target
preset's order. Identifiers that are already taken in the target are renamed
(p1 becomes p1_1), and the ordered view of any scope can be shown.

Run without a command to pick a prompt interactively.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPick(cmd, relocate.ModeCopy, "")
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default ~/.prompt-mover/config.yaml)")
	flags.StringVar(&c.dir, "dir", "", "preset directory")
	flags.StringVar(&c.apiURL, "api-url", "", "host API base URL; presets are read and saved remotely")
	flags.StringVar(&c.apiID, "api-id", "", "API id sent to the host save endpoint")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log to stderr at debug level")

	root.AddCommand(
		c.initCommand(),
		c.listCommand(),
		c.showCommand(),
		c.getCommand(),
		c.relocateCommand(relocate.ModeCopy),
		c.relocateCommand(relocate.ModeMove),
		c.reorderCommand(),
		c.removeCommand(),
		c.serveCommand(),
		c.pickCommand(),
	)
	return root
}

// setup loads the config and builds the logger, store and service
func (c *CLI) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.dir != "" {
		cfg.PresetsDir = c.dir
	}
	if c.apiURL != "" {
		cfg.APIURL = c.apiURL
	}
	if c.apiID != "" {
		cfg.APIID = c.apiID
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	if c.logger, err = c.buildLogger(cmd); err != nil {
		return err
	}
	c.errHandler = errors.NewCLIErrorHandler(c.verbose, c.logger)

	if cfg.Remote() {
		c.store = api.NewClient(cfg.APIURL, cfg.APIID, cfg.Timeout, c.logger)
	} else {
		if c.local, err = storage.NewStorage(cfg.PresetsDir, c.logger); err != nil {
			return err
		}
		c.store = c.local
	}

	c.service = service.NewService(c.store,
		service.WithLogger(c.logger),
		service.WithNotifier(notify.Multi(notify.NewLogger(c.logger), c.recorder)),
		service.WithDefaultScope(cfg.Scope),
	)
	return nil
}

// buildLogger logs to stderr for the server and with --verbose. Everything
// else logs to a file next to the config so command output stays clean.
func (c *CLI) buildLogger(cmd *cobra.Command) (*zap.Logger, error) {
	if c.verbose {
		return logging.New("debug", true)
	}
	if cmd.Name() == "serve" {
		return logging.New(c.cfg.LogLevel, false)
	}

	dir := filepath.Dir(c.cfg.Path())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return logging.NewFile(c.cfg.LogLevel, filepath.Join(dir, logFileName))
}

// fail formats err for the terminal
func (c *CLI) fail(err error) error {
	if c.errHandler == nil {
		return err
	}
	return c.errHandler.HandleError(err)
}

// failOperation prints the failure notification before the error itself
func (c *CLI) failOperation(err error) error {
	if n, ok := c.recorder.Last(); ok && n.Severity != notify.Success {
		fmt.Fprintln(c.errOut, n.Message)
	}
	return c.fail(err)
}

func (c *CLI) timeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

func (c *CLI) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the local preset library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.local == nil {
				return c.fail(errors.InvalidCommandError("init", "presets are stored on a remote host"))
			}
			if err := c.local.InitLibrary(); err != nil {
				return c.fail(errors.StorageError("init", err))
			}
			fmt.Fprintf(c.out, "Initialized preset library in %s\n", c.local.GetBaseDir())
			return nil
		},
	}
}

func (c *CLI) listCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List presets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.timeout(cmd.Context())
			defer cancel()

			presets, err := c.service.ListPresets(ctx)
			if err != nil {
				return c.fail(err)
			}

			switch format {
			case "json":
				return c.writeJSON(presets)
			case "text", "":
				if len(presets) == 0 {
					fmt.Fprintln(c.out, "No presets found")
					return nil
				}
				for _, p := range presets {
					fmt.Fprintf(c.out, "%-32s %4d prompts  %d scopes\n", p.Name, p.Items, p.Scopes)
				}
				return nil
			default:
				return c.fail(errors.NewAppError(errors.ErrCodeInvalidFormat, fmt.Sprintf("unknown format '%s'", format)))
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json")
	return cmd
}

func (c *CLI) showCommand() *cobra.Command {
	var format, scope, filter string
	cmd := &cobra.Command{
		Use:   "show <preset>",
		Short: "Show the ordered prompts of a preset scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.timeout(cmd.Context())
			defer cancel()

			if scope == "" {
				scope = c.service.DefaultScope()
			}
			view, err := c.service.ResolveOrder(ctx, args[0], scope)
			if err != nil {
				return c.fail(err)
			}
			if len(view) == 0 {
				c.hintScopes(ctx, args[0], scope)
			}
			if filter != "" {
				view = filterView(view, filter)
			}

			switch format {
			case "json":
				out, err := renderer.RenderOrderJSON(view)
				if err != nil {
					return c.fail(err)
				}
				fmt.Fprintln(c.out, out)
			case "markdown", "md":
				markdown := renderer.RenderOrderMarkdown(fmt.Sprintf("%s (%s)", args[0], scope), view)
				if r, err := renderer.NewTermRenderer(100); err == nil {
					if rendered, err := r.Render(markdown); err == nil {
						markdown = rendered
					}
				}
				fmt.Fprint(c.out, markdown)
			case "text", "":
				fmt.Fprint(c.out, renderer.RenderOrderText(view))
			default:
				return c.fail(errors.NewAppError(errors.ErrCodeInvalidFormat, fmt.Sprintf("unknown format '%s'", format)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, markdown")
	cmd.Flags().StringVar(&scope, "scope", "", "order scope (default from config)")
	cmd.Flags().StringVar(&filter, "filter", "", "fuzzy filter on prompt name and identifier")
	return cmd
}

// hintScopes tells the user which scopes exist when the asked one does not
func (c *CLI) hintScopes(ctx context.Context, name, scope string) {
	preset, err := c.service.GetPreset(ctx, name)
	if err != nil || preset.Scope(scope) != nil {
		return
	}
	fmt.Fprintf(c.errOut, "scope '%s' not found in %s; scopes: %s\n",
		scope, name, strings.Join(preset.ScopeNames(), ", "))
}

// filterView keeps the rows whose prompt matches query, in slot order
func filterView(view []relocate.ResolvedRef, query string) []relocate.ResolvedRef {
	items := make([]*models.Prompt, len(view))
	for i, ref := range view {
		items[i] = ref.Item
	}
	keep := make(map[*models.Prompt]bool)
	for _, item := range service.FilterItems(items, query) {
		keep[item] = true
	}

	filtered := make([]relocate.ResolvedRef, 0, len(keep))
	for _, ref := range view {
		if keep[ref.Item] {
			filtered = append(filtered, ref)
		}
	}
	return filtered
}

func (c *CLI) getCommand() *cobra.Command {
	var format string
	var toClipboard bool
	cmd := &cobra.Command{
		Use:   "get <preset> <identifier>",
		Short: "Print one prompt record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.timeout(cmd.Context())
			defer cancel()

			preset, err := c.service.GetPreset(ctx, args[0])
			if err != nil {
				return c.fail(err)
			}
			item := preset.Item(args[1])
			if item == nil {
				return c.fail(errors.NotFoundError(fmt.Sprintf("prompt '%s' in preset '%s'", args[1], args[0])))
			}

			r := renderer.NewRenderer(item)
			var text string
			switch format {
			case "record", "":
				text, err = r.RenderRecord()
			case "json":
				text, err = r.RenderJSON()
			case "text":
				text = r.RenderText()
			case "markdown", "md":
				text = r.RenderMarkdown()
			default:
				err = errors.NewAppError(errors.ErrCodeInvalidFormat, fmt.Sprintf("unknown format '%s'", format))
			}
			if err != nil {
				return c.fail(err)
			}

			if toClipboard {
				msg, err := clipboard.CopyWithFallback(c.clip, text)
				if err != nil {
					return c.fail(errors.Wrap(err, errors.ErrCodeCommandFailed, err.Error()).
						WithDetails(clipboard.GetInstallInstructions()))
				}
				fmt.Fprintln(c.out, msg)
				return nil
			}
			fmt.Fprintln(c.out, text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "record", "output format: record, json, text, markdown")
	cmd.Flags().BoolVarP(&toClipboard, "copy", "c", false, "copy to the clipboard instead of printing")
	return cmd
}

// positionFlags are the mutually exclusive ways to address a slot
type positionFlags struct {
	slot   int
	before string
	after  string
}

func (p *positionFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.slot, "slot", 0, "insert at this slot of the target scope")
	cmd.Flags().StringVar(&p.before, "before", "", "insert before this identifier")
	cmd.Flags().StringVar(&p.after, "after", "", "insert after this identifier")
}

// fill adds the given flags to a validation payload
func (p *positionFlags) fill(cmd *cobra.Command, data map[string]interface{}) {
	if cmd.Flags().Changed("slot") {
		data["slot"] = p.slot
	}
	if p.before != "" {
		data["before"] = p.before
	}
	if p.after != "" {
		data["after"] = p.after
	}
}

// positionFrom reads the addressed slot from validated data; none given
// means the end of the scope
func positionFrom(data map[string]interface{}) relocate.Position {
	if id, ok := data["before"].(string); ok {
		return relocate.BeforeItem(id)
	}
	if id, ok := data["after"].(string); ok {
		return relocate.AfterItem(id)
	}
	if slot, ok := data["slot"].(int); ok {
		return relocate.AtSlot(slot)
	}
	return relocate.AtEnd()
}

// validate checks data against schema and returns its converted fields
func (c *CLI) validate(schema string, data map[string]interface{}) (map[string]interface{}, error) {
	result := c.validator.Validate(schema, data)
	if !result.Valid {
		return nil, c.fail(result.ToAppError())
	}
	return result.GetValidatedData(), nil
}

func (c *CLI) relocateCommand(mode relocate.Mode) *cobra.Command {
	var pos positionFlags
	var scope string
	verb := "Copy"
	if mode == relocate.ModeMove {
		verb = "Move"
	}

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <source> <identifier> <target>", mode),
		Short: fmt.Sprintf("%s a prompt into another preset", verb),
		Long: fmt.Sprintf(`%s the prompt <identifier> from <source> into <target>.

Without --slot, --before or --after the prompt is appended to the end of the
target scope. A taken identifier is renamed with the next free _N suffix.`, verb),
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := map[string]interface{}{
				"source":     args[0],
				"identifier": args[1],
				"target":     args[2],
				"mode":       string(mode),
			}
			if scope != "" {
				data["scope"] = scope
			}
			pos.fill(cmd, data)
			valid, err := c.validate("relocate", data)
			if err != nil {
				return err
			}

			ctx, cancel := c.timeout(cmd.Context())
			defer cancel()

			outcome, err := c.service.Relocate(ctx, service.Operation{
				SourceName: args[0],
				TargetName: args[2],
				Identifier: args[1],
				Position:   positionFrom(valid),
				Mode:       mode,
				Scope:      scope,
			})
			if err != nil {
				return c.failOperation(err)
			}
			fmt.Fprintln(c.out, outcome.Message())
			return nil
		},
	}
	pos.register(cmd)
	cmd.Flags().StringVar(&scope, "scope", "", "order scope (default from config)")
	return cmd
}

func (c *CLI) reorderCommand() *cobra.Command {
	var pos positionFlags
	var scope string
	cmd := &cobra.Command{
		Use:   "reorder <preset> <identifier>",
		Short: "Move a prompt to another slot within its preset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := map[string]interface{}{
				"preset":     args[0],
				"identifier": args[1],
			}
			if scope != "" {
				data["scope"] = scope
			}
			pos.fill(cmd, data)
			valid, err := c.validate("reorder", data)
			if err != nil {
				return err
			}

			ctx, cancel := c.timeout(cmd.Context())
			defer cancel()

			preset, err := c.service.Reorder(ctx, args[0], args[1], positionFrom(valid), scope)
			if err != nil {
				return c.failOperation(err)
			}
			if n, ok := c.recorder.Last(); ok {
				fmt.Fprintln(c.out, n.Message)
			}
			if scope == "" {
				scope = c.service.DefaultScope()
			}
			fmt.Fprint(c.out, renderer.RenderOrderText(relocate.ResolveOrder(preset, scope)))
			return nil
		},
	}
	pos.register(cmd)
	cmd.Flags().StringVar(&scope, "scope", "", "order scope (default from config)")
	return cmd
}

func (c *CLI) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <preset> <identifier>",
		Aliases: []string{"rm"},
		Short:   "Remove a prompt and every reference to it from a preset",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.validate("remove", map[string]interface{}{
				"preset":     args[0],
				"identifier": args[1],
			}); err != nil {
				return err
			}

			ctx, cancel := c.timeout(cmd.Context())
			defer cancel()

			if _, err := c.service.Remove(ctx, args[0], args[1]); err != nil {
				return c.failOperation(err)
			}
			if n, ok := c.recorder.Last(); ok {
				fmt.Fprintln(c.out, n.Message)
			}
			return nil
		},
	}
}

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local preset directory over the host API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.local == nil {
				return c.fail(errors.InvalidCommandError("serve", "presets_dir must be local, not a remote api_url"))
			}
			if addr == "" {
				addr = c.cfg.Addr
			}
			if err := c.local.InitLibrary(); err != nil {
				return c.fail(errors.StorageError("init", err))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := api.NewServer(c.local, c.service, c.logger)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(addr)
			}()
			fmt.Fprintf(c.out, "Serving %s on %s\n", c.local.GetBaseDir(), addr)

			select {
			case err := <-errCh:
				return c.fail(errors.Wrap(err, errors.ErrCodeServiceUnavailable, "server stopped"))
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			c.logger.Info("shutting down API server")
			return srv.Stop(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func (c *CLI) pickCommand() *cobra.Command {
	var mode, scope string
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Choose a prompt, a target and a slot interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := relocate.ParseMode(mode)
			if err != nil {
				return c.fail(err)
			}
			return c.runPick(cmd, m, scope)
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(relocate.ModeCopy), "copy or move")
	cmd.Flags().StringVar(&scope, "scope", "", "order scope (default from config)")
	return cmd
}

func (c *CLI) runPick(cmd *cobra.Command, mode relocate.Mode, scope string) error {
	model := ui.NewModel(c.service, ui.Options{
		Mode:      mode,
		Scope:     scope,
		Recorder:  c.recorder,
		Logger:    c.logger,
		Clipboard: c.clip,
	})
	if err := c.runProgram(model); err != nil {
		return c.fail(errors.Wrap(err, errors.ErrCodeCommandFailed, "selection UI failed"))
	}
	return nil
}

func (c *CLI) writeJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return c.fail(fmt.Errorf("failed to encode output: %w", err))
	}
	return nil
}
