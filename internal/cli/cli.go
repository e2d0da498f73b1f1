// Package cli wires the command tree. Commands stay thin: resolve a
// query context, call normalizers, run the shared filter pipeline,
// write the envelope
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trcli/internal/adapters/trainerroad"
	"trcli/internal/core/filter"
	"trcli/internal/core/timeutil"
	"trcli/internal/core/version"
	"trcli/internal/platform/config"
	perr "trcli/internal/platform/errors"
	"trcli/internal/query"
)

// Flags are the persistent flag values shared by every command
type Flags struct {
	Target        string
	Public        bool
	JSON          bool
	JSONL         bool
	Output        string
	Timezone      string
	SessionFile   string
	Username      string
	Password      string
	PasswordStdin bool

	From        string
	To          string
	Types       []string
	Contains    string
	MinTSS      string
	MaxTSS      string
	Sort        string
	ResultLimit int
	Fields      []string

	Details     bool
	Full        bool
	RecordsOnly bool
}

// App carries the per-invocation wiring: flags, env config and the
// output stream
type App struct {
	flags Flags
	conf  config.Conf
	out   io.Writer
	in    io.Reader
}

// NewApp builds an App reading TR_-prefixed env defaults
func NewApp(out io.Writer, in io.Reader) *App {
	return &App{
		conf: config.New().Prefix("TR_"),
		out:  out,
		in:   in,
	}
}

// NewRootCommand builds the trcli command tree
func NewRootCommand(app *App) *cobra.Command {
	build := version.Info()
	root := &cobra.Command{
		Use:           "trcli",
		Short:         "Unofficial TrainerRoad data export client",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", build.Version, build.Commit, build.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&app.flags.Target, "target", "", "public profile username to query")
	pf.BoolVar(&app.flags.Public, "public", false, "force public mode even when logged in")
	pf.BoolVar(&app.flags.JSON, "json", false, "emit the JSON envelope")
	pf.BoolVar(&app.flags.JSONL, "jsonl", false, "emit records as JSON lines")
	pf.StringVar(&app.flags.Output, "output", "", "write output to a file instead of stdout")
	pf.StringVar(&app.flags.Timezone, "timezone", "", "IANA timezone for local date math (default TR_TIMEZONE, then host)")
	pf.StringVar(&app.flags.SessionFile, "session-file", "", "session file path (default TR_SESSION_FILE, then .trainerroad/session.json)")
	pf.StringVar(&app.flags.Username, "username", "", "login username (default TR_USERNAME)")
	pf.StringVar(&app.flags.Password, "password", "", "login password (default TR_PASSWORD)")
	pf.BoolVar(&app.flags.PasswordStdin, "password-stdin", false, "read the login password from stdin")

	pf.StringVar(&app.flags.From, "from", "", "keep records on or after this date (YYYY-MM-DD)")
	pf.StringVar(&app.flags.To, "to", "", "keep records on or before this date (YYYY-MM-DD)")
	pf.StringSliceVar(&app.flags.Types, "type", nil, "keep records matching any of these type keys")
	pf.StringVar(&app.flags.Contains, "contains", "", "keep records whose text contains this, case-insensitive")
	pf.StringVar(&app.flags.MinTSS, "min-tss", "", "keep records with load >= this")
	pf.StringVar(&app.flags.MaxTSS, "max-tss", "", "keep records with load <= this")
	pf.StringVar(&app.flags.Sort, "sort", "", "sort records: date, date-desc, load, load-desc, text, text-desc")
	pf.IntVar(&app.flags.ResultLimit, "result-limit", 0, "cap the number of records returned")
	pf.StringSliceVar(&app.flags.Fields, "fields", nil, "project records to these dotted-path fields")

	pf.BoolVar(&app.flags.Details, "details", false, "fetch full detail documents for matched records")
	pf.BoolVar(&app.flags.Full, "full", false, "skip compaction and return raw upstream records")
	pf.BoolVar(&app.flags.RecordsOnly, "records-only", false, "reduce the envelope to its record list")

	root.AddCommand(
		app.loginCommand(),
		app.logoutCommand(),
		app.whoamiCommand(),
		app.timelineCommand(),
		app.eventsCommand(),
		app.annotationsCommand(),
		app.weightHistoryCommand(),
		app.levelsCommand(),
		app.planCommand(),
		app.todayCommand(),
		app.futureCommand(),
		app.pastCommand(),
		app.ftpCommand(),
		app.ftpPredictionCommand(),
		app.powerRankingCommand(),
		app.powerRecordsCommand(),
	)
	return root
}

// Execute runs the tree against os.Stdout/os.Stdin
func Execute() error {
	app := NewApp(os.Stdout, os.Stdin)
	return NewRootCommand(app).ExecuteContext(context.Background())
}

func (a *App) location() (*time.Location, error) {
	return timeutil.ResolveLocation(a.flags.Timezone, a.conf.MayString("TIMEZONE", ""))
}

func (a *App) newClient() *trainerroad.Client {
	c := trainerroad.NewClient(trainerroad.Options{
		BaseURL:     a.conf.MayString("BASE_URL", ""),
		SessionFile: firstNonEmpty(a.flags.SessionFile, a.conf.MayString("SESSION_FILE", "")),
		Username:    firstNonEmpty(a.flags.Username, a.conf.MayString("USERNAME", "")),
		Password:    firstNonEmpty(a.flags.Password, a.conf.MayString("PASSWORD", "")),
	})
	c.LoadSession()
	return c
}

func (a *App) resolve(ctx context.Context) (*query.Context, *time.Location, error) {
	loc, err := a.location()
	if err != nil {
		return nil, nil, err
	}
	qc, err := query.Resolve(ctx, a.newClient(), query.Intent{
		Target:      a.flags.Target,
		ForcePublic: a.flags.Public,
	}, loc)
	if err != nil {
		return nil, nil, err
	}
	return qc, loc, nil
}

// filterConfig builds the declarative filter config from the shared
// flags and validates it before any fetch happens
func (a *App) filterConfig() (filter.Config, error) {
	cfg := filter.Config{
		From:        strings.TrimSpace(a.flags.From),
		To:          strings.TrimSpace(a.flags.To),
		Types:       a.flags.Types,
		Contains:    a.flags.Contains,
		Sort:        strings.ToLower(strings.TrimSpace(a.flags.Sort)),
		ResultLimit: a.flags.ResultLimit,
		Fields:      a.flags.Fields,
	}
	var err error
	if cfg.MinLoad, err = parseOptionalNumber(a.flags.MinTSS, "--min-tss"); err != nil {
		return filter.Config{}, err
	}
	if cfg.MaxLoad, err = parseOptionalNumber(a.flags.MaxTSS, "--max-tss"); err != nil {
		return filter.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return filter.Config{}, err
	}
	return cfg, nil
}

func parseOptionalNumber(raw, flagName string) (*float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, perr.InvalidArgf("invalid %s value %q; expected a number", flagName, raw)
	}
	return &n, nil
}

// normalizeDateFlag validates an explicit YYYY-MM-DD value, falling
// back when the flag is unset
func normalizeDateFlag(raw, fallback string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback, nil
	}
	if _, err := time.Parse(timeutil.DateOnly, s); err != nil {
		return "", perr.InvalidArgf("invalid date %q; expected YYYY-MM-DD", raw)
	}
	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
