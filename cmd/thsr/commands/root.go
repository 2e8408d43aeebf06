package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"thsr-booker/internal/components/console"
	"thsr-booker/internal/components/telemetry"
	"thsr-booker/internal/notify"
	"thsr-booker/internal/reference"
	"thsr-booker/internal/scrapers/thsr"
	"time"

	"github.com/spf13/cobra"
)

const (
	report_cli_station = "cli.station"
	report_cli_notify  = "cli.notify"
)

type flags struct {
	personalId    string
	date          string
	timeSlot      int
	from          string
	to            string
	adultCount    int
	studentCount  int
	seatPrefer    int
	classType     int
	useMembership bool
	train         int

	listStation   bool
	listTimeTable bool

	config   string
	verbose  bool
	dumpHttp string
}

func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *flags) {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "thsr",
		Short: "thsr books Taiwan High Speed Rail tickets.",
		Long: `thsr books Taiwan High Speed Rail tickets.

Running it without flags guides you through the booking, every flag given skips its question.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.personalId, "personal-id", "i", "", "Personal ID, also used as the membership number.")
	fs.StringVarP(&f.date, "date", "d", "", "Departure date as YYYY/MM/DD.")
	fs.IntVarP(&f.timeSlot, "time", "T", 0, "Departure time id, see --list-time-table.")
	fs.StringVarP(&f.from, "from", "f", "", "Departure station id or name, see --list-station.")
	fs.StringVarP(&f.to, "to", "t", "", "Arrival station id or name, see --list-station.")
	fs.IntVarP(&f.adultCount, "adult-cnt", "a", 0, "Number of adult tickets.")
	fs.IntVarP(&f.studentCount, "student-cnt", "s", 0, "Number of college student tickets.")
	fs.IntVarP(&f.seatPrefer, "seat-prefer", "p", 0, "Seat preference. 0: none, 1: window, 2: aisle.")
	fs.IntVarP(&f.classType, "class-type", "c", 0, "Class type. 0: standard, 1: business.")
	fs.BoolVarP(&f.useMembership, "use-membership", "m", false, "Book as a THSR member using the personal ID.")
	fs.IntVar(&f.train, "train", 0, "Train to book, as its 1-based position in the search result.")

	fs.BoolVar(&f.listStation, "list-station", false, "List available stations and exit.")
	fs.BoolVar(&f.listTimeTable, "list-time-table", false, "List available departure times and exit.")

	fs.StringVar(&f.config, "config", "", "Config file, defaults to the nearest thsr.json5.")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Log debug information.")
	fs.StringVar(&f.dumpHttp, "dump-http", "", "Directory to write every HTTP exchange to.")

	return cmd, f
}

func ExecuteContext(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// stationOverride turns a --from/--to value into a station index. A name that matches no
// station falls back to def.
func stationOverride(value, role string, def int, tel telemetry.API, out io.Writer) int {
	idx, ok := reference.FindStation(value)
	if !ok {
		name, _ := reference.Station(def)
		tel.ReportWarning(report_cli_station, role, value)
		fmt.Fprintf(out, "Unknown %s station %q, defaulting to %s (%d).\n", role, value, name, def)
		return def
	}
	return idx
}

// selection keeps only the flags that were given, the rest are asked for.
func selection(cmd *cobra.Command, f *flags, config Config, tel telemetry.API) thsr.Selection {
	var sel thsr.Selection
	changed := cmd.Flags().Changed
	out := cmd.OutOrStdout()

	if changed("personal-id") {
		sel.PersonalId = &f.personalId
	} else if config.PersonalId != "" {
		sel.PersonalId = &config.PersonalId
	}
	if changed("date") {
		sel.Date = &f.date
	}
	if changed("time") {
		sel.TimeSlot = &f.timeSlot
	}
	if changed("from") {
		from := stationOverride(f.from, "start", reference.DefaultFromStation, tel, out)
		sel.From = &from
	}
	if changed("to") {
		to := stationOverride(f.to, "destination", reference.DefaultToStation, tel, out)
		sel.To = &to
	}
	if changed("adult-cnt") {
		sel.AdultCount = &f.adultCount
	}
	if changed("student-cnt") {
		sel.StudentCount = &f.studentCount
	}
	if changed("seat-prefer") {
		sel.SeatPrefer = &f.seatPrefer
	}
	if changed("class-type") {
		sel.ClassType = &f.classType
	}
	if changed("use-membership") {
		sel.UseMembership = &f.useMembership
	}
	if changed("train") {
		sel.Train = &f.train
	}
	return sel
}

func run(cmd *cobra.Command, f *flags) error {
	out := cmd.OutOrStdout()
	if f.listTimeTable {
		fmt.Fprintln(out, reference.RenderTimeTable())
		return nil
	}
	if f.listStation {
		fmt.Fprintln(out, reference.RenderStations())
		return nil
	}

	telemetry.InitSlog(cmd.ErrOrStderr(), f.verbose)
	tel := telemetry.SlogAPI{}

	config, err := loadConfig(f.config)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	ctx := cmd.Context()
	providers, err := telemetry.Setup(ctx, "thsr-booker", config.Telemetry)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := providers.Shutdown(shutdownCtx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}()

	var dump telemetry.MessageOutput
	if f.dumpHttp != "" {
		output, err := telemetry.NewFilesystemOutput(f.dumpHttp)
		if err != nil {
			return fmt.Errorf("prepare http dump: %w", err)
		}
		dump = output
	}

	prompt := console.NewTerminal(cmd.InOrStdin(), out)
	openViewer := !config.NoCaptchaViewer && console.IsInteractive(os.Stdout)
	client, err := thsr.NewClient(thsr.ClientOptions{
		BaseUrl:      config.BaseUrl,
		Timeout:      time.Duration(config.TimeoutSeconds) * time.Second,
		MaxRedirects: config.MaxRedirects,
		Prompt:       prompt,
		Captcha:      console.NewViewerSolver(config.CaptchaFile, openViewer, prompt, tel),
		Tel:          tel,
		Dump:         dump,
	})
	if err != nil {
		return err
	}

	ticket, err := client.Book(ctx, selection(cmd, f, config, tel))
	var extractErr *thsr.ExtractError
	if errors.As(err, &extractErr) {
		return fmt.Errorf("%w, check the reservation on the booking site before booking again", err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, ticket.Summary())

	mailer := notify.NewMailer(config.Smtp, tel)
	if mailer.Enabled() && config.Email != "" {
		err = mailer.SendBooking(ctx, config.Email, ticket)
		if err != nil {
			tel.ReportWarning(report_cli_notify, err)
			fmt.Fprintf(out, "Could not mail the booking to %s: %v\n", config.Email, err)
		} else {
			fmt.Fprintf(out, "Booking sent to %s.\n", config.Email)
		}
	}
	return nil
}
