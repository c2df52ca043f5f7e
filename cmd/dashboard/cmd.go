package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/aanand-mishra/students-dashboard/internal/dashboard"
	"github.com/aanand-mishra/students-dashboard/internal/stats"
	"github.com/aanand-mishra/students-dashboard/internal/types"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp      = errors.New("help provided")
	errCancelled = errors.New("cancelled")
)

type commandLine struct {
	api   *dashboard.APIClient
	store *dashboard.Store
	in    *bufio.Reader
	stdin int
	out   io.Writer
}

// newCommandLine reads confirmations from in. Prompts are only shown when
// in is an *os.File attached to a terminal.
func newCommandLine(api *dashboard.APIClient, in io.Reader, out io.Writer) *commandLine {
	fd := -1
	if f, ok := in.(*os.File); ok {
		fd = int(f.Fd())
	}
	return &commandLine{
		api:   api,
		store: dashboard.NewStore(api),
		in:    bufio.NewReader(in),
		stdin: fd,
		out:   out,
	}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage: dashboard [-api URL] COMMAND [flags]")
	fmt.Fprintln(cli.out, "  list     [-q TERM]                         - list students, optionally filtered")
	fmt.Fprintln(cli.out, "  add      -name N -email E [-phone P] [-handle H]")
	fmt.Fprintln(cli.out, "  edit     -id ID [-name N] [-email E] [-phone P] [-handle H]")
	fmt.Fprintln(cli.out, "  delete   -id ID [-yes]")
	fmt.Fprintln(cli.out, "  export   [-o FILE]                         - write all students as CSV (- for stdout)")
	fmt.Fprintln(cli.out, "  profile  -id ID [-tab contest|problems|settings] [-days N]")
	fmt.Fprintln(cli.out, "  settings -id ID [-time HH:00] [-frequency daily|weekly|monthly] [-reminders true|false]")
	fmt.Fprintln(cli.out, "  sync     -id ID                            - refresh ratings from Codeforces now")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()
	cmd, rest := args[1], args[2:]

	switch cmd {
	case "list":
		fs := cli.newFlagSet("list")
		q := fs.String("q", "", "Case-insensitive search over name, email and handle")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return cli.list(ctx, *q)

	case "add", "edit":
		fs := cli.newFlagSet(cmd)
		id := fs.String("id", "", "Student id (edit only)")
		name := fs.String("name", "", "Full name")
		email := fs.String("email", "", "Email address")
		phone := fs.String("phone", "", "Phone number, 10-15 digits")
		handle := fs.String("handle", "", "Codeforces handle")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		form := dashboard.StudentForm{Name: *name, Email: *email, PhoneNumber: *phone, CodeforcesHandle: *handle}
		if cmd == "add" {
			return cli.add(ctx, form)
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		return cli.edit(ctx, *id, fs, form)

	case "delete":
		fs := cli.newFlagSet("delete")
		id := fs.String("id", "", "Student id")
		yes := fs.Bool("yes", false, "Do not ask for confirmation")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		return cli.delete(ctx, *id, *yes)

	case "export":
		fs := cli.newFlagSet("export")
		o := fs.String("o", "students_data.csv", "Output file, - for stdout")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return cli.export(ctx, *o)

	case "profile":
		fs := cli.newFlagSet("profile")
		id := fs.String("id", "", "Student id")
		tab := fs.String("tab", "contest", "contest, problems or settings")
		days := fs.Int("days", 0, "Window in days (contest: 30/90/365, problems: 7/30/90)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		return cli.profile(ctx, *id, *tab, *days)

	case "settings":
		fs := cli.newFlagSet("settings")
		id := fs.String("id", "", "Student id")
		syncTime := fs.String("time", "", "Daily sync hour, HH:00")
		freq := fs.String("frequency", "", "daily, weekly or monthly")
		reminders := fs.String("reminders", "", "true or false")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		return cli.settings(ctx, *id, *syncTime, *freq, *reminders)

	case "sync":
		fs := cli.newFlagSet("sync")
		id := fs.String("id", "", "Student id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		return cli.sync(ctx, *id)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) list(ctx context.Context, q string) error {
	if err := cli.store.Load(ctx); err != nil {
		return err
	}
	cli.store.Dispatch(dashboard.SearchChanged{Term: q})

	students := cli.store.State().Visible()
	if len(students) == 0 {
		fmt.Fprintln(cli.out, "No students found")
		return nil
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tHANDLE\tRATING\tMAX")
	for _, s := range students {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Name, s.Email, dash(s.PhoneNumber), dash(s.CodeforcesHandle),
			ratingText(s.CurrentRating), ratingText(s.MaxRating))
	}
	return tw.Flush()
}

func (cli *commandLine) add(ctx context.Context, form dashboard.StudentForm) error {
	cli.store.Dispatch(dashboard.ModalOpened{Modal: dashboard.ModalAdd})
	s, err := cli.store.Add(ctx, form)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cli.out, "Added %s (%s)\n", s.Name, s.ID)
	return nil
}

// edit starts from the stored student and overrides only the flags given.
func (cli *commandLine) edit(ctx context.Context, id string, fs *flag.FlagSet, flags dashboard.StudentForm) error {
	current, err := cli.api.GetStudent(ctx, id)
	if err != nil {
		return err
	}

	cli.store.Dispatch(dashboard.ModalOpened{Modal: dashboard.ModalEdit, Student: &current})
	form := dashboard.FormFrom(current)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			form.Name = flags.Name
		case "email":
			form.Email = flags.Email
		case "phone":
			form.PhoneNumber = flags.PhoneNumber
		case "handle":
			form.CodeforcesHandle = flags.CodeforcesHandle
		}
	})

	s, err := cli.store.Edit(ctx, id, form)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cli.out, "Updated %s\n", s.Name)
	return nil
}

func (cli *commandLine) delete(ctx context.Context, id string, yes bool) error {
	if !yes && isTerminalFunc(cli.stdin) {
		s, err := cli.api.GetStudent(ctx, id)
		if err != nil {
			return err
		}
		cli.store.Dispatch(dashboard.ModalOpened{Modal: dashboard.ModalDelete, Student: &s})
		color.New(color.FgYellow).Fprintf(cli.out, "Delete %s <%s>? This cannot be undone. [y/N] ", s.Name, s.Email)

		answer, _ := cli.in.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			cli.store.Dispatch(dashboard.ModalClosed{})
			fmt.Fprintln(cli.out, "Cancelled")
			return errCancelled
		}
	}

	if err := cli.store.Delete(ctx, id); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(cli.out, "Student deleted successfully")
	return nil
}

func (cli *commandLine) export(ctx context.Context, path string) error {
	if err := cli.store.Load(ctx); err != nil {
		return err
	}
	students := cli.store.State().Students

	if path == "-" {
		return dashboard.ExportCSV(cli.out, students)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dashboard.ExportCSV(f, students); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Exported %d students to %s\n", len(students), path)
	return nil
}

func (cli *commandLine) profile(ctx context.Context, id, tab string, days int) error {
	p, err := cli.api.Profile(ctx, id)
	if err != nil {
		return err
	}

	color.New(color.Bold).Fprintln(cli.out, p.Name)
	fmt.Fprintf(cli.out, "%s  %s\n", p.Email, dash(p.PhoneNumber))
	if p.CodeforcesHandle != "" {
		fmt.Fprintf(cli.out, "https://codeforces.com/profile/%s\n", p.CodeforcesHandle)
	}
	fmt.Fprint(cli.out, "Current rating: ")
	ratingColor(p.CurrentRating).Fprint(cli.out, ratingText(p.CurrentRating))
	fmt.Fprint(cli.out, "  Max rating: ")
	ratingColor(p.MaxRating).Fprintln(cli.out, ratingText(p.MaxRating))
	if !p.Live && p.LookupError != "" {
		color.New(color.FgYellow).Fprintf(cli.out, "Showing stored ratings: %s\n", p.LookupError)
	}
	fmt.Fprintln(cli.out)

	switch tab {
	case "contest", "contests":
		if days == 0 {
			days = 30
		}
		contests, err := cli.api.Contests(ctx, id, days)
		if err != nil {
			return err
		}
		cli.printContests(contests, days)
	case "problems":
		if days == 0 {
			days = 7
		}
		problems, err := cli.api.Problems(ctx, id, days)
		if err != nil {
			return err
		}
		cli.printProblems(problems, days)
	case "settings":
		cli.printSettings(p.Student)
	default:
		return fmt.Errorf("unknown tab %q (contest, problems, settings)", tab)
	}
	return nil
}

func (cli *commandLine) printContests(contests []stats.Contest, days int) {
	fmt.Fprintf(cli.out, "Contest history, last %d days\n", days)
	if len(contests) == 0 {
		fmt.Fprintln(cli.out, "No contests found in the selected period")
		return
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTEST\tRANK\tSOLVED\tCHANGE\tRATING\tDATE")
	for _, c := range contests {
		change := strconv.Itoa(c.RatingChange)
		if c.RatingChange >= 0 {
			change = "+" + change
		}
		fmt.Fprintf(tw, "%s\t%d\t%d / %d\t%s\t%d\t%s\n",
			c.ContestName, c.Rank, c.SolvedCount, c.TotalProblems, change, c.NewRating,
			unixDate(c.ContestTime))
	}
	tw.Flush()
}

func (cli *commandLine) printProblems(p stats.Problems, days int) {
	fmt.Fprintf(cli.out, "Problem solving, last %d days\n", days)
	fmt.Fprintf(cli.out, "Total solved: %d  Average rating: %d  Per day: %.2f\n",
		p.TotalSolved, p.AverageRating, p.AverageProblemsPerDay)
	if p.HardestProblem != nil {
		h := p.HardestProblem
		fmt.Fprintf(cli.out, "Hardest: %d%s %s (", h.ContestID, h.Index, h.Name)
		ratingColor(h.Rating).Fprint(cli.out, h.Rating)
		fmt.Fprintln(cli.out, ")")
	}

	fmt.Fprintln(cli.out)
	for _, b := range p.RatingDistribution {
		fmt.Fprintf(cli.out, "%-10s %4d %s\n", b.RatingRange, b.Count, strings.Repeat("#", b.Count))
	}

	fmt.Fprintln(cli.out)
	cli.printCalendar(p.SubmissionCalendar)
}

// calendarRow is how many days one heatmap line holds.
const calendarRow = 30

// printCalendar draws the submission calendar oldest day first, each line
// labelled with the date of its first cell.
func (cli *commandLine) printCalendar(days []stats.CalendarDay) {
	fmt.Fprintln(cli.out, "Submissions (. none, + 1-3, # 4 or more)")
	for start := len(days) - 1; start >= 0; start -= calendarRow {
		end := max(start-calendarRow+1, 0)

		var row strings.Builder
		for i := start; i >= end; i-- {
			row.WriteByte(heatCell(days[i].Count))
		}
		fmt.Fprintf(cli.out, "%s  %s\n", days[start].Date, row.String())
	}
}

func (cli *commandLine) printSettings(s types.Student) {
	ss := s.SyncSettings
	fmt.Fprintf(cli.out, "Sync time:       %s\n", ss.SyncTime)
	fmt.Fprintf(cli.out, "Sync frequency:  %s\n", ss.SyncFrequency)
	fmt.Fprintf(cli.out, "Email reminders: %t\n", ss.EmailReminders)
	fmt.Fprintf(cli.out, "Reminders sent:  %d\n", s.ReminderCount)
	if s.LastSyncedAt != nil {
		fmt.Fprintf(cli.out, "Last synced:     %s\n", s.LastSyncedAt.Local().Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintln(cli.out, "Last synced:     never")
	}
}

func (cli *commandLine) settings(ctx context.Context, id, syncTime, freq, reminders string) error {
	var in types.SyncSettingsInput
	if syncTime != "" {
		in.SyncTime = &syncTime
	}
	if freq != "" {
		in.SyncFrequency = &freq
	}
	if reminders != "" {
		b, err := strconv.ParseBool(reminders)
		if err != nil {
			return fmt.Errorf("-reminders: %w", err)
		}
		in.EmailReminders = &b
	}

	if in == (types.SyncSettingsInput{}) {
		s, err := cli.api.GetStudent(ctx, id)
		if err != nil {
			return err
		}
		cli.printSettings(s)
		return nil
	}

	s, err := cli.api.UpdateSyncSettings(ctx, id, in)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(cli.out, "Sync settings saved")
	cli.printSettings(s)
	return nil
}

func (cli *commandLine) sync(ctx context.Context, id string) error {
	s, err := cli.api.Sync(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s synced: ", s.Name)
	ratingColor(s.CurrentRating).Fprint(cli.out, ratingText(s.CurrentRating))
	fmt.Fprintf(cli.out, " (max %s)\n", ratingText(s.MaxRating))
	return nil
}
