package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"stealthcompany.com/archaeoseeker/internal/admin"
	"stealthcompany.com/archaeoseeker/internal/auth"
	"stealthcompany.com/archaeoseeker/internal/browse"
	"stealthcompany.com/archaeoseeker/internal/catalog"
)

const browseHelp = `Commands:
  search [term=..] [type=..] [era=..] [region=..]   list items matching the filters
  more                                              load the next page
  show <n>                                          open the n-th listed item
  back                                              return to the list
  education                                         show the education page
  request                                           suggest a new item
  login                                             sign in as administrator
  logout                                            sign out
  items | requests                                  admin: list items or requests
  toggle <id> | approve <id> | deny <id>            admin: moderate the catalog
  state                                             print the session as JSON
  help | quit`

// limiterClient keys the terminal browser's login attempts
const limiterClient = "cli"

func newBrowseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the catalog interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := app.servicesFor(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			client := auth.NewClient(sm.Auth)
			defer client.Close()

			session := browse.NewSession(sm.Catalog, client, sm.Limiter.For(limiterClient), app.cfg.PageSize)
			defer session.Close()

			r := &repl{
				app:       app,
				cmd:       cmd,
				session:   session,
				dashboard: sm.Dashboard,
				in:        bufio.NewScanner(cmd.InOrStdin()),
				out:       cmd.OutOrStdout(),
			}
			return r.run(cmd.Context())
		},
	}
}

type repl struct {
	app       *App
	cmd       *cobra.Command
	session   *browse.Session
	dashboard *admin.Dashboard
	in        *bufio.Scanner
	out       io.Writer
}

func (r *repl) run(ctx context.Context) error {
	if err := r.session.Search(ctx, catalog.FilterCriteria{}); err != nil {
		r.printf("%s\n", userMessage(err))
	}
	r.printList()

	for {
		line, ok := r.prompt(string(r.session.View()) + "> ")
		if !ok {
			return r.in.Err()
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := r.dispatch(ctx, fields[0], fields[1:]); err != nil {
			r.printf("%s\n", userMessage(err))
		}
	}
}

func (r *repl) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "help":
		r.printf("%s\n", browseHelp)
	case "search", "list":
		filters, err := parseFilters(args)
		if err != nil {
			return err
		}
		if err := r.session.Search(ctx, filters); err != nil {
			return err
		}
		r.printList()
	case "more":
		before := len(r.session.State().Items)
		if err := r.session.LoadMore(ctx); err != nil {
			return err
		}
		r.printItems(r.session.State().Items, before)
	case "show":
		return r.show(ctx, args)
	case "back":
		if err := r.session.Back(); err != nil {
			return err
		}
		r.printList()
	case "education":
		if err := r.session.OpenEducation(); err != nil {
			return err
		}
		r.printEducation()
	case "request":
		return r.request(ctx)
	case "login":
		return r.login(ctx)
	case "logout":
		if err := r.session.Logout(ctx); err != nil {
			return err
		}
		r.printf("Signed out.\n")
		r.printList()
	case "state":
		return writeOut(r.cmd, r.app, r.session.State())
	case "items", "requests", "toggle", "approve", "deny":
		return r.admin(ctx, name, args)
	default:
		return fmt.Errorf("unknown command %q, try help", name)
	}
	return nil
}

func (r *repl) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: show <n>")
	}
	items := r.session.State().Items
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(items) {
		return fmt.Errorf("no item %s on the list", args[0])
	}
	if err := r.session.Select(ctx, items[n-1]); err != nil {
		return err
	}

	st := r.session.State()
	item := st.Selected
	r.printf("%s (%s)\n", item.Name, item.Type)
	r.printf("  %s, %s, %s\n", item.Era, item.Region, item.Location)
	if item.Description != "" {
		r.printf("  %s\n", item.Description)
	}
	if item.ImageURL != "" {
		r.printf("  Image: %s\n", item.ImageURL)
	}
	if st.Message != "" {
		r.printf("%s\n", st.Message)
	}
	if st.Related.Title != "" {
		r.printf("%s:\n", st.Related.Title)
		for _, rel := range st.Related.Items {
			r.printf("  - %s\n", rel.Name)
		}
	}
	return nil
}

func (r *repl) request(ctx context.Context) error {
	if err := r.session.OpenRequestForm(); err != nil {
		return err
	}
	var req catalog.AdditionRequest
	for _, field := range []struct {
		label string
		dst   *string
	}{
		{"Name", &req.Name},
		{"Type (" + strings.Join(catalog.ItemTypes, ", ") + ")", &req.Type},
		{"Location", &req.Location},
		{"Description", &req.Description},
		{"Image URL", &req.ImageURL},
		{"Your email", &req.UserEmail},
	} {
		v, ok := r.prompt(field.label + ": ")
		if !ok {
			return io.ErrUnexpectedEOF
		}
		*field.dst = strings.TrimSpace(v)
	}
	if req.Name == "" || req.Type == "" || req.Location == "" {
		return fmt.Errorf("name, type and location are required; type back to cancel")
	}

	if _, err := r.session.SubmitRequest(ctx, req); err != nil {
		return err
	}
	r.printf("Thank you! Your request was submitted for review.\n")
	return nil
}

func (r *repl) login(ctx context.Context) error {
	if err := r.session.OpenLogin(); err != nil {
		return err
	}
	email, ok := r.prompt("Email: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	password, ok := r.prompt("Password: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	if err := r.session.Login(ctx, strings.TrimSpace(email), password); err != nil {
		return err
	}
	r.printf("Signed in as %s.\n", r.session.State().User.Email)
	return r.admin(ctx, "items", nil)
}

func (r *repl) admin(ctx context.Context, name string, args []string) error {
	if r.session.View() != browse.ViewAdmin {
		return fmt.Errorf("%s needs an administrator session, use login", name)
	}
	if name != "items" && name != "requests" && len(args) != 1 {
		return fmt.Errorf("usage: %s <id>", name)
	}

	switch name {
	case "items":
		items, err := r.dashboard.LoadItems(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			state := "visible"
			if item.Hidden() {
				state = "hidden"
			}
			r.printf("%s  %-8s %-8s %s\n", item.ID, state, item.Type, item.Name)
		}
	case "requests":
		requests, err := r.dashboard.LoadRequests(ctx)
		if err != nil {
			return err
		}
		for _, req := range requests {
			r.printf("%s  %-8s %s (%s)\n", req.ID, req.Type, req.Name, req.Location)
		}
	case "toggle":
		item, err := r.dashboard.ToggleVisibility(ctx, args[0])
		if err != nil {
			return err
		}
		r.printf("%s is now hidden=%t\n", item.Name, item.Hidden())
	case "approve":
		req, err := r.findRequest(ctx, args[0])
		if err != nil {
			return err
		}
		form := admin.NewApproveForm(req)
		result, err := r.dashboard.Save(ctx, form.Mode, form.Item)
		if err != nil {
			return err
		}
		r.printf("Approved as item %s.\n", result.ItemID)
	case "deny":
		if err := r.dashboard.DenyRequest(ctx, args[0]); err != nil {
			return err
		}
		r.printf("Request %s denied.\n", args[0])
	}
	return nil
}

func (r *repl) findRequest(ctx context.Context, id string) (catalog.AdditionRequest, error) {
	requests, err := r.dashboard.LoadRequests(ctx)
	if err != nil {
		return catalog.AdditionRequest{}, err
	}
	for _, req := range requests {
		if req.ID == id {
			return req, nil
		}
	}
	return catalog.AdditionRequest{}, fmt.Errorf("no pending request %s", id)
}

func (r *repl) printList() {
	st := r.session.State()
	if len(st.Items) == 0 {
		r.printf("No items found.\n")
		return
	}
	r.printItems(st.Items, 0)
}

func (r *repl) printItems(items []catalog.Item, from int) {
	for i := from; i < len(items); i++ {
		item := items[i]
		r.printf("%3d. %s (%s, %s)\n", i+1, item.Name, item.Type, item.Location)
	}
	if r.session.State().HasMore {
		r.printf("Type more for the next page.\n")
	}
}

func (r *repl) printEducation() {
	for _, section := range browse.Education() {
		r.printf("\n%s\n%s\n", section.Title, section.Subtitle)
		for _, p := range section.Paragraphs {
			r.printf("  %s\n", p)
		}
		for _, b := range section.Bullets {
			r.printf("  * %s\n", b)
		}
	}
}

func (r *repl) prompt(label string) (string, bool) {
	r.printf("%s", label)
	if !r.in.Scan() {
		return "", false
	}
	return r.in.Text(), true
}

func (r *repl) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// parseFilters reads key=value pairs; a bare word is a search term
func parseFilters(args []string) (catalog.FilterCriteria, error) {
	var filters catalog.FilterCriteria
	var terms []string
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			terms = append(terms, arg)
			continue
		}
		switch key {
		case "term":
			terms = append(terms, value)
		case "type":
			filters.Type = value
		case "era":
			filters.Era = value
		case "region":
			// underscores stand in for spaces, as in region=North_America
			filters.Region = strings.ReplaceAll(value, "_", " ")
		default:
			return filters, fmt.Errorf("unknown filter %q", key)
		}
	}
	filters.SearchTerm = strings.Join(terms, " ")
	return filters, nil
}

// userMessage prefers the message meant for visitors
func userMessage(err error) string {
	var userErr *catalog.UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}
	return err.Error()
}
