package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/projectdiscovery/gologger"
	"github.com/spf13/cobra"

	"apiscope/internal/catalog"
	"apiscope/internal/compose"
	"apiscope/internal/config"
	"apiscope/internal/logging"
	"apiscope/internal/model"
	"apiscope/internal/orchestrator"
	"apiscope/internal/schema"
	"apiscope/internal/ui"
	"apiscope/internal/value"
)

func newInitCmd(o *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := o.configPath()
			if err := config.Default().Write(path, force); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func newExploreCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explore",
		Short: "Open the interactive explorer (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd.Context(), o)
		},
	}
}

func runExplore(ctx context.Context, o *rootOptions) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	// log lines would corrupt the full-screen UI
	closeLog, err := logging.Redirect(cfg.Log.File)
	if err != nil {
		return err
	}
	defer closeLog()

	opts := ui.Options{
		Catalog:      s.cat,
		BaseURL:      s.baseURL,
		Store:        s.store,
		Orchestrator: s.orch,
		Style:        compose.Style(strings.ToLower(cfg.Command.Style)),
	}
	if cfg.Auth.TokenURL != "" {
		opts.Login = s.login
	}
	return ui.NewApp(opts).Run()
}

func newListCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [filter]",
		Short: "List endpoints, grouped by resource or ranked by a fuzzy filter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.session(cmd.Context())
			if err != nil {
				return err
			}
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			return writeList(cmd.OutOrStdout(), s.cat.Endpoints, filter)
		},
	}
}

func writeList(out io.Writer, eps []model.Endpoint, filter string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	row := func(ep model.Endpoint) {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", strings.ToUpper(ep.Method), ep.Path, ep.ID, ep.Summary)
	}
	if strings.TrimSpace(filter) != "" {
		for _, ep := range catalog.Filter(eps, filter) {
			row(ep)
		}
		return tw.Flush()
	}
	for _, g := range catalog.GroupByResource(eps) {
		fmt.Fprintf(tw, "%s\n", g.Name)
		for _, ep := range g.Endpoints {
			row(ep)
		}
	}
	return tw.Flush()
}

func newShowCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <endpoint>",
		Short: "Describe an endpoint: parameters, body schema and responses",
		Long:  "An endpoint is referenced by id or as \"METHOD /path\".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.session(cmd.Context())
			if err != nil {
				return err
			}
			ep, err := s.endpoint(args[0])
			if err != nil {
				return err
			}
			writeEndpoint(cmd.OutOrStdout(), ep)
			return nil
		},
	}
}

func writeEndpoint(out io.Writer, ep model.Endpoint) {
	fmt.Fprintf(out, "%s %s\n", ep.Key(), ep.ID)
	if ep.Summary != "" {
		fmt.Fprintln(out, ep.Summary)
	}
	if ep.Description != "" {
		fmt.Fprintf(out, "\n%s\n", ep.Description)
	}
	params := func(title string, ps []model.Param) {
		if len(ps) == 0 {
			return
		}
		fmt.Fprintf(out, "\n%s:\n", title)
		for _, p := range ps {
			req := ""
			if p.Required {
				req = " (required)"
			}
			fmt.Fprintf(out, "  %s: %s%s\n", p.Name, schema.TypeLabel(p.Schema), req)
		}
	}
	params("Path parameters", ep.PathParams)
	params("Query parameters", ep.QueryParams)
	if rb := ep.RequestBody; rb.Schema != nil && model.AllowsBody(ep.Method) {
		req := "optional"
		if rb.Required {
			req = "required"
		}
		fmt.Fprintf(out, "\nRequest body (%s):\n%s\n", req, value.Indent(schema.Document(rb.Schema)))
	}
	for _, r := range ep.Responses {
		fmt.Fprintf(out, "\nResponse %s %s\n", r.Status, r.ContentType)
		if r.HasExample {
			fmt.Fprintln(out, value.Indent(r.Example))
		}
	}
}

func newTemplateCmd(o *rootOptions) *cobra.Command {
	rf := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "template <endpoint>",
		Short: "Print the request body synthesized from the endpoint schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.session(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := s.endpoint(args[0]); err != nil {
				return err
			}
			if err := rf.apply(s.store); err != nil {
				return err
			}
			if !s.store.BodyEnabled() {
				return fmt.Errorf("%s takes no request body", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.store.BodyText())
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newCommandCmd(o *rootOptions) *cobra.Command {
	rf := &requestFlags{}
	var style string
	cmd := &cobra.Command{
		Use:   "command <endpoint>",
		Short: "Print a curl or httpie command line for a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.session(cmd.Context())
			if err != nil {
				return err
			}
			ep, err := s.endpoint(args[0])
			if err != nil {
				return err
			}
			if err := rf.apply(s.store); err != nil {
				return err
			}
			if style == "" {
				style = s.cfg.Command.Style
			}
			st, err := compose.ParseStyle(style)
			if err != nil {
				return err
			}
			rawURL := compose.URL(s.baseURL, ep.Path, s.store.PathParams(), s.store.QueryParams())
			var body any
			if s.store.BodyEnabled() {
				body = s.store.Body()
			}
			fmt.Fprintln(cmd.OutOrStdout(), compose.Command(st, ep.Method, rawURL, s.store.Headers(), body))
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&style, "style", "", "curl or httpie (default from config)")
	return cmd
}

func newSendCmd(o *rootOptions) *cobra.Command {
	rf := &requestFlags{}
	var include bool
	cmd := &cobra.Command{
		Use:   "send <endpoint>",
		Short: "Validate and send a request, then print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.session(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := s.endpoint(args[0]); err != nil {
				return err
			}
			if err := rf.apply(s.store); err != nil {
				return err
			}
			res, err := s.orch.Submit(cmd.Context(), s.store.Snapshot())
			var verr *orchestrator.ValidationError
			if errors.As(err, &verr) {
				return fmt.Errorf("missing required parameters: %s", strings.Join(verr.Names(), ", "))
			}
			if err != nil {
				return err
			}
			writeResult(cmd.OutOrStdout(), res, include, !o.noColor && stdoutIsTerminal())
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVarP(&include, "include", "i", false, "print response headers")
	return cmd
}

func writeResult(out io.Writer, res model.RequestResult, include, color bool) {
	fmt.Fprintf(out, "%d %s (%s)\n", res.Status, res.StatusText, res.Time)
	if include {
		names := make([]string, 0, len(res.Headers))
		for k := range res.Headers {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(out, "%s: %s\n", k, res.Headers[k])
		}
	}
	switch d := res.Data.(type) {
	case nil:
	case string:
		fmt.Fprintln(out, d)
	default:
		if color {
			fmt.Fprintln(out, value.Colorize(d))
		} else {
			fmt.Fprintln(out, value.Indent(d))
		}
	}
}

func newLoginCmd(o *rootOptions) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange a username and password for a token at auth.token_url",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.session(cmd.Context())
			if err != nil {
				return err
			}
			if s.cfg.Auth.TokenURL == "" {
				return errors.New("auth.token_url is not configured")
			}
			token, err := s.login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			gologger.Info().Msgf("logged in as %s; set APISCOPE_TOKEN to reuse the token", username)
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "user name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (o *rootOptions) session(ctx context.Context) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return openSession(ctx, cfg)
}
