package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/projectdiscovery/gologger"
	"github.com/spf13/cobra"

	"apiscope/internal/catalog"
	"apiscope/internal/config"
	"apiscope/internal/logging"
	"apiscope/internal/model"
	"apiscope/internal/orchestrator"
	"apiscope/internal/store"
	"apiscope/internal/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
}

// rootOptions are the persistent flags. Flags beat APISCOPE_* variables,
// which beat the config file.
type rootOptions struct {
	cfgPath   string
	catalog   string
	baseURL   string
	transport string
	debug     bool
	noColor   bool
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:           "apiscope",
		Short:         "Explore an API catalog and build requests from its schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd.Context(), o)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.cfgPath, "config", "", "config file (default ~/.apiscope/config.yaml)")
	pf.StringVarP(&o.catalog, "catalog", "c", "", "catalog file or http(s) URL (native YAML/JSON or OpenAPI 3)")
	pf.StringVar(&o.baseURL, "base-url", "", "base URL requests are sent to, overriding the catalog's server")
	pf.StringVar(&o.transport, "transport", "", "http or simulate")
	pf.BoolVar(&o.debug, "debug", false, "enable debug logging")
	pf.BoolVar(&o.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newInitCmd(o),
		newExploreCmd(o),
		newListCmd(o),
		newShowCmd(o),
		newTemplateCmd(o),
		newCommandCmd(o),
		newSendCmd(o),
		newLoginCmd(o),
	)
	return root
}

func (o *rootOptions) configPath() (string, bool) {
	if o.cfgPath != "" {
		return o.cfgPath, true
	}
	return config.DefaultPath(), false
}

// loadConfig resolves the configuration and sets up logging.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	path, explicit := o.configPath()
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}
	if o.catalog != "" {
		cfg.Catalog = o.catalog
	}
	if o.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(strings.TrimSpace(o.baseURL), "/")
	}
	if o.transport != "" {
		cfg.Transport.Mode = o.transport
	}
	if o.debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logging.Setup(cfg.Log.Level, o.noColor); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is everything a command needs to work on one catalog.
type session struct {
	cfg     *config.Config
	cat     *catalog.Catalog
	baseURL string
	store   *store.Store
	orch    *orchestrator.Orchestrator
}

func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	if cfg.Catalog == "" {
		return nil, fmt.Errorf("no catalog given (use --catalog, %s or catalog: in the config)", "APISCOPE_CATALOG")
	}
	cat, err := catalog.Load(ctx, cfg.Catalog)
	if err != nil {
		return nil, err
	}
	gologger.Verbose().Msgf("loaded %d endpoints from %s", len(cat.Endpoints), cfg.Catalog)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = strings.TrimRight(cat.BaseURL, "/")
	}
	if baseURL == "" && strings.EqualFold(cfg.Transport.Mode, string(transport.ModeHTTP)) {
		gologger.Warning().Msg("no base URL from flags, config or catalog; requests will use relative URLs")
	}

	opts := cfg.TransportOptions()
	opts.BaseURL = baseURL
	t, err := transport.New(opts)
	if err != nil {
		return nil, err
	}

	st := store.New(cfg.DefaultHeaders())
	if cfg.Auth.Token != "" {
		st.SetCredential(cfg.Auth.Token)
	}
	return &session{cfg: cfg, cat: cat, baseURL: baseURL, store: st, orch: orchestrator.New(t)}, nil
}

// endpoint selects ref in the store.
func (s *session) endpoint(ref string) (model.Endpoint, error) {
	ep, ok := s.cat.Find(ref)
	if !ok {
		return model.Endpoint{}, fmt.Errorf("unknown endpoint %q (see \"apiscope list\")", ref)
	}
	s.store.Select(&ep)
	return ep, nil
}

// login exchanges credentials at the configured token URL.
func (s *session) login(ctx context.Context, username, password string) (string, error) {
	client := &http.Client{Timeout: s.cfg.Transport.Timeout}
	return transport.PasswordLogin(ctx, client, s.baseURL, s.cfg.Auth.TokenURL, username, password, "")
}

func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
