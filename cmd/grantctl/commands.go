package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/grantgenius/grantgenius-backend/internal/client"
	"github.com/grantgenius/grantgenius-backend/internal/dto"
	"github.com/grantgenius/grantgenius-backend/internal/editor"
	"github.com/grantgenius/grantgenius-backend/internal/export"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// app общее состояние команд.
type app struct {
	out        io.Writer
	configPath string
	server     string
	cfg        *cliConfig
	api        *client.Client

	// refreshMu защищает обновление токенов и cfg: сессия редактора пишет из своих горутин.
	refreshMu sync.Mutex
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "grantctl",
		Short:         "GrantGenius command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", getenv("GRANTCTL_CONFIG", defaultConfigPath()), "config file")
	root.PersistentFlags().StringVar(&a.server, "server", os.Getenv("GRANTCTL_SERVER"), "API base URL (overrides config)")

	root.AddCommand(
		a.loginCmd(),
		a.grantsCmd(),
		a.generateCmd(),
		a.listCmd(),
		a.getCmd(),
		a.editCmd(),
		a.statusCmd("save", "Mark a proposal as COMPLETED", models.ProposalStatusCompleted),
		a.statusCmd("archive", "Move a proposal to ARCHIVED", models.ProposalStatusArchived),
		a.statusCmd("reopen", "Move a proposal back to DRAFT", models.ProposalStatusDraft),
		a.exportCmd(),
		a.deleteCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.server != "" {
		cfg.Server = a.server
	}
	a.cfg = cfg
	a.api = client.New(cfg.Server, client.WithToken(cfg.AccessToken))
	return nil
}

// withRefresh повторяет вызов один раз после обновления истёкшего access токена.
func (a *app) withRefresh(ctx context.Context, fn func() error) error {
	used := a.api.Token()
	err := fn()
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != apperror.ErrCodeUnauthorized {
		return err
	}

	refreshed, refreshErr := a.refreshTokens(ctx, used)
	if refreshErr != nil {
		return refreshErr
	}
	if !refreshed {
		return err
	}
	return fn()
}

// refreshTokens меняет пару токенов, если used всё ещё текущий. Если его уже
// обновил параллельный запрос, повторно не обновляет.
func (a *app) refreshTokens(ctx context.Context, used string) (bool, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	if a.api.Token() != used {
		return true, nil
	}
	if a.cfg.RefreshToken == "" {
		return false, nil
	}

	tokens, err := a.api.Refresh(ctx, a.cfg.RefreshToken)
	if err != nil {
		return false, fmt.Errorf("session expired, run grantctl login: %w", err)
	}
	a.cfg.AccessToken = tokens.AccessToken
	a.cfg.RefreshToken = tokens.RefreshToken
	if err := saveConfig(a.configPath, a.cfg); err != nil {
		return false, err
	}
	return true, nil
}

// refreshingStore пропускает записи сессии редактора через withRefresh.
type refreshingStore struct {
	a *app
}

func (s refreshingStore) Autosave(ctx context.Context, id uuid.UUID, req dto.AutosaveRequest) (*models.WriteResult, error) {
	var res *models.WriteResult
	err := s.a.withRefresh(ctx, func() error {
		var err error
		res, err = s.a.api.Autosave(ctx, id, req)
		return err
	})
	return res, err
}

func (s refreshingStore) UpdateProposal(ctx context.Context, id uuid.UUID, req dto.UpdateProposalRequest) (*models.WriteResult, error) {
	var res *models.WriteResult
	err := s.a.withRefresh(ctx, func() error {
		var err error
		res, err = s.a.api.UpdateProposal(ctx, id, req)
		return err
	})
	return res, err
}

// openDraft возвращает текст локального файла черновика. Если файла нет,
// он создаётся с серверным текстом.
func openDraft(path, serverContent string) (string, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		return string(raw), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(serverContent), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return serverContent, nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid proposal id %q", raw)
	}
	return id, nil
}

func (a *app) loginCmd() *cobra.Command {
	var email, password, name string
	var register bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in (or register with --register) and store tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("GRANTCTL_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("--email and --password (or GRANTCTL_PASSWORD) are required")
			}

			var res *dto.AuthResponse
			var err error
			if register {
				res, err = a.api.Register(cmd.Context(), dto.RegisterRequest{Email: email, Password: password, Name: name})
			} else {
				res, err = a.api.Login(cmd.Context(), email, password)
			}
			if err != nil {
				return err
			}

			a.cfg.Email = res.User.Email
			a.cfg.AccessToken = res.Tokens.AccessToken
			a.cfg.RefreshToken = res.Tokens.RefreshToken
			if err := saveConfig(a.configPath, a.cfg); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s (%s)\n", res.User.Email, res.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&name, "name", "", "display name (with --register)")
	cmd.Flags().BoolVar(&register, "register", false, "create the account first")
	return cmd
}

func (a *app) grantsCmd() *cobra.Command {
	var filter models.GrantFilter

	cmd := &cobra.Command{
		Use:   "grants",
		Short: "Browse active grants",
		RunE: func(cmd *cobra.Command, args []string) error {
			grants, err := a.api.ListGrants(cmd.Context(), filter)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tFUNDING BODY\tREGION\tDEADLINE")
			for _, g := range grants {
				deadline := "-"
				if g.Deadline != nil {
					deadline = g.Deadline.Format(time.DateOnly)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", g.ID, g.Title, g.FundingBody, g.Region, deadline)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&filter.Category, "category", "", "filter by category")
	cmd.Flags().StringVar(&filter.Region, "region", "", "filter by region")
	cmd.Flags().StringVar(&filter.FundingBody, "funding-body", "", "filter by funding body")
	cmd.Flags().StringVar(&filter.Search, "search", "", "search title and description")
	return cmd
}

func (a *app) generateCmd() *cobra.Command {
	var req dto.GenerateProposalRequest
	var grantID, description string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new proposal draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			if grantID != "" {
				req.GrantID = &grantID
			}
			if description != "" {
				req.GrantDescription = &description
			}

			var generated *dto.GeneratedProposal
			err := a.withRefresh(cmd.Context(), func() error {
				var err error
				generated, err = a.api.Generate(cmd.Context(), req)
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Created %s (version %d): %s\n", generated.ID, generated.Version, generated.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.GrantTitle, "grant-title", "", "grant title")
	cmd.Flags().StringVar(&req.Goal, "goal", "", "project goal (at least 10 characters)")
	cmd.Flags().StringVar(&req.OrgType, "org-type", "", "organization type")
	cmd.Flags().StringVar(&grantID, "grant-id", "", "link the draft to an existing grant")
	cmd.Flags().StringVar(&description, "grant-description", "", "grant description passed to the generator")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your proposals",
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []models.ProposalListItem
			err := a.withRefresh(cmd.Context(), func() error {
				var err error
				items, err = a.api.ListProposals(cmd.Context())
				return err
			})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tVERSION\tUPDATED\tTITLE")
			for _, p := range items {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.Status, p.Version, p.UpdatedAt.Local().Format(time.DateTime), p.Title)
			}
			return tw.Flush()
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <proposal-id>",
		Short: "Print a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var p *models.ProposalDetails
			err = a.withRefresh(cmd.Context(), func() error {
				var err error
				p, err = a.api.GetProposal(cmd.Context(), id)
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "%s\nstatus: %s  version: %d\n\n%s\n", p.Title, p.Status, p.Version, p.Content)
			return nil
		},
	}
}

func (a *app) statusCmd(use, short, status string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <proposal-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var res *models.WriteResult
			err = a.withRefresh(cmd.Context(), func() error {
				var err error
				res, err = a.api.UpdateProposal(cmd.Context(), id, dto.UpdateProposalRequest{Status: &status})
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s is now %s (version %d)\n", id, status, res.Version)
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <proposal-id>",
		Short: "Delete a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.withRefresh(cmd.Context(), func() error { return a.api.DeleteProposal(cmd.Context(), id) }); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s\n", id)
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export <proposal-id>",
		Short: "Download a proposal as markdown or text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			var doc *export.Document
			err = a.withRefresh(cmd.Context(), func() error {
				var err error
				doc, err = a.api.Export(cmd.Context(), id, f)
				return err
			})
			if err != nil {
				return err
			}

			if output == "-" {
				_, err = a.out.Write(doc.Body)
				return err
			}
			if output == "" {
				output = doc.Filename
			}
			if err := os.WriteFile(output, doc.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(a.out, "Saved %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "markdown or text")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: name from server)")
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var file string
	var complete bool

	cmd := &cobra.Command{
		Use:   "edit <proposal-id>",
		Short: "Autosave a local draft file to the proposal while you edit it",
		Long: `edit writes the proposal content to a local file and watches it.
Every change is autosaved after a short pause in editing. Press Ctrl+C to stop;
pending changes are flushed. With --complete the proposal is marked COMPLETED on exit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var p *models.ProposalDetails
			err = a.withRefresh(cmd.Context(), func() error {
				var err error
				p, err = a.api.GetProposal(cmd.Context(), id)
				return err
			})
			if err != nil {
				return err
			}

			if file == "" {
				file = id.String() + ".md"
			}
			local, err := openDraft(file, p.Content)
			if err != nil {
				return err
			}

			delay := editor.DefaultDelay
			if a.cfg.AutosaveDelay != "" {
				if delay, err = time.ParseDuration(a.cfg.AutosaveDelay); err != nil {
					return fmt.Errorf("autosave_delay: %w", err)
				}
			}

			var session *editor.Session
			session = editor.NewSession(refreshingStore{a: a}, id, p.Content, p.Version, editor.Options{
				Delay: delay,
				OnSaved: func(res *models.WriteResult) {
					fmt.Fprintf(a.out, "saved (version %d)\n", res.Version)
				},
				OnConflict: func(current int64) {
					// Пользователь предупреждён; следующая запись идёт поверх серверной версии.
					fmt.Fprintf(a.out, "proposal was changed elsewhere (server version %d); your next edit will overwrite it\n", current)
					session.Rebase(current)
				},
				OnError: func(err error) {
					fmt.Fprintf(a.out, "autosave failed: %v\n", err)
				},
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if local != p.Content {
				fmt.Fprintf(a.out, "%s differs from the server copy; it will be autosaved\n", file)
				if err := session.Edit(local); err != nil {
					return err
				}
			}

			fmt.Fprintf(a.out, "Editing %s in %s. Ctrl+C to stop.\n", p.Title, file)
			watchErr := watchFile(ctx, file, func(content string) {
				if err := session.Edit(content); err != nil {
					fmt.Fprintf(a.out, "edit ignored: %v\n", err)
				}
			})

			if complete {
				saveCtx, cancel := context.WithTimeout(context.Background(), client.DefaultTimeout)
				defer cancel()
				res, err := session.Save(saveCtx)
				session.Close(false)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Marked COMPLETED (version %d)\n", res.Version)
				return watchErr
			}

			session.Close(true)
			return watchErr
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "local draft file (default <id>.md)")
	cmd.Flags().BoolVar(&complete, "complete", false, "mark the proposal COMPLETED when editing stops")
	return cmd
}
