package main

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/atinyakov/JobTracker/internal/client/api"
	"github.com/atinyakov/JobTracker/internal/client/board"
	"github.com/atinyakov/JobTracker/internal/client/storage"
	"github.com/atinyakov/JobTracker/internal/logger"
	"github.com/atinyakov/JobTracker/internal/models"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const defaultServer = "http://localhost:5001"

var errNotLoggedIn = errors.New("not logged in, run `jobtracker login` first")

// env bundles what every command needs.
type env struct {
	session *storage.Session
	client  *api.Client
	log     *zap.Logger
}

func setup(cmd *cli.Command) (*env, error) {
	path := cmd.String("session")
	if path == "" {
		p, err := storage.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("locate session file: %w", err)
		}
		path = p
	}
	sess, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	sess.BaseURL = cmp.Or(cmd.String("server"), sess.BaseURL, defaultServer)

	hc, err := api.NewHTTPClient(cmd.String("ca"))
	if err != nil {
		return nil, err
	}
	c := api.New(sess.BaseURL, hc)
	c.SetToken(sess.Token)

	l := logger.New()
	if err := l.Init(cmd.String("log-level")); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &env{session: sess, client: c, log: l.Log}, nil
}

func setupLoggedIn(cmd *cli.Command) (*env, error) {
	e, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	if !e.session.LoggedIn() {
		return nil, errNotLoggedIn
	}
	return e, nil
}

// manager loads a board for the session user.
func (e *env) manager(ctx context.Context, w io.Writer) (*board.Manager, error) {
	m := board.NewManager(e.client, e.session.UserID,
		board.WithLogger(e.log),
		board.WithNotifier(func(ev board.Event) { printEvent(w, ev) }),
	)
	if err := m.Load(ctx); err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return m, nil
}

func printEvent(w io.Writer, ev board.Event) {
	switch ev.Kind {
	case board.EventConfirmed:
		fmt.Fprintf(w, "#%d saved in %s\n", ev.Move.RecordID, ev.Move.To)
	case board.EventRolledBack:
		fmt.Fprintf(w, "#%d could not be moved (%v), board reloaded\n", ev.Move.RecordID, ev.Err)
		if ev.ReloadErr != nil {
			fmt.Fprintf(w, "reload failed (%v), showing last saved board\n", ev.ReloadErr)
		}
	case board.EventAbandoned:
		fmt.Fprintf(w, "#%d move dropped after an earlier failure\n", ev.Move.RecordID)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad application id %q", models.ErrValidation, s)
	}
	return id, nil
}

// buildMove resolves "<id> <status> [index]" against the current board.
func buildMove(g board.Grouping, args []string) (board.Move, error) {
	if len(args) < 2 {
		return board.Move{}, fmt.Errorf("%w: usage: move <id> <status> [index]", models.ErrValidation)
	}
	id, err := parseID(args[0])
	if err != nil {
		return board.Move{}, err
	}
	to, err := models.ParseStatus(args[1])
	if err != nil {
		return board.Move{}, err
	}
	from, fromIndex, ok := g.Find(id)
	if !ok {
		return board.Move{}, fmt.Errorf("%w: application #%d is not on the board", models.ErrNotFound, id)
	}
	toIndex := 0
	if len(args) > 2 {
		if toIndex, err = strconv.Atoi(args[2]); err != nil || toIndex < 0 {
			return board.Move{}, fmt.Errorf("%w: bad index %q", models.ErrValidation, args[2])
		}
	}
	return board.Move{RecordID: id, From: from, FromIndex: fromIndex, To: to, ToIndex: toIndex}, nil
}

func findApplication(g board.Grouping, id int64) (models.Application, bool) {
	s, i, ok := g.Find(id)
	if !ok {
		return models.Application{}, false
	}
	return g.Column(s)[i], true
}

func registerAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 3 {
		return fmt.Errorf("usage: register <username> <email> <password>")
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	u, err := e.client.Register(ctx, cmd.Args().Get(0), cmd.Args().Get(1), cmd.Args().Get(2))
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s (id %d)\n", u.Username, u.ID)
	return e.session.Save()
}

func loginAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: login <email> <password>")
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	res, err := e.client.Login(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
	if err != nil {
		return err
	}
	e.session.Set(res.Token, res.User.ID, res.User.Username)
	if err := e.session.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Printf("Logged in as %s\n", res.User.Username)
	return nil
}

func logoutAction(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	e.session.Clear()
	return e.session.Save()
}

func boardAction(ctx context.Context, cmd *cli.Command) error {
	e, err := setupLoggedIn(cmd)
	if err != nil {
		return err
	}
	m, err := e.manager(ctx, os.Stdout)
	if err != nil {
		return err
	}
	renderBoard(os.Stdout, m.Snapshot())
	return nil
}

func moveAction(ctx context.Context, cmd *cli.Command) error {
	e, err := setupLoggedIn(cmd)
	if err != nil {
		return err
	}
	m, err := e.manager(ctx, os.Stdout)
	if err != nil {
		return err
	}
	if err := move(ctx, m, cmd.Args().Slice()); err != nil {
		return err
	}
	renderBoard(os.Stdout, m.Snapshot())
	return nil
}

// move applies the move and waits until the server answered.
func move(ctx context.Context, m *board.Manager, args []string) error {
	mv, err := buildMove(m.Snapshot(), args)
	if err != nil {
		return err
	}
	p, err := m.MoveCard(ctx, mv)
	if err != nil {
		return err
	}
	return p.Wait(ctx)
}

func addAction(ctx context.Context, cmd *cli.Command) error {
	e, err := setupLoggedIn(cmd)
	if err != nil {
		return err
	}
	return add(ctx, e, os.Stdin, os.Stdout)
}

func add(ctx context.Context, e *env, r io.Reader, w io.Writer) error {
	n, err := storage.PromptForApplication(r, w)
	if err != nil {
		return err
	}
	a, err := e.client.Create(ctx, n)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Created %s\n", card(*a))
	return nil
}

func deleteAction(ctx context.Context, cmd *cli.Command) error {
	e, err := setupLoggedIn(cmd)
	if err != nil {
		return err
	}
	id, err := parseID(cmd.Args().First())
	if err != nil {
		return err
	}
	if err := e.client.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted #%d\n", id)
	return nil
}

func statsAction(ctx context.Context, cmd *cli.Command) error {
	e, err := setupLoggedIn(cmd)
	if err != nil {
		return err
	}
	s, err := e.client.Stats(ctx)
	if err != nil {
		return err
	}
	renderStats(os.Stdout, s)
	return nil
}

func letterAction(ctx context.Context, cmd *cli.Command) error {
	e, err := setupLoggedIn(cmd)
	if err != nil {
		return err
	}
	m, err := e.manager(ctx, os.Stdout)
	if err != nil {
		return err
	}
	return letter(ctx, e, m.Snapshot(), cmd.Args().First(), os.Stdout)
}

func letter(ctx context.Context, e *env, g board.Grouping, rawID string, w io.Writer) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	a, ok := findApplication(g, id)
	if !ok {
		return fmt.Errorf("%w: application #%d is not on the board", models.ErrNotFound, id)
	}
	text, err := e.client.GenerateCoverLetter(ctx, models.CoverLetterRequest{
		Company:     a.Company,
		Position:    a.Position,
		Description: a.Description,
		UserName:    e.session.Username,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(w, text)
	return nil
}

func shellAction(ctx context.Context, cmd *cli.Command) error {
	e, err := setupLoggedIn(cmd)
	if err != nil {
		return err
	}
	m, err := e.manager(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer m.Wait()
	if interval := cmd.Duration("refresh"); interval > 0 {
		m.StartAutoRefresh(ctx, interval)
	}
	return repl(ctx, e, m, os.Stdin, os.Stdout)
}

// repl runs the interactive loop until "exit", EOF or ctx is done.
func repl(ctx context.Context, e *env, m *board.Manager, r io.Reader, w io.Writer) error {
	in := bufio.NewReader(r)
	renderBoard(w, m.Snapshot())

	for ctx.Err() == nil {
		fmt.Fprint(w, "jobtracker> ")
		line, err := in.ReadString('\n')
		args := strings.Fields(line)
		if len(args) == 0 {
			if err != nil {
				return nil
			}
			continue
		}

		var cmdErr error
		switch args[0] {
		case "help":
			fmt.Fprintln(w, "Available commands: help, board, reload, move <id> <status> [index], add, delete <id>, stats, letter <id>, exit")
		case "board":
			renderBoard(w, m.Snapshot())
		case "reload":
			if cmdErr = m.Load(ctx); cmdErr == nil {
				renderBoard(w, m.Snapshot())
			}
		case "move":
			if cmdErr = move(ctx, m, args[1:]); !errors.Is(cmdErr, models.ErrValidation) {
				renderBoard(w, m.Snapshot())
			}
		case "add":
			if cmdErr = add(ctx, e, in, w); cmdErr == nil {
				cmdErr = m.Load(ctx)
			}
		case "delete":
			var id int64
			if len(args) < 2 {
				cmdErr = fmt.Errorf("usage: delete <id>")
			} else if id, cmdErr = parseID(args[1]); cmdErr == nil {
				if cmdErr = e.client.Delete(ctx, id); cmdErr == nil {
					fmt.Fprintf(w, "Deleted #%d\n", id)
					cmdErr = m.Load(ctx)
				}
			}
		case "stats":
			var s *models.Stats
			if s, cmdErr = e.client.Stats(ctx); cmdErr == nil {
				renderStats(w, s)
			}
		case "letter":
			if len(args) < 2 {
				cmdErr = fmt.Errorf("usage: letter <id>")
			} else {
				cmdErr = letter(ctx, e, m.Snapshot(), args[1], w)
			}
		case "exit":
			fmt.Fprintln(w, "Bye")
			return nil
		default:
			fmt.Fprintln(w, "Unknown command. Type 'help' for a list of commands.")
		}
		if cmdErr != nil {
			fmt.Fprintln(w, "error:", cmdErr)
		}
		if err != nil {
			return nil
		}
	}
	return nil
}
