package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"paper-summarizer/internal/app"
	"paper-summarizer/internal/auth"
	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/service/chat"
	"paper-summarizer/internal/service/history"
	"paper-summarizer/internal/service/paperapi"
	"paper-summarizer/internal/service/submission"
	"paper-summarizer/internal/state"
	"paper-summarizer/pkg/validation"

	"github.com/fatih/color"
)

// ErrUsage is returned for malformed command lines
var ErrUsage = errors.New("usage error")

// docxContentType is not in every system mime table
const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type command struct {
	usage string
	run   func(h *Handlers, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"signup":          {"signup -name NAME -email EMAIL [-password PASSWORD]", (*Handlers).SignUp},
		"signin":          {"signin -email EMAIL [-password PASSWORD]", (*Handlers).SignIn},
		"signout":         {"signout", (*Handlers).SignOut},
		"reset-password":  {"reset-password -email EMAIL", (*Handlers).ResetPassword},
		"update-password": {"update-password [-password PASSWORD -confirm PASSWORD]", (*Handlers).UpdatePassword},
		"whoami":          {"whoami", (*Handlers).WhoAmI},
		"submit":          {"submit (-file PATH | -text TEXT | -text -)", (*Handlers).Submit},
		"history":         {"history", (*Handlers).History},
		"show":            {"show DOCUMENT_ID", (*Handlers).Show},
		"ask":             {"ask DOCUMENT_ID QUESTION...", (*Handlers).Ask},
		"chat":            {"chat DOCUMENT_ID", (*Handlers).Chat},
		"delete":          {"delete DOCUMENT_ID", (*Handlers).Delete},
	}
}

// Handlers maps CLI commands onto the service layer
type Handlers struct {
	config            *app.Config
	authValidator     *validation.AuthRequestValidator
	chatValidator     *validation.ChatRequestValidator
	submissionService *submission.SubmissionService
	historyService    *history.HistoryService
	chatManager       *chat.Manager

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	color  bool

	notifyWG sync.WaitGroup
}

// NewHandlers creates the handlers and starts printing notifications to errOut
func NewHandlers(config *app.Config, in io.Reader, out, errOut io.Writer) *Handlers {
	historyService := history.NewHistoryService(config.DB, config.Storage, config.AppConfig.History.TTL)

	h := &Handlers{
		config:         config,
		authValidator:  validation.NewAuthRequestValidator(),
		chatValidator:  validation.NewChatRequestValidator(),
		historyService: historyService,
		submissionService: submission.NewSubmissionService(
			config.DB, config.Storage, config.API, historyService, config.Store, config.AppConfig,
		),
		chatManager: chat.NewManager(config.API, config.AppConfig.API.RequestTimeout),
		in:          bufio.NewReader(in),
		out:         out,
		errOut:      errOut,
		color:       !color.NoColor,
	}

	events, _ := config.Store.Subscribe(16)
	h.notifyWG.Add(1)
	go h.printNotifications(events)
	return h
}

// Close stops the notification printer once pending notifications are written
func (h *Handlers) Close() {
	h.config.Store.Close()
	h.notifyWG.Wait()
}

// Run dispatches args[0] to its command
func (h *Handlers) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		h.Usage()
		return ErrUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(h.errOut, "unknown command %q\n", args[0])
		h.Usage()
		return ErrUsage
	}

	logger.Log.WithField("command", args[0]).Debug("Running command")
	return cmd.run(h, ctx, args[1:])
}

// Usage lists the commands
func (h *Handlers) Usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(h.errOut, "Commands:")
	for _, name := range names {
		fmt.Fprintf(h.errOut, "  %s\n", commands[name].usage)
	}
}

// SignUp creates an account
func (h *Handlers) SignUp(ctx context.Context, args []string) error {
	fs := h.flagSet("signup")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "e-mail address")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	if *password == "" {
		*password = h.prompt("Password: ")
	}
	if err := h.authValidator.ValidateSignUpRequest(*name, *email, *password); err != nil {
		return err
	}

	result, err := h.config.Auth.SignUp(ctx, strings.TrimSpace(*name), *email, *password)
	if err != nil {
		return err
	}

	if result.Session == nil {
		fmt.Fprintln(h.out, "Account created. Check your e-mail to confirm it, then sign in.")
		return nil
	}
	fmt.Fprintf(h.out, "Signed up and signed in as %s\n", result.Session.User.Email)
	return nil
}

// SignIn authenticates with e-mail and password
func (h *Handlers) SignIn(ctx context.Context, args []string) error {
	fs := h.flagSet("signin")
	email := fs.String("email", "", "e-mail address")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	if *password == "" {
		*password = h.prompt("Password: ")
	}
	if err := h.authValidator.ValidateSignInRequest(*email, *password); err != nil {
		return err
	}

	session, err := h.config.Auth.SignIn(ctx, *email, *password)
	if err != nil {
		return err
	}

	fmt.Fprintf(h.out, "Signed in as %s [%s]\n", displayName(session.User), session.User.Avatar())
	return nil
}

// SignOut ends the session
func (h *Handlers) SignOut(ctx context.Context, args []string) error {
	if err := h.config.Auth.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(h.out, "Signed out")
	return nil
}

// ResetPassword sends a password reset e-mail
func (h *Handlers) ResetPassword(ctx context.Context, args []string) error {
	fs := h.flagSet("reset-password")
	email := fs.String("email", "", "e-mail address")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if err := h.authValidator.ValidateEmail(*email); err != nil {
		return err
	}

	if err := h.config.Auth.ResetPassword(ctx, *email); err != nil {
		return err
	}
	fmt.Fprintln(h.out, "Password reset link sent. Check your e-mail.")
	return nil
}

// UpdatePassword changes the password of the signed-in user
func (h *Handlers) UpdatePassword(ctx context.Context, args []string) error {
	fs := h.flagSet("update-password")
	password := fs.String("password", "", "new password (prompted when omitted)")
	confirm := fs.String("confirm", "", "new password again (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	if *password == "" {
		*password = h.prompt("New password: ")
		*confirm = h.prompt("Confirm password: ")
	}
	if err := h.authValidator.ValidatePasswordUpdate(*password, *confirm); err != nil {
		return err
	}

	if err := h.config.Auth.UpdatePassword(ctx, *password); err != nil {
		return err
	}
	fmt.Fprintln(h.out, "Password updated")
	return nil
}

// WhoAmI prints the signed-in user as confirmed by the auth service
func (h *Handlers) WhoAmI(ctx context.Context, args []string) error {
	user, err := h.config.Auth.VerifiedUser(ctx)
	if errors.Is(err, auth.ErrNotSignedIn) {
		return fmt.Errorf("%w: run `signin` first", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(h.out, "[%s] %s <%s>\n", user.Avatar(), displayName(*user), user.Email)
	return nil
}

// Submit summarizes a file or pasted text
func (h *Handlers) Submit(ctx context.Context, args []string) error {
	fs := h.flagSet("submit")
	filePath := fs.String("file", "", "path to a .pdf or .docx paper")
	text := fs.String("text", "", `paper text, or "-" to read it from stdin`)
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	var in submission.Input
	if *filePath != "" {
		data, err := os.ReadFile(*filePath)
		if err != nil {
			return fmt.Errorf("error reading file: %w", err)
		}
		name := filepath.Base(*filePath)
		in.File = &paperapi.File{Name: name, ContentType: contentTypeFor(name), Data: data}
	}
	in.Text = *text
	if in.Text == "-" {
		data, err := io.ReadAll(h.in)
		if err != nil {
			return fmt.Errorf("error reading stdin: %w", err)
		}
		in.Text = string(data)
	}

	// A missing session is reported by the submission itself
	var userID string
	user, err := h.config.Auth.CurrentUser(ctx)
	switch {
	case err == nil:
		userID = user.ID
	case !errors.Is(err, auth.ErrNotSignedIn):
		return err
	}

	result, err := h.submissionService.Submit(ctx, in, userID)
	if result != nil {
		h.renderCurrentResult(result.UploadDate)
	}
	return err
}

// History lists the user's submissions, newest first
func (h *Handlers) History(ctx context.Context, args []string) error {
	user, err := h.requireUser(ctx)
	if err != nil {
		return err
	}

	items, err := h.historyService.Refresh(ctx, user.ID)
	if err != nil {
		return err
	}
	h.renderHistory(items)
	return nil
}

// Show opens a document from the history
func (h *Handlers) Show(ctx context.Context, args []string) error {
	documentID, _, err := h.documentArgs("show", args, false)
	if err != nil {
		return err
	}
	user, err := h.requireUser(ctx)
	if err != nil {
		return err
	}

	if _, err := h.historyService.Refresh(ctx, user.ID); err != nil {
		return err
	}
	item, ok := h.historyService.Select(user.ID, documentID)
	if !ok {
		return fmt.Errorf("document %s not found in your history", documentID)
	}

	h.config.Store.SelectHistoryItem(item.Result())
	h.renderCurrentResult(history.UploadDate(item.Document.CreatedAt))
	return nil
}

// Ask sends one question about a document
func (h *Handlers) Ask(ctx context.Context, args []string) error {
	documentID, question, err := h.documentArgs("ask", args, true)
	if err != nil {
		return err
	}
	if err := h.chatValidator.ValidateAskRequest(documentID, question); err != nil {
		return err
	}
	user, err := h.requireUser(ctx)
	if err != nil {
		return err
	}

	msg, err := h.chatManager.Session(user.ID, documentID).Ask(ctx, question)
	if err != nil {
		return err
	}
	if msg != nil {
		fmt.Fprintln(h.out, msg.State.Answer)
	}
	return nil
}

// Chat runs an interactive conversation about a document until EOF or /quit
func (h *Handlers) Chat(ctx context.Context, args []string) error {
	documentID, _, err := h.documentArgs("chat", args, false)
	if err != nil {
		return err
	}
	user, err := h.requireUser(ctx)
	if err != nil {
		return err
	}

	session := h.chatManager.Session(user.ID, documentID)
	if err := session.LoadHistory(ctx); err != nil {
		fmt.Fprintln(h.errOut, h.paint(paletteFor(h.theme()).err, err.Error()))
	}
	for _, msg := range session.Messages() {
		h.renderMessage(msg)
	}
	fmt.Fprintln(h.out, h.paint(paletteFor(h.theme()).muted, "Ask anything about this paper. /quit to leave."))

	for {
		fmt.Fprint(h.out, "> ")
		line, readErr := h.in.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "/quit" || strings.TrimSpace(line) == "/exit" {
			return nil
		}

		session.SetDraft(line)
		results := session.AskAsync(ctx, session.Draft())
		if session.Pending() {
			fmt.Fprintln(h.out, h.paint(paletteFor(h.theme()).muted, "Assistant is typing..."))
		}
		if res, ok := <-results; ok {
			if res.Err != nil {
				fmt.Fprintln(h.errOut, h.paint(paletteFor(h.theme()).err, "Error: "+res.Err.Error()))
			} else {
				h.renderAnswer(res.Message)
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return readErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Delete removes a document with its summary and chat history
func (h *Handlers) Delete(ctx context.Context, args []string) error {
	documentID, _, err := h.documentArgs("delete", args, false)
	if err != nil {
		return err
	}
	user, err := h.requireUser(ctx)
	if err != nil {
		return err
	}

	if err := h.historyService.Delete(ctx, user.ID, documentID); err != nil {
		return err
	}
	h.chatManager.Forget(documentID)
	if h.config.Store.Snapshot().SelectedDocumentID == documentID {
		h.config.Store.ClearResult()
	}
	fmt.Fprintf(h.out, "Deleted %s\n", documentID)
	return nil
}

func (h *Handlers) requireUser(ctx context.Context) (*auth.User, error) {
	user, err := h.config.Auth.CurrentUser(ctx)
	if errors.Is(err, auth.ErrNotSignedIn) {
		return nil, fmt.Errorf("%w: run `signin` first", err)
	}
	return user, err
}

// documentArgs reads DOCUMENT_ID and, when withText is set, the rest of the line
func (h *Handlers) documentArgs(name string, args []string, withText bool) (string, string, error) {
	if len(args) == 0 || (!withText && len(args) != 1) {
		fmt.Fprintf(h.errOut, "usage: %s\n", commands[name].usage)
		return "", "", ErrUsage
	}
	return args[0], strings.Join(args[1:], " "), nil
}

func (h *Handlers) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(h.errOut)
	fs.Usage = func() {
		fmt.Fprintf(h.errOut, "usage: %s\n", commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

func (h *Handlers) prompt(label string) string {
	fmt.Fprint(h.errOut, label)
	line, _ := h.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func (h *Handlers) printNotifications(events <-chan state.Event) {
	defer h.notifyWG.Done()
	for ev := range events {
		if ev.Type != state.EventNotification || ev.Notification == nil {
			continue
		}
		h.renderNotification(*ev.Notification, ev.Snapshot.Theme)
	}
}

func (h *Handlers) theme() state.Theme {
	return h.config.Store.Snapshot().Theme
}

func displayName(u auth.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func contentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".docx" {
		return docxContentType
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
