package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/canvas"
	"github.com/aretw0/canvas/internal/presentation/tui"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/google/uuid"
)

// ChatEngine is what the interactive session drives.
type ChatEngine interface {
	Run(ctx context.Context, threadID string, in domain.Input) (*canvas.Turn, error)
	Thread(ctx context.Context, threadID string) (*domain.ConversationState, error)
	SelectRevision(ctx context.Context, threadID string, index int) (*domain.ConversationState, error)
}

// ChatOptions configures Chat.
type ChatOptions struct {
	ThreadID string
	In       io.Reader
	Out      io.Writer
	// Render turns markdown into terminal output. Nil prints markdown as is.
	Render func(string) (string, error)
	// WebSearch starts the session with search enabled.
	WebSearch bool
}

type cmdKind int

const (
	cmdMessage cmdKind = iota
	cmdQuit
	cmdHelp
	cmdNew
	cmdThread
	cmdShow
	cmdRevision
	cmdSearch
)

type command struct {
	kind   cmdKind
	input  domain.Input
	index  int
	search bool
}

var errUsage = errors.New("usage")

const chatHelp = `Commands:
  /theme <child|teenager|college|phd|pirate|shortest|short|long|longest|emoji|lang:<language>>
  /code <comments|logs|bugs|port:<language>>
  /edit <selected text> => <instruction>    rewrite the paragraph holding the selection
  /editcode <start>:<end> => <instruction>  rewrite a character range of the code
  /quick <id>                               apply a stored quick action
  /search on|off                            toggle web search for plain messages
  /rev <n>                                  point the artifact at revision n
  /show                                     print the current artifact
  /new                                      start a new thread
  /thread                                   print the thread id
  /quit
Anything else is sent as a message.`

// Chat runs an interactive session until the input ends, the user quits or
// ctx is cancelled.
func Chat(ctx context.Context, eng ChatEngine, opts ChatOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := opts.Out
	render := opts.Render
	if render == nil {
		render = func(md string) (string, error) { return md, nil }
	}
	threadID := opts.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}
	search := opts.WebSearch

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(opts.In)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	printSystemMessage(out, "Thread '%s' active. Type /help for commands.", threadID)
	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		var current *domain.Artifact
		if st, err := eng.Thread(ctx, threadID); err == nil {
			current = st.Artifact
		}
		cmd, err := parseCommand(line, current)
		if err != nil {
			printSystemMessage(out, "%v", err)
			continue
		}

		switch cmd.kind {
		case cmdQuit:
			return nil
		case cmdHelp:
			fmt.Fprintln(out, chatHelp)
		case cmdNew:
			threadID = uuid.NewString()
			printSystemMessage(out, "Thread '%s' active.", threadID)
		case cmdThread:
			printSystemMessage(out, "Thread '%s'.", threadID)
		case cmdSearch:
			search = cmd.search
			printSystemMessage(out, "Web search %s.", onOff(search))
		case cmdShow:
			showArtifact(out, render, current)
		case cmdRevision:
			st, err := eng.SelectRevision(ctx, threadID, cmd.index)
			if err != nil {
				printSystemMessage(out, "Error: %v", err)
				continue
			}
			showArtifact(out, render, st.Artifact)
		case cmdMessage:
			in := cmd.input
			if isPlain(in) {
				in.WebSearchEnabled = search
			}
			if err := chatTurn(ctx, eng, out, render, threadID, in); err != nil {
				if isInterrupted(err) {
					return err
				}
				printSystemMessage(out, "Error: %v", err)
			}
		}
	}
}

func chatTurn(ctx context.Context, eng ChatEngine, out io.Writer, render func(string) (string, error), threadID string, in domain.Input) error {
	before, err := eng.Thread(ctx, threadID)
	if err != nil && !errors.Is(err, domain.ErrThreadNotFound) {
		return err
	}
	turn, err := eng.Run(ctx, threadID, in)
	if err != nil {
		return err
	}

	var seen int
	var prev *domain.Artifact
	if before != nil {
		seen, prev = len(before.Messages), before.Artifact
	}
	for _, m := range turn.State.Messages[min(seen, len(turn.State.Messages)):] {
		if m.Role == domain.RoleAI {
			fmt.Fprintln(out, m.Content)
		}
	}
	if a := turn.State.Artifact; a.Len() != prev.Len() || (a != nil && prev != nil && a.CurrentIndex != prev.CurrentIndex) {
		showArtifact(out, render, a)
	}
	return nil
}

func showArtifact(out io.Writer, render func(string) (string, error), a *domain.Artifact) {
	if a.Len() == 0 {
		printSystemMessage(out, "No artifact yet.")
		return
	}
	printSystemMessage(out, "%s", tui.RevisionLine(a))
	text, err := render(tui.ArtifactMarkdown(a))
	if err != nil {
		text = tui.ArtifactMarkdown(a)
	}
	fmt.Fprintln(out, text)
}

func isPlain(in domain.Input) bool {
	return in.Theme == nil && in.CodeAction == nil && in.HighlightedText == nil &&
		in.HighlightedCode == nil && in.CustomQuickActionID == "" && in.Next == ""
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func parseCommand(line string, current *domain.Artifact) (command, error) {
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdMessage, input: domain.Input{Message: line}}, nil
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "exit", "q":
		return command{kind: cmdQuit}, nil
	case "help", "h":
		return command{kind: cmdHelp}, nil
	case "new":
		return command{kind: cmdNew}, nil
	case "thread":
		return command{kind: cmdThread}, nil
	case "show":
		return command{kind: cmdShow}, nil
	case "rev":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return command{}, fmt.Errorf("%w: /rev <n>", errUsage)
		}
		return command{kind: cmdRevision, index: n}, nil
	case "search":
		switch arg {
		case "on":
			return command{kind: cmdSearch, search: true}, nil
		case "off":
			return command{kind: cmdSearch}, nil
		}
		return command{}, fmt.Errorf("%w: /search on|off", errUsage)
	case "theme":
		theme, err := parseTheme(arg)
		if err != nil {
			return command{}, err
		}
		return command{kind: cmdMessage, input: domain.Input{Theme: theme}}, nil
	case "code":
		action, err := parseCodeAction(arg)
		if err != nil {
			return command{}, err
		}
		return command{kind: cmdMessage, input: domain.Input{CodeAction: action}}, nil
	case "quick":
		if arg == "" {
			return command{}, fmt.Errorf("%w: /quick <id>", errUsage)
		}
		return command{kind: cmdMessage, input: domain.Input{CustomQuickActionID: arg}}, nil
	case "edit":
		return parseEdit(arg, current)
	case "editcode":
		return parseEditCode(arg)
	}
	return command{}, fmt.Errorf("unknown command /%s, try /help", name)
}

func parseTheme(arg string) (*domain.ThemeSelector, error) {
	switch v := strings.ToLower(arg); v {
	case "child", "teenager", "college", "phd", "pirate":
		return &domain.ThemeSelector{ReadingLevel: domain.ReadingLevel(v)}, nil
	case "shortest", "short", "long", "longest":
		return &domain.ThemeSelector{ArtifactLength: domain.ArtifactLength(v)}, nil
	case "emoji", "emojis":
		return &domain.ThemeSelector{RegenerateWithEmojis: true}, nil
	}
	if lang, ok := strings.CutPrefix(arg, "lang:"); ok && strings.TrimSpace(lang) != "" {
		return &domain.ThemeSelector{Language: strings.TrimSpace(lang)}, nil
	}
	return nil, fmt.Errorf("%w: /theme <level|length|emoji|lang:<language>>", errUsage)
}

func parseCodeAction(arg string) (*domain.CodeActionSelector, error) {
	switch strings.ToLower(arg) {
	case "comments":
		return &domain.CodeActionSelector{AddComments: true}, nil
	case "logs":
		return &domain.CodeActionSelector{AddLogs: true}, nil
	case "bugs", "fix":
		return &domain.CodeActionSelector{FixBugs: true}, nil
	}
	if lang, ok := strings.CutPrefix(strings.ToLower(arg), "port:"); ok && lang != "" {
		return &domain.CodeActionSelector{PortLanguage: domain.ProgrammingLanguage(lang)}, nil
	}
	return nil, fmt.Errorf("%w: /code <comments|logs|bugs|port:<language>>", errUsage)
}

func splitInstruction(arg, usage string) (string, string, error) {
	target, instruction, ok := strings.Cut(arg, "=>")
	target, instruction = strings.TrimSpace(target), strings.TrimSpace(instruction)
	if !ok || target == "" || instruction == "" {
		return "", "", fmt.Errorf("%w: %s", errUsage, usage)
	}
	return target, instruction, nil
}

func parseEdit(arg string, current *domain.Artifact) (command, error) {
	selected, instruction, err := splitInstruction(arg, "/edit <selected text> => <instruction>")
	if err != nil {
		return command{}, err
	}
	c := current.Current()
	md, ok := c.(domain.MarkdownContent)
	if !ok {
		return command{}, errors.New("/edit needs a text artifact")
	}
	block := blockContaining(md.FullMarkdown, selected)
	if block == "" {
		return command{}, fmt.Errorf("%q not found in the current artifact", selected)
	}
	return command{kind: cmdMessage, input: domain.Input{
		Message: instruction,
		HighlightedText: &domain.HighlightedText{
			FullMarkdown:  md.FullMarkdown,
			MarkdownBlock: block,
			SelectedText:  selected,
		},
	}}, nil
}

// blockContaining returns the blank-line separated block holding sel.
func blockContaining(doc, sel string) string {
	for _, block := range strings.Split(doc, "\n\n") {
		if strings.Contains(block, sel) {
			return block
		}
	}
	return ""
}

func parseEditCode(arg string) (command, error) {
	const usage = "/editcode <start>:<end> => <instruction>"
	span, instruction, err := splitInstruction(arg, usage)
	if err != nil {
		return command{}, err
	}
	from, to, ok := strings.Cut(span, ":")
	start, err1 := strconv.Atoi(strings.TrimSpace(from))
	end, err2 := strconv.Atoi(strings.TrimSpace(to))
	if !ok || err1 != nil || err2 != nil || start < 0 || end < start {
		return command{}, fmt.Errorf("%w: %s", errUsage, usage)
	}
	return command{kind: cmdMessage, input: domain.Input{
		Message:         instruction,
		HighlightedCode: &domain.HighlightedCode{StartCharIndex: start, EndCharIndex: end},
	}}, nil
}
