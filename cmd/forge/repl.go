package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/duskline/forge/internal/agent"
	"github.com/duskline/forge/internal/conversation"
	"github.com/duskline/forge/internal/llm"
	"github.com/duskline/forge/internal/session"
)

// repl drives the interactive loop: read a line, dispatch a slash command
// or hand plain text to the agent, print the result, repeat.
type repl struct {
	agent        *agent.Agent
	conversation *conversation.Store
	sessions     *session.Store
	sessionID    string
	term         *terminal
	model        string
	workspaceDir string

	todos     []string
	planSteps []string
	autoAllow bool
}

func (r *repl) run(ctx context.Context) {
	r.term.printBanner(r.model, r.workspaceDir)

	for {
		r.term.printPrompt()
		line, err := r.term.readLine()
		if err != nil {
			if err == io.EOF {
				fmt.Println()
			}
			return
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == "exit" || trimmed == "quit" {
			return
		}
		if strings.HasPrefix(trimmed, "/") {
			if r.dispatchSlash(trimmed) {
				return
			}
			continue
		}

		r.recordAndRun(ctx, trimmed)
	}
}

// recordAndRun appends the user message to the persisted session, runs one
// agent turn, then persists the assistant's reply and any tool traffic.
func (r *repl) recordAndRun(ctx context.Context, userInput string) {
	before := len(r.conversation.Messages())
	r.sessions.Append(r.sessionID, llm.Message{Role: llm.RoleUser, Content: userInput})

	answer := r.agent.Run(ctx, userInput)
	r.term.printAssistantDone()
	if answer == "" {
		r.term.printWarning("no answer produced for this turn")
	}

	after := r.conversation.Messages()
	for _, m := range after[before+1:] {
		r.sessions.Append(r.sessionID, m)
	}
}

// dispatchSlash handles one REPL slash command. It returns true when the
// session should end.
func (r *repl) dispatchSlash(line string) bool {
	fields := strings.Fields(line)
	cmd := fields[0]
	rest := strings.TrimSpace(strings.TrimPrefix(line, cmd))

	switch cmd {
	case "/exit":
		return true
	case "/help":
		r.term.printHelp()
	case "/clear":
		r.conversation.Clear()
		r.sessionID = r.sessions.New()
		r.term.printInfo("conversation cleared")
	case "/compact":
		r.conversation.TruncateIfNeeded(r.agent.MaxContextTokens / 2)
		r.term.printInfo("conversation compacted")
	case "/sessions":
		r.printSessions()
	case "/model":
		r.setModel(rest)
	case "/init":
		r.term.printInfo(fmt.Sprintf("workspace: %s", r.workspaceDir))
	case "/todo":
		r.handleTodo(rest)
	case "/plan":
		r.handlePlan(rest)
	case "/approve":
		r.term.printInfo("no tool call is currently pending approval")
	case "/reject":
		r.term.printInfo("no tool call is currently pending approval")
	case "/auto-allow":
		r.handleAutoAllow(rest)
	case "/workflow":
		r.term.printInfo("workflows are not configured in this workspace")
	case "/skills":
		printWorkspaceSkills(r.workspaceDir, r.term)
	default:
		r.term.printWarning(fmt.Sprintf("unknown command %q, try /help", cmd))
	}
	return false
}

func (r *repl) printSessions() {
	metas, err := r.sessions.List()
	if err != nil {
		r.term.printError(err.Error())
		return
	}
	if len(metas) == 0 {
		r.term.printInfo("no sessions yet")
		return
	}
	for _, m := range metas {
		title := m.Title
		if title == "" {
			title = "(no user message yet)"
		}
		marker := "  "
		if m.ID == r.sessionID {
			marker = "* "
		}
		fmt.Printf("%s%s  %s\n", marker, m.ID, title)
	}
}

func (r *repl) setModel(name string) {
	if name == "" {
		r.term.printWarning("usage: /model <name>")
		return
	}
	r.model = name
	r.term.printInfo(fmt.Sprintf("display model set to %s (the running client keeps its configured model)", name))
}

func (r *repl) handleTodo(rest string) {
	if rest == "" {
		if len(r.todos) == 0 {
			r.term.printInfo("todo list is empty")
			return
		}
		for i, item := range r.todos {
			fmt.Printf("  %d. %s\n", i+1, item)
		}
		return
	}
	r.todos = append(r.todos, rest)
	r.term.printInfo("added to todo list")
}

func (r *repl) handlePlan(rest string) {
	if rest == "" {
		if len(r.planSteps) == 0 {
			r.term.printInfo("no plan steps yet")
			return
		}
		for i, step := range r.planSteps {
			fmt.Printf("  %d. %s\n", i+1, step)
		}
		return
	}
	r.planSteps = append(r.planSteps, rest)
	r.term.printInfo("added to plan")
}

func (r *repl) handleAutoAllow(rest string) {
	switch rest {
	case "on":
		r.autoAllow = true
	case "off":
		r.autoAllow = false
	case "":
		// report current state
	default:
		r.term.printWarning("usage: /auto-allow [on|off]")
		return
	}
	state := "off"
	if r.autoAllow {
		state = "on"
	}
	r.term.printInfo(fmt.Sprintf("auto-allow is %s", state))
}
