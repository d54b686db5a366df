// Command forge is a terminal coding agent: a REPL that streams model
// completions and dispatches the tool calls they request through a guard
// and permission layer, against the current workspace.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/duskline/forge/internal/agent"
	"github.com/duskline/forge/internal/config"
	"github.com/duskline/forge/internal/conversation"
	"github.com/duskline/forge/internal/guard"
	"github.com/duskline/forge/internal/interrupt"
	"github.com/duskline/forge/internal/llm/openai"
	"github.com/duskline/forge/internal/mcp"
	"github.com/duskline/forge/internal/permission"
	"github.com/duskline/forge/internal/session"
	"github.com/duskline/forge/internal/tool"
	"github.com/duskline/forge/internal/tool/builtin"
)

const systemPrompt = `You are forge, a terminal coding agent. You have tools to read, write, ` +
	`and edit files, run shell commands, inspect git state, run tests/lint/typecheck, and search ` +
	`the workspace. Use the smallest set of tool calls needed, and never touch files outside the ` +
	`workspace root.`

// cliFlags holds the CLI-flag overrides spec.md's EXTERNAL INTERFACES section
// names; zero values mean "not set on the command line".
type cliFlags struct {
	model           string
	apiBase         string
	temperature     float64
	maxOutputTokens int
	topP            float64
	resume          bool
	sessionID       string
	ollama          string
	configPath      string
}

func main() {
	config.LoadEnv()

	flags := &cliFlags{}
	root := &cobra.Command{
		Use:           "forge",
		Short:         "A terminal coding agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(flags)
		},
	}
	registerFlags(root, flags)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive agent REPL (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(flags)
		},
	}
	registerFlags(runCmd, flags)

	skillsCmd := &cobra.Command{
		Use:   "skills",
		Short: "List the skills available in the current workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSkills()
		},
	}

	root.AddCommand(runCmd, skillsCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func registerFlags(cmd *cobra.Command, f *cliFlags) {
	cmd.Flags().StringVar(&f.model, "model", "", "model name, overrides the config file")
	cmd.Flags().StringVar(&f.apiBase, "api-base", "", "OpenAI-compatible endpoint, overrides the config file")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "sampling temperature")
	cmd.Flags().IntVar(&f.maxOutputTokens, "max-output-tokens", 0, "cap on generated tokens per turn")
	cmd.Flags().Float64Var(&f.topP, "top-p", 0, "nucleus sampling parameter")
	cmd.Flags().BoolVar(&f.resume, "resume", false, "resume the most recent session, or --session if given")
	cmd.Flags().StringVar(&f.sessionID, "session", "", "resume a specific session by id")
	cmd.Flags().StringVar(&f.ollama, "ollama", "", "use a local Ollama model by name")
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to the YAML config file")
}

// runAgent wires config, the LLM client, the tool registry, the guard and
// permission layers, and the session store, then drops into the REPL.
// Exit codes: 0 normal, 1 config or connectivity failure.
func runAgent(flags *cliFlags) error {
	workspaceDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve workspace directory: %w", err)
	}

	cfg, err := loadEffectiveConfig(flags)
	if err != nil {
		return err
	}

	providerCfg := openai.Config{
		Model:           cfg.Model,
		APIBase:         cfg.APIBase,
		APIKey:          cfg.APIKey,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
	if cfg.Temperature != nil {
		providerCfg.Temperature = *cfg.Temperature
	}
	if cfg.TopP != nil {
		providerCfg.TopP = *cfg.TopP
	}
	provider, err := openai.NewClient(providerCfg)
	if err != nil {
		return fmt.Errorf("initialize model client: %w", err)
	}
	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), 10*time.Second)
	err = provider.VerifyConnection(verifyCtx)
	cancelVerify()
	if err != nil {
		return fmt.Errorf("verify model connection: %w", err)
	}

	registry := buildRegistry(workspaceDir)

	auditPath := filepath.Join(workspaceDir, ".forge", "audit.jsonl")
	if err := os.MkdirAll(filepath.Dir(auditPath), 0o755); err != nil {
		log.Printf("[forge] could not create audit log directory: %v", err)
		auditPath = ""
	}
	g := guard.New(workspaceDir, guard.Policy{}, auditPath)

	interrupts := interrupt.New()
	interrupts.SetupSignalHandler()
	if stop, err := interrupts.StartKeyboardListener(); err == nil {
		defer stop()
	}

	term := newTerminal()
	perms := permission.New(term)

	mcpMgr, mcpErr := connectMCP(workspaceDir, registry)
	if mcpErr != nil {
		log.Printf("[forge] MCP: %v", mcpErr)
	}
	if mcpMgr != nil {
		defer mcpMgr.CloseAll()
	}

	sessionsDir := filepath.Join(workspaceDir, ".forge", "sessions")
	sessionStore, err := session.NewStore(sessionsDir)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	conv := conversation.New(systemPrompt)
	sessionID := sessionStore.New()
	if flags.resume {
		resumeID := flags.sessionID
		if resumeID == "" {
			metas, err := sessionStore.List()
			if err != nil || len(metas) == 0 {
				term.printWarning("no previous session to resume")
			} else {
				resumeID = metas[0].ID
			}
		}
		if resumeID != "" {
			history, err := sessionStore.Load(resumeID)
			if err != nil {
				term.printWarning(fmt.Sprintf("could not resume session %s: %v", resumeID, err))
			} else {
				sessionID = resumeID
				session.ReplayInto(conv, history)
			}
		}
	}

	ag := &agent.Agent{
		Conversation:     conv,
		Registry:         registry,
		Guard:            g,
		Permissions:      perms,
		Interrupts:       interrupts,
		Provider:         provider,
		WorkspaceDir:     workspaceDir,
		MaxContextTokens: cfg.MaxContextTokens,
		OnChunk:          func(chunk string) { term.printAssistantChunk(chunk) },
	}

	r := &repl{
		agent:        ag,
		conversation: conv,
		sessions:     sessionStore,
		sessionID:    sessionID,
		term:         term,
		model:        cfg.Model,
		workspaceDir: workspaceDir,
	}
	r.run(context.Background())
	return nil
}

func loadEffectiveConfig(flags *cliFlags) (*config.Config, error) {
	path := flags.configPath
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".forge", "config.yaml")
		}
	}

	var cfg config.Config
	if path != "" {
		if loaded, err := config.Load(path); err == nil {
			cfg = *loaded
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[forge] config %s: %v", path, err)
		}
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("FORGE_API_KEY")
	}

	overrides := config.Overrides{
		Model:           flags.model,
		APIBase:         flags.apiBase,
		MaxOutputTokens: flags.maxOutputTokens,
		Ollama:          flags.ollama,
	}
	if flags.temperature != 0 {
		t := float32(flags.temperature)
		overrides.Temperature = &t
	}
	if flags.topP != 0 {
		p := float32(flags.topP)
		overrides.TopP = &p
	}

	out, err := cfg.ApplyOverrides(overrides)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &out, nil
}

func buildRegistry(workspaceDir string) *tool.Registry {
	registry := tool.NewRegistry()

	shellEnabled := os.Getenv("FORGE_SHELL_ENABLED") != "false"
	registry.Register(builtin.NewShellTool(workspaceDir, shellEnabled))
	registry.Register(builtin.NewSafeShellTool(workspaceDir))

	registry.Register(builtin.NewFileReadTool(workspaceDir))
	registry.Register(builtin.NewFileWriteTool(workspaceDir))
	registry.Register(builtin.NewFileEditTool(workspaceDir))
	registry.Register(builtin.NewFilePatchTool(workspaceDir))
	registry.Register(builtin.NewFileListTool(workspaceDir))
	registry.Register(builtin.NewFileMoveTool(workspaceDir))
	registry.Register(builtin.NewFileDeleteTool(workspaceDir))

	registry.Register(builtin.NewGlobTool(workspaceDir))
	registry.Register(builtin.NewGrepTool(workspaceDir))

	registry.Register(builtin.NewGitStatusTool(workspaceDir))
	registry.Register(builtin.NewGitDiffTool(workspaceDir))
	registry.Register(builtin.NewGitCommitTool(workspaceDir))

	registry.Register(builtin.NewRunTestsTool(workspaceDir))
	registry.Register(builtin.NewRunLintTool(workspaceDir))
	registry.Register(builtin.NewTypecheckTool(workspaceDir))

	registry.Register(builtin.NewWorkspaceInfoTool(workspaceDir))
	registry.Register(builtin.NewSymbolsIndexTool(workspaceDir))
	registry.Register(builtin.NewDependenciesReadTool(workspaceDir))

	state := builtin.NewSessionState()
	registry.Register(builtin.NewStateSetTool(state))
	registry.Register(builtin.NewStateGetTool(state))

	return registry
}

// connectMCP wires MCP servers when <workspace>/mcp.json exists; a missing
// file is not an error, just nothing to do.
func connectMCP(workspaceDir string, registry *tool.Registry) (*mcp.Manager, error) {
	mcpConfigPath := os.Getenv("FORGE_MCP_CONFIG")
	if mcpConfigPath == "" {
		mcpConfigPath = filepath.Join(workspaceDir, "mcp.json")
	}
	if _, err := os.Stat(mcpConfigPath); err != nil {
		return nil, nil
	}

	mgr := mcp.NewManager(mcpConfigPath)
	registry.Register(mcp.NewReloadTool(mgr, registry))

	n, errs := mgr.ConnectAll(context.Background())
	for _, e := range errs {
		log.Printf("[forge] MCP connect: %v", e)
	}
	if n > 0 {
		if err := mgr.RegisterTools(context.Background(), registry); err != nil {
			return mgr, fmt.Errorf("register MCP tools: %w", err)
		}
	}
	return mgr, nil
}
