// Command agentctl drives a single workflow from the terminal: it reads
// chat lines from stdin, dispatches "/"-prefixed lines as Command Parser
// (C10) verbs, and otherwise feeds the line to the workflow's head agent
// through the Orchestrator (C9), printing the resulting stream. Grounded on
// original_source/crates/forge_main/src/ui.rs's UI::init/loop shape:
// environment resolution first, then provider/config construction, then a
// read-parse-dispatch loop over stdin.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/flowctl/agentruntime/command"
	"github.com/flowctl/agentruntime/orchestrator"
	"github.com/flowctl/agentruntime/provider"
	"github.com/flowctl/agentruntime/provider/anthropic"
	"github.com/flowctl/agentruntime/provider/bedrock"
	"github.com/flowctl/agentruntime/provider/openai"
	"github.com/flowctl/agentruntime/provider/ratelimit"
	"github.com/flowctl/agentruntime/runner"
	"github.com/flowctl/agentruntime/store"
	"github.com/flowctl/agentruntime/store/inmem"
	"github.com/flowctl/agentruntime/telemetry"
	"github.com/flowctl/agentruntime/tools"
	"github.com/flowctl/agentruntime/variables"
	"github.com/flowctl/agentruntime/walker"
	"github.com/flowctl/agentruntime/workflow"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "agentctl:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		workflowPath = flag.String("workflow", "", "path to the workflow YAML file")
		backendName  = flag.String("provider", "anthropic", "provider backend: anthropic, openai, or bedrock")
		inputKey     = flag.String("input-key", "message", "variable name a chat line is bound to before running the head agent")
		initialTPM   = flag.Float64("rate-initial-tpm", 60000, "initial tokens-per-minute budget for the adaptive rate limiter")
		maxTPM       = flag.Float64("rate-max-tpm", 240000, "ceiling tokens-per-minute budget for the adaptive rate limiter")
		debug        = flag.Bool("debug", false, "enable verbose logging")
	)
	flag.Parse()

	if *workflowPath == "" {
		return fmt.Errorf("-workflow is required")
	}

	logger := telemetry.NewNoopLogger()
	if *debug {
		logger = telemetry.NewClueLogger()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	env := provider.NewEnvironment()
	fsWalker := walker.New(cwd)

	wf, err := workflow.LoadFile(*workflowPath)
	if err != nil {
		return fmt.Errorf("load workflow: %w", err)
	}

	prov, err := buildProvider(*backendName, env)
	if err != nil {
		return err
	}
	prov = ratelimit.New(prov, *initialTPM, *maxTPM)

	registry := tools.NewRegistry()
	registry.Register(tools.FSReplaceTool(fsWalker.PathAllowed))

	conversations := inmem.New()

	cli := &cli{
		logger:        logger,
		env:           env,
		workflow:      wf,
		provider:      prov,
		registry:      registry,
		conversations: conversations,
		inputKey:      *inputKey,
		debug:         *debug,
	}
	return cli.loop()
}

// buildProvider constructs the requested provider.Provider backend using
// the API key resolved from the environment (spec §6 recognized
// FORGE_KEY/OPEN_ROUTER_KEY/OPENAI_API_KEY/ANTHROPIC_API_KEY variables).
func buildProvider(name string, env provider.Environment) (provider.Provider, error) {
	switch name {
	case "anthropic":
		key, err := env.APIKey()
		if err != nil {
			return nil, err
		}
		return anthropic.NewFromAPIKey(key, anthropic.Options{})
	case "openai":
		key, err := env.APIKey()
		if err != nil {
			return nil, err
		}
		return openai.NewFromAPIKey(key, openai.Options{})
	case "bedrock":
		awsCfg, err := config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		return bedrock.NewFromSDKClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.Options{})
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// cli holds everything a running session needs across commands. A new
// Orchestrator (and thus a new Runner/Variable Store/OrchestratorState) is
// built on /new and /reload, matching the original's "reset and re-run from
// the original prompt" semantics for those two commands.
type cli struct {
	logger        telemetry.Logger
	env           provider.Environment
	workflow      workflow.Workflow
	provider      provider.Provider
	registry      *tools.Registry
	conversations *inmem.Store

	inputKey string
	debug    bool
	config   map[string]string

	conversationID workflow.ConversationId
	orch           *orchestrator.Orchestrator
	firstMessage   string
}

func (c *cli) loop() error {
	ctx := context.Background()
	if err := c.reset(ctx); err != nil {
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		cmd, err := command.Parse(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		switch cmd.Kind {
		case command.Message:
			if c.firstMessage == "" {
				c.firstMessage = cmd.Text
			}
			if err := c.send(ctx, cmd.Text); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
		case command.New:
			if err := c.reset(ctx); err != nil {
				return err
			}
			fmt.Println("started a new conversation")
		case command.Reload:
			first := c.firstMessage
			if err := c.reset(ctx); err != nil {
				return err
			}
			if first != "" {
				c.firstMessage = first
				if err := c.send(ctx, first); err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
				}
			}
		case command.Info:
			c.printInfo()
		case command.Models:
			c.printModels(ctx)
		case command.Config:
			c.handleConfig(cmd.Config)
		case command.Exit, command.End:
			return nil
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (c *cli) reset(ctx context.Context) error {
	id, err := c.conversations.Create(ctx, c.workflow)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	c.conversationID = id
	c.orch = orchestrator.New(c.workflow, c.registry, c.provider)
	if c.debug {
		c.orch.WithTelemetry(telemetry.NewClueMetrics(), telemetry.NewClueTracer())
	}
	c.firstMessage = ""
	return nil
}

func (c *cli) send(ctx context.Context, text string) error {
	raw, err := json.Marshal(text)
	if err != nil {
		return err
	}
	input := variables.Values{}.Set(c.inputKey, raw)

	out, errc := c.orch.Execute(ctx, input)
	for msg := range out {
		c.handleResponse(ctx, msg)
	}
	if err := <-errc; err != nil {
		return err
	}

	head, err := c.workflow.GetHead()
	if err != nil {
		return err
	}
	if ctxt, ok := c.orch.AgentContext(head.ID); ok {
		if err := c.conversations.SetContext(ctx, c.conversationID, head.ID, ctxt); err != nil {
			c.logger.Warn(ctx, "persist agent context failed", "error", err)
		}
	}
	fmt.Println()
	return nil
}

func (c *cli) handleResponse(ctx context.Context, msg orchestrator.AgentMessage) {
	switch msg.Kind {
	case runner.ChatText:
		fmt.Print(msg.Text)
	case runner.ChatToolCallEnd:
		event := store.DispatchEvent{
			Kind:     store.EventToolResult,
			Agent:    msg.Agent,
			ToolName: msg.ToolResult.Name.String(),
			Data:     map[string]any{"is_error": msg.ToolResult.IsError},
		}
		if err := c.conversations.InsertEvent(ctx, c.conversationID, event); err != nil {
			c.logger.Warn(ctx, "insert dispatch event failed", "error", err)
		}
	case runner.ChatFinishReason:
		c.logger.Debug(ctx, "turn finished", "reason", msg.Text)
	case runner.ChatUsage:
		c.logger.Debug(ctx, "usage", "total_tokens", msg.Usage.TotalTokens)
	}
}

func (c *cli) printInfo() {
	fmt.Printf("shell: %s\n", c.env.Shell())
	if url := c.env.ProviderURL(); url != "" {
		fmt.Printf("provider url: %s\n", url)
	}
	fmt.Printf("conversation: %s\n", c.conversationID)
	fmt.Printf("tools: %v\n", c.registry.Names())
}

func (c *cli) printModels(ctx context.Context) {
	models, err := c.provider.Models(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error listing models:", err)
		return
	}
	for _, m := range models {
		fmt.Printf("%s\t%s\n", m.ID, m.Name)
	}
}

func (c *cli) handleConfig(cfg command.ConfigCommand) {
	if c.config == nil {
		c.config = make(map[string]string)
	}
	switch cfg.Kind {
	case command.ConfigList:
		for k, v := range c.config {
			fmt.Printf("%s=%s\n", k, v)
		}
	case command.ConfigGet:
		fmt.Println(c.config[cfg.Key])
	case command.ConfigSet:
		c.config[cfg.Key] = cfg.Value
		fmt.Printf("%s=%s\n", cfg.Key, cfg.Value)
	}
}
