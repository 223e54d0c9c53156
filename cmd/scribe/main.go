package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/alkime/scribe/internal/audio"
	"github.com/alkime/scribe/internal/config"
	"github.com/alkime/scribe/internal/keyring"
	"github.com/alkime/scribe/internal/logger"
	"github.com/alkime/scribe/internal/transcription"
	"github.com/alkime/scribe/internal/tui"
	"github.com/alkime/scribe/internal/upload"
	tea "github.com/charmbracelet/bubbletea"
)

// CLI defines the scribe command structure.
type CLI struct {
	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"withargs" help:"Pick an audio file and transcribe it in a terminal UI"`

	// Subcommands
	Transcribe TranscribeCmd `cmd:"" help:"Transcribe an audio file without the terminal UI"`
	Config     ConfigCmd     `cmd:"" help:"Manage configuration"`
}

// ServiceFlags selects the transcription service.
type ServiceFlags struct {
	Endpoint string        `flag:"" default:"${endpoint}" help:"Transcription service base URL"`
	Timeout  time.Duration `flag:"" default:"${timeout}" help:"Request timeout (0 waits indefinitely)"`
}

func (s ServiceFlags) client() *transcription.Client {
	return transcription.NewClient(s.Endpoint,
		transcription.WithTimeout(s.Timeout),
		transcription.WithLogger(slog.Default()),
	)
}

// TUICmd is the default command that runs the TUI.
type TUICmd struct {
	ServiceFlags `embed:""`

	File string `arg:"" optional:"" type:"existingfile" help:"Audio file to preselect"`
}

// Run executes the TUI command.
func (c *TUICmd) Run(cfg *config.Client) error {
	closeLog, err := setupFileLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := c.client()
	wf := upload.New(client, upload.WithLogger(slog.Default()))

	if c.File != "" {
		file, err := audio.FromPath(c.File)
		if err != nil {
			return fmt.Errorf("failed to open audio file: %w", err)
		}

		wf.SelectFile(file)
	}

	slog.Info("Starting TUI", "endpoint", client.Endpoint(), "file", c.File)

	model, err := tui.New(ctx, wf, tui.WithProgress(client.Progress()))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}

	wf.Cancel()
	wf.Wait()

	if transcript, ok := wf.State().Result(); ok {
		fmt.Println(transcript)
	}

	fmt.Println("\nfinished. bye!")

	return nil
}

// TranscribeCmd submits one file and prints or writes the transcript.
type TranscribeCmd struct {
	ServiceFlags `embed:""`

	File   string `arg:"" required:"" type:"existingfile" help:"Audio file to transcribe"`
	Output string `flag:"" short:"o" optional:"" help:"Write the transcript here instead of stdout"`
}

// Run executes the transcribe command.
func (c *TranscribeCmd) Run(cfg *config.Client) error {
	logger.Setup(os.Stderr, logger.Text, logger.Level(cfg.Env, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	file, err := audio.FromPath(c.File)
	if err != nil {
		return fmt.Errorf("failed to open audio file: %w", err)
	}

	if !file.IsAudio() {
		slog.Warn("File does not look like audio, sending anyway", "file", file.Name, "media_type", file.MediaType)
	}

	wf := upload.New(c.client())
	wf.SelectFile(file)

	if err := wf.Submit(ctx); err != nil {
		return err
	}

	wf.Wait()

	state := wf.State()

	transcript, ok := state.Result()
	if !ok {
		if state.Err != nil {
			return state.Err
		}

		return errors.New("transcription was interrupted")
	}

	if c.Output == "" {
		fmt.Println(transcript)
		return nil
	}

	//nolint:gosec // Transcript files need to be readable
	if err := os.WriteFile(c.Output, []byte(transcript), 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}

	slog.Info("Transcript written", "path", c.Output, "chars", len(transcript))

	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey   SetKeyCmd   `cmd:"" help:"Store an API key in system keychain"`
	ListKeys ListKeysCmd `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
}

// SetKeyCmd stores an API key in the system keychain.
type SetKeyCmd struct {
	Service string `arg:"" enum:"openai" help:"Service name (openai)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured.
type ListKeysCmd struct{}

// Run executes the list-keys command.
//
//nolint:unparam // error return required by Kong interface
func (c *ListKeysCmd) Run() error {
	allSet := true

	for _, apiKey := range keyring.AllAPIKeys() {
		if keyring.IsSet(apiKey) {
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		} else {
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
			allSet = false
		}
	}

	if !allSet {
		fmt.Println("\nRun 'scribe config set-key <service> <key>' to configure.")
	}

	return nil
}

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Quiet until a command decides where logs go
	logger.Setup(io.Discard, logger.Text, slog.LevelInfo)

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("scribe"),
		kong.Description("Upload audio to a transcription service and read the result."),
		kong.Vars{
			"endpoint": cfg.Endpoint,
			"timeout":  cfg.Timeout.String(),
		},
		kong.Bind(cfg),
	)
	err = ctx.Run()
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}

// setupFileLogging sends logs to SCRIBE_LOG_FILE while the TUI owns the
// terminal, or drops them when it is unset.
func setupFileLogging(cfg *config.Client) (func(), error) {
	if cfg.LogFile == "" {
		return func() {}, nil
	}

	//nolint:gosec // path comes from the user's own environment
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger.Setup(f, logger.Text, logger.Level(cfg.Env, cfg.LogLevel))

	return func() { _ = f.Close() }, nil
}
