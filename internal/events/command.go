package events

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/tourneyd/tourneyd/internal/round"
)

// CommandHandler runs shell commands when new training or tournament data
// arrives. The placeholders %round% and %dataset_path% in the configured
// command lines are replaced before execution.
type CommandHandler struct {
	NoopHandler

	name          string
	trainingCmd   string
	tournamentCmd string
	env           Env
	log           *slog.Logger
}

// NewCommandHandler creates a command handler. Either command may be
// empty, in which case the corresponding event is ignored.
func NewCommandHandler(name, trainingCmd, tournamentCmd string) *CommandHandler {
	return &CommandHandler{
		name:          name,
		trainingCmd:   trainingCmd,
		tournamentCmd: tournamentCmd,
		log:           slog.With("component", "command-handler", "handler", name),
	}
}

// Name implements Handler.
func (h *CommandHandler) Name() string { return h.name }

// Bind implements EnvAware.
func (h *CommandHandler) Bind(env Env) { h.env = env }

// OnNewTrainingData runs the configured training command.
func (h *CommandHandler) OnNewTrainingData(ctx context.Context, n round.Number) error {
	return h.run(ctx, h.trainingCmd, n)
}

// OnNewTournamentData runs the configured tournament command.
func (h *CommandHandler) OnNewTournamentData(ctx context.Context, n round.Number) error {
	return h.run(ctx, h.tournamentCmd, n)
}

func (h *CommandHandler) run(ctx context.Context, cmdline string, n round.Number) error {
	if cmdline == "" {
		return nil
	}

	cmdline = strings.ReplaceAll(cmdline, "%round%", fmt.Sprintf("%d", n))
	if h.env != nil {
		cmdline = strings.ReplaceAll(cmdline, "%dataset_path%", h.env.DatasetDir(n))
	}

	h.log.Info("executing command", "round", int64(n), "command", cmdline)

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", cmdline)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("command %q: %w (output: %s)", cmdline, err, strings.TrimSpace(string(output)))
	}
	return nil
}
