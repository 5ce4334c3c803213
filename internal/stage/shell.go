package stage

import (
	"context"
	"os/exec"

	"github.com/vk/gridci/internal/matrix"
)

// Shell binds a stage command to a platform-family invocation strategy.
// Keeping the strategy behind an interface keeps platform branching out of
// the runner itself.
type Shell interface {
	// Command builds the process that executes script under this family's
	// shell semantics.
	Command(ctx context.Context, script string) *exec.Cmd
}

// ShellFor selects the activation strategy for an environment's platform
// family.
func ShellFor(family matrix.Family) Shell {
	if family == matrix.FamilyWindows {
		return windowsShell{}
	}
	return posixShell{}
}

type posixShell struct{}

func (posixShell) Command(ctx context.Context, script string) *exec.Cmd {
	return exec.CommandContext(ctx, "/bin/sh", "-c", script)
}

type windowsShell struct{}

func (windowsShell) Command(ctx context.Context, script string) *exec.Cmd {
	return exec.CommandContext(ctx, "cmd", "/C", script)
}
