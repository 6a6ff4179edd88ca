package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ixado/ixado/internal/authz"
	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	"github.com/ixado/ixado/internal/state"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)                               //nolint:gochecknoglobals // render styles
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))       //nolint:gochecknoglobals // render styles
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))        //nolint:gochecknoglobals // render styles
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))       //nolint:gochecknoglobals // render styles
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))       //nolint:gochecknoglobals // render styles
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true) //nolint:gochecknoglobals // render styles
)

// addStatusCommand registers `ixado status`, a read-only view of the project
// state.
func addStatusCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show phase and task status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showStatus(cmd, flags)
		},
	}
	root.AddCommand(cmd)
}

func showStatus(cmd *cobra.Command, flags *GlobalFlags) error {
	logger := GetLogger()

	role, err := parseRole(flags.Role)
	if err != nil {
		return err
	}

	authorizer := authz.NewOrchestrator(nil, func() (*domain.AuthPolicy, error) {
		return authz.DefaultPolicy(), nil
	}, authz.NopAuditor{}, logger)
	if err := authorizer.AuthorizeOrErr(authz.AuthorizeRequest{
		Actor:  currentActor(),
		Role:   role,
		Action: constants.ActionStatusRead,
	}); err != nil {
		return err
	}

	store := state.NewFileStore(flags.ProjectRoot, nil, logger)
	projectState, err := store.GetState()
	if err != nil {
		return err
	}

	cmd.Println(renderStatus(projectState))
	return nil
}

// renderStatus builds the status view. Extracted for testability.
func renderStatus(projectState *domain.ProjectState) string {
	var b strings.Builder

	name := projectState.ProjectName
	if name == "" {
		name = "(uninitialized project)"
	}
	b.WriteString(titleStyle.Render(name) + "\n")

	if len(projectState.Phases) == 0 {
		b.WriteString(labelStyle.Render("no phases") + "\n")
		return b.String()
	}

	active := projectState.ActivePhase()
	for i := range projectState.Phases {
		ph := &projectState.Phases[i]
		marker := "  "
		if active != nil && ph.ID == active.ID {
			marker = activeStyle.Render("> ")
		}
		fmt.Fprintf(&b, "%s%s  %s  %s\n",
			marker, titleStyle.Render(ph.Name), phaseStatusStyle(ph.Status), labelStyle.Render(ph.BranchName))
		if ph.PRURL != "" {
			fmt.Fprintf(&b, "    %s %s\n", labelStyle.Render("pr:"), ph.PRURL)
		}
		if ph.CIStatusContext != "" {
			fmt.Fprintf(&b, "    %s %s\n", labelStyle.Render("ci:"), ph.CIStatusContext)
		}
		for t := range ph.Tasks {
			task := &ph.Tasks[t]
			fmt.Fprintf(&b, "    %2d. %s  %s", t+1, task.Title, taskStatusStyle(task.Status))
			if task.Assignee != domain.AdapterUnassigned {
				fmt.Fprintf(&b, "  %s", labelStyle.Render(task.Assignee.String()))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func phaseStatusStyle(status constants.PhaseStatus) string {
	switch status {
	case constants.PhaseDone, constants.PhaseReadyForReview:
		return okStyle.Render(status.String())
	case constants.PhaseCIFailed:
		return failStyle.Render(status.String())
	case constants.PhaseAwaitingCI, constants.PhaseCreatingPR:
		return warnStyle.Render(status.String())
	default:
		return status.String()
	}
}

func taskStatusStyle(status constants.TaskStatus) string {
	switch status {
	case constants.TaskDone:
		return okStyle.Render(status.String())
	case constants.TaskFailed:
		return failStyle.Render(status.String())
	case constants.TaskCIFix, constants.TaskInProgress:
		return warnStyle.Render(status.String())
	default:
		return status.String()
	}
}
