package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/state"
)

// addInitCommand registers `ixado init`, which seeds the project state.
func addInitCommand(root *cobra.Command, flags *GlobalFlags) {
	var phaseName, branchName string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize project state under .ixado/",
		Long: `Init creates the .ixado directory and seeds the project state. With
--phase and --branch it also creates the first phase; tasks are added to the
state file by the planning tooling.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initProject(cmd, flags, phaseName, branchName)
		},
	}
	cmd.Flags().StringVar(&phaseName, "phase", "", "name of the first phase")
	cmd.Flags().StringVar(&branchName, "branch", "", "branch for the first phase")
	root.AddCommand(cmd)
}

func initProject(cmd *cobra.Command, flags *GlobalFlags, phaseName, branchName string) error {
	logger := GetLogger()
	cfg := GetConfig()

	statePath := filepath.Join(flags.ProjectRoot, constants.ProjectDirName, constants.StateFileName)
	if _, err := os.Stat(statePath); err == nil {
		return fmt.Errorf("project already initialized: %s", statePath)
	}

	if (phaseName == "") != (branchName == "") {
		return fmt.Errorf("%w: --phase and --branch must be set together", ixerrors.ErrEmptyValue)
	}

	projectState := &domain.ProjectState{ProjectName: cfg.Project.Name}
	if phaseName != "" {
		phaseID := uuid.NewString()
		projectState.Phases = []domain.Phase{{
			ID:         phaseID,
			Name:       phaseName,
			BranchName: branchName,
			Status:     constants.PhasePlanning,
		}}
		projectState.ActivePhaseID = phaseID
	}

	store := state.NewFileStore(flags.ProjectRoot, nil, logger)
	if err := store.SeedState(projectState); err != nil {
		return err
	}

	cmd.Printf("initialized %s\n", statePath)
	return nil
}
