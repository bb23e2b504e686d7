package cobra

import (
	"github.com/Anthya1104/raid-simulator/internal/config"
	"github.com/Anthya1104/raid-simulator/internal/raid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagLevel   int
	flagDrives  int
	flagFolder  string
	flagData    string
	flagFailID  int
	flagAddNew  bool
	flagReplace int
	flagNewID   int
)

var rootCmd = &cobra.Command{
	Use:   "raid-simulator",
	Short: "A non-interactive RAID teaching simulator",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info",
	Run: func(cmd *cobra.Command, args []string) {
		logrus.Infof("Version: %s", config.Version)
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new array",
	RunE: func(cmd *cobra.Command, args []string) error {
		level := raid.RaidLevel(flagLevel)
		a, err := raid.CreateArray(flagFolder, level, flagDrives)
		if err != nil {
			return err
		}
		defer a.Cleanup()
		logrus.Infof("created array in %s with signature %s", flagFolder, a.Signature)
		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write data to an existing array",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := raid.OpenArray(flagFolder)
		if err != nil {
			return err
		}
		defer a.Cleanup()
		if err := a.WriteData(flagData); err != nil {
			return err
		}
		logrus.Infof("wrote %d bytes, current lba=%d", len(flagData), a.CurrentLBA)
		return nil
	},
}

var failCmd = &cobra.Command{
	Use:   "fail",
	Short: "Simulate a drive failure",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := raid.OpenArray(flagFolder)
		if err != nil {
			return err
		}
		defer a.Cleanup()
		if err := a.RemoveDrive(flagFailID); err != nil {
			return err
		}
		logrus.Infof("drive %d marked failed", flagFailID)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a drive to an existing array",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := raid.OpenArray(flagFolder)
		if err != nil {
			return err
		}
		defer a.Cleanup()
		id, err := a.AddDrive(false)
		if err != nil {
			return err
		}
		logrus.Infof("added drive %d", id)
		return nil
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Start a rebuild onto a replacement drive",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := raid.OpenArray(flagFolder)
		if err != nil {
			return err
		}
		defer a.Cleanup()
		if err := a.StartRebuild(flagFailID, flagReplace, flagAddNew); err != nil {
			return err
		}
		logrus.Infof("rebuild started: failed=%d replacement=%d new=%v", flagFailID, flagReplace, flagAddNew)
		return nil
	},
}

var rebalanceCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "Start a rebalance across the roster after a drive join",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := raid.OpenArray(flagFolder)
		if err != nil {
			return err
		}
		defer a.Cleanup()
		if err := a.StartRebalance(flagNewID); err != nil {
			return err
		}
		logrus.Infof("rebalance started: new drive=%d", flagNewID)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print array status and a health check",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := raid.OpenArray(flagFolder)
		if err != nil {
			return err
		}
		defer a.Cleanup()
		logrus.Info(a.DisplayStatus())

		report, err := a.HealthCheck()
		if err != nil {
			return err
		}
		logrus.Infof("health: %s (%d/%d drives active, worker=%s)", report.Overall, report.ActiveDrives, report.TotalDrives, report.WorkerState)
		return nil
	},
}

func InitCLI() *cobra.Command {
	rootCmd.PersistentFlags().StringVar(&flagFolder, "folder", "raid_0", "array folder")

	createCmd.Flags().IntVar(&flagLevel, "level", int(raid.RAID0), "raid level (0,1,5,6,10,50,60)")
	createCmd.Flags().IntVar(&flagDrives, "drives", 3, "number of drives")

	writeCmd.Flags().StringVar(&flagData, "data", "", "data to write")

	failCmd.Flags().IntVar(&flagFailID, "drive", 0, "drive id to fail")

	rebuildCmd.Flags().IntVar(&flagFailID, "failed", -1, "failed drive id, or -1 if none")
	rebuildCmd.Flags().IntVar(&flagReplace, "replacement", 0, "replacement drive id")
	rebuildCmd.Flags().BoolVar(&flagAddNew, "new-drive", false, "treat replacement as a brand-new drive")

	rebalanceCmd.Flags().IntVar(&flagNewID, "new-id", 0, "id of the drive that joined the roster")

	rootCmd.AddCommand(versionCmd, createCmd, writeCmd, failCmd, addCmd, rebuildCmd, rebalanceCmd, statusCmd)
	return rootCmd
}

func ExecuteCmd() error {
	return InitCLI().Execute()
}
