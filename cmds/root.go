package cmds

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

var (
	defaultOutputRoot string
	RootCmd           = &cobra.Command{
		Use: "kemono-harvester",
		Version: fmt.Sprintf(
			"%s by KJHJason\n%s",
			utils.VERSION,
			"GitHub Repo: https://github.com/KJHJason/Kemono-Harvester-CLI",
		),
		Short: "Bulk download posts from kemono and coomer archive sites.",
		Long: "Kemono Harvester CLI is a command-line tool for bulk downloading images, videos,\n" +
			"archives and post text from creators on kemono and coomer archive sites.",
		Run: func(cmd *cobra.Command, args []string) {
			if defaultOutputRoot == "" {
				cmd.Help()
				return
			}
			settings, err := configs.LoadSettings()
			if err != nil {
				utils.LogError(err, "", true, utils.ERROR)
			}
			settings.OutputRoot = defaultOutputRoot
			if err := configs.SaveSettings(settings); err != nil {
				utils.LogError(err, "", true, utils.ERROR)
			}
			color.Green("Default download path set to: %s", defaultOutputRoot)
		},
	}
)

func init() {
	RootCmd.Flags().StringVar(
		&defaultOutputRoot,
		"download_path",
		"",
		utils.CombineStringsWithNewline(
			[]string{
				"Configure the default path to download to and save it for future runs.",
				"Once set, the -o flag of the download command becomes optional.",
			},
		),
	)
	RootCmd.AddCommand(downloadCmd)
	RootCmd.AddCommand(updateCmd)
}
